/*
toggle.go - Pattern alternation between consecutive calls

PURPOSE:
  Consecutive accepted calls alternate between the standard and the inverted
  pattern. The state is a plain Pattern value owned by the caller: a local
  variable in the CLI, a session row behind the HTTP API.

SEE ALSO:
  - calculator.go: Flips the state once per accepted call
  - store.go: Per-session state
*/
package distribution

// InitialPattern is the stored state of a session that has never run.
const InitialPattern = PatternStandard

// Next returns the opposite pattern.
//
// The stored state flips before the pattern is chosen and the flipped-to
// value drives the call. A fresh session therefore runs INVERTED first,
// then STANDARD, and so on. Anything that isn't INVERTED counts as STANDARD.
func (p Pattern) Next() Pattern {
	if p == PatternInverted {
		return PatternStandard
	}
	return PatternInverted
}
