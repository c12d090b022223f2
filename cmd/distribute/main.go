/*
main.go - One-shot command line distribution

PURPOSE:
  Runs the calculator without a server. Each run flips the toggle, so
  --runs 2 prints the inverted table followed by the standard one, exactly
  what two consecutive clicks in a UI would produce.

EXAMPLES:
  distribute 1.126.260,90 --variation 12.3
  distribute "1.126.260,90" -v 12.3 --runs 2
  distribute 1000 --config config.yaml

EXIT STATUS:
  Non-zero on invalid or zero amounts, and when a result does not reconcile.
*/
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/warp/credit-engine/config"
	"github.com/warp/credit-engine/distribution"
	"github.com/warp/credit-engine/money"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

type options struct {
	variation  string
	runs       int
	configPath string
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "distribute <amount>",
		Short: "Distribui um crédito em três meses alternando o padrão",
		Long: `Distribui um crédito tributário em três meses.

O mês 1 recebe a média, o mês 2 é deslocado pela variação e o mês 3
fica com a sobra. Cada execução alterna entre o padrão (mês 2 baixo)
e o invertido (mês 2 alto); a primeira execução usa o invertido.

O valor usa ponto como separador de milhar e vírgula como decimal.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(out, args[0], opts)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(&opts.variation, "variation", "v", "12.3", "Variação (%) aplicada ao mês 2")
	cmd.Flags().IntVarP(&opts.runs, "runs", "n", 1, "Número de execuções consecutivas")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Arquivo YAML de configuração (taxas, tolerância)")

	return cmd
}

func run(out io.Writer, amountText string, opts *options) error {
	if opts.runs < 1 {
		return fmt.Errorf("--runs must be at least 1, got %d", opts.runs)
	}

	pct, err := decimal.NewFromString(opts.variation)
	if err != nil {
		// Accept the locale form too: "12,3".
		if pct, err = money.Parse(opts.variation); err != nil {
			return fmt.Errorf("invalid --variation %q: %w", opts.variation, err)
		}
	}

	cfg := config.Default()
	if opts.configPath != "" {
		if cfg, err = config.Load(opts.configPath); err != nil {
			return err
		}
	}
	calc, err := cfg.Calculator()
	if err != nil {
		return err
	}

	state := distribution.InitialPattern
	var unreconciled error
	for i := 0; i < opts.runs; i++ {
		var result distribution.Result
		result, state, err = calc.Distribute(state, amountText, pct)
		switch {
		case errors.Is(err, money.ErrInvalidAmount):
			return fmt.Errorf("valor inválido: %w", err)
		case errors.Is(err, distribution.ErrZeroAmount):
			return fmt.Errorf("insira um valor maior que zero: %w", err)
		case err != nil:
			return err
		}

		if i > 0 {
			fmt.Fprintln(out)
		}
		if err := printResult(out, result, calc.EffectiveTolerance()); err != nil {
			unreconciled = err
		}
	}
	return unreconciled
}

func printResult(out io.Writer, r distribution.Result, tolerance decimal.Decimal) error {
	fmt.Fprintln(out, r.Pattern.Label())

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Mês\tValor %s\tValor %s\tTotal do Mês\t\n", r.Rates.NameA, r.Rates.NameB)
	for _, p := range r.Periods {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n",
			p.Label, money.Format(p.ComponentA), money.Format(p.ComponentB), money.Format(p.Total))
	}
	tw.Flush()

	if err := r.Check(tolerance); err != nil {
		fmt.Fprintf(out, "Erro de arredondamento: %s\n", r.Residual)
		return err
	}
	fmt.Fprintf(out, "Validação Matemática: R$ %s (Perfeito)\n", money.Format(r.Sum))
	return nil
}
