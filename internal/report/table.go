// Package report renders an analysis as a fixed-width results table.
package report

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"options_analyzer/internal/evaluator"
	"options_analyzer/internal/models"

	"github.com/dustin/go-humanize"
)

// Columns are the results table headers, in order.
var Columns = []string{
	"Ticker", "Price", "Direction", "Days to Expiry", "k(daily vol)",
	"Win Prob (%)", "TP", "SL", "R:R", "Exp Return", "Allocation ($)",
}

// WriteTable writes the rounded rows of a, one per result, plus a footer with
// the portfolio value and the total expected-return score.
func WriteTable(w io.Writer, a models.Analysis) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	for i, c := range Columns {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, c)
	}
	fmt.Fprintln(tw, "\t")

	for _, r := range evaluator.Rows(a.Results) {
		ticker := r.Ticker
		if r.Degraded {
			ticker += "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			ticker,
			f2(r.Price),
			r.Direction,
			r.DaysToExpiry,
			f4(r.K),
			f2(r.WinProbPct),
			f2(r.TP),
			f2(r.SL),
			f2(r.RR),
			f4(r.ExpReturn),
			Money(r.Allocation),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\nPortfolio: $%s  Total exp return: %s\n",
		Money(a.PortfolioValue), f4(evaluator.Round(a.TotalExpReturn, 4)))
	return err
}

// Money formats v with thousands separators and two decimals.
func Money(v float64) string {
	return humanize.FormatFloat("#,###.##", evaluator.Round(v, 2))
}

func f2(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func f4(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }
