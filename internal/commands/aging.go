package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/report"
)

func newAgingCommand() *cobra.Command {
	var houseID string
	var asOf string

	cmd := &cobra.Command{
		Use:   "aging",
		Short: "Print the invoice aging report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			return printAging(cmd.Context(), d, houseID, asOf)
		},
	}

	cmd.Flags().StringVar(&houseID, "house", "", "limit the report to one house")
	cmd.Flags().StringVar(&asOf, "as-of", "", "report date as YYYY-MM-DD (default today)")
	return cmd
}

func printAging(ctx context.Context, d *deps, houseID, asOf string) error {
	svc := report.NewService(d.factory.InvoiceRepository())

	var asOfTime time.Time
	if asOf != "" {
		parsed, err := report.ParseAsOf(asOf)
		if err != nil {
			return err
		}
		asOfTime = parsed
	}

	aging, err := svc.InvoiceAging(ctx, houseID, asOfTime)
	if err != nil {
		return err
	}

	fmt.Printf("Invoice aging as of %s\n\n", aging.AsOf)
	if len(aging.Rows) == 0 {
		fmt.Println("No outstanding invoices")
		return nil
	}

	fmt.Printf("%-28s %-8s %-8s %-11s %12s %6s  %s\n",
		"INVOICE", "HOUSE", "CYCLE", "DUE", "OUTSTANDING", "DAYS", "BUCKET")
	for _, row := range aging.Rows {
		fmt.Printf("%-28s %-8s %-8s %-11s %12s %6d  %s\n",
			row.InvoiceID, row.HouseID, row.Cycle, row.DueDate.Format("2006-01-02"),
			row.Outstanding, row.DaysPastDue, row.Bucket)
	}

	s := aging.Summary
	fmt.Println()
	fmt.Printf("current: %s   0-30: %s   31-60: %s   61-90: %s   90+: %s   total: %s\n",
		s.Current, s.Days0To30, s.Days31To60, s.Days61To90, s.Days90Plus, s.Total)
	return nil
}
