package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/audit"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/bank"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/errors"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/expense"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/invoice"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/ledger"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/payin"
)

func newSeedCommand() *cobra.Command {
	var houses int

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed demo data for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			return seed(cmd.Context(), d, houses)
		},
	}

	cmd.Flags().IntVar(&houses, "houses", 3, "number of houses to seed")
	return cmd
}

// seed walks the real service flow end to end: every house gets an invoice
// for the current cycle, the first house pays and has its payment allocated,
// the second is left waiting in the review queue, and a small bank statement
// with one unclaimed credit and a matched expense rounds out the
// reconciliation picture.
func seed(ctx context.Context, d *deps, houses int) error {
	if houses < 1 {
		return fmt.Errorf("houses must be at least 1")
	}

	actor := audit.SystemActor("seed")

	bankRepo := d.factory.BankRepository()
	invoiceRepo := d.factory.InvoiceRepository()
	payins := payin.NewService(d.factory.PayInRepository(), bankRepo)
	ledgers := ledger.NewService(d.factory.LedgerRepository(), invoiceRepo)
	invoices := invoice.NewService(invoiceRepo)
	expenses := expense.NewService(d.factory.ExpenseRepository(), bankRepo)
	banks := bank.NewService(bankRepo)

	now := time.Now().UTC()
	cycle := now.Format("2006-01")
	dueDate := now.AddDate(0, 0, 14).Format("2006-01-02")
	transferDate := now.Format("2006-01-02")

	seeded := make([]*invoice.Invoice, 0, houses)
	for i := 1; i <= houses; i++ {
		houseID := fmt.Sprintf("H-%03d", i)
		inv, err := invoices.Create(ctx, actor, &invoice.CreateInvoiceRequest{
			HouseID:     houseID,
			Cycle:       cycle,
			TotalAmount: "1500.00",
			DueDate:     dueDate,
		})
		if err != nil {
			return fmt.Errorf("invoice for %s: %w", houseID, err)
		}
		seeded = append(seeded, inv)
		fmt.Printf("Issued invoice %s for %s (%s)\n", inv.InvoiceID, houseID, cycle)
	}

	// First house pays in full.
	paid, err := payins.Submit(ctx, actor, &payin.SubmitPayInRequest{
		HouseID:        "H-001",
		Amount:         "1500.00",
		TransferDate:   transferDate,
		TransferHour:   9,
		TransferMinute: 30,
		SlipReference:  "SEED-SLIP-001",
		Source:         string(payin.SourceAdminCreated),
	})
	switch {
	case errors.HasCode(err, errors.CodePayInPendingExists):
		fmt.Println("H-001 already has an open pay-in, skipping payment flow")
	case err != nil:
		return fmt.Errorf("pay-in for H-001: %w", err)
	default:
		if _, err := payins.Accept(ctx, actor, paid.PayInID); err != nil {
			return fmt.Errorf("accepting %s: %w", paid.PayInID, err)
		}

		entries, err := ledgers.ListAllocatable(ctx, "H-001")
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return fmt.Errorf("no allocatable ledger entry for H-001")
		}
		if _, err := ledgers.ApplyPayment(ctx, actor, &ledger.ApplyPaymentRequest{
			InvoiceID:     seeded[0].InvoiceID,
			LedgerEntryID: entries[0].EntryID,
			Amount:        "1500.00",
			Note:          "seeded full payment",
		}); err != nil {
			return fmt.Errorf("allocating H-001 payment: %w", err)
		}
		fmt.Printf("H-001 paid invoice %s in full\n", seeded[0].InvoiceID)
	}

	// Second house is left waiting in the review queue.
	if houses >= 2 {
		_, err := payins.Submit(ctx, actor, &payin.SubmitPayInRequest{
			HouseID:        "H-002",
			Amount:         "1500.00",
			TransferDate:   transferDate,
			TransferHour:   18,
			TransferMinute: 5,
			SlipReference:  "SEED-SLIP-002",
		})
		switch {
		case errors.HasCode(err, errors.CodePayInPendingExists):
			fmt.Println("H-002 already has an open pay-in, skipping")
		case err != nil:
			return fmt.Errorf("pay-in for H-002: %w", err)
		default:
			fmt.Println("H-002 has a pay-in waiting for review")
		}
	}

	// A small statement: one credit nobody claimed and two debits, one of
	// which matches a recorded expense. Line ids carry a timestamp so each
	// run imports fresh lines.
	lineID := func(n int) string {
		return fmt.Sprintf("SEED-%s-%03d", now.Format("20060102150405"), n)
	}
	effective := now.Format(time.RFC3339)
	result, err := banks.ImportStatement(ctx, actor, &bank.ImportStatementRequest{
		Lines: []bank.StatementLine{
			{LineID: lineID(1), Description: "TRANSFER FROM UNKNOWN", Credit: "1500.00", EffectiveAt: effective, Channel: "TRANSFER"},
			{LineID: lineID(2), Description: "POOL SERVICE CO", Debit: "3200.00", EffectiveAt: effective, Channel: "TRANSFER"},
			{LineID: lineID(3), Description: "PEA ELECTRIC", Debit: "880.50", EffectiveAt: effective, Channel: "DIRECT_DEBIT"},
		},
	})
	if err != nil {
		return fmt.Errorf("importing statement: %w", err)
	}
	fmt.Printf("Imported bank statement batch %s (%d lines)\n", result.BatchID, result.Imported)

	e, err := expenses.Create(ctx, actor, &expense.CreateExpenseRequest{
		Description: "monthly pool maintenance",
		VendorName:  "Pool Service Co",
		Category:    "maintenance",
		Amount:      "3200.00",
		ExpenseDate: transferDate,
	})
	if err != nil {
		return fmt.Errorf("creating expense: %w", err)
	}
	if _, err := expenses.AllocateToBankDebit(ctx, actor, &expense.AllocateRequest{
		ExpenseID: e.ExpenseID,
		BankTxnID: lineID(2),
		Amount:    "3200.00",
		Note:      "seeded match",
	}); err != nil {
		return fmt.Errorf("allocating expense: %w", err)
	}
	fmt.Printf("Expense %s matched against bank debit %s\n", e.ExpenseID, lineID(2))

	fmt.Println("Seed complete")
	return nil
}
