package report

import (
	"context"
	"sort"
	"time"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/errors"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/invoice"
)

// InvoiceStore is the slice of the invoice repository the report side needs.
type InvoiceStore interface {
	List(ctx context.Context, f invoice.Filter) ([]invoice.Invoice, error)
}

// Service computes reconciliation reports. It only reads; every number it
// shows is derived from balances the allocation transactions maintain.
type Service struct {
	invoices InvoiceStore
}

// NewService creates a new report service
func NewService(invoices InvoiceStore) *Service {
	return &Service{invoices: invoices}
}

// InvoiceAging buckets every invoice that still has outstanding money by how
// far past its due date it is on asOf. A zero asOf means today. Days past
// due count whole days between the due date and asOf, both taken as UTC
// dates, so an invoice is "current" through its entire due day.
func (s *Service) InvoiceAging(ctx context.Context, houseID string, asOf time.Time) (*AgingReport, error) {
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	asOfDate := truncateToDate(asOf)

	invoices, err := s.invoices.List(ctx, invoice.Filter{HouseID: houseID, OnlyOutstanding: true})
	if err != nil {
		return nil, err
	}

	report := &AgingReport{
		AsOf:    asOfDate.Format("2006-01-02"),
		HouseID: houseID,
		Rows:    make([]AgingRow, 0, len(invoices)),
	}
	for _, inv := range invoices {
		if inv.Cancelled() || !inv.Outstanding.IsPositive() {
			continue
		}
		days := daysBetween(truncateToDate(inv.DueDate), asOfDate)
		bucket := BucketFor(days)
		report.Rows = append(report.Rows, AgingRow{
			InvoiceID:   inv.InvoiceID,
			HouseID:     inv.HouseID,
			Cycle:       inv.Cycle,
			DueDate:     inv.DueDate,
			DaysPastDue: days,
			Outstanding: inv.Outstanding,
			Bucket:      bucket,
		})
		report.Summary.add(bucket, inv.Outstanding)
	}

	// Most overdue first; ties broken by id for a stable order.
	sort.Slice(report.Rows, func(i, j int) bool {
		if report.Rows[i].DaysPastDue != report.Rows[j].DaysPastDue {
			return report.Rows[i].DaysPastDue > report.Rows[j].DaysPastDue
		}
		return report.Rows[i].InvoiceID < report.Rows[j].InvoiceID
	})
	return report, nil
}

// ParseAsOf interprets an optional YYYY-MM-DD report date.
func ParseAsOf(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, errors.NewValidationError("asOf must be formatted as YYYY-MM-DD")
	}
	return t, nil
}

func truncateToDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
