package report

import (
	"time"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/common/money"
)

// Bucket labels how far past due an outstanding invoice is.
type Bucket string

const (
	BucketCurrent Bucket = "current"
	Bucket0To30   Bucket = "0_30"
	Bucket31To60  Bucket = "31_60"
	Bucket61To90  Bucket = "61_90"
	Bucket90Plus  Bucket = "90_plus"
)

// BucketFor places a days-past-due count into its bucket. Zero or negative
// means the invoice is not yet due.
func BucketFor(daysPastDue int) Bucket {
	switch {
	case daysPastDue <= 0:
		return BucketCurrent
	case daysPastDue <= 30:
		return Bucket0To30
	case daysPastDue <= 60:
		return Bucket31To60
	case daysPastDue <= 90:
		return Bucket61To90
	default:
		return Bucket90Plus
	}
}

// AgingRow is one outstanding invoice as seen by the aging report.
type AgingRow struct {
	InvoiceID   string       `json:"invoiceId"`
	HouseID     string       `json:"houseId"`
	Cycle       string       `json:"cycle"`
	DueDate     time.Time    `json:"dueDate"`
	DaysPastDue int          `json:"daysPastDue"`
	Outstanding money.Amount `json:"outstanding"`
	Bucket      Bucket       `json:"bucket"`
}

// AgingSummary totals outstanding money per bucket.
type AgingSummary struct {
	Current    money.Amount `json:"current"`
	Days0To30  money.Amount `json:"0_30"`
	Days31To60 money.Amount `json:"31_60"`
	Days61To90 money.Amount `json:"61_90"`
	Days90Plus money.Amount `json:"90_plus"`
	Total      money.Amount `json:"total"`
}

func (s *AgingSummary) add(bucket Bucket, amount money.Amount) {
	switch bucket {
	case BucketCurrent:
		s.Current = s.Current.Add(amount)
	case Bucket0To30:
		s.Days0To30 = s.Days0To30.Add(amount)
	case Bucket31To60:
		s.Days31To60 = s.Days31To60.Add(amount)
	case Bucket61To90:
		s.Days61To90 = s.Days61To90.Add(amount)
	case Bucket90Plus:
		s.Days90Plus = s.Days90Plus.Add(amount)
	}
	s.Total = s.Total.Add(amount)
}

// AgingReport is the receivables picture as of a date: every invoice with
// outstanding money, bucketed by how overdue it is.
type AgingReport struct {
	AsOf    string       `json:"asOf"`
	HouseID string       `json:"houseId,omitempty"`
	Summary AgingSummary `json:"summary"`
	Rows    []AgingRow   `json:"rows"`
}
