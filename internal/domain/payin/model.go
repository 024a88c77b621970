package payin

import (
	"fmt"
	"strings"
	"time"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/common/money"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/errors"
)

// Status represents the lifecycle state of a pay-in
type Status string

const (
	// StatusDraft is a saved submission the resident has not sent for review yet
	StatusDraft Status = "DRAFT"
	// StatusSubmitted is waiting for admin review
	StatusSubmitted Status = "SUBMITTED"
	// StatusAccepted has been confirmed and has exactly one ledger entry
	StatusAccepted Status = "ACCEPTED"
	// StatusRejectedNeedsFix was rejected and waits for the resident to correct it
	StatusRejectedNeedsFix Status = "REJECTED_NEEDS_FIX"
)

// Legacy spellings still arriving from older clients map onto the canonical
// statuses; they are aliases, not separate states.
var statusAliases = map[string]Status{
	"PENDING":  StatusSubmitted,
	"REJECTED": StatusRejectedNeedsFix,
}

// ParseStatus normalizes a status string, accepting legacy aliases.
func ParseStatus(s string) (Status, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	if alias, ok := statusAliases[normalized]; ok {
		return alias, nil
	}
	status := Status(normalized)
	if !status.Valid() {
		return "", errors.NewValidationError(fmt.Sprintf("unknown pay-in status %q", s))
	}
	return status, nil
}

// Valid reports whether the status is one of the canonical states.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusAccepted, StatusRejectedNeedsFix:
		return true
	}
	return false
}

// Blocking reports whether a pay-in in this status occupies the house's
// single open-submission slot.
func (s Status) Blocking() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusRejectedNeedsFix:
		return true
	}
	return false
}

// Editable reports whether the pay-in may still be updated by its submitter.
// The editable set and the blocking set are the same: everything before
// acceptance.
func (s Status) Editable() bool {
	return s.Blocking()
}

// Source represents how a pay-in entered the system
type Source string

const (
	// SourceResident means the resident submitted it through the app
	SourceResident Source = "RESIDENT"
	// SourceAdminCreated means an admin recorded it on the resident's behalf
	SourceAdminCreated Source = "ADMIN_CREATED"
	// SourceLineReceived means it arrived via the LINE channel
	SourceLineReceived Source = "LINE_RECEIVED"
)

// ParseSource normalizes a source string; empty defaults to RESIDENT.
func ParseSource(s string) (Source, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	if normalized == "" {
		return SourceResident, nil
	}
	source := Source(normalized)
	switch source {
	case SourceResident, SourceAdminCreated, SourceLineReceived:
		return source, nil
	}
	return "", errors.NewValidationError(fmt.Sprintf("unknown pay-in source %q", s))
}

// PayIn is a resident's claim that a bank transfer was made for their house.
// At most one pay-in per house may sit in a blocking status at any time.
type PayIn struct {
	PayInID           string       `json:"payinId"`
	HouseID           string       `json:"houseId"`
	Amount            money.Amount `json:"amount"`
	TransferTimestamp time.Time    `json:"transferTimestamp"`
	SlipReference     string       `json:"slipReference,omitempty"`
	Status            Status       `json:"status"`
	Source            Source       `json:"source"`
	RejectReason      string       `json:"rejectReason,omitempty"`
	AdminNote         string       `json:"adminNote,omitempty"`
	BankTxnID         string       `json:"bankTxnId,omitempty"`
	IsMatched         bool         `json:"isMatched"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
}

// Transfers are reported in Thai wall-clock time; ICT has no DST so a fixed
// offset is exact.
var bangkok = time.FixedZone("ICT", 7*60*60)

// TransferTime combines the date, hour and minute of a reported transfer
// into a UTC instant. Hour and minute are validated here so a bad clock
// value surfaces as a field error, not a parse error.
func TransferTime(date string, hour, minute int) (time.Time, error) {
	if hour < 0 || hour > 23 {
		return time.Time{}, errors.NewValidationError("transfer hour must be between 0 and 23")
	}
	if minute < 0 || minute > 59 {
		return time.Time{}, errors.NewValidationError("transfer minute must be between 0 and 59")
	}
	day, err := time.ParseInLocation("2006-01-02", date, bangkok)
	if err != nil {
		return time.Time{}, errors.NewValidationError("transfer date must be in YYYY-MM-DD format")
	}
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, bangkok).UTC(), nil
}

// SubmitPayInRequest carries a new submission. PayInID may be supplied by
// the client for idempotent retries; Draft saves the pay-in without sending
// it for review (it still occupies the house's open slot).
type SubmitPayInRequest struct {
	PayInID        string `json:"payinId,omitempty"`
	HouseID        string `json:"houseId"`
	Amount         string `json:"amount"`
	TransferDate   string `json:"transferDate"`
	TransferHour   int    `json:"transferHour"`
	TransferMinute int    `json:"transferMinute"`
	SlipReference  string `json:"slipReference,omitempty"`
	Note           string `json:"note,omitempty"`
	Source         string `json:"source,omitempty"`
	Draft          bool   `json:"draft,omitempty"`
}

// UpdatePayInRequest edits a pay-in that has not been accepted. Nil fields
// are left unchanged. Submit promotes a DRAFT to SUBMITTED; updating a
// REJECTED_NEEDS_FIX pay-in always resubmits it.
type UpdatePayInRequest struct {
	Amount         *string `json:"amount,omitempty"`
	TransferDate   *string `json:"transferDate,omitempty"`
	TransferHour   *int    `json:"transferHour,omitempty"`
	TransferMinute *int    `json:"transferMinute,omitempty"`
	SlipReference  *string `json:"slipReference,omitempty"`
	Note           *string `json:"note,omitempty"`
	Submit         bool    `json:"submit,omitempty"`
}

// CreateFromBankCreditRequest seeds a pay-in from an unidentified bank
// credit line. Amount and transfer time come from the statement line itself.
type CreateFromBankCreditRequest struct {
	BankTxnID string `json:"bankTxnId"`
	HouseID   string `json:"houseId"`
	Source    string `json:"source,omitempty"`
	Note      string `json:"note,omitempty"`
}
