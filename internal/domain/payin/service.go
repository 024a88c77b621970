package payin

import (
	"context"
	"strings"
	"time"

	ulid "github.com/oklog/ulid/v2"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/common/money"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/audit"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/errors"
	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/ledger"
)

// Service provides pay-in lifecycle business logic
type Service struct {
	repo  Repository
	banks BankStore
}

// NewService creates a new pay-in service
func NewService(repo Repository, banks BankStore) *Service {
	return &Service{
		repo:  repo,
		banks: banks,
	}
}

// Submit creates a new pay-in for a house. Field validation runs before the
// open-slot check, so a request that is both malformed and conflicting
// reports the validation error.
func (s *Service) Submit(ctx context.Context, actor audit.Actor, req *SubmitPayInRequest) (*PayIn, error) {
	if err := audit.RequireActor(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.HouseID) == "" {
		return nil, errors.NewValidationError("house id is required")
	}

	amount, err := money.Parse(req.Amount)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, errors.NewValidationError("amount must be positive")
	}

	transferAt, err := TransferTime(req.TransferDate, req.TransferHour, req.TransferMinute)
	if err != nil {
		return nil, err
	}

	source, err := ParseSource(req.Source)
	if err != nil {
		return nil, err
	}

	status := StatusSubmitted
	if req.Draft {
		status = StatusDraft
	}

	now := time.Now().UTC()
	p := &PayIn{
		PayInID:           req.PayInID,
		HouseID:           req.HouseID,
		Amount:            amount,
		TransferTimestamp: transferAt,
		SlipReference:     req.SlipReference,
		Status:            status,
		Source:            source,
		AdminNote:         req.Note,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if p.PayInID == "" {
		p.PayInID = ulid.Make().String()
	}

	evt := audit.NewEvent(actor, "payin.submit", audit.EntityPayIn, p.PayInID, nil, *p)
	if err := s.repo.Create(ctx, p, evt); err != nil {
		return nil, err
	}
	return p, nil
}

// Update edits a pay-in that has not been accepted. Editing a rejected
// pay-in resubmits it and clears the rejection reason; Submit on a draft
// sends it for review.
func (s *Service) Update(ctx context.Context, actor audit.Actor, payinID string, req *UpdatePayInRequest) (*PayIn, error) {
	if err := audit.RequireActor(actor); err != nil {
		return nil, err
	}

	p, err := s.repo.Get(ctx, payinID)
	if err != nil {
		return nil, err
	}
	if !p.Status.Editable() {
		return nil, errors.NewInvalidStateError("pay-in can no longer be edited", string(p.Status))
	}

	expected := p.Status
	before := *p
	updated := *p

	if req.Amount != nil {
		amount, err := money.Parse(*req.Amount)
		if err != nil {
			return nil, err
		}
		if !amount.IsPositive() {
			return nil, errors.NewValidationError("amount must be positive")
		}
		updated.Amount = amount
	}

	if req.TransferDate != nil || req.TransferHour != nil || req.TransferMinute != nil {
		current := p.TransferTimestamp.In(bangkok)
		date := current.Format("2006-01-02")
		hour, minute := current.Hour(), current.Minute()
		if req.TransferDate != nil {
			date = *req.TransferDate
		}
		if req.TransferHour != nil {
			hour = *req.TransferHour
		}
		if req.TransferMinute != nil {
			minute = *req.TransferMinute
		}
		transferAt, err := TransferTime(date, hour, minute)
		if err != nil {
			return nil, err
		}
		updated.TransferTimestamp = transferAt
	}

	if req.SlipReference != nil {
		updated.SlipReference = *req.SlipReference
	}
	if req.Note != nil {
		updated.AdminNote = *req.Note
	}

	switch {
	case p.Status == StatusRejectedNeedsFix:
		updated.Status = StatusSubmitted
		updated.RejectReason = ""
	case p.Status == StatusDraft && req.Submit:
		updated.Status = StatusSubmitted
	}
	updated.UpdatedAt = time.Now().UTC()

	evt := audit.NewEvent(actor, "payin.update", audit.EntityPayIn, p.PayInID, before, updated)
	if err := s.repo.Update(ctx, &updated, expected, evt); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Accept confirms a submitted pay-in and creates its ledger entry. The
// status transition and the entry are written atomically, so a retried
// accept either finds the pay-in already accepted or succeeds exactly once.
func (s *Service) Accept(ctx context.Context, actor audit.Actor, payinID string) (*PayIn, error) {
	if err := audit.RequireActor(actor); err != nil {
		return nil, err
	}

	p, err := s.repo.Get(ctx, payinID)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusSubmitted {
		return nil, errors.NewInvalidStateError("only submitted pay-ins can be accepted", string(p.Status))
	}

	before := *p
	updated := *p
	updated.Status = StatusAccepted
	updated.UpdatedAt = time.Now().UTC()

	entry := ledger.NewEntry(p.PayInID, p.HouseID, p.Amount, p.TransferTimestamp)

	evt := audit.NewEvent(actor, "payin.accept", audit.EntityPayIn, p.PayInID, before, updated)
	if err := s.repo.Accept(ctx, &updated, entry, evt); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Reject sends a submitted pay-in back to the resident with a reason. The
// house's open slot stays claimed until the pay-in is fixed or removed.
func (s *Service) Reject(ctx context.Context, actor audit.Actor, payinID, reason string) (*PayIn, error) {
	if err := audit.RequireActor(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, errors.NewValidationError("reject reason is required")
	}

	p, err := s.repo.Get(ctx, payinID)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusSubmitted {
		return nil, errors.NewInvalidStateError("only submitted pay-ins can be rejected", string(p.Status))
	}

	before := *p
	updated := *p
	updated.Status = StatusRejectedNeedsFix
	updated.RejectReason = reason
	updated.UpdatedAt = time.Now().UTC()

	evt := audit.NewEvent(actor, "payin.reject", audit.EntityPayIn, p.PayInID, before, updated)
	evt.Reason = reason
	if err := s.repo.Reject(ctx, &updated, evt); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Cancel removes a pay-in on the submitter's behalf and releases the
// house's open slot.
func (s *Service) Cancel(ctx context.Context, actor audit.Actor, payinID, reason string) error {
	return s.remove(ctx, actor, payinID, "payin.cancel", reason)
}

// Delete removes a pay-in and releases the house's open slot.
func (s *Service) Delete(ctx context.Context, actor audit.Actor, payinID string) error {
	return s.remove(ctx, actor, payinID, "payin.delete", "")
}

func (s *Service) remove(ctx context.Context, actor audit.Actor, payinID, action, reason string) error {
	if err := audit.RequireActor(actor); err != nil {
		return err
	}

	p, err := s.repo.Get(ctx, payinID)
	if err != nil {
		return err
	}
	if p.Status == StatusAccepted {
		return errors.NewInvalidStateError("accepted pay-ins cannot be removed", string(p.Status))
	}
	if p.IsMatched {
		return errors.NewInvalidStateError("pay-in is matched to a bank transaction and cannot be removed", string(p.Status))
	}

	evt := audit.NewEvent(actor, action, audit.EntityPayIn, p.PayInID, *p, nil)
	evt.Reason = reason
	return s.repo.Remove(ctx, p, evt)
}

// CreateFromBankCredit seeds a pay-in from an unidentified bank credit. The
// pay-in is born matched: the credit line is stamped with the pay-in ID in
// the same transaction and can never seed a second one.
func (s *Service) CreateFromBankCredit(ctx context.Context, actor audit.Actor, req *CreateFromBankCreditRequest) (*PayIn, error) {
	if err := audit.RequireActor(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.BankTxnID) == "" {
		return nil, errors.NewValidationError("bank transaction id is required")
	}
	if strings.TrimSpace(req.HouseID) == "" {
		return nil, errors.NewValidationError("house id is required")
	}

	txn, err := s.banks.Get(ctx, req.BankTxnID)
	if err != nil {
		return nil, err
	}
	if !txn.IsCredit() {
		return nil, errors.NewValidationError("bank transaction is not a credit")
	}
	if txn.PayInID != "" {
		return nil, errors.NewConflictError("bank credit is already linked to a pay-in").
			WithDetail("payinId", txn.PayInID)
	}

	sourceStr := req.Source
	if sourceStr == "" {
		sourceStr = string(SourceAdminCreated)
	}
	source, err := ParseSource(sourceStr)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &PayIn{
		PayInID:           ulid.Make().String(),
		HouseID:           req.HouseID,
		Amount:            txn.Credit,
		TransferTimestamp: txn.EffectiveAt,
		Status:            StatusSubmitted,
		Source:            source,
		AdminNote:         req.Note,
		BankTxnID:         txn.TxnID,
		IsMatched:         true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	evt := audit.NewEvent(actor, "payin.create_from_bank_credit", audit.EntityPayIn, p.PayInID, nil, *p)
	if err := s.repo.CreateFromBankCredit(ctx, p, txn, evt); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns a pay-in by ID.
func (s *Service) Get(ctx context.Context, payinID string) (*PayIn, error) {
	return s.repo.Get(ctx, payinID)
}

// ListByHouse returns a house's pay-ins, optionally filtered by status.
// Legacy status spellings are accepted in the filter.
func (s *Service) ListByHouse(ctx context.Context, houseID, statusFilter string) ([]PayIn, error) {
	if strings.TrimSpace(houseID) == "" {
		return nil, errors.NewValidationError("house id is required")
	}
	var status Status
	if statusFilter != "" {
		parsed, err := ParseStatus(statusFilter)
		if err != nil {
			return nil, err
		}
		status = parsed
	}
	return s.repo.ListByHouse(ctx, houseID, status)
}

// ListOpen returns the admin review queue: all SUBMITTED pay-ins, oldest
// first.
func (s *Service) ListOpen(ctx context.Context) ([]PayIn, error) {
	return s.repo.ListOpen(ctx)
}
