package payrun

import (
	"context"
	"errors"
	"time"

	"paycore/internal/domain/tax"
)

var errBadPeriod = errors.New("pay period start must be before end")

// Service owns run lifecycle operations up to processing. The heavy
// per-employee computation lives in Processor.
type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

func (s *Service) Create(ctx context.Context, periodStart, periodEnd, payDate time.Time, frequency tax.PayFrequency) (Run, error) {
	if !frequency.Valid() {
		return Run{}, tax.ErrInvalidFrequency
	}
	if !periodStart.Before(periodEnd) {
		return Run{}, errBadPeriod
	}
	id, err := s.store.Create(ctx, Run{
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		PayDate:     payDate,
		Frequency:   frequency,
	})
	if err != nil {
		return Run{}, err
	}
	return s.store.Get(ctx, id)
}

func (s *Service) Get(ctx context.Context, runID string) (Run, error) {
	return s.store.Get(ctx, runID)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]Run, error) {
	return s.store.List(ctx, limit, offset)
}

func (s *Service) AddMember(ctx context.Context, runID, employeeID string) error {
	return s.store.AddMember(ctx, runID, employeeID)
}

func (s *Service) RemoveMember(ctx context.Context, runID, employeeID string) error {
	return s.store.RemoveMember(ctx, runID, employeeID)
}

func (s *Service) Members(ctx context.Context, runID string) ([]string, error) {
	return s.store.ListMembers(ctx, runID)
}

// Submit moves a draft run to pending_approval. A run with no members
// cannot be submitted.
func (s *Service) Submit(ctx context.Context, runID string) error {
	members, err := s.store.ListMembers(ctx, runID)
	if err != nil {
		return err
	}
	if len(members) == 0 {
		return ErrNoMembers
	}
	return s.store.Transition(ctx, runID, StatusDraft, StatusPendingApproval)
}

// Approve moves a pending run to approved, making it eligible for
// processing.
func (s *Service) Approve(ctx context.Context, runID string) error {
	return s.store.Transition(ctx, runID, StatusPendingApproval, StatusApproved)
}

// Results returns the persisted per-employee results for a run.
func (s *Service) Results(ctx context.Context, runID string) ([]EmployeeResult, error) {
	return s.store.ListResults(ctx, runID)
}
