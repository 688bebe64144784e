package tax

import (
	"context"
	"errors"
	"fmt"
	"time"

	"paycore/internal/domain/ruleset"
)

// Jurisdiction key for federal rulesets.
const JurisdictionFederal = "US"

// Service resolves rulesets for an employee's jurisdictions and runs the
// calculation. All rule lookups go through the injected Provider so the
// engine stays independently testable with fixture rulesets.
type Service struct {
	rules ruleset.Provider
}

func NewService(rules ruleset.Provider) *Service {
	return &Service{rules: rules}
}

// ResolveRules loads the active rule bundle for the profile as of the pay
// date. A missing federal or FICA ruleset is fatal; a missing state or
// local ruleset means the jurisdiction levies no income tax and yields nil.
func (s *Service) ResolveRules(ctx context.Context, profile Profile, asOf time.Time) (Rules, error) {
	var out Rules

	fedSet, err := s.rules.Active(ctx, ruleset.KeyFederalWithholding, JurisdictionFederal, asOf)
	if err != nil {
		return Rules{}, err
	}
	fed, err := fedSet.IncomeTaxRules()
	if err != nil {
		return Rules{}, fmt.Errorf("federal ruleset %s: %w", fedSet.ID, err)
	}
	out.Federal = &fed

	ficaSet, err := s.rules.Active(ctx, ruleset.KeyFICA, JurisdictionFederal, asOf)
	if err != nil {
		return Rules{}, err
	}
	fica, err := ficaSet.FICARules()
	if err != nil {
		return Rules{}, fmt.Errorf("fica ruleset %s: %w", ficaSet.ID, err)
	}
	out.FICA = &fica

	if profile.WorkState != "" {
		stateSet, err := s.rules.Active(ctx, ruleset.KeyStateIncome, profile.WorkState, asOf)
		switch {
		case errors.Is(err, ruleset.ErrNotFound):
			// No-income-tax state: absent ruleset yields zero withholding.
		case err != nil:
			return Rules{}, err
		default:
			state, decodeErr := stateSet.IncomeTaxRules()
			if decodeErr != nil {
				return Rules{}, fmt.Errorf("state ruleset %s: %w", stateSet.ID, decodeErr)
			}
			out.State = &state
		}
	}

	if profile.LocalCode != "" {
		localSet, err := s.rules.Active(ctx, ruleset.KeyLocalIncome, profile.LocalCode, asOf)
		switch {
		case errors.Is(err, ruleset.ErrNotFound):
		case err != nil:
			return Rules{}, err
		default:
			local, decodeErr := localSet.IncomeTaxRules()
			if decodeErr != nil {
				return Rules{}, fmt.Errorf("local ruleset %s: %w", localSet.ID, decodeErr)
			}
			out.Local = &local
		}
	}

	return out, nil
}

// CalculateAt resolves rules for the pay date and computes the period's
// withholding in one step.
func (s *Service) CalculateAt(ctx context.Context, in CalcInput, asOf time.Time) (Result, error) {
	rules, err := s.ResolveRules(ctx, in.Profile, asOf)
	if err != nil {
		return Result{}, err
	}
	in.Rules = rules
	return Calculate(in)
}
