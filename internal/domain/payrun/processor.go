package payrun

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"paycore/internal/domain/deduction"
	"paycore/internal/domain/employee"
	"paycore/internal/domain/garnishment"
	"paycore/internal/domain/ruleset"
	"paycore/internal/domain/tax"
	"paycore/internal/domain/ytd"
)

// Processor executes an approved run: for every member it computes gross,
// pre-tax deductions, statutory withholding, garnishments, post-tax
// deductions, and net, persists the result, and folds the pay event into
// the employee's YTD accumulator.
//
// Employees are computed concurrently under a bounded worker pool. A
// per-employee lock serializes YTD read-modify-write within the process;
// the YTD store's row lock covers concurrent processes. Totals are folded
// after the pool drains, in employee-ID order, so the run totals are
// deterministic regardless of worker scheduling.
type Processor struct {
	runs      StoreAPI
	employees employee.StoreAPI
	orders    garnishment.StoreAPI
	ytd       ytd.StoreAPI
	rules     ruleset.Provider
	taxes     *tax.Service
	workers   int
	log       zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewProcessor(runs StoreAPI, employees employee.StoreAPI, orders garnishment.StoreAPI,
	ytdStore ytd.StoreAPI, rules ruleset.Provider, workers int, log zerolog.Logger) *Processor {
	if workers < 1 {
		workers = 1
	}
	return &Processor{
		runs:      runs,
		employees: employees,
		orders:    orders,
		ytd:       ytdStore,
		rules:     rules,
		taxes:     tax.NewService(rules),
		workers:   workers,
		log:       log,
		locks:     map[string]*sync.Mutex{},
	}
}

// Process runs the computation for an approved run. On the first employee
// failure the remaining workers are cancelled, the run is marked failed
// with the offending employee and reason, and results already computed are
// kept. A failed run never reports totals.
func (p *Processor) Process(ctx context.Context, runID string) (RunResult, error) {
	run, err := p.runs.Get(ctx, runID)
	if err != nil {
		return RunResult{}, err
	}
	if err := p.runs.Transition(ctx, runID, StatusApproved, StatusProcessing); err != nil {
		return RunResult{}, err
	}

	members, err := p.runs.ListMembers(ctx, runID)
	if err != nil {
		return RunResult{}, p.fail(ctx, runID, "", err)
	}
	if len(members) == 0 {
		return RunResult{}, p.fail(ctx, runID, "", ErrNoMembers)
	}

	limits, garnRules, err := p.runRules(ctx, run.PayDate)
	if err != nil {
		return RunResult{}, p.fail(ctx, runID, "", err)
	}

	started := time.Now()
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.workers)

	var failMu sync.Mutex
	var failedEmployee string

	for _, employeeID := range members {
		employeeID := employeeID
		group.Go(func() error {
			if err := p.processEmployee(groupCtx, run, employeeID, limits, garnRules); err != nil {
				failMu.Lock()
				if failedEmployee == "" {
					failedEmployee = employeeID
				}
				failMu.Unlock()
				return fmt.Errorf("employee %s: %w", employeeID, err)
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return RunResult{}, p.fail(ctx, runID, failedEmployee, err)
	}

	results, err := p.runs.ListResults(ctx, runID)
	if err != nil {
		return RunResult{}, p.fail(ctx, runID, "", err)
	}

	var totals Totals
	for _, result := range results {
		totals.add(result)
	}
	if err := p.runs.SaveTotals(ctx, runID, totals); err != nil {
		return RunResult{}, p.fail(ctx, runID, "", err)
	}
	if err := p.runs.Transition(ctx, runID, StatusProcessing, StatusCompleted); err != nil {
		return RunResult{}, err
	}

	p.log.Info().
		Str("run_id", runID).
		Int("employees", totals.EmployeeCount).
		Str("gross", totals.Gross.StringFixed(2)).
		Str("net", totals.Net.StringFixed(2)).
		Dur("took", time.Since(started)).
		Msg("payroll run completed")

	run, err = p.runs.Get(ctx, runID)
	if err != nil {
		return RunResult{}, err
	}
	return RunResult{Run: run, Results: results}, nil
}

// fail marks the run failed and returns the original error. The mark uses
// a background-derived context so cancellation of the run context cannot
// also lose the failure record.
func (p *Processor) fail(ctx context.Context, runID, employeeID string, cause error) error {
	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.runs.MarkFailed(markCtx, runID, employeeID, cause.Error()); err != nil {
		p.log.Error().Err(err).Str("run_id", runID).Msg("could not mark run failed")
	}
	p.log.Error().Err(cause).Str("run_id", runID).Str("employee_id", employeeID).Msg("payroll run failed")
	return cause
}

// runRules loads the run-wide rulesets once per run: benefit annual limits
// and garnishment protections, both federal scope.
func (p *Processor) runRules(ctx context.Context, asOf time.Time) (ruleset.BenefitLimitRules, ruleset.GarnishmentRules, error) {
	limitSet, err := p.rules.Active(ctx, ruleset.KeyBenefitLimits, tax.JurisdictionFederal, asOf)
	if err != nil {
		return ruleset.BenefitLimitRules{}, ruleset.GarnishmentRules{}, err
	}
	limits, err := limitSet.BenefitLimitRules()
	if err != nil {
		return ruleset.BenefitLimitRules{}, ruleset.GarnishmentRules{}, fmt.Errorf("benefit ruleset %s: %w", limitSet.ID, err)
	}

	garnSet, err := p.rules.Active(ctx, ruleset.KeyGarnishmentLimits, tax.JurisdictionFederal, asOf)
	if err != nil {
		return ruleset.BenefitLimitRules{}, ruleset.GarnishmentRules{}, err
	}
	garnRules, err := garnSet.GarnishmentRules()
	if err != nil {
		return ruleset.BenefitLimitRules{}, ruleset.GarnishmentRules{}, fmt.Errorf("garnishment ruleset %s: %w", garnSet.ID, err)
	}
	return limits, garnRules, nil
}

func (p *Processor) processEmployee(ctx context.Context, run Run, employeeID string,
	limits ruleset.BenefitLimitRules, garnRules ruleset.GarnishmentRules) error {
	unlock := p.lockEmployee(employeeID)
	defer unlock()

	emp, err := p.employees.Get(ctx, employeeID)
	if err != nil {
		return err
	}

	elections, err := p.employees.ListElections(ctx, employeeID)
	if err != nil {
		return err
	}
	deductions := employee.Deductions(elections)

	year := run.PayDate.Year()
	accum, err := p.ytd.Get(ctx, employeeID, year)
	if err != nil {
		return err
	}

	gross := emp.PeriodGross(run.Frequency)
	pre := deduction.ApplyPreTax(gross, deductions, accum, limits)

	taxes, err := p.taxes.CalculateAt(ctx, tax.CalcInput{
		Gross:       gross,
		FICAWages:   pre.FICABase,
		IncomeWages: pre.IncomeBase,
		Profile:     emp.Profile,
		Frequency:   run.Frequency,
		YTD:         accum,
	}, run.PayDate)
	if err != nil {
		return err
	}

	// Disposable earnings for garnishment purposes: gross less legally
	// required withholding. Voluntary deductions do not reduce it.
	disposable := gross.Sub(taxes.EmployeeTotal())
	if disposable.IsNegative() {
		disposable = decimal.Zero
	}

	orders, err := p.orders.ListActive(ctx, employeeID)
	if err != nil {
		return err
	}
	garnished, err := garnishment.Resolve(garnishment.ResolveInput{
		Disposable:   disposable,
		Frequency:    run.Frequency,
		FilingStatus: emp.Profile.FilingStatus,
		Dependents:   emp.Profile.Dependents,
		Orders:       orders,
		Rules:        garnRules,
	})
	if err != nil {
		return err
	}
	garnishedTotal := decimal.Zero
	garnishedByOrder := make(map[string]decimal.Decimal, len(garnished))
	for _, w := range garnished {
		garnishedTotal = garnishedTotal.Add(w.Withheld)
		garnishedByOrder[w.OrderID] = w.Withheld
	}

	remainder := gross.Sub(pre.Total).Sub(taxes.EmployeeTotal()).Sub(garnishedTotal)
	// This period's traditional deferral already consumed shared 401k room.
	post := deduction.ApplyPostTax(remainder, deductions, accum.Add(ytd.Delta{
		Contribution401k: appliedFor(pre.Applied, deduction.CategoryTrad401k),
	}), limits)
	net := remainder.Sub(post.Total)
	if net.IsNegative() {
		return fmt.Errorf("net %s: %w", net.StringFixed(2), ErrNegativeNet)
	}

	result := EmployeeResult{
		RunID:      run.ID,
		EmployeeID: employeeID,
		Gross:      gross,
		PreTax:     pre,
		Taxes:      taxes,
		Disposable: disposable,
		Garnished:  garnished,
		PostTax:    post,
		Net:        net,
		ComputedAt: time.Now(),
	}
	if err := p.runs.SaveResult(ctx, result); err != nil {
		return err
	}

	delta := ytd.Delta{
		Gross:               gross,
		SocialSecurityWages: taxes.SocialSecurityWages,
		Contribution401k:    appliedFor(pre.Applied, deduction.CategoryTrad401k).Add(appliedFor(post.Applied, deduction.CategoryRoth401k)),
		ContributionHSA:     appliedFor(pre.Applied, deduction.CategoryHSA),
		ContributionFSA:     appliedFor(pre.Applied, deduction.CategoryFSA),
		GarnishmentWithheld: garnishedByOrder,
	}
	if _, err := p.ytd.Apply(ctx, employeeID, year, delta); err != nil {
		return err
	}
	return nil
}

// lockEmployee serializes computation per employee within this process.
func (p *Processor) lockEmployee(employeeID string) func() {
	p.mu.Lock()
	lock, ok := p.locks[employeeID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[employeeID] = lock
	}
	p.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

// appliedFor sums the applied amount for one category.
func appliedFor(items []deduction.Applied, category deduction.Category) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		if item.Category == category {
			total = total.Add(item.Applied)
		}
	}
	return total
}
