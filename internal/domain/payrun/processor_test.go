package payrun

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"paycore/internal/domain/employee"
	"paycore/internal/domain/garnishment"
	"paycore/internal/domain/ruleset"
	"paycore/internal/domain/tax"
	"paycore/internal/domain/ytd"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fakeEmployees struct {
	emps      map[string]employee.Employee
	elections map[string][]employee.Election
}

func newFakeEmployees() *fakeEmployees {
	return &fakeEmployees{
		emps:      map[string]employee.Employee{},
		elections: map[string][]employee.Election{},
	}
}

func (f *fakeEmployees) Create(_ context.Context, e employee.Employee) (string, error) {
	id := "emp-" + strconv.Itoa(len(f.emps)+1)
	e.ID = id
	f.emps[id] = e
	return id, nil
}

func (f *fakeEmployees) Get(_ context.Context, id string) (employee.Employee, error) {
	e, ok := f.emps[id]
	if !ok {
		return employee.Employee{}, errors.New("employee not found")
	}
	return e, nil
}

func (f *fakeEmployees) List(_ context.Context, _ string, _, _ int) ([]employee.Employee, error) {
	return nil, nil
}

func (f *fakeEmployees) Update(_ context.Context, e employee.Employee) error {
	f.emps[e.ID] = e
	return nil
}

func (f *fakeEmployees) SetStatus(_ context.Context, id, status string) error {
	e := f.emps[id]
	e.Status = status
	f.emps[id] = e
	return nil
}

func (f *fakeEmployees) ListElections(_ context.Context, employeeID string) ([]employee.Election, error) {
	return f.elections[employeeID], nil
}

func (f *fakeEmployees) CreateElection(_ context.Context, el employee.Election) (string, error) {
	f.elections[el.EmployeeID] = append(f.elections[el.EmployeeID], el)
	return el.ID, nil
}

func (f *fakeEmployees) DeleteElection(_ context.Context, _, _ string) error {
	return nil
}

type fakeOrders struct {
	orders map[string][]garnishment.Order
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: map[string][]garnishment.Order{}}
}

func (f *fakeOrders) Create(_ context.Context, o garnishment.Order) (string, error) {
	f.orders[o.EmployeeID] = append(f.orders[o.EmployeeID], o)
	return o.ID, nil
}

func (f *fakeOrders) Get(_ context.Context, _ string) (garnishment.Order, error) {
	return garnishment.Order{}, garnishment.ErrNotFound
}

func (f *fakeOrders) ListActive(_ context.Context, employeeID string) ([]garnishment.Order, error) {
	var out []garnishment.Order
	for _, o := range f.orders[employeeID] {
		if o.Active {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeOrders) ListByEmployee(_ context.Context, employeeID string) ([]garnishment.Order, error) {
	return f.orders[employeeID], nil
}

func (f *fakeOrders) Deactivate(_ context.Context, _ string) error {
	return nil
}

func mustCreate(t *testing.T, store *ruleset.MemoryStore, key, jurisdiction string, ruleType ruleset.RuleType, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	_, err = store.Create(context.Background(), ruleset.RuleSet{
		Key:            key,
		Jurisdiction:   jurisdiction,
		RuleType:       ruleType,
		EffectiveStart: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Payload:        raw,
	})
	require.NoError(t, err)
}

// fixtureRules seeds the federal rulesets every run needs.
func fixtureRules(t *testing.T) *ruleset.MemoryStore {
	t.Helper()
	store := ruleset.NewMemoryStore()

	upper := func(s string) *decimal.Decimal { u := d(s); return &u }
	mustCreate(t, store, ruleset.KeyFederalWithholding, "US", ruleset.TypeFederalIncome, ruleset.IncomeTaxRules{
		StandardDeduction: map[string]decimal.Decimal{"single": d("15750")},
		DependentCredit:   d("2000"),
		Brackets: map[string][]ruleset.Bracket{
			"single": {
				{Lower: d("0"), Upper: upper("12400"), Rate: d("0.10")},
				{Lower: d("12400"), Upper: upper("50400"), Rate: d("0.12")},
				{Lower: d("50400"), Upper: upper("105700"), Rate: d("0.22")},
				{Lower: d("105700"), Rate: d("0.24")},
			},
		},
	})
	mustCreate(t, store, ruleset.KeyFICA, "US", ruleset.TypeFICA, ruleset.FICARules{
		SocialSecurityRate:          d("0.062"),
		SocialSecurityWageBase:      d("181200"),
		MedicareRate:                d("0.0145"),
		AdditionalMedicareRate:      d("0.009"),
		AdditionalMedicareThreshold: d("200000"),
	})
	mustCreate(t, store, ruleset.KeyBenefitLimits, "US", ruleset.TypeBenefitLimits, ruleset.BenefitLimitRules{
		Limit401k: d("23500"),
		LimitHSA:  d("4300"),
		LimitFSA:  d("3300"),
	})
	mustCreate(t, store, ruleset.KeyGarnishmentLimits, "US", ruleset.TypeGarnishment, ruleset.GarnishmentRules{
		FederalMinimumWage:     d("7.25"),
		GeneralCapPercent:      d("0.25"),
		ChildSupportCapPercent: d("0.60"),
		StudentLoanCapPercent:  d("0.15"),
	})
	return store
}

type processorFixture struct {
	runs      *MemoryStore
	employees *fakeEmployees
	orders    *fakeOrders
	ytd       *ytd.MemoryStore
	service   *Service
	processor *Processor
}

func newProcessorFixture(t *testing.T) *processorFixture {
	t.Helper()
	f := &processorFixture{
		runs:      NewMemoryStore(),
		employees: newFakeEmployees(),
		orders:    newFakeOrders(),
		ytd:       ytd.NewMemoryStore(),
	}
	f.service = NewService(f.runs)
	f.processor = NewProcessor(f.runs, f.employees, f.orders, f.ytd, fixtureRules(t), 4, zerolog.Nop())
	return f
}

func (f *processorFixture) addEmployee(t *testing.T, salary string, profile tax.Profile) string {
	t.Helper()
	id, err := f.employees.Create(context.Background(), employee.Employee{
		FirstName:    "Test",
		LastName:     "Employee",
		Status:       employee.StatusActive,
		AnnualSalary: d(salary),
		Profile:      profile,
	})
	require.NoError(t, err)
	return id
}

func (f *processorFixture) approvedRun(t *testing.T, employeeIDs ...string) Run {
	t.Helper()
	ctx := context.Background()
	start, end, payDate := testPeriod()
	run, err := f.service.Create(ctx, start, end, payDate, tax.FrequencyBiweekly)
	require.NoError(t, err)
	for _, id := range employeeIDs {
		require.NoError(t, f.service.AddMember(ctx, run.ID, id))
	}
	require.NoError(t, f.service.Submit(ctx, run.ID))
	require.NoError(t, f.service.Approve(ctx, run.ID))
	return run
}

func TestProcessCompletesRun(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture(t)
	single := tax.Profile{FilingStatus: tax.FilingSingle, WorkState: "TX"}

	// 130000 a year is 5000 per biweekly period.
	emp1 := f.addEmployee(t, "130000", single)
	emp2 := f.addEmployee(t, "52000", single)
	run := f.approvedRun(t, emp1, emp2)

	got, err := f.processor.Process(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, got.Run.Status)
	require.Len(t, got.Results, 2)
	require.NotNil(t, got.Run.Totals)

	// No state ruleset for TX: federal and FICA only.
	// emp1: 5000 gross, 769.92 federal, 310 SS, 72.50 medicare.
	r1 := got.Results[0]
	require.Equal(t, emp1, r1.EmployeeID)
	require.Equal(t, "769.92", r1.Taxes.Federal.StringFixed(2))
	require.Equal(t, "310.00", r1.Taxes.SocialSecurity.StringFixed(2))
	require.Equal(t, "72.50", r1.Taxes.Medicare.StringFixed(2))
	require.Equal(t, "3847.58", r1.Net.StringFixed(2))

	totals := got.Run.Totals
	require.Equal(t, 2, totals.EmployeeCount)
	require.Equal(t, "7000.00", totals.Gross.StringFixed(2))
	require.Equal(t, r1.Net.Add(got.Results[1].Net).StringFixed(2), totals.Net.StringFixed(2))

	// Each pay event landed in the YTD accumulator.
	accum, err := f.ytd.Get(ctx, emp1, 2026)
	require.NoError(t, err)
	require.Equal(t, "5000", accum.Gross.String())
	require.Equal(t, "5000", accum.SocialSecurityWages.String())
}

func TestProcessAppliesDeductionsAndGarnishments(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture(t)

	emp := f.addEmployee(t, "52000", tax.Profile{FilingStatus: tax.FilingSingle, WorkState: "TX"})
	_, err := f.employees.CreateElection(ctx, employee.Election{
		ID: "el-1", EmployeeID: emp,
		Category: "health_premium", Amount: d("100"),
	})
	require.NoError(t, err)
	_, err = f.orders.Create(ctx, garnishment.Order{
		ID: "g-1", EmployeeID: emp, Type: garnishment.TypeCreditor,
		Priority: 5, AmountType: garnishment.AmountFixed, AmountValue: d("100"),
		Payee: "acme collections", Active: true,
	})
	require.NoError(t, err)

	run := f.approvedRun(t, emp)
	got, err := f.processor.Process(ctx, run.ID)
	require.NoError(t, err)

	r := got.Results[0]
	// 2000 gross less the 100 premium leaves 1900 in both tax bases.
	require.Equal(t, "100", r.PreTax.Total.String())
	require.Equal(t, "145.77", r.Taxes.Federal.StringFixed(2))
	require.Equal(t, "117.80", r.Taxes.SocialSecurity.StringFixed(2))
	require.Equal(t, "27.55", r.Taxes.Medicare.StringFixed(2))

	// Disposable ignores the voluntary premium.
	require.Equal(t, "1708.88", r.Disposable.StringFixed(2))
	require.Len(t, r.Garnished, 1)
	require.Equal(t, "100.00", r.Garnished[0].Withheld.StringFixed(2))
	require.Equal(t, "1508.88", r.Net.StringFixed(2))

	accum, err := f.ytd.Get(ctx, emp, 2026)
	require.NoError(t, err)
	require.Equal(t, "1900", accum.SocialSecurityWages.String())
	require.Equal(t, "100", accum.GarnishmentWithheld["g-1"].String())
}

func TestProcessRequiresApprovedRun(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture(t)
	emp := f.addEmployee(t, "130000", tax.Profile{FilingStatus: tax.FilingSingle, WorkState: "TX"})

	start, end, payDate := testPeriod()
	run, err := f.service.Create(ctx, start, end, payDate, tax.FrequencyBiweekly)
	require.NoError(t, err)
	require.NoError(t, f.service.AddMember(ctx, run.ID, emp))

	_, err = f.processor.Process(ctx, run.ID)
	require.ErrorIs(t, err, ErrInvalidState)

	// The refused run is untouched.
	got, err := f.service.Get(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, StatusDraft, got.Status)
	results, err := f.service.Results(ctx, run.ID)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestProcessNegativeNetFailsRun(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture(t)

	// A 3000 premium shrinks the income base to 2000, then the extra 2500
	// withholding is capped at those wages. 5000 - 3000 - 2153 goes negative.
	emp := f.addEmployee(t, "130000", tax.Profile{
		FilingStatus:          tax.FilingSingle,
		WorkState:             "TX",
		AdditionalWithholding: d("2500"),
	})
	_, err := f.employees.CreateElection(ctx, employee.Election{
		ID: "el-1", EmployeeID: emp,
		Category: "health_premium", Amount: d("3000"),
	})
	require.NoError(t, err)

	run := f.approvedRun(t, emp)
	_, err = f.processor.Process(ctx, run.ID)
	require.ErrorIs(t, err, ErrNegativeNet)

	got, err := f.service.Get(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, got.Status)
	require.Equal(t, emp, got.FailedEmployeeID)
	require.Contains(t, got.FailureReason, "net")
	require.Nil(t, got.Totals)
}

func TestProcessUnknownEmployeeFailsRun(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture(t)
	emp := f.addEmployee(t, "130000", tax.Profile{FilingStatus: tax.FilingSingle, WorkState: "TX"})

	run := f.approvedRun(t, emp, "ghost")
	_, err := f.processor.Process(ctx, run.ID)
	require.Error(t, err)

	got, err := f.service.Get(ctx, run.ID)
	require.NoError(t, err)
	require.Equal(t, StatusFailed, got.Status)
	require.Equal(t, "ghost", got.FailedEmployeeID)
}

func TestProcessWageBaseAcrossRuns(t *testing.T) {
	ctx := context.Background()
	f := newProcessorFixture(t)

	// 181200 base, 90000 per period: the third period only has 1200 of
	// social security headroom left.
	emp := f.addEmployee(t, "2340000", tax.Profile{FilingStatus: tax.FilingSingle, WorkState: "TX"})

	var last EmployeeResult
	for i := 0; i < 3; i++ {
		run := f.approvedRun(t, emp)
		got, err := f.processor.Process(ctx, run.ID)
		require.NoError(t, err)
		last = got.Results[0]
	}

	require.Equal(t, "1200", last.Taxes.SocialSecurityWages.String())
	require.Equal(t, "74.40", last.Taxes.SocialSecurity.StringFixed(2))

	accum, err := f.ytd.Get(ctx, emp, 2026)
	require.NoError(t, err)
	require.Equal(t, "270000", accum.Gross.String())
	require.Equal(t, "181200", accum.SocialSecurityWages.String())
}
