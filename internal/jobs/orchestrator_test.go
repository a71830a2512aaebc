package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/andresuchdata/replenish/internal/commerce"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/notify"
	"github.com/andresuchdata/replenish/internal/repository/memory"
	"github.com/andresuchdata/replenish/internal/schedule"
	"github.com/andresuchdata/replenish/internal/storage"
)

// 2025-01-15 is a Wednesday.
var wednesdayNoon = time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

var today = civil.Date{Year: 2025, Month: time.January, Day: 15}

type recordingSender struct {
	mu     sync.Mutex
	alerts []notify.Alert
	err    error
}

func (s *recordingSender) Send(_ context.Context, _ string, alert notify.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, alert)
	return s.err
}

type fakeFetcher struct {
	mu     sync.Mutex
	orders map[string][]commerce.Order
	fail   map[string]error
	calls  int
}

func (f *fakeFetcher) FetchOrders(_ context.Context, shop, _ string, _ time.Time) ([]commerce.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.fail[shop]; err != nil {
		return nil, err
	}
	return f.orders[shop], nil
}

type fixture struct {
	repo    *memory.Store
	calc    *schedule.Calculator
	sender  *recordingSender
	fetcher *fakeFetcher
	region  domain.Region
	skuA    domain.SKU
	skuB    domain.SKU
	store   domain.Store
}

func newRegion(name, shop string) domain.Region {
	return domain.Region{
		Name:             name,
		Timezone:         "UTC",
		RunDays:          "Mon,Tue,Wed,Thu,Fri",
		AnalyticsTime:    "06:00",
		DocsTime:         "07:00",
		SlackWebhookURL:  "https://hooks.example.com/" + shop,
		ShopDomain:       shop,
		AdminToken:       "token",
		StoreMatchMethod: domain.MatchByCustomer,
		Active:           true,
	}
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		repo:    memory.New(),
		calc:    schedule.NewCalculator(schedule.FixedClock(now)),
		sender:  &recordingSender{},
		fetcher: &fakeFetcher{orders: map[string][]commerce.Order{}, fail: map[string]error{}},
	}

	f.region = f.repo.AddRegion(newRegion("Jakarta", "jakarta.myshopify.com"))
	f.skuA = f.repo.AddSKU(domain.SKU{Code: "SKU-A", Name: "Rice 5kg", PackSize: 6, MOQ: 10, LeadTimeDays: 5, SafetyStockDays: 3, Active: true})
	f.skuB = f.repo.AddSKU(domain.SKU{Code: "SKU-B", Name: "Yogurt", PackSize: 1, MOQ: 1, ExpiryManaged: true, Active: true})

	// 90 units out ten days ago: rates 3, 1.5 and 1 per day.
	f.repo.AddMovement(domain.Movement{RegionID: f.region.ID, Type: domain.MovementOut, SKUID: f.skuA.ID, Qty: 90, CreatedAt: now.AddDate(0, 0, -10)})
	if err := f.repo.InsertInventory(ctx, &domain.InventoryRecord{RegionID: f.region.ID, LocationID: 1, SKUID: f.skuA.ID, OnHandQty: 5, ReservedQty: 2}); err != nil {
		t.Fatalf("InsertInventory: %v", err)
	}

	expiry := civil.DateOf(now).AddDays(20)
	f.repo.AddLot(domain.Lot{RegionID: f.region.ID, LocationID: 1, SKUID: f.skuB.ID, Code: "LOT-1", ExpiryDate: &expiry, Qty: 100, Status: domain.LotAvailable})

	f.store = f.repo.AddStore(domain.Store{RegionID: f.region.ID, Name: "Kemang", CustomerID: "55", Active: true})
	f.repo.AssignRoute(domain.RouteAssignment{
		StoreID:       f.store.ID,
		Route:         domain.Route{ID: 1, RegionID: f.region.ID, Name: "South", ActiveDays: "Mon,Wed", Active: true},
		EffectiveFrom: civil.Date{Year: 2024, Month: time.January, Day: 1},
	})
	return f
}

func (f *fixture) orchestrator(t *testing.T, opts Options, extra ...Job) *Orchestrator {
	t.Helper()
	local, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	jobs := append([]Job{
		NewAnalyticsJob(f.repo, f.calc, f.sender, nil, 4),
		NewDocumentsJob(f.repo, f.calc, local),
		NewSyncJob(f.repo, f.calc, f.fetcher),
	}, extra...)
	return NewOrchestrator(f.repo, f.calc, nil, nil, opts, jobs...)
}

func countRuns(runs []domain.JobRun, job domain.JobName, status domain.JobStatus) int {
	n := 0
	for _, r := range runs {
		if r.JobName == job && r.Status == status {
			n++
		}
	}
	return n
}

func outcomeOf(t *testing.T, rr RegionReport, job domain.JobName) Outcome {
	t.Helper()
	for _, o := range rr.Outcomes {
		if o.Job == job {
			return o
		}
	}
	t.Fatalf("no outcome for %s in %+v", job, rr)
	return Outcome{}
}

func TestTickIsIdempotentWithinRegionDay(t *testing.T) {
	f := newFixture(t, wednesdayNoon)
	o := f.orchestrator(t, DefaultOptions())
	ctx := context.Background()

	first, err := o.Tick(ctx)
	if err != nil {
		t.Fatalf("first Tick: %v", err)
	}
	second, err := o.Tick(ctx)
	if err != nil {
		t.Fatalf("second Tick: %v", err)
	}

	runs := f.repo.JobRuns()
	if got := countRuns(runs, domain.JobDailyAnalytics, domain.JobSuccess); got != 1 {
		t.Errorf("analytics SUCCESS runs = %d, want 1", got)
	}
	if got := countRuns(runs, domain.JobGenerateDocuments, domain.JobSuccess); got != 1 {
		t.Errorf("documents SUCCESS runs = %d, want 1", got)
	}
	if got := countRuns(runs, domain.JobSyncOrders, domain.JobSuccess); got != 2 {
		t.Errorf("sync SUCCESS runs = %d, want 2", got)
	}

	if len(first.Regions) != 1 || first.Regions[0].Date != today {
		t.Fatalf("first report regions = %+v", first.Regions)
	}
	for _, job := range []domain.JobName{domain.JobDailyAnalytics, domain.JobGenerateDocuments} {
		out := outcomeOf(t, second.Regions[0], job)
		if out.Status != OutcomeSkipped || out.Reason != SkipAlreadySucceeded {
			t.Errorf("second tick %s = %+v, want skipped already_succeeded", job, out)
		}
	}

	docs, err := f.repo.ListDocuments(ctx, f.region.ID, today)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("documents = %d, want picking list and po draft", len(docs))
	}
}

func TestAnalyticsJobWritesFactsAndAlerts(t *testing.T) {
	f := newFixture(t, wednesdayNoon)
	if _, err := f.orchestrator(t, DefaultOptions()).Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	ctx := context.Background()

	forecasts, err := f.repo.ListForecasts(ctx, f.region.ID, today)
	if err != nil {
		t.Fatalf("ListForecasts: %v", err)
	}
	if len(forecasts) != 2 {
		t.Fatalf("forecasts = %d, want 2", len(forecasts))
	}
	if forecasts[0].SKUID != f.skuA.ID || forecasts[0].RateUsed != 1 || forecasts[0].Rate30 != 3 {
		t.Errorf("forecast A = %+v, want rate30 3 and rate used 1", forecasts[0])
	}

	recs, err := f.repo.ListRecommendations(ctx, f.region.ID, today)
	if err != nil {
		t.Fatalf("ListRecommendations: %v", err)
	}
	a := recs[0]
	// available 3, ROP ceil(1 × 8) = 8, raw 5 raised to MOQ 10 and rounded to 12.
	if a.OnHandQty != 3 || a.ROP != 8 || a.RecommendedQty != 5 || a.AdjustedQty != 12 || a.Priority != domain.PriorityHigh {
		t.Errorf("recommendation A = %+v", a)
	}

	risks, err := f.repo.ListDeadstockRisks(ctx, f.region.ID, today)
	if err != nil {
		t.Fatalf("ListDeadstockRisks: %v", err)
	}
	if len(risks) != 1 || risks[0].RiskLevel != domain.RiskHigh || risks[0].SuggestedAction != domain.ActionPromoUrgent {
		t.Errorf("risks = %+v, want one HIGH PROMO_URGENT", risks)
	}

	kpi, err := f.repo.GetEmergencyKPI(ctx, f.region.ID, today)
	if err != nil {
		t.Fatalf("GetEmergencyKPI: %v", err)
	}
	if kpi.TotalOrders != 0 || kpi.EmergencyRate != 0 {
		t.Errorf("kpi = %+v, want zero orders", kpi)
	}

	if len(f.sender.alerts) != 2 {
		t.Fatalf("alerts = %d, want stockout and deadstock", len(f.sender.alerts))
	}
	if f.sender.alerts[0].Kind != notify.KindStockout || f.sender.alerts[1].Kind != notify.KindDeadstock {
		t.Errorf("alert kinds = %s, %s", f.sender.alerts[0].Kind, f.sender.alerts[1].Kind)
	}
}

func TestAlertFailureDoesNotFailJob(t *testing.T) {
	f := newFixture(t, wednesdayNoon)
	f.sender.err = errors.New("webhook down")

	report, err := f.orchestrator(t, DefaultOptions()).Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if out := outcomeOf(t, report.Regions[0], domain.JobDailyAnalytics); out.Status != OutcomeSuccess {
		t.Errorf("analytics = %+v, want SUCCESS", out)
	}
}

func TestFailureIsIsolatedPerRegionAndJob(t *testing.T) {
	f := newFixture(t, wednesdayNoon)
	other := f.repo.AddRegion(newRegion("Surabaya", "surabaya.myshopify.com"))
	f.fetcher.fail["jakarta.myshopify.com"] = errors.New("platform timeout")

	report, err := f.orchestrator(t, Options{RegionWorkers: 2}).Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(report.Regions) != 2 {
		t.Fatalf("regions = %d, want 2", len(report.Regions))
	}

	jakarta := report.Regions[0]
	if out := outcomeOf(t, jakarta, domain.JobSyncOrders); out.Status != OutcomeFailed || !strings.Contains(out.Message, "platform timeout") {
		t.Errorf("jakarta sync = %+v, want FAILED with the platform error", out)
	}
	if out := outcomeOf(t, jakarta, domain.JobDailyAnalytics); out.Status != OutcomeSuccess {
		t.Errorf("jakarta analytics = %+v, want SUCCESS", out)
	}

	surabaya := report.Regions[1]
	if surabaya.RegionID != other.ID {
		t.Fatalf("second region = %d, want %d", surabaya.RegionID, other.ID)
	}
	for _, out := range surabaya.Outcomes {
		if out.Status != OutcomeSuccess {
			t.Errorf("surabaya %s = %+v, want SUCCESS", out.Job, out)
		}
	}

	if got := countRuns(f.repo.JobRuns(), domain.JobSyncOrders, domain.JobFailed); got != 1 {
		t.Errorf("FAILED sync runs = %d, want 1", got)
	}
}

func TestGating(t *testing.T) {
	tests := []struct {
		name    string
		now     time.Time
		want    map[domain.JobName]string
		wantRun int
	}{
		{
			name: "before trigger time only sync runs",
			now:  time.Date(2025, 1, 15, 5, 0, 0, 0, time.UTC),
			want: map[domain.JobName]string{
				domain.JobDailyAnalytics:    SkipBeforeTrigger,
				domain.JobGenerateDocuments: SkipBeforeTrigger,
				domain.JobSyncOrders:        "",
			},
			wantRun: 1,
		},
		{
			name: "between analytics and docs time",
			now:  time.Date(2025, 1, 15, 6, 30, 0, 0, time.UTC),
			want: map[domain.JobName]string{
				domain.JobDailyAnalytics:    "",
				domain.JobGenerateDocuments: SkipBeforeTrigger,
				domain.JobSyncOrders:        "",
			},
			wantRun: 2,
		},
		{
			// 2025-01-18 is a Saturday.
			name: "not a run day",
			now:  time.Date(2025, 1, 18, 12, 0, 0, 0, time.UTC),
			want: map[domain.JobName]string{
				domain.JobDailyAnalytics:    SkipNotRunDay,
				domain.JobGenerateDocuments: SkipNotRunDay,
				domain.JobSyncOrders:        SkipNotRunDay,
			},
			wantRun: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.now)
			report, err := f.orchestrator(t, DefaultOptions()).Tick(context.Background())
			if err != nil {
				t.Fatalf("Tick: %v", err)
			}
			for job, reason := range tt.want {
				out := outcomeOf(t, report.Regions[0], job)
				if out.Reason != reason {
					t.Errorf("%s reason = %q, want %q", job, out.Reason, reason)
				}
			}
			if got := len(f.repo.JobRuns()); got != tt.wantRun {
				t.Errorf("job runs = %d, want %d", got, tt.wantRun)
			}
		})
	}
}

func TestConfigErrorAbortsRegionOnly(t *testing.T) {
	f := newFixture(t, wednesdayNoon)
	bad := newRegion("Atlantis", "atlantis.myshopify.com")
	bad.Timezone = "Mars/Olympus"
	f.repo.AddRegion(bad)

	report, err := f.orchestrator(t, DefaultOptions()).Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	atlantis := report.Regions[1]
	if atlantis.ConfigErr == "" || len(atlantis.Outcomes) != 0 {
		t.Errorf("atlantis = %+v, want config error and no outcomes", atlantis)
	}
	if report.Regions[0].ConfigErr != "" {
		t.Errorf("jakarta config error = %q", report.Regions[0].ConfigErr)
	}
	for _, r := range f.repo.JobRuns() {
		if r.RegionID == atlantis.RegionID {
			t.Errorf("unexpected job run for misconfigured region: %+v", r)
		}
	}
}

func TestClaimHeldByAnotherRunIsSkipped(t *testing.T) {
	f := newFixture(t, wednesdayNoon)
	ctx := context.Background()
	held := &domain.JobRun{JobName: domain.JobDailyAnalytics, RegionID: f.region.ID, RunDate: today, StartedAt: wednesdayNoon.Add(-time.Minute)}
	if ok, err := f.repo.ClaimJobRun(ctx, held, true); err != nil || !ok {
		t.Fatalf("ClaimJobRun = %v, %v", ok, err)
	}

	report, err := f.orchestrator(t, DefaultOptions()).Tick(ctx)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if out := outcomeOf(t, report.Regions[0], domain.JobDailyAnalytics); out.Reason != SkipClaimLost {
		t.Errorf("analytics = %+v, want skipped claim_lost", out)
	}
}

func TestStaleRunIsAbandonedAndRetried(t *testing.T) {
	f := newFixture(t, wednesdayNoon)
	ctx := context.Background()
	stale := &domain.JobRun{JobName: domain.JobDailyAnalytics, RegionID: f.region.ID, RunDate: today, StartedAt: wednesdayNoon.Add(-3 * time.Hour)}
	if ok, err := f.repo.ClaimJobRun(ctx, stale, true); err != nil || !ok {
		t.Fatalf("ClaimJobRun = %v, %v", ok, err)
	}

	report, err := f.orchestrator(t, DefaultOptions()).Tick(ctx)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if out := outcomeOf(t, report.Regions[0], domain.JobDailyAnalytics); out.Status != OutcomeSuccess {
		t.Errorf("analytics = %+v, want SUCCESS after abandoning the stale run", out)
	}
	for _, r := range f.repo.JobRuns() {
		if r.ID == stale.ID && (r.Status != domain.JobFailed || r.Message != "abandoned") {
			t.Errorf("stale run = %+v, want FAILED abandoned", r)
		}
	}
}

type funcJob struct {
	name domain.JobName
	run  func(ctx context.Context) error
}

func (j funcJob) Name() domain.JobName { return j.name }

func (j funcJob) Repeatable() bool { return true }

func (j funcJob) TriggerTime(domain.Region) string { return "" }

func (j funcJob) Run(ctx context.Context, _ RunContext) (string, error) {
	return "done", j.run(ctx)
}

func TestPanicsAndTimeoutsFinalizeAsFailed(t *testing.T) {
	f := newFixture(t, wednesdayNoon)
	panicking := funcJob{name: "PANICS", run: func(context.Context) error { panic("boom") }}
	slow := funcJob{name: "SLOW", run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}

	report, err := f.orchestrator(t, Options{JobTimeout: 20 * time.Millisecond}, panicking, slow).Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}

	if out := outcomeOf(t, report.Regions[0], "PANICS"); out.Status != OutcomeFailed || !strings.Contains(out.Message, "panic: boom") {
		t.Errorf("panicking job = %+v", out)
	}
	if out := outcomeOf(t, report.Regions[0], "SLOW"); out.Status != OutcomeFailed || !strings.Contains(out.Message, "deadline exceeded") {
		t.Errorf("slow job = %+v", out)
	}
	if got := countRuns(f.repo.JobRuns(), "SLOW", domain.JobFailed); got != 1 {
		t.Errorf("SLOW FAILED runs = %d, want 1", got)
	}
}

func TestTickReportDurationsAreMilliseconds(t *testing.T) {
	f := newFixture(t, wednesdayNoon)
	slow := funcJob{name: "SLOW", run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}

	report, err := f.orchestrator(t, Options{JobTimeout: 50 * time.Millisecond}, slow).Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	raw, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded struct {
		DurationMS int64 `json:"duration_ms"`
		Regions    []struct {
			Outcomes []struct {
				Job        string `json:"job"`
				DurationMS int64  `json:"duration_ms"`
			} `json:"outcomes"`
		} `json:"regions"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.DurationMS < 50 || decoded.DurationMS > 60_000 {
		t.Errorf("tick duration_ms = %d, want milliseconds", decoded.DurationMS)
	}
	found := false
	for _, out := range decoded.Regions[0].Outcomes {
		if out.Job != "SLOW" {
			continue
		}
		found = true
		if out.DurationMS < 50 || out.DurationMS > 60_000 {
			t.Errorf("SLOW duration_ms = %d, want milliseconds", out.DurationMS)
		}
	}
	if !found {
		t.Fatalf("no SLOW outcome in %s", raw)
	}
}

// outboundPanicStore fails the outbound sum of one region with a panic.
type outboundPanicStore struct {
	*memory.Store
	regionID int64
}

func (s outboundPanicStore) SumOutbound(ctx context.Context, regionID, skuID int64, since time.Time) (int, error) {
	if regionID == s.regionID {
		panic("driver crashed")
	}
	return s.Store.SumOutbound(ctx, regionID, skuID, since)
}

func TestPanicInsideSKUWorkerFailsOnlyThatRun(t *testing.T) {
	f := newFixture(t, wednesdayNoon)
	other := f.repo.AddRegion(newRegion("Surabaya", "surabaya.myshopify.com"))
	repo := outboundPanicStore{Store: f.repo, regionID: f.region.ID}

	analytics := NewAnalyticsJob(repo, f.calc, f.sender, nil, 4)
	o := NewOrchestrator(repo, f.calc, nil, nil, Options{RegionWorkers: 2}, analytics)

	report, err := o.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(report.Regions) != 2 {
		t.Fatalf("regions = %d, want 2", len(report.Regions))
	}

	jakarta := outcomeOf(t, report.Regions[0], domain.JobDailyAnalytics)
	if jakarta.Status != OutcomeFailed || !strings.Contains(jakarta.Message, "driver crashed") {
		t.Errorf("jakarta analytics = %+v, want FAILED with the panic", jakarta)
	}
	if report.Regions[1].RegionID != other.ID {
		t.Fatalf("second region = %d, want %d", report.Regions[1].RegionID, other.ID)
	}
	if out := outcomeOf(t, report.Regions[1], domain.JobDailyAnalytics); out.Status != OutcomeSuccess {
		t.Errorf("surabaya analytics = %+v, want SUCCESS", out)
	}

	runs := f.repo.JobRuns()
	if got := countRuns(runs, domain.JobDailyAnalytics, domain.JobFailed); got != 1 {
		t.Errorf("FAILED analytics runs = %d, want 1", got)
	}
	if got := countRuns(runs, domain.JobDailyAnalytics, domain.JobRunning); got != 0 {
		t.Errorf("RUNNING analytics runs = %d, want 0", got)
	}
}

func TestStaleThresholdNeverUndercutsJobTimeout(t *testing.T) {
	f := newFixture(t, wednesdayNoon)
	ctx := context.Background()
	live := &domain.JobRun{JobName: domain.JobDailyAnalytics, RegionID: f.region.ID, RunDate: today, StartedAt: wednesdayNoon.Add(-30 * time.Minute)}
	if ok, err := f.repo.ClaimJobRun(ctx, live, true); err != nil || !ok {
		t.Fatalf("ClaimJobRun = %v, %v", ok, err)
	}

	o := f.orchestrator(t, Options{JobTimeout: time.Hour, StaleRunAfter: 10 * time.Minute})
	if want := time.Hour + lockMargin; o.opts.StaleRunAfter != want {
		t.Fatalf("StaleRunAfter = %s, want %s", o.opts.StaleRunAfter, want)
	}

	report, err := o.Tick(ctx)
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if out := outcomeOf(t, report.Regions[0], domain.JobDailyAnalytics); out.Status != OutcomeSkipped || out.Reason != SkipClaimLost {
		t.Errorf("analytics = %+v, want skipped claim_lost while the live run holds the slot", out)
	}
	for _, r := range f.repo.JobRuns() {
		if r.ID == live.ID && r.Status != domain.JobRunning {
			t.Errorf("live run = %+v, want still RUNNING", r)
		}
	}
}

func TestSyncJobImportsAndClassifiesOnce(t *testing.T) {
	f := newFixture(t, wednesdayNoon)
	f.fetcher.orders["jakarta.myshopify.com"] = []commerce.Order{
		{
			ID:              1001,
			OrderNumber:     1,
			CreatedAt:       wednesdayNoon.Add(-time.Hour),
			Currency:        "IDR",
			TotalPrice:      decimal.NewFromInt(100),
			FinancialStatus: "paid",
			Customer:        &commerce.Customer{ID: 55},
			LineItems: []commerce.LineItem{
				{ID: 1, SKU: "SKU-A", Title: "Rice 5kg", Quantity: 2, Price: decimal.NewFromInt(50)},
			},
		},
		{
			ID:        1002,
			CreatedAt: wednesdayNoon.Add(-30 * time.Minute),
			Customer:  &commerce.Customer{ID: 99},
			LineItems: []commerce.LineItem{
				{ID: 2, SKU: "UNKNOWN", Title: "Mystery", Quantity: 1},
			},
		},
	}
	o := f.orchestrator(t, DefaultOptions())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := o.Tick(ctx); err != nil {
			t.Fatalf("Tick %d: %v", i, err)
		}
	}

	from, to, _ := f.calc.DayBounds(today, "UTC")
	orders, err := f.repo.ListOrders(ctx, f.region.ID, from, to)
	if err != nil {
		t.Fatalf("ListOrders: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("orders = %d, want 2 (second sync must not duplicate)", len(orders))
	}

	regular, emergency := orders[0], orders[1]
	if regular.OrderType != domain.OrderRegular || regular.StoreID == nil || *regular.StoreID != f.store.ID {
		t.Errorf("order 1001 = %+v, want REGULAR for the matched store", regular)
	}
	if regular.Lines[0].SKUID == nil || *regular.Lines[0].SKUID != f.skuA.ID {
		t.Errorf("order 1001 line sku = %v, want %d", regular.Lines[0].SKUID, f.skuA.ID)
	}
	if regular.Status != "PENDING" {
		t.Errorf("order 1001 status = %q, want PENDING", regular.Status)
	}

	if emergency.OrderType != domain.OrderEmergency || emergency.StoreID != nil {
		t.Errorf("order 1002 = %+v, want unmatched EMERGENCY", emergency)
	}
	if emergency.Reason != "Store not matched - requires manual assignment" {
		t.Errorf("order 1002 reason = %q", emergency.Reason)
	}
	if emergency.Lines[0].SKUID != nil {
		t.Errorf("unknown sku code resolved to %d", *emergency.Lines[0].SKUID)
	}
}
