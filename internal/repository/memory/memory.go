// Package memory is an in-process Repository used by tests and dry runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"cloud.google.com/go/civil"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/repository"
)

type factKey struct {
	regionID int64
	skuID    int64
	lotID    int64
	date     civil.Date
}

type Store struct {
	mu sync.Mutex

	nextID int64

	regions     map[int64]domain.Region
	locations   map[int64]domain.Location
	stores      []domain.Store
	assignments []domain.RouteAssignment
	skus        []domain.SKU
	inventory   []domain.InventoryRecord
	lots        []domain.Lot
	movements   []domain.Movement
	orders      []domain.Order

	forecasts       map[factKey]domain.Forecast
	recommendations map[factKey]domain.Recommendation
	risks           map[factKey]domain.DeadstockRisk
	kpis            map[factKey]domain.EmergencyKPI

	jobRuns   []domain.JobRun
	documents []domain.Document
}

var _ repository.Repository = (*Store)(nil)

func New() *Store {
	return &Store{
		regions:         make(map[int64]domain.Region),
		locations:       make(map[int64]domain.Location),
		forecasts:       make(map[factKey]domain.Forecast),
		recommendations: make(map[factKey]domain.Recommendation),
		risks:           make(map[factKey]domain.DeadstockRisk),
		kpis:            make(map[factKey]domain.EmergencyKPI),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// Seeding helpers.

func (s *Store) AddRegion(r domain.Region) domain.Region {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		r.ID = s.id()
	}
	s.regions[r.ID] = r
	return r
}

func (s *Store) AddLocation(l domain.Location) domain.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == 0 {
		l.ID = s.id()
	}
	s.locations[l.ID] = l
	return l
}

func (s *Store) AddStore(st domain.Store) domain.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.ID == 0 {
		st.ID = s.id()
	}
	s.stores = append(s.stores, st)
	return st
}

func (s *Store) AssignRoute(a domain.RouteAssignment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments = append(s.assignments, a)
}

func (s *Store) AddSKU(k domain.SKU) domain.SKU {
	s.mu.Lock()
	defer s.mu.Unlock()
	if k.ID == 0 {
		k.ID = s.id()
	}
	s.skus = append(s.skus, k)
	return k
}

func (s *Store) AddLot(l domain.Lot) domain.Lot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == 0 {
		l.ID = s.id()
	}
	s.lots = append(s.lots, l)
	return l
}

func (s *Store) AddMovement(m domain.Movement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == 0 {
		m.ID = s.id()
	}
	s.movements = append(s.movements, m)
}

// JobRuns returns a copy of every recorded run.
func (s *Store) JobRuns() []domain.JobRun {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.JobRun(nil), s.jobRuns...)
}

// Regions

func (s *Store) ListActiveRegions(_ context.Context) ([]domain.Region, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Region
	for _, r := range s.regions {
		if r.Active {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetRegion(_ context.Context, id int64) (domain.Region, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.regions[id]
	if !ok {
		return domain.Region{}, repository.ErrNotFound
	}
	return r, nil
}

func (s *Store) GetLocation(_ context.Context, id int64) (domain.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locations[id]
	if !ok {
		return domain.Location{}, repository.ErrNotFound
	}
	return l, nil
}

// Routes and stores

func (s *Store) ListStoreRouteAssignments(_ context.Context, storeID int64) ([]domain.RouteAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.RouteAssignment
	for _, a := range s.assignments {
		if a.StoreID == storeID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) ListActiveStores(_ context.Context, regionID int64) ([]domain.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Store
	for _, st := range s.stores {
		if st.RegionID == regionID && st.Active {
			out = append(out, st)
		}
	}
	return out, nil
}

// SKUs

func (s *Store) ListActiveSKUs(_ context.Context) ([]domain.SKU, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.SKU
	for _, k := range s.skus {
		if k.Active {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *Store) GetSKUByCode(_ context.Context, code string) (domain.SKU, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.skus {
		if k.Code == code {
			return k, nil
		}
	}
	return domain.SKU{}, repository.ErrNotFound
}

// Inventory

func (s *Store) ListInventory(_ context.Context, regionID, skuID int64) ([]domain.InventoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.InventoryRecord
	for _, r := range s.inventory {
		if r.RegionID == regionID && r.SKUID == skuID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) FindInventory(_ context.Context, regionID, locationID, skuID int64) (domain.InventoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.inventory {
		if r.RegionID == regionID && r.LocationID == locationID && r.SKUID == skuID {
			return r, nil
		}
	}
	return domain.InventoryRecord{}, repository.ErrNotFound
}

func (s *Store) IncrementOnHand(_ context.Context, inventoryID int64, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.inventory {
		if s.inventory[i].ID == inventoryID {
			s.inventory[i].OnHandQty += delta
			s.inventory[i].UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *Store) InsertInventory(_ context.Context, rec *domain.InventoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = s.id()
	rec.UpdatedAt = time.Now().UTC()
	s.inventory = append(s.inventory, *rec)
	return nil
}

func (s *Store) ListAvailableLots(_ context.Context, regionID, skuID int64) ([]domain.Lot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Lot
	for _, l := range s.lots {
		if l.RegionID == regionID && l.SKUID == skuID && l.Status == domain.LotAvailable && l.Qty > 0 {
			out = append(out, l)
		}
	}
	return out, nil
}

// Movements

func (s *Store) SumOutbound(_ context.Context, regionID, skuID int64, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, m := range s.movements {
		if m.RegionID == regionID && m.SKUID == skuID && m.Type == domain.MovementOut && !m.CreatedAt.Before(since) {
			total += m.Qty
		}
	}
	return total, nil
}

func (s *Store) InsertMovement(_ context.Context, m *domain.Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.id()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	s.movements = append(s.movements, *m)
	return nil
}

// Orders

func (s *Store) LatestOrderTime(_ context.Context, regionID int64) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		latest time.Time
		ok     bool
	)
	for _, o := range s.orders {
		if o.RegionID == regionID && (!ok || o.OrderedAt.After(latest)) {
			latest, ok = o.OrderedAt, true
		}
	}
	return latest, ok, nil
}

func (s *Store) OrderExists(_ context.Context, regionID int64, externalID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.RegionID == regionID && o.ExternalID == externalID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CreateOrder(_ context.Context, o *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.ID = s.id()
	for i := range o.Lines {
		o.Lines[i].ID = s.id()
		o.Lines[i].OrderID = o.ID
	}
	stored := *o
	stored.Lines = append([]domain.OrderLine(nil), o.Lines...)
	s.orders = append(s.orders, stored)
	return nil
}

func (s *Store) ListOrders(_ context.Context, regionID int64, from, to time.Time) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Order
	for _, o := range s.orders {
		if o.RegionID == regionID && !o.OrderedAt.Before(from) && o.OrderedAt.Before(to) {
			out = append(out, o)
		}
	}
	return out, nil
}

// Analytics facts

func (s *Store) SaveForecast(_ context.Context, f domain.Forecast) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := factKey{regionID: f.RegionID, skuID: f.SKUID, date: f.Date}
	if _, ok := s.forecasts[k]; !ok {
		s.forecasts[k] = f
	}
	return nil
}

func (s *Store) SaveRecommendation(_ context.Context, r domain.Recommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := factKey{regionID: r.RegionID, skuID: r.SKUID, date: r.Date}
	if _, ok := s.recommendations[k]; !ok {
		s.recommendations[k] = r
	}
	return nil
}

func (s *Store) SaveDeadstockRisk(_ context.Context, r domain.DeadstockRisk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := factKey{regionID: r.RegionID, skuID: r.SKUID, lotID: r.LotID, date: r.Date}
	if _, ok := s.risks[k]; !ok {
		s.risks[k] = r
	}
	return nil
}

func (s *Store) SaveEmergencyKPI(_ context.Context, kpi domain.EmergencyKPI) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := factKey{regionID: kpi.RegionID, date: kpi.Date}
	if _, ok := s.kpis[k]; !ok {
		s.kpis[k] = kpi
	}
	return nil
}

func (s *Store) ListForecasts(_ context.Context, regionID int64, date civil.Date) ([]domain.Forecast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Forecast
	for k, f := range s.forecasts {
		if k.regionID == regionID && k.date == date {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKUID < out[j].SKUID })
	return out, nil
}

func (s *Store) ListRecommendations(_ context.Context, regionID int64, date civil.Date) ([]domain.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Recommendation
	for k, r := range s.recommendations {
		if k.regionID == regionID && k.date == date {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKUID < out[j].SKUID })
	return out, nil
}

func (s *Store) ListDeadstockRisks(_ context.Context, regionID int64, date civil.Date) ([]domain.DeadstockRisk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.DeadstockRisk
	for k, r := range s.risks {
		if k.regionID == regionID && k.date == date {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SKUID != out[j].SKUID {
			return out[i].SKUID < out[j].SKUID
		}
		return out[i].LotID < out[j].LotID
	})
	return out, nil
}

func (s *Store) GetEmergencyKPI(_ context.Context, regionID int64, date civil.Date) (domain.EmergencyKPI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.kpis[factKey{regionID: regionID, date: date}]
	if !ok {
		return domain.EmergencyKPI{}, repository.ErrNotFound
	}
	return k, nil
}

// Job runs

func (s *Store) HasSucceeded(_ context.Context, job domain.JobName, regionID int64, date civil.Date) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.jobRuns {
		if r.JobName == job && r.RegionID == regionID && r.RunDate == date && r.Status == domain.JobSuccess {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ClaimJobRun(_ context.Context, run *domain.JobRun, exclusive bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if exclusive {
		for _, r := range s.jobRuns {
			if r.JobName == run.JobName && r.RegionID == run.RegionID && r.RunDate == run.RunDate &&
				(r.Status == domain.JobRunning || r.Status == domain.JobSuccess) {
				return false, nil
			}
		}
	}
	run.ID = s.id()
	run.Status = domain.JobRunning
	s.jobRuns = append(s.jobRuns, *run)
	return true, nil
}

func (s *Store) FinishJobRun(_ context.Context, id int64, status domain.JobStatus, message string, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.jobRuns {
		r := &s.jobRuns[i]
		if r.ID != id {
			continue
		}
		if r.Status != domain.JobRunning {
			return nil
		}
		r.Status, r.Message, r.Duration = status, message, d
		return nil
	}
	return repository.ErrNotFound
}

func (s *Store) FailStaleRuns(_ context.Context, job domain.JobName, regionID int64, date civil.Date, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.jobRuns {
		r := &s.jobRuns[i]
		if r.JobName == job && r.RegionID == regionID && r.RunDate == date &&
			r.Status == domain.JobRunning && r.StartedAt.Before(cutoff) {
			r.Status = domain.JobFailed
			r.Message = "abandoned"
			n++
		}
	}
	return n, nil
}

func (s *Store) ListJobRuns(_ context.Context, regionID int64, limit int) ([]domain.JobRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.JobRun
	for i := len(s.jobRuns) - 1; i >= 0; i-- {
		if s.jobRuns[i].RegionID == regionID {
			out = append(out, s.jobRuns[i])
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// Documents

func (s *Store) SaveDocument(_ context.Context, d *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.ID = s.id()
	s.documents = append(s.documents, *d)
	return nil
}

func (s *Store) ListDocuments(_ context.Context, regionID int64, date civil.Date) ([]domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Document
	for _, d := range s.documents {
		if d.RegionID == regionID && d.Date == date {
			out = append(out, d)
		}
	}
	return out, nil
}
