package repository

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/civil"

	"github.com/andresuchdata/replenish/internal/domain"
)

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("not found")

type RegionRepository interface {
	ListActiveRegions(ctx context.Context) ([]domain.Region, error)
	GetRegion(ctx context.Context, id int64) (domain.Region, error)
}

type LocationRepository interface {
	GetLocation(ctx context.Context, id int64) (domain.Location, error)
}

type RouteRepository interface {
	ListStoreRouteAssignments(ctx context.Context, storeID int64) ([]domain.RouteAssignment, error)
}

type StoreRepository interface {
	ListActiveStores(ctx context.Context, regionID int64) ([]domain.Store, error)
}

type SKURepository interface {
	ListActiveSKUs(ctx context.Context) ([]domain.SKU, error)
	GetSKUByCode(ctx context.Context, code string) (domain.SKU, error)
}

type InventoryRepository interface {
	ListInventory(ctx context.Context, regionID, skuID int64) ([]domain.InventoryRecord, error)
	FindInventory(ctx context.Context, regionID, locationID, skuID int64) (domain.InventoryRecord, error)
	IncrementOnHand(ctx context.Context, inventoryID int64, delta int) error
	InsertInventory(ctx context.Context, rec *domain.InventoryRecord) error
	// ListAvailableLots returns AVAILABLE lots with a positive quantity.
	ListAvailableLots(ctx context.Context, regionID, skuID int64) ([]domain.Lot, error)
}

type MovementRepository interface {
	// SumOutbound totals OUT movement quantities created at or after since.
	SumOutbound(ctx context.Context, regionID, skuID int64, since time.Time) (int, error)
	// InsertMovement appends m to the ledger and sets its id.
	InsertMovement(ctx context.Context, m *domain.Movement) error
}

type OrderRepository interface {
	// LatestOrderTime reports the newest stored order timestamp; ok is false when the region has none.
	LatestOrderTime(ctx context.Context, regionID int64) (t time.Time, ok bool, err error)
	OrderExists(ctx context.Context, regionID int64, externalID string) (bool, error)
	// CreateOrder stores the order and its lines, setting their ids.
	CreateOrder(ctx context.Context, o *domain.Order) error
	// ListOrders returns orders with lines placed in [from, to).
	ListOrders(ctx context.Context, regionID int64, from, to time.Time) ([]domain.Order, error)
}

// AnalyticsRepository persists the write-once daily facts. Saving a fact whose
// natural key already exists leaves the stored row untouched.
type AnalyticsRepository interface {
	SaveForecast(ctx context.Context, f domain.Forecast) error
	SaveRecommendation(ctx context.Context, r domain.Recommendation) error
	SaveDeadstockRisk(ctx context.Context, r domain.DeadstockRisk) error
	SaveEmergencyKPI(ctx context.Context, k domain.EmergencyKPI) error

	ListForecasts(ctx context.Context, regionID int64, date civil.Date) ([]domain.Forecast, error)
	ListRecommendations(ctx context.Context, regionID int64, date civil.Date) ([]domain.Recommendation, error)
	ListDeadstockRisks(ctx context.Context, regionID int64, date civil.Date) ([]domain.DeadstockRisk, error)
	GetEmergencyKPI(ctx context.Context, regionID int64, date civil.Date) (domain.EmergencyKPI, error)
}

type JobRunRepository interface {
	HasSucceeded(ctx context.Context, job domain.JobName, regionID int64, date civil.Date) (bool, error)
	// ClaimJobRun inserts run as RUNNING and sets its id. When exclusive is set the
	// insert only happens if no RUNNING or SUCCESS run exists for the same
	// job, region and date; claimed is false when another run holds the slot.
	ClaimJobRun(ctx context.Context, run *domain.JobRun, exclusive bool) (claimed bool, err error)
	FinishJobRun(ctx context.Context, id int64, status domain.JobStatus, message string, d time.Duration) error
	// FailStaleRuns finalizes RUNNING rows started before cutoff as FAILED.
	FailStaleRuns(ctx context.Context, job domain.JobName, regionID int64, date civil.Date, cutoff time.Time) (int, error)
	ListJobRuns(ctx context.Context, regionID int64, limit int) ([]domain.JobRun, error)
}

type DocumentRepository interface {
	SaveDocument(ctx context.Context, d *domain.Document) error
	ListDocuments(ctx context.Context, regionID int64, date civil.Date) ([]domain.Document, error)
}

// Repository is the full data-access layer the scheduler depends on.
type Repository interface {
	RegionRepository
	LocationRepository
	RouteRepository
	StoreRepository
	SKURepository
	InventoryRepository
	MovementRepository
	OrderRepository
	AnalyticsRepository
	JobRunRepository
	DocumentRepository
}
