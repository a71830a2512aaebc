package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/classifier"
	"github.com/andresuchdata/replenish/internal/commerce"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/repository"
	"github.com/andresuchdata/replenish/internal/schedule"
)

// OrderFetcher reads orders from the commerce platform.
type OrderFetcher interface {
	FetchOrders(ctx context.Context, shop, token string, since time.Time) ([]commerce.Order, error)
}

// SyncJob imports new commerce orders, matching each to a store and
// classifying it once.
type SyncJob struct {
	repo       repository.Repository
	fetcher    OrderFetcher
	matcher    *classifier.Matcher
	classifier *classifier.Classifier
}

func NewSyncJob(repo repository.Repository, calc *schedule.Calculator, fetcher OrderFetcher) *SyncJob {
	return &SyncJob{
		repo:       repo,
		fetcher:    fetcher,
		matcher:    classifier.NewMatcher(repo),
		classifier: classifier.New(repo, calc),
	}
}

func (j *SyncJob) Name() domain.JobName { return domain.JobSyncOrders }

func (j *SyncJob) Repeatable() bool { return true }

func (j *SyncJob) TriggerTime(domain.Region) string { return "" }

func (j *SyncJob) Run(ctx context.Context, rc RunContext) (string, error) {
	region := rc.Region
	if region.ShopDomain == "" || region.AdminToken == "" {
		return "commerce platform not configured", nil
	}

	since, _, err := j.repo.LatestOrderTime(ctx, region.ID)
	if err != nil {
		return "", err
	}

	orders, err := j.fetcher.FetchOrders(ctx, region.ShopDomain, region.AdminToken, since)
	if err != nil {
		return "", fmt.Errorf("fetch orders: %w", err)
	}

	skuIDs := make(map[string]*int64)
	created, skipped := 0, 0
	for _, co := range orders {
		exists, err := j.repo.OrderExists(ctx, region.ID, co.ExternalID())
		if err != nil {
			return "", err
		}
		if exists {
			skipped++
			continue
		}

		order, err := j.buildOrder(ctx, region, co, skuIDs)
		if err != nil {
			return "", fmt.Errorf("order %s: %w", co.ExternalID(), err)
		}
		if err := j.repo.CreateOrder(ctx, &order); err != nil {
			return "", err
		}
		created++
		log.Debug().
			Int64("region_id", region.ID).
			Str("external_id", order.ExternalID).
			Str("order_type", string(order.OrderType)).
			Msg("order imported")
	}

	return fmt.Sprintf("fetched %d, created %d, skipped %d", len(orders), created, skipped), nil
}

func (j *SyncJob) buildOrder(ctx context.Context, region domain.Region, co commerce.Order, skuIDs map[string]*int64) (domain.Order, error) {
	ref := classifier.OrderRef{CustomerID: co.CustomerID(), Tags: co.Tags}
	var address string
	if co.ShippingAddress != nil {
		ref.Address1 = co.ShippingAddress.Address1
		ref.City = co.ShippingAddress.City
		ref.Zip = co.ShippingAddress.Zip
		raw, err := json.Marshal(co.ShippingAddress)
		if err != nil {
			return domain.Order{}, err
		}
		address = string(raw)
	}

	storeID, err := j.matcher.Match(ctx, region, ref)
	if err != nil {
		return domain.Order{}, err
	}
	result, err := j.classifier.Classify(ctx, classifier.Input{
		RegionID:  region.ID,
		StoreID:   storeID,
		OrderedAt: co.CreatedAt,
		Timezone:  region.Timezone,
	})
	if err != nil {
		return domain.Order{}, err
	}

	order := domain.Order{
		RegionID:        region.ID,
		StoreID:         storeID,
		ExternalID:      co.ExternalID(),
		OrderNumber:     co.Number(),
		OrderedAt:       co.CreatedAt.UTC(),
		OrderType:       result.Type,
		Reason:          result.Reason,
		Currency:        co.Currency,
		TotalAmount:     co.TotalPrice,
		Status:          co.Status(),
		CustomerID:      co.CustomerID(),
		ShippingAddress: address,
		Tags:            co.Tags,
	}
	for _, li := range co.LineItems {
		code := li.Code()
		if code == "" {
			continue
		}
		skuID, err := j.resolveSKU(ctx, code, skuIDs)
		if err != nil {
			return domain.Order{}, err
		}
		order.Lines = append(order.Lines, domain.OrderLine{
			SKUID:          skuID,
			SKUCode:        code,
			Name:           li.Title,
			Qty:            li.Quantity,
			UnitPrice:      li.Price,
			ExternalLineID: fmt.Sprint(li.ID),
		})
	}
	return domain.NewOrder(order)
}

// resolveSKU maps a code to its SKU id; unknown codes resolve to nil.
func (j *SyncJob) resolveSKU(ctx context.Context, code string, seen map[string]*int64) (*int64, error) {
	if id, ok := seen[code]; ok {
		return id, nil
	}
	sku, err := j.repo.GetSKUByCode(ctx, code)
	switch {
	case err == nil:
		id := sku.ID
		seen[code] = &id
		return &id, nil
	case errors.Is(err, repository.ErrNotFound):
		seen[code] = nil
		return nil, nil
	default:
		return nil, fmt.Errorf("resolve sku %s: %w", code, err)
	}
}
