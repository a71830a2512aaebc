package classifier

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/andresuchdata/replenish/internal/domain"
)

var (
	nonWordPattern    = regexp.MustCompile(`[^\w\s]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// StoreSource lists the active stores of a region.
type StoreSource interface {
	ListActiveStores(ctx context.Context, regionID int64) ([]domain.Store, error)
}

// OrderRef carries the order attributes stores are matched on.
type OrderRef struct {
	CustomerID string
	Address1   string
	City       string
	Zip        string
	Tags       string
}

// Matcher resolves the store an order belongs to using the region's match method.
type Matcher struct {
	stores StoreSource
}

func NewMatcher(stores StoreSource) *Matcher {
	return &Matcher{stores: stores}
}

// Match returns the matched store id, or nil when no active store matches.
func (m *Matcher) Match(ctx context.Context, region domain.Region, ref OrderRef) (*int64, error) {
	stores, err := m.stores.ListActiveStores(ctx, region.ID)
	if err != nil {
		return nil, fmt.Errorf("list stores for region %d: %w", region.ID, err)
	}

	switch region.StoreMatchMethod {
	case domain.MatchByAddress:
		key := NormalizeAddress(strings.Join([]string{ref.Address1, ref.City, ref.Zip}, " "))
		if key == "" {
			return nil, nil
		}
		for _, s := range stores {
			if s.Active && NormalizeAddress(s.MatchAddressKey) == key {
				return &s.ID, nil
			}
		}
	case domain.MatchByTag:
		tags := splitTags(ref.Tags)
		for _, s := range stores {
			if !s.Active || s.StoreCode == "" {
				continue
			}
			if _, ok := tags[s.StoreCode]; ok {
				return &s.ID, nil
			}
		}
	default:
		if ref.CustomerID == "" {
			return nil, nil
		}
		for _, s := range stores {
			if s.Active && s.CustomerID == ref.CustomerID {
				return &s.ID, nil
			}
		}
	}
	return nil, nil
}

// NormalizeAddress lowercases, strips punctuation and collapses whitespace.
func NormalizeAddress(s string) string {
	s = strings.ToLower(s)
	s = nonWordPattern.ReplaceAllString(s, "")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func splitTags(s string) map[string]struct{} {
	tags := make(map[string]struct{})
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags[t] = struct{}{}
		}
	}
	return tags
}
