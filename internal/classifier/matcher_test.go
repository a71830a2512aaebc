package classifier

import (
	"context"
	"testing"

	"github.com/andresuchdata/replenish/internal/domain"
)

type storeStub []domain.Store

func (s storeStub) ListActiveStores(_ context.Context, regionID int64) ([]domain.Store, error) {
	var out []domain.Store
	for _, st := range s {
		if st.RegionID == regionID {
			out = append(out, st)
		}
	}
	return out, nil
}

func TestMatch(t *testing.T) {
	stores := storeStub{
		{ID: 1, RegionID: 1, Name: "Kemang", CustomerID: "cust-1", StoreCode: "KMG", MatchAddressKey: "Jl. Kemang Raya 5, Jakarta 12730", Active: true},
		{ID: 2, RegionID: 1, Name: "Senopati", CustomerID: "cust-2", StoreCode: "SNP", MatchAddressKey: "jl senopati 10 jakarta 12190", Active: true},
		{ID: 3, RegionID: 2, Name: "Bandung", CustomerID: "cust-3", StoreCode: "BDG", Active: true},
	}
	m := NewMatcher(stores)

	tests := []struct {
		name   string
		method domain.StoreMatchMethod
		ref    OrderRef
		want   int64
	}{
		{"customer", domain.MatchByCustomer, OrderRef{CustomerID: "cust-2"}, 2},
		{"customer in other region", domain.MatchByCustomer, OrderRef{CustomerID: "cust-3"}, 0},
		{"empty customer", domain.MatchByCustomer, OrderRef{}, 0},
		{"address normalized", domain.MatchByAddress, OrderRef{Address1: "JL. KEMANG RAYA 5,", City: "Jakarta", Zip: "12730"}, 1},
		{"address mismatch", domain.MatchByAddress, OrderRef{Address1: "Jl Kemang Raya 7", City: "Jakarta", Zip: "12730"}, 0},
		{"tag", domain.MatchByTag, OrderRef{Tags: "wholesale, SNP ,priority"}, 2},
		{"tag is exact", domain.MatchByTag, OrderRef{Tags: "SNPX"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Match(context.Background(), domain.Region{ID: 1, StoreMatchMethod: tt.method}, tt.ref)
			if err != nil {
				t.Fatalf("Match: %v", err)
			}
			if tt.want == 0 {
				if got != nil {
					t.Errorf("expected no match, got store %d", *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Errorf("expected store %d, got %v", tt.want, got)
			}
		})
	}
}

func TestNormalizeAddress(t *testing.T) {
	if got := NormalizeAddress("  12 Main St.,   Springfield  "); got != "12 main st springfield" {
		t.Errorf("NormalizeAddress = %q", got)
	}
}
