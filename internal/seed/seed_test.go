package seed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/andresuchdata/replenish/internal/repository/memory"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestLoadParsesAndLinksRows(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"regions.csv":      "region_id,name,timezone,run_days\n7,Jakarta,Asia/Jakarta,\"Mon,Wed\"\n",
		"skus.csv":         "sku_id,sku_code,name,expiry_managed\n3,SKU-A,Alpha,true\n",
		"stores.csv":       "store_id,region_id,store_name,customer_id\n4,7,Kemang,55\n",
		"routes.csv":       "route_id,region_id,name,active_days\n9,7,South,\"Mon,Wed\"\n",
		"store_routes.csv": "store_id,route_id,effective_from,effective_to\n4,9,2025-01-01,2025-06-30\n",
		"lots.csv":         "lot_id,region_id,location_id,sku_id,lot_code,expiry_date,qty\n11,7,1,3,L1,2025-02-01,20\n",
		"movements.csv":    "movement_id,region_id,movement_type,sku_id,from_location_id,qty,created_at_utc\n1,7,out,3,1,90,-10d\n",
	})

	ds, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(ds.Regions) != 1 || ds.Regions[0].ID != 7 || ds.Regions[0].AnalyticsTime != "06:00" {
		t.Errorf("regions = %+v", ds.Regions)
	}
	if ds.Regions[0].StoreMatchMethod != "CUSTOMER" {
		t.Errorf("default match method = %q", ds.Regions[0].StoreMatchMethod)
	}
	if len(ds.SKUs) != 1 || ds.SKUs[0].PackSize != 1 || !ds.SKUs[0].ExpiryManaged {
		t.Errorf("skus = %+v", ds.SKUs)
	}
	if len(ds.Assignments) != 1 || ds.Assignments[0].Route.Name != "South" {
		t.Fatalf("assignments = %+v", ds.Assignments)
	}
	wantTo := civil.Date{Year: 2025, Month: time.June, Day: 30}
	if to := ds.Assignments[0].EffectiveTo; to == nil || *to != wantTo {
		t.Errorf("effective_to = %v, want %v", to, wantTo)
	}
	if len(ds.Lots) != 1 || ds.Lots[0].Status != "AVAILABLE" || ds.Lots[0].ExpiryDate == nil {
		t.Errorf("lots = %+v", ds.Lots)
	}

	mv := ds.Movements[0]
	if mv.Type != "OUT" || mv.ToLocationID != nil || mv.FromLocationID == nil || *mv.FromLocationID != 1 {
		t.Errorf("movement = %+v", mv)
	}
	age := time.Since(mv.CreatedAt)
	if age < 9*24*time.Hour || age > 11*24*time.Hour {
		t.Errorf("relative created_at age = %v, want about 10 days", age)
	}
}

func TestLoadReportsBadRows(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  string
	}{
		{
			name:  "invalid timezone",
			files: map[string]string{"regions.csv": "region_id,name,timezone\n1,X,Mars/Olympus\n"},
			want:  "regions.csv line 2",
		},
		{
			name:  "missing id",
			files: map[string]string{"skus.csv": "sku_id,sku_code\n,SKU-A\n"},
			want:  "column sku_id",
		},
		{
			name: "unknown route",
			files: map[string]string{
				"store_routes.csv": "store_id,route_id,effective_from\n1,99,2025-01-01\n",
			},
			want: "unknown route_id 99",
		},
		{
			name:  "bad date",
			files: map[string]string{"lots.csv": "lot_id,region_id,sku_id,lot_code,expiry_date\n1,1,1,L,01/02/2025\n"},
			want:  "column expiry_date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFiles(t, tt.files))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestIntoMemoryStore(t *testing.T) {
	ds, err := Load(filepath.Join("..", "..", "data", "seed"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	store := memory.New()
	ctx := context.Background()
	if err := ds.Into(ctx, store); err != nil {
		t.Fatalf("Into: %v", err)
	}

	regions, err := store.ListActiveRegions(ctx)
	if err != nil || len(regions) != 2 {
		t.Fatalf("regions = %v, %v", regions, err)
	}
	inv, err := store.ListInventory(ctx, 1, 1)
	if err != nil || len(inv) != 1 || inv[0].OnHandQty != 40 {
		t.Errorf("inventory = %+v, %v", inv, err)
	}
	out, err := store.SumOutbound(ctx, 1, 1, time.Now().AddDate(0, 0, -30))
	if err != nil || out != 90 {
		t.Errorf("outbound last 30d = %d, %v; want 90", out, err)
	}
	assignments, err := store.ListStoreRouteAssignments(ctx, 1)
	if err != nil || len(assignments) != 1 || assignments[0].Route.ActiveDays != "Mon,Wed,Fri" {
		t.Errorf("assignments = %+v, %v", assignments, err)
	}
	loc, err := store.GetLocation(ctx, 2)
	if err != nil || loc.RegionID != 2 || loc.Name != "Surabaya DC" {
		t.Errorf("location 2 = %+v, %v", loc, err)
	}
}
