// Package seed loads reference data and stock fixtures from a directory of
// CSV files, one file per table, keyed by header names.
package seed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/domain"
)

// Dataset is the parsed content of a seed directory. Every record carries
// the explicit id from its file so rows can reference each other.
type Dataset struct {
	Regions     []domain.Region
	Locations   []domain.Location
	SKUs        []domain.SKU
	Stores      []domain.Store
	Routes      []domain.Route
	Assignments []domain.RouteAssignment
	Inventory   []domain.InventoryRecord
	Lots        []domain.Lot
	Movements   []domain.Movement
}

// Load reads every known file under dir. Missing files are skipped.
func Load(dir string) (*Dataset, error) {
	ds := &Dataset{}
	steps := []struct {
		file  string
		parse func(*record) error
	}{
		{"regions.csv", ds.parseRegion},
		{"locations.csv", ds.parseLocation},
		{"skus.csv", ds.parseSKU},
		{"stores.csv", ds.parseStore},
		{"routes.csv", ds.parseRoute},
		{"store_routes.csv", ds.parseAssignment},
		{"inventory.csv", ds.parseInventory},
		{"lots.csv", ds.parseLot},
		{"movements.csv", ds.parseMovement},
	}
	for _, step := range steps {
		path := filepath.Join(dir, step.file)
		n, err := readCSV(path, step.parse)
		if errors.Is(err, os.ErrNotExist) {
			log.Debug().Str("file", path).Msg("seed file not found, skipping")
			continue
		}
		if err != nil {
			return nil, err
		}
		log.Info().Str("file", path).Int("rows", n).Msg("seed file loaded")
	}
	return ds, nil
}

func readCSV(path string, parse func(*record) error) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to read CSV header: %w", path, err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}

	rows := 0
	for line := 2; ; line++ {
		values, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, fmt.Errorf("%s: failed to read CSV record: %w", path, err)
		}
		rec := &record{values: make(map[string]string, len(header))}
		for i, col := range header {
			if i < len(values) {
				rec.values[col] = strings.TrimSpace(values[i])
			}
		}
		if err := parse(rec); err != nil {
			return rows, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		if rec.err != nil {
			return rows, fmt.Errorf("%s line %d: %w", path, line, rec.err)
		}
		rows++
	}
	return rows, nil
}

// record is one CSV row. Accessors keep the first conversion error.
type record struct {
	values map[string]string
	err    error
}

func (r *record) fail(col string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("column %s: %w", col, err)
	}
}

func (r *record) str(col string) string { return r.values[col] }

func (r *record) strOr(col, def string) string {
	if v := r.values[col]; v != "" {
		return v
	}
	return def
}

func (r *record) number(col string) int64 {
	v := r.values[col]
	if v == "" {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		r.fail(col, err)
	}
	return n
}

// id reads a required positive key column.
func (r *record) id(col string) int64 {
	if r.values[col] == "" {
		r.fail(col, errors.New("value is required"))
		return 0
	}
	n := r.number(col)
	if n <= 0 && r.err == nil {
		r.fail(col, errors.New("must be positive"))
	}
	return n
}

func (r *record) optInt64(col string) *int64 {
	if r.values[col] == "" {
		return nil
	}
	n := r.number(col)
	return &n
}

func (r *record) intOr(col string, def int) int {
	if r.values[col] == "" {
		return def
	}
	return int(r.number(col))
}

func (r *record) boolOr(col string, def bool) bool {
	v := r.values[col]
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(col, err)
	}
	return b
}

func (r *record) optDate(col string) *civil.Date {
	v := r.values[col]
	if v == "" {
		return nil
	}
	d, err := civil.ParseDate(v)
	if err != nil {
		r.fail(col, err)
		return nil
	}
	return &d
}

// timeAt accepts RFC 3339 or a "-Nd" day offset relative to now.
func (r *record) timeAt(col string, now time.Time) time.Time {
	v := r.values[col]
	if v == "" {
		return now
	}
	if strings.HasPrefix(v, "-") && strings.HasSuffix(v, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(v, "-"), "d"))
		if err != nil {
			r.fail(col, err)
			return now
		}
		return now.AddDate(0, 0, -days)
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		r.fail(col, err)
	}
	return t.UTC()
}

func (ds *Dataset) parseRegion(r *record) error {
	region, err := domain.NewRegion(domain.Region{
		ID:               r.id("region_id"),
		Name:             r.str("name"),
		Timezone:         r.str("timezone"),
		RunDays:          r.strOr("run_days", "Mon,Tue,Wed,Thu,Fri"),
		AnalyticsTime:    r.strOr("analytics_time", "06:00"),
		DocsTime:         r.strOr("docs_time", "07:00"),
		SlackWebhookURL:  r.str("slack_webhook_url"),
		ShopDomain:       r.str("shop_domain"),
		AdminToken:       r.str("admin_token"),
		StoreMatchMethod: domain.StoreMatchMethod(strings.ToUpper(r.str("store_match_method"))),
		Active:           r.boolOr("active", true),
	})
	if err != nil {
		return err
	}
	ds.Regions = append(ds.Regions, region)
	return nil
}

func (ds *Dataset) parseLocation(r *record) error {
	loc := domain.Location{
		ID:       r.id("location_id"),
		RegionID: r.number("region_id"),
		Name:     r.str("name"),
		Active:   r.boolOr("active", true),
	}
	if loc.Name == "" {
		return errors.New("location name is required")
	}
	ds.Locations = append(ds.Locations, loc)
	return nil
}

func (ds *Dataset) parseSKU(r *record) error {
	sku, err := domain.NewSKU(domain.SKU{
		ID:              r.id("sku_id"),
		Code:            r.str("sku_code"),
		Name:            r.str("name"),
		PackSize:        r.intOr("pack_size", 1),
		MOQ:             r.intOr("moq", 1),
		LeadTimeDays:    r.intOr("lead_time_days", 0),
		SafetyStockDays: r.intOr("safety_stock_days", 0),
		ExpiryManaged:   r.boolOr("expiry_managed", false),
		ABCGrade:        strings.ToUpper(r.str("abc_grade")),
		Active:          r.boolOr("active", true),
	})
	if err != nil {
		return err
	}
	ds.SKUs = append(ds.SKUs, sku)
	return nil
}

func (ds *Dataset) parseStore(r *record) error {
	store := domain.Store{
		ID:              r.id("store_id"),
		RegionID:        r.number("region_id"),
		Name:            r.str("store_name"),
		CustomerID:      r.str("customer_id"),
		StoreCode:       r.str("store_code"),
		MatchAddressKey: r.str("match_address_key"),
		Active:          r.boolOr("active", true),
	}
	if err := domain.Validate(store); err != nil {
		return err
	}
	ds.Stores = append(ds.Stores, store)
	return nil
}

func (ds *Dataset) parseRoute(r *record) error {
	route := domain.Route{
		ID:         r.id("route_id"),
		RegionID:   r.number("region_id"),
		Name:       r.str("name"),
		ActiveDays: r.str("active_days"),
		CutoffTime: r.str("cutoff_time"),
		Active:     r.boolOr("active", true),
	}
	if err := domain.Validate(route); err != nil {
		return err
	}
	ds.Routes = append(ds.Routes, route)
	return nil
}

// parseAssignment needs routes.csv loaded first to embed the route.
func (ds *Dataset) parseAssignment(r *record) error {
	routeID := r.number("route_id")
	var route *domain.Route
	for i := range ds.Routes {
		if ds.Routes[i].ID == routeID {
			route = &ds.Routes[i]
			break
		}
	}
	if route == nil {
		return fmt.Errorf("unknown route_id %d", routeID)
	}
	from := r.optDate("effective_from")
	if from == nil {
		return errors.New("effective_from is required")
	}
	ds.Assignments = append(ds.Assignments, domain.RouteAssignment{
		StoreID:       r.number("store_id"),
		Route:         *route,
		EffectiveFrom: *from,
		EffectiveTo:   r.optDate("effective_to"),
	})
	return nil
}

func (ds *Dataset) parseInventory(r *record) error {
	rec := domain.InventoryRecord{
		ID:          r.id("inventory_id"),
		RegionID:    r.number("region_id"),
		LocationID:  r.number("location_id"),
		SKUID:       r.number("sku_id"),
		OnHandQty:   r.intOr("on_hand_qty", 0),
		ReservedQty: r.intOr("reserved_qty", 0),
	}
	if err := domain.Validate(rec); err != nil {
		return err
	}
	ds.Inventory = append(ds.Inventory, rec)
	return nil
}

func (ds *Dataset) parseLot(r *record) error {
	lot := domain.Lot{
		ID:         r.id("lot_id"),
		RegionID:   r.number("region_id"),
		LocationID: r.number("location_id"),
		SKUID:      r.number("sku_id"),
		Code:       r.str("lot_code"),
		ExpiryDate: r.optDate("expiry_date"),
		Qty:        r.intOr("qty", 0),
		Status:     domain.LotStatus(strings.ToUpper(r.strOr("lot_status", string(domain.LotAvailable)))),
	}
	if err := domain.Validate(lot); err != nil {
		return err
	}
	ds.Lots = append(ds.Lots, lot)
	return nil
}

func (ds *Dataset) parseMovement(r *record) error {
	mv := domain.Movement{
		ID:             r.id("movement_id"),
		RegionID:       r.number("region_id"),
		Type:           domain.MovementType(strings.ToUpper(r.str("movement_type"))),
		SKUID:          r.number("sku_id"),
		FromLocationID: r.optInt64("from_location_id"),
		ToLocationID:   r.optInt64("to_location_id"),
		Qty:            r.intOr("qty", 0),
		Reason:         r.str("reason"),
		CreatedAt:      r.timeAt("created_at_utc", time.Now().UTC()),
	}
	if mv.Type == "" {
		return errors.New("movement_type is required")
	}
	ds.Movements = append(ds.Movements, mv)
	return nil
}
