// Package commerce reads orders from the Shopify Admin REST API.
package commerce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/replenish/internal/config"
)

const (
	defaultAPIVersion = "2024-01"
	defaultPageLimit  = 250
	maxPages          = 40
)

var nextLinkPattern = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

type Customer struct {
	ID int64 `json:"id"`
}

type Address struct {
	Address1 string `json:"address1"`
	City     string `json:"city"`
	Zip      string `json:"zip"`
}

type LineItem struct {
	ID        int64           `json:"id"`
	SKU       string          `json:"sku"`
	VariantID int64           `json:"variant_id"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Code is the SKU code of the line, falling back to the variant id.
func (l LineItem) Code() string {
	if l.SKU != "" {
		return l.SKU
	}
	if l.VariantID != 0 {
		return strconv.FormatInt(l.VariantID, 10)
	}
	return ""
}

type Order struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	OrderNumber     int64           `json:"order_number"`
	CreatedAt       time.Time       `json:"created_at"`
	Currency        string          `json:"currency"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	FinancialStatus string          `json:"financial_status"`
	Tags            string          `json:"tags"`
	Customer        *Customer       `json:"customer"`
	ShippingAddress *Address        `json:"shipping_address"`
	LineItems       []LineItem      `json:"line_items"`
}

func (o Order) ExternalID() string {
	return strconv.FormatInt(o.ID, 10)
}

func (o Order) Number() string {
	if o.OrderNumber != 0 {
		return strconv.FormatInt(o.OrderNumber, 10)
	}
	return o.Name
}

func (o Order) CustomerID() string {
	if o.Customer == nil || o.Customer.ID == 0 {
		return ""
	}
	return strconv.FormatInt(o.Customer.ID, 10)
}

// Status maps the payment state to the internal fulfilment status.
func (o Order) Status() string {
	if o.FinancialStatus == "paid" {
		return "PENDING"
	}
	return "PROCESSING"
}

// Client fetches orders for a shop.
type Client struct {
	http       *http.Client
	apiVersion string
	pageLimit  int
}

func NewClient(cfg config.CommerceConfig) *Client {
	c := &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		apiVersion: cfg.APIVersion,
		pageLimit:  cfg.PageLimit,
	}
	if c.apiVersion == "" {
		c.apiVersion = defaultAPIVersion
	}
	if c.pageLimit <= 0 || c.pageLimit > defaultPageLimit {
		c.pageLimit = defaultPageLimit
	}
	return c
}

func (c *Client) baseURL(shop string) string {
	shop = strings.TrimSuffix(shop, "/")
	if !strings.HasPrefix(shop, "http://") && !strings.HasPrefix(shop, "https://") {
		shop = "https://" + shop
	}
	return fmt.Sprintf("%s/admin/api/%s", shop, c.apiVersion)
}

// FetchOrders returns every order updated at or after since, following pagination links.
// A zero since fetches without a lower bound.
func (c *Client) FetchOrders(ctx context.Context, shop, token string, since time.Time) ([]Order, error) {
	if shop == "" || token == "" {
		return nil, fmt.Errorf("shop domain and access token are required")
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(c.pageLimit))
	params.Set("status", "any")
	if !since.IsZero() {
		params.Set("updated_at_min", since.UTC().Format(time.RFC3339))
	}
	next := c.baseURL(shop) + "/orders.json?" + params.Encode()

	var all []Order
	for page := 0; next != "" && page < maxPages; page++ {
		orders, link, err := c.fetchPage(ctx, next, token)
		if err != nil {
			return nil, err
		}
		all = append(all, orders...)
		next = link
	}
	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, pageURL, token string) ([]Order, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build orders request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch orders: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, "", fmt.Errorf("fetch orders: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var payload struct {
		Orders []Order `json:"orders"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, "", fmt.Errorf("decode orders: %w", err)
	}

	var next string
	if m := nextLinkPattern.FindStringSubmatch(resp.Header.Get("Link")); m != nil {
		next = m[1]
	}
	return payload.Orders, next, nil
}
