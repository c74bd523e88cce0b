package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CatalogConfig identifies the price-list feed.
type CatalogConfig struct {
	URL      string
	PriceID  string
	Products string
}

// CatalogEntry is one raw row of the provider price list. The feed is not
// consistent about scalar types, so price and status accept either strings
// or numbers.
type CatalogEntry struct {
	Code        string     `json:"kode"`
	Name        string     `json:"produk"`
	Category    string     `json:"kategori"`
	Description string     `json:"keterangan"`
	Price       FlexScalar `json:"harga"`
	Status      FlexScalar `json:"status"`
}

// FlexScalar decodes a JSON string or number into its textual form.
type FlexScalar string

func (f *FlexScalar) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexScalar(s)
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	*f = FlexScalar(b)
	return nil
}

func (f FlexScalar) String() string { return string(f) }

// CatalogItem is a normalized catalog row ready for persistence. Rows that
// lack a code, name or parseable price are dropped during normalization.
type CatalogItem struct {
	Code        string
	Name        string
	Category    string
	Description string
	Price       decimal.Decimal
	Active      bool
}

// CatalogClient fetches the product price list feed.
type CatalogClient struct {
	cfg        CatalogConfig
	httpClient *http.Client
	retries    int
}

func NewCatalogClient(cfg CatalogConfig) *CatalogClient {
	return &CatalogClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		retries:    1,
	}
}

// Fetch downloads and normalizes the full price list.
func (c *CatalogClient) Fetch(ctx context.Context) ([]CatalogItem, error) {
	if c.cfg.PriceID == "" || c.cfg.Products == "" {
		return nil, fmt.Errorf("catalog feed credentials are not configured")
	}
	if c.cfg.URL == "" {
		return nil, fmt.Errorf("catalog feed URL is not configured")
	}

	params := url.Values{}
	params.Set("id", c.cfg.PriceID)
	params.Set("produk", c.cfg.Products)
	endpoint := c.cfg.URL + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", ErrUnreachable, ctx.Err())
			case <-time.After(250 * time.Millisecond):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("build catalog request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		items, err := decodeCatalog(resp)
		resp.Body.Close()
		if err != nil {
			return nil, err
		}
		return items, nil
	}

	return nil, fmt.Errorf("%w: %w", ErrUnreachable, lastErr)
}

func decodeCatalog(resp *http.Response) ([]CatalogItem, error) {
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog feed returned status %d", resp.StatusCode)
	}

	var entries []CatalogEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("catalog feed is not a JSON array: %w", err)
	}

	return NormalizeCatalog(entries), nil
}

// NormalizeCatalog converts raw feed rows to catalog items, dropping
// incomplete rows and deduplicating by product code (first occurrence wins).
func NormalizeCatalog(entries []CatalogEntry) []CatalogItem {
	items := make([]CatalogItem, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))

	for _, e := range entries {
		code := strings.TrimSpace(e.Code)
		name := strings.TrimSpace(e.Name)
		if code == "" || name == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}

		price, ok := NormalizePrice(e.Price.String())
		if !ok {
			continue
		}

		category := strings.TrimSpace(e.Category)
		if category == "" {
			category = "UNKNOWN"
		}

		seen[code] = struct{}{}
		items = append(items, CatalogItem{
			Code:        code,
			Name:        name,
			Category:    category,
			Description: strings.TrimSpace(e.Description),
			Price:       price,
			Active:      normalizeCatalogStatus(e.Status.String()),
		})
	}
	return items
}

// NormalizePrice sanitizes a feed price and parses it per NormalizeAmount
// separator rules, rounding to two decimal places.
func NormalizePrice(raw string) (decimal.Decimal, bool) {
	sanitized := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r == '.' || r == ',' || r == '-' {
			return r
		}
		return -1
	}, strings.TrimSpace(raw))

	d, ok := NormalizeAmount(sanitized)
	if !ok {
		return decimal.Zero, false
	}
	return d.Round(2), true
}

// The feed uses numeric flags where 0 means available and 1 means disabled.
func normalizeCatalogStatus(raw string) bool {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return false
	}
	if n, err := decimal.NewFromString(value); err == nil {
		return n.IsZero()
	}
	switch value {
	case "true", "available", "aktif", "active":
		return true
	}
	return false
}
