// Package gateway talks to the QRIS payment gateway's account mutation feed.
// The feed returns every ledger movement on the merchant account; matching
// credits against pending deposits happens in the service layer.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arkapay/ppob-backend/internal/provider"
)

// ErrFeedUnavailable wraps transport failures and non-2xx replies so callers
// can distinguish a dead feed from an empty one.
var ErrFeedUnavailable = errors.New("mutation feed unavailable")

const (
	// Mutation movement types as reported by the gateway.
	TypeCredit = "CR"
	TypeDebit  = "DR"
)

// Mutation is one account movement. Date stays a raw string in the gateway's
// "2006-01-02 15:04:05" layout; the matcher parses and discards unparseable
// entries rather than failing the whole feed. The feed reports amount as a
// JSON number but has been seen quoting it, so the field takes either.
type Mutation struct {
	Date   string              `json:"date"`
	Amount provider.FlexScalar `json:"amount"`
	Type   string              `json:"type"`
	Note   string              `json:"description"`
}

type feedResponse struct {
	Status  string     `json:"status"`
	Message string     `json:"message"`
	Data    []Mutation `json:"data"`
}

type Config struct {
	BaseURL      string
	MerchantCode string
	APIKey       string
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *zap.Logger
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
		log:  log.Named("gateway"),
	}
}

// Mutations fetches the current mutation list for the merchant account.
func (c *Client) Mutations(ctx context.Context) ([]Mutation, error) {
	url := fmt.Sprintf("%s/%s/%s",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.MerchantCode, c.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrFeedUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrFeedUnavailable, resp.StatusCode)
	}

	var feed feedResponse
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrFeedUnavailable, err)
	}
	if !strings.EqualFold(feed.Status, "success") {
		return nil, fmt.Errorf("%w: gateway reported %q: %s", ErrFeedUnavailable, feed.Status, feed.Message)
	}

	c.log.Debug("fetched mutation feed", zap.Int("count", len(feed.Data)))
	return feed.Data, nil
}
