package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrUnreachable signals a connection-level failure or timeout talking to the
// H2H endpoint. It is distinguishable from a definitive transaction outcome;
// the owning entity must be left unchanged when it is returned.
var ErrUnreachable = errors.New("h2h provider unreachable")

// Config carries the H2H endpoint credentials.
type Config struct {
	BaseURL  string
	MemberID string
	Pin      string
	Password string
}

// Client talks to the H2H fulfillment endpoint. All replies are free text and
// must be fed through the parse functions in this package.
type Client struct {
	cfg        Config
	httpClient *http.Client
	retries    int
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retries:    1,
	}
}

// CreateTransaction submits a top-up order and returns the parsed outcome
// along with the raw reply text for audit logging.
func (c *Client) CreateTransaction(ctx context.Context, productCode, destination string, refID int64) (Outcome, string, error) {
	params := c.baseParams()
	params.Set("product", productCode)
	params.Set("dest", destination)
	params.Set("refID", strconv.FormatInt(refID, 10))

	raw, err := c.get(ctx, "/trx", params)
	if err != nil {
		return Outcome{}, "", err
	}

	zap.L().Info("h2h topup reply",
		zap.String("product", productCode),
		zap.String("dest", destination),
		zap.Int64("ref_id", refID),
		zap.String("reply", raw),
	)
	return ParseTopupReply(raw), raw, nil
}

// CheckStatus queries the current status of a previously submitted order.
func (c *Client) CheckStatus(ctx context.Context, productCode, destination string, refID int64) (Outcome, string, error) {
	params := c.baseParams()
	params.Set("product", productCode)
	params.Set("dest", destination)
	params.Set("refID", strconv.FormatInt(refID, 10))
	params.Set("check", "1")

	raw, err := c.get(ctx, "/trx", params)
	if err != nil {
		return Outcome{}, "", err
	}

	zap.L().Info("h2h status reply",
		zap.Int64("ref_id", refID),
		zap.String("reply", raw),
	)
	return ParseStatusReply(raw), raw, nil
}

// Balance fetches the reseller's remaining deposit at the provider and
// extracts the numeric amount out of the free-text reply.
func (c *Client) Balance(ctx context.Context) (decimal.Decimal, string, error) {
	raw, err := c.get(ctx, "/trx/balance", c.baseParams())
	if err != nil {
		return decimal.Zero, "", err
	}

	raw = strings.TrimSpace(raw)
	balance, ok := ExtractBalance(raw)
	if !ok {
		return decimal.Zero, raw, fmt.Errorf("unparseable balance reply: %q", raw)
	}
	return balance, raw, nil
}

func (c *Client) baseParams() url.Values {
	params := url.Values{}
	params.Set("memberID", c.cfg.MemberID)
	params.Set("pin", c.cfg.Pin)
	params.Set("password", c.cfg.Password)
	return params
}

// get performs the request with a bounded retry on connection-level failures
// only. A reply that was received but cannot be parsed is never retried:
// retrying cannot change a text-parsing outcome.
func (c *Client) get(ctx context.Context, path string, params url.Values) (string, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + path + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %w", ErrUnreachable, ctx.Err())
			case <-time.After(250 * time.Millisecond):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return "", fmt.Errorf("build h2h request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return string(body), nil
	}

	return "", fmt.Errorf("%w: %w", ErrUnreachable, lastErr)
}

var balanceNumberRe = regexp.MustCompile(`-?\d[\d.,]*`)

// ExtractBalance pulls the first numeric token out of a balance reply and
// normalizes it. The provider mixes Indonesian and English digit grouping:
// when both comma and dot appear the rightmost is the decimal separator,
// a lone comma is a decimal separator, and a lone dot is taken literally.
func ExtractBalance(raw string) (decimal.Decimal, bool) {
	token := balanceNumberRe.FindString(raw)
	if token == "" {
		return decimal.Zero, false
	}
	normalized, ok := NormalizeAmount(token)
	if !ok {
		return decimal.Zero, false
	}
	return normalized, true
}

// NormalizeAmount converts a localized numeric string ("279.655", "1.250,50",
// "1,250.50") into a decimal value.
func NormalizeAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return decimal.Zero, false
	}

	commaPos := strings.LastIndex(s, ",")
	dotPos := strings.LastIndex(s, ".")

	switch {
	case commaPos >= 0 && dotPos >= 0:
		decSep, thouSep := ".", ","
		if commaPos > dotPos {
			decSep, thouSep = ",", "."
		}
		s = strings.ReplaceAll(s, thouSep, "")
		s = strings.Replace(s, decSep, ".", 1)
	case commaPos >= 0:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
