// Package nbp fetches mid-rate series from the NBP exchange rates API (table A).
package nbp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"fxseries/internal/adapters"
	"fxseries/internal/domain"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// MaxRangeDays is the longest inclusive range the API serves in one query.
const MaxRangeDays = 93

const defaultTimeout = 10 * time.Second

var _ adapters.RateSource = (*Client)(nil)

type Client struct {
	http     *http.Client
	baseURL  string
	domestic string
	timeout  time.Duration
}

type apiRate struct {
	No            string          `json:"no"`
	EffectiveDate string          `json:"effectiveDate"`
	Mid           decimal.Decimal `json:"mid"`
}

type apiResponse struct {
	Table    string    `json:"table"`
	Currency string    `json:"currency"`
	Code     string    `json:"code"`
	Rates    []apiRate `json:"rates"`
}

// Fetch returns the mid-rates of pair for every business day in [start, end].
func (c *Client) Fetch(ctx context.Context, pair domain.Pair, start, end civil.Date) (domain.RateSeries, error) {
	if err := c.validate(pair, start, end); err != nil {
		return domain.RateSeries{}, err
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return domain.RateSeries{}, fmt.Errorf("%w: failed to parse base URL: %v", domain.ErrValidation, err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + pair.Base + "/" + start.String() + "/" + end.String() + "/"
	u.RawQuery = url.Values{"format": []string{"json"}}.Encode()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return domain.RateSeries{}, fmt.Errorf("%w: failed to create request for pair %q: %v", domain.ErrValidation, pair, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.RateSeries{}, fmt.Errorf("%w: failed to execute request for pair %q: %w", domain.ErrTransport, pair, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return domain.RateSeries{}, fmt.Errorf("%w: unexpected status code %d for pair %q: %s", domain.ErrProtocol, resp.StatusCode, pair, strings.TrimSpace(string(body)))
	}

	var body apiResponse
	if err = json.NewDecoder(resp.Body).Decode(&body); err != nil {
		if isTransportFailure(err) {
			return domain.RateSeries{}, fmt.Errorf("%w: failed to read response for pair %q: %w", domain.ErrTransport, pair, err)
		}
		return domain.RateSeries{}, fmt.Errorf("%w: failed to decode response for pair %q: %v", domain.ErrProtocol, pair, err)
	}

	return toSeries(pair, body)
}

func (c *Client) validate(pair domain.Pair, start, end civil.Date) error {
	if pair.Quote != c.domestic {
		return fmt.Errorf("%w: pair %q is not quoted in %s", domain.ErrValidation, pair, c.domestic)
	}
	if !start.IsValid() || !end.IsValid() {
		return fmt.Errorf("%w: invalid date range %s..%s", domain.ErrValidation, start, end)
	}
	if start.After(end) {
		return fmt.Errorf("%w: start %s is after end %s", domain.ErrValidation, start, end)
	}
	if end.DaysSince(start)+1 > MaxRangeDays {
		return fmt.Errorf("%w: range %s..%s exceeds %d days", domain.ErrValidation, start, end, MaxRangeDays)
	}
	return nil
}

func toSeries(pair domain.Pair, body apiResponse) (domain.RateSeries, error) {
	if !strings.EqualFold(body.Code, pair.Base) {
		return domain.RateSeries{}, fmt.Errorf("%w: asked for %q, api returned code %q", domain.ErrProtocol, pair.Base, body.Code)
	}

	points := make([]domain.RatePoint, 0, len(body.Rates))
	for _, r := range body.Rates {
		d, err := civil.ParseDate(r.EffectiveDate)
		if err != nil {
			return domain.RateSeries{}, fmt.Errorf("%w: bad effectiveDate %q for pair %q", domain.ErrProtocol, r.EffectiveDate, pair)
		}
		if !r.Mid.IsPositive() {
			return domain.RateSeries{}, fmt.Errorf("%w: non-positive mid %s on %s for pair %q", domain.ErrProtocol, r.Mid, d, pair)
		}
		points = append(points, domain.RatePoint{Date: d, Rate: r.Mid})
	}

	slices.SortFunc(points, func(a, b domain.RatePoint) int { return domain.CompareDates(a.Date, b.Date) })
	for i := 1; i < len(points); i++ {
		if points[i].Date == points[i-1].Date {
			return domain.RateSeries{}, fmt.Errorf("%w: duplicate date %s for pair %q", domain.ErrProtocol, points[i].Date, pair)
		}
	}

	return domain.RateSeries{Pair: pair, Points: points}, nil
}

// isTransportFailure tells a body cut by a timeout or a dropped connection from a malformed payload.
func isTransportFailure(err error) bool {
	var netErr net.Error
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || errors.As(err, &netErr)
}

func NewClient(httpClient *http.Client, baseURL, domestic string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{http: httpClient, baseURL: baseURL, domestic: strings.ToUpper(domestic), timeout: timeout}
}
