// Package datafeed fetches historical candles from the price data API.
package datafeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/Alias1177/Strategist/models"
)

// PriceProvider is the boundary the pipeline consumes candles through
type PriceProvider interface {
	Candles(ctx context.Context, pair, interval string, count int) ([]models.Candle, error)
	HistoricalCandles(ctx context.Context, pair, interval string, days int) ([]models.Candle, error)
}

// timeSeriesResponse mirrors the twelvedata time_series payload
type timeSeriesResponse struct {
	Values []struct {
		Datetime string `json:"datetime"`
		Open     string `json:"open"`
		High     string `json:"high"`
		Low      string `json:"low"`
		Close    string `json:"close"`
		Volume   string `json:"volume"`
	} `json:"values"`
}

// Client is a rate-limited, retrying HTTP client for the data API
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiKey     string
	baseURL    string
	logger     zerolog.Logger
}

// NewClient creates a new API client with rate limiting
func NewClient(apiKey string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 5), // 5 requests per second
		apiKey:     apiKey,
		baseURL:    "https://api.twelvedata.com",
		logger:     log.With().Str("component", "datafeed").Logger(),
	}
}

// Candles fetches the most recent candles for one pair
func (c *Client) Candles(ctx context.Context, pair, interval string, count int) ([]models.Candle, error) {
	return c.fetch(ctx, pair, interval, count)
}

// HistoricalCandles fetches enough candles to cover the given number
// of days at the interval.
func (c *Client) HistoricalCandles(ctx context.Context, pair, interval string, days int) ([]models.Candle, error) {
	return c.fetch(ctx, pair, interval, candlesForDays(interval, days))
}

func (c *Client) fetch(ctx context.Context, pair, interval string, count int) ([]models.Candle, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	url := fmt.Sprintf(
		"%s/time_series?symbol=%s&interval=%s&outputsize=%d&apikey=%s",
		c.baseURL, symbolFor(pair), interval, count, c.apiKey,
	)
	c.logger.Debug().Str("pair", pair).Str("interval", interval).Int("count", count).Msg("Fetching candles")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var resp *http.Response
	operation := func() error {
		var err error
		resp, err = c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("HTTP request failed: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return fmt.Errorf("non-200 status code: %d", resp.StatusCode)
		}
		return nil
	}

	backoffStrategy := backoff.NewExponentialBackOff()
	backoffStrategy.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoffStrategy); err != nil {
		return nil, fmt.Errorf("after retries: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if strings.Contains(string(body), `"status":"error"`) {
		c.logger.Error().Str("response", string(body)).Msg("Data API error")
		return nil, fmt.Errorf("data API error: %s", string(body))
	}

	var data timeSeriesResponse
	if err := json.Unmarshal(body, &data); err != nil {
		c.logger.Error().Err(err).Msg("Error parsing JSON")
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	if len(data.Values) == 0 {
		return nil, fmt.Errorf("empty data returned")
	}

	candles := make([]models.Candle, 0, len(data.Values))
	for _, v := range data.Values {
		ts, err := parseTimestamp(v.Datetime)
		if err != nil {
			c.logger.Warn().Str("datetime", v.Datetime).Msg("Skipping candle with bad timestamp")
			continue
		}
		candles = append(candles, models.Candle{
			Timestamp: ts,
			Open:      parseFloat(v.Open),
			High:      parseFloat(v.High),
			Low:       parseFloat(v.Low),
			Close:     parseFloat(v.Close),
			Volume:    parseInt(v.Volume),
		})
	}

	// oldest first, strictly increasing timestamps
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})
	deduped := candles[:0]
	var last time.Time
	for _, cd := range candles {
		if !cd.Timestamp.After(last) && !last.IsZero() {
			continue
		}
		deduped = append(deduped, cd)
		last = cd.Timestamp
	}

	c.logger.Debug().Int("count", len(deduped)).Msg("Fetched candles")
	return deduped, nil
}

// symbolFor converts a compact pair name to the API symbol form
func symbolFor(pair string) string {
	pair = strings.ToUpper(pair)
	if len(pair) == 6 && !strings.Contains(pair, "/") {
		return pair[:3] + "/" + pair[3:]
	}
	return pair
}

// candlesForDays estimates how many bars cover the given day span
func candlesForDays(interval string, days int) int {
	perDay := map[string]int{
		"1min":  1440,
		"5min":  288,
		"15min": 96,
		"30min": 48,
		"1h":    24,
		"4h":    6,
		"1d":    1,
	}
	n, ok := perDay[interval]
	if !ok {
		n = 24
	}
	count := days * n
	if count > 5000 {
		count = 5000 // API output size cap
	}
	return count
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized datetime %q", s)
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
