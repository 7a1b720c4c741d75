package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/gridcap-etl/internal/domain"
	"github.com/couchcryptid/gridcap-etl/internal/observability"
)

const defaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

// Client implements domain.Geocoder using the Mapbox Geocoding API.
type Client struct {
	token      string
	country    string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithCountry restricts results to ISO 3166 alpha-2 country codes, e.g. "pt".
func WithCountry(codes string) Option {
	return func(c *Client) { c.country = codes }
}

// WithBaseURL points the client at another endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// NewClient creates a Mapbox geocoding client. metrics may be nil.
func NewClient(token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: defaultBaseURL,
		metrics: metrics,
		logger:  logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ForwardGeocode converts a substation name and its municipality/district to
// coordinates.
func (c *Client) ForwardGeocode(ctx context.Context, place domain.Place) (domain.GeocodingResult, error) {
	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(query(place)))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {"place,locality,neighborhood,address,poi"},
	}
	if c.country != "" {
		params.Set("country", c.country)
	}

	start := time.Now()
	result, err := c.doRequest(ctx, u+"?"+params.Encode())
	if c.metrics != nil {
		c.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())
		switch {
		case err != nil:
			c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		case result.FormattedAddress == "":
			c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
		default:
			c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
		}
	}
	if err == nil {
		c.logger.Debug("forward geocode", "query", query(place), "found", result.FormattedAddress != "")
	}
	return result, err
}

// query joins the non-empty place parts, most specific first.
func query(p domain.Place) string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.Name, p.Municipality, p.District} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.GeocodingResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("forward geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.GeocodingResult{}, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("decode response: %w", err)
	}

	if len(mapboxResp.Features) == 0 {
		return domain.GeocodingResult{}, nil
	}

	f := mapboxResp.Features[0]
	result := domain.GeocodingResult{
		FormattedAddress: f.PlaceName,
		PlaceName:        f.Text,
		Confidence:       f.Relevance,
	}
	if len(f.Center) == 2 {
		result.Lon = f.Center[0]
		result.Lat = f.Center[1]
	}
	return result, nil
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}
