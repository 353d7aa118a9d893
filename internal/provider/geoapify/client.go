package geoapify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/ridemax/service-booking/internal/domain/geo"
	"github.com/ridemax/service-booking/internal/domain/route"
)

const (
	DefaultBaseURL = "https://api.geoapify.com"

	// MinQueryLength is the shortest query worth sending to autocomplete.
	MinQueryLength = 3

	maxErrorBody = 512
)

// Config configures a Client.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// DefaultBias is used for autocomplete when the caller gives none.
	DefaultBias   geo.Coordinate
	CountryFilter string
	Limit         int
}

// Client talks to the Geoapify geocoding and routing APIs. It implements
// route.Router and route.Geocoder.
type Client struct {
	cfg    Config
	client *http.Client
}

// NewClient creates a Client; zero-valued fields fall back to defaults.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = route.DefaultProviderTimeout
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 5
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name identifies the provider in estimates and logs.
func (c *Client) Name() string { return "geoapify" }

// Autocomplete returns up to Limit candidate places for query, biased towards bias.
// Queries shorter than MinQueryLength return no results without a request.
func (c *Client) Autocomplete(ctx context.Context, query string, bias *geo.Coordinate) ([]route.Place, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return []route.Place{}, nil
	}

	point := c.cfg.DefaultBias
	if bias != nil {
		point = *bias
	}

	params := url.Values{}
	params.Set("text", query)
	params.Set("apiKey", c.cfg.APIKey)
	params.Set("limit", strconv.Itoa(c.cfg.Limit))
	params.Set("format", "json")
	params.Set("bias", fmt.Sprintf("proximity:%s,%s", formatFloat(point.Longitude), formatFloat(point.Latitude)))
	if c.cfg.CountryFilter != "" {
		params.Set("filter", "countrycode:"+c.cfg.CountryFilter)
	}

	var body geocodeResponse
	if err := c.getJSON(ctx, "/v1/geocode/autocomplete", params, &body); err != nil {
		return nil, errors.Wrap(err, "geoapify autocomplete")
	}
	return body.places(), nil
}

// Reverse resolves a point to its nearest address. It returns nil when the
// provider has no address for the point.
func (c *Client) Reverse(ctx context.Context, point geo.Coordinate) (*route.Place, error) {
	params := url.Values{}
	params.Set("lat", formatFloat(point.Latitude))
	params.Set("lon", formatFloat(point.Longitude))
	params.Set("apiKey", c.cfg.APIKey)
	params.Set("format", "json")

	var body geocodeResponse
	if err := c.getJSON(ctx, "/v1/geocode/reverse", params, &body); err != nil {
		return nil, errors.Wrap(err, "geoapify reverse geocode")
	}
	places := body.places()
	if len(places) == 0 {
		return nil, nil
	}
	return &places[0], nil
}

// Route returns the best drivable route between origin and destination.
func (c *Client) Route(ctx context.Context, origin, destination geo.Coordinate) (route.RouteResult, error) {
	params := url.Values{}
	params.Set("waypoints", fmt.Sprintf("%s,%s|%s,%s",
		formatFloat(origin.Latitude), formatFloat(origin.Longitude),
		formatFloat(destination.Latitude), formatFloat(destination.Longitude)))
	params.Set("mode", "drive")
	params.Set("apiKey", c.cfg.APIKey)

	var body struct {
		Features []struct {
			Properties struct {
				Distance *float64 `json:"distance"`
				Time     *float64 `json:"time"`
				Legs     []struct {
					Distance float64 `json:"distance"`
					Time     float64 `json:"time"`
				} `json:"legs"`
				Segments []struct {
					Distance float64 `json:"distance"`
					Duration float64 `json:"duration"`
				} `json:"segments"`
			} `json:"properties"`
			Geometry json.RawMessage `json:"geometry"`
		} `json:"features"`
	}
	if err := c.getJSON(ctx, "/v1/routing", params, &body); err != nil {
		return route.RouteResult{}, errors.Wrap(err, "geoapify routing")
	}
	if len(body.Features) == 0 {
		return route.RouteResult{}, route.ErrNoRoute
	}

	f := body.Features[0]
	result := route.RouteResult{Geometry: f.Geometry}
	switch {
	case f.Properties.Distance != nil && f.Properties.Time != nil:
		result.DistanceMeters = *f.Properties.Distance
		result.DurationSeconds = *f.Properties.Time
	case len(f.Properties.Legs) > 0:
		for _, leg := range f.Properties.Legs {
			result.DistanceMeters += leg.Distance
			result.DurationSeconds += leg.Time
		}
	case len(f.Properties.Segments) > 0:
		for _, seg := range f.Properties.Segments {
			result.DistanceMeters += seg.Distance
			result.DurationSeconds += seg.Duration
		}
	default:
		return route.RouteResult{}, route.ErrNoRoute
	}
	return result, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	if c.cfg.APIKey == "" {
		return errors.New("api key not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return errors.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

// geocodeResponse accepts both the flat format=json shape and GeoJSON.
type geocodeResponse struct {
	Results  []geocodeResult `json:"results"`
	Features []struct {
		Properties geocodeResult `json:"properties"`
	} `json:"features"`
}

type geocodeResult struct {
	Formatted string  `json:"formatted"`
	City      string  `json:"city"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	PlaceID   string  `json:"place_id"`
}

func (r geocodeResponse) places() []route.Place {
	results := r.Results
	if len(results) == 0 {
		for _, f := range r.Features {
			results = append(results, f.Properties)
		}
	}

	places := make([]route.Place, 0, len(results))
	for _, res := range results {
		coord, err := geo.NewCoordinate(res.Lat, res.Lon)
		if err != nil || res.Formatted == "" {
			continue
		}
		places = append(places, route.Place{
			Label:      res.Formatted,
			Coordinate: coord,
			PlaceID:    res.PlaceID,
			City:       res.City,
		})
	}
	return places
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
