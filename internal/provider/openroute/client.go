package openroute

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/ridemax/service-booking/internal/domain/geo"
	"github.com/ridemax/service-booking/internal/domain/route"
)

const (
	DefaultBaseURL = "https://api.openrouteservice.org"
	drivingProfile = "driving-car"
)

// Client queries OpenRouteService directions. It implements route.Router.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClient creates a Client. An empty baseURL uses the public endpoint.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = route.DefaultProviderTimeout
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() string { return "openrouteservice" }

// Route sums the segments of the first returned route.
func (c *Client) Route(ctx context.Context, origin, destination geo.Coordinate) (route.RouteResult, error) {
	if c.apiKey == "" {
		return route.RouteResult{}, errors.New("openrouteservice: api key not configured")
	}

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("start", lonLat(origin))
	params.Set("end", lonLat(destination))

	endpoint := c.baseURL + "/v2/directions/" + drivingProfile + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return route.RouteResult{}, errors.Wrap(err, "openrouteservice: build request")
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return route.RouteResult{}, errors.Wrap(err, "openrouteservice: request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return route.RouteResult{}, route.ErrNoRoute
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return route.RouteResult{}, errors.Errorf("openrouteservice: unexpected status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var body struct {
		Features []struct {
			Properties struct {
				Segments []struct {
					Distance float64 `json:"distance"`
					Duration float64 `json:"duration"`
				} `json:"segments"`
			} `json:"properties"`
			Geometry json.RawMessage `json:"geometry"`
		} `json:"features"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return route.RouteResult{}, errors.Wrap(err, "openrouteservice: decode response")
	}
	if len(body.Features) == 0 {
		return route.RouteResult{}, route.ErrNoRoute
	}

	f := body.Features[0]
	result := route.RouteResult{Geometry: f.Geometry}
	for _, seg := range f.Properties.Segments {
		result.DistanceMeters += seg.Distance
		result.DurationSeconds += seg.Duration
	}
	return result, nil
}

// ParseLonLat parses the "lng,lat" form used by the directions API.
func ParseLonLat(s string) (geo.Coordinate, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return geo.Coordinate{}, errors.Errorf("invalid coordinate %q, expected lng,lat", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geo.Coordinate{}, errors.Wrapf(err, "invalid longitude %q", parts[0])
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geo.Coordinate{}, errors.Wrapf(err, "invalid latitude %q", parts[1])
	}
	return geo.NewCoordinate(lat, lon)
}

func lonLat(c geo.Coordinate) string {
	return strconv.FormatFloat(c.Longitude, 'f', -1, 64) + "," + strconv.FormatFloat(c.Latitude, 'f', -1, 64)
}
