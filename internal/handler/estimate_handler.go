package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ridemax/service-booking/internal/application"
	"github.com/ridemax/service-booking/internal/domain/geo"
	"github.com/ridemax/service-booking/internal/domain/route"
	"github.com/ridemax/service-booking/internal/platform/response"
)

// EstimateAPI is the estimate use-case surface served over HTTP.
type EstimateAPI interface {
	EstimateLocal(ctx context.Context, req application.LocalEstimateRequest) (*application.LocalQuoteDTO, error)
	QuoteOutstation(ctx context.Context, req application.OutstationQuoteRequest) (*application.OutstationQuoteDTO, error)
	Directions(ctx context.Context, start, end geo.Coordinate) (*application.DirectionsDTO, error)
	SearchLocations(ctx context.Context, query string, bias *geo.Coordinate) ([]route.Place, error)
	ReverseGeocode(ctx context.Context, point geo.Coordinate) (*route.Place, error)
}

// CityLister lists the cities served by fixed outstation fares.
type CityLister interface {
	Cities(ctx context.Context) ([]string, error)
}

// EstimateHandler serves location search, routing and fare quotes.
type EstimateHandler struct {
	estimates EstimateAPI
	cities    CityLister
}

// NewEstimateHandler creates a new EstimateHandler.
func NewEstimateHandler(estimates EstimateAPI, cities CityLister) *EstimateHandler {
	return &EstimateHandler{estimates: estimates, cities: cities}
}

// RegisterRoutes registers the public estimate routes.
func (h *EstimateHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/api/directions", h.Directions)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/locations/autocomplete", h.Autocomplete)
		v1.GET("/locations/reverse", h.Reverse)
		v1.POST("/estimates/local", h.EstimateLocal)
		v1.POST("/estimates/outstation", h.QuoteOutstation)
		v1.GET("/pricing/outstation/cities", h.OutstationCities)
	}
}

// Directions handles GET /api/directions?start=lng,lat&end=lng,lat.
// The response is the bare {distance, duration} object the booking form expects.
func (h *EstimateHandler) Directions(c *gin.Context) {
	startRaw, endRaw := c.Query("start"), c.Query("end")
	if startRaw == "" || endRaw == "" {
		response.BadRequest(c, "start and end coordinates are required")
		return
	}
	start, err := parseLonLat(startRaw)
	if err != nil {
		response.BadRequest(c, "invalid start: "+err.Error())
		return
	}
	end, err := parseLonLat(endRaw)
	if err != nil {
		response.BadRequest(c, "invalid end: "+err.Error())
		return
	}

	result, err := h.estimates.Directions(c.Request.Context(), start, end)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Autocomplete handles GET /api/v1/locations/autocomplete?text=&lat=&lon=.
func (h *EstimateHandler) Autocomplete(c *gin.Context) {
	var bias *geo.Coordinate
	if c.Query("lat") != "" || c.Query("lon") != "" {
		point, err := parseLatLonQuery(c)
		if err != nil {
			response.BadRequest(c, "invalid bias: "+err.Error())
			return
		}
		bias = &point
	}

	places, err := h.estimates.SearchLocations(c.Request.Context(), c.Query("text"), bias)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, places)
}

// Reverse handles GET /api/v1/locations/reverse?lat=&lon=.
func (h *EstimateHandler) Reverse(c *gin.Context) {
	point, err := parseLatLonQuery(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	place, err := h.estimates.ReverseGeocode(c.Request.Context(), point)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, place)
}

// EstimateLocal handles POST /api/v1/estimates/local.
func (h *EstimateHandler) EstimateLocal(c *gin.Context) {
	var req application.LocalEstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	quote, err := h.estimates.EstimateLocal(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, quote)
}

// QuoteOutstation handles POST /api/v1/estimates/outstation.
func (h *EstimateHandler) QuoteOutstation(c *gin.Context) {
	var req application.OutstationQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	quote, err := h.estimates.QuoteOutstation(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, quote)
}

// OutstationCities handles GET /api/v1/pricing/outstation/cities.
func (h *EstimateHandler) OutstationCities(c *gin.Context) {
	cities, err := h.cities.Cities(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, cities)
}

// parseLonLat reads the "lng,lat" pairs used by the directions endpoint.
func parseLonLat(s string) (geo.Coordinate, error) {
	lonRaw, latRaw, ok := strings.Cut(s, ",")
	if !ok {
		return geo.Coordinate{}, errExpected("lng,lat")
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonRaw), 64)
	if err != nil {
		return geo.Coordinate{}, errExpected("numeric longitude")
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latRaw), 64)
	if err != nil {
		return geo.Coordinate{}, errExpected("numeric latitude")
	}
	return geo.NewCoordinate(lat, lon)
}

func parseLatLonQuery(c *gin.Context) (geo.Coordinate, error) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		return geo.Coordinate{}, errExpected("numeric lat")
	}
	lon, err := strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil {
		return geo.Coordinate{}, errExpected("numeric lon")
	}
	return geo.NewCoordinate(lat, lon)
}

type errExpected string

func (e errExpected) Error() string { return "expected " + string(e) }
