package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ridemax/service-booking/internal/application"
	"github.com/ridemax/service-booking/internal/domain/fare"
	"github.com/ridemax/service-booking/internal/domain/geo"
	"github.com/ridemax/service-booking/internal/domain/route"
	"github.com/ridemax/service-booking/internal/export"
	"github.com/ridemax/service-booking/internal/platform/auth"
	"github.com/ridemax/service-booking/internal/platform/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- stubs ---

type stubEstimates struct {
	directions    *application.DirectionsDTO
	directionsErr error
	quoteErr      error
	lastBias      *geo.Coordinate
	lastStart     geo.Coordinate
}

func (s *stubEstimates) EstimateLocal(_ context.Context, req application.LocalEstimateRequest) (*application.LocalQuoteDTO, error) {
	return &application.LocalQuoteDTO{
		Route:    route.RouteEstimate{DistanceKm: 10, DurationMin: 25, Source: route.SourceProvider},
		Fare:     fare.Breakdown{Total: 200},
		Currency: domain.CurrencyINR,
	}, nil
}

func (s *stubEstimates) QuoteOutstation(_ context.Context, req application.OutstationQuoteRequest) (*application.OutstationQuoteDTO, error) {
	if s.quoteErr != nil {
		return nil, s.quoteErr
	}
	return &application.OutstationQuoteDTO{From: req.From, To: req.To, VehicleClass: req.VehicleClass, Price: 2500, Currency: domain.CurrencyINR}, nil
}

func (s *stubEstimates) Directions(_ context.Context, start, _ geo.Coordinate) (*application.DirectionsDTO, error) {
	s.lastStart = start
	return s.directions, s.directionsErr
}

func (s *stubEstimates) SearchLocations(_ context.Context, query string, bias *geo.Coordinate) ([]route.Place, error) {
	s.lastBias = bias
	return []route.Place{{Label: query}}, nil
}

func (s *stubEstimates) ReverseGeocode(_ context.Context, point geo.Coordinate) (*route.Place, error) {
	return &route.Place{Label: point.String(), Coordinate: point}, nil
}

type stubCities []string

func (s stubCities) Cities(context.Context) ([]string, error) { return s, nil }

type stubBookings struct {
	createErr  error
	transErr   error
	lastQuery  application.ListBookingsQuery
	lastActor  string
	lastReason string
	items      []application.BookingDTO
}

func (s *stubBookings) CreateBooking(_ context.Context, req application.CreateBookingRequest) (*application.CreatedBookingDTO, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &application.CreatedBookingDTO{
		Booking:      application.BookingDTO{ID: uuid.New(), BookingNumber: "RM-ABC123", Status: "pending"},
		WhatsAppLink: "https://wa.me/919876543210?text=hi",
	}, nil
}

func (s *stubBookings) GetBooking(_ context.Context, id uuid.UUID) (*application.BookingDTO, error) {
	return &application.BookingDTO{ID: id}, nil
}

func (s *stubBookings) TrackBooking(_ context.Context, number, phone string) (*application.BookingTrackingDTO, error) {
	if number != "RM-ABC123" || phone != "9876543210" {
		return nil, domain.NewNotFoundError("Booking", number)
	}
	return &application.BookingTrackingDTO{
		BookingNumber: number, Status: "pending", StatusLabel: "Awaiting confirmation",
		From: "Mumbai", To: "Pune", EstimatedPrice: 2500, Currency: "INR",
	}, nil
}

func (s *stubBookings) ListBookings(_ context.Context, q application.ListBookingsQuery) (*domain.PaginatedResult[application.BookingDTO], error) {
	s.lastQuery = q
	result := domain.NewPaginatedResult(s.items, int64(len(s.items)), q.Page, q.Limit)
	return &result, nil
}

func (s *stubBookings) ExportBookings(_ context.Context, q application.ListBookingsQuery) ([]application.BookingDTO, error) {
	s.lastQuery = q
	return s.items, nil
}

func (s *stubBookings) GetBookingStats(context.Context) (*application.BookingStatsDTO, error) {
	return &application.BookingStatsDTO{TotalBookings: 3, Revenue: 2500, Currency: domain.CurrencyINR}, nil
}

func (s *stubBookings) ConfirmBooking(_ context.Context, id uuid.UUID, actor string) (*application.BookingDTO, error) {
	s.lastActor = actor
	if s.transErr != nil {
		return nil, s.transErr
	}
	return &application.BookingDTO{ID: id, Status: "confirmed"}, nil
}

func (s *stubBookings) CompleteBooking(_ context.Context, id uuid.UUID, actor string) (*application.BookingDTO, error) {
	s.lastActor = actor
	return &application.BookingDTO{ID: id, Status: "completed"}, s.transErr
}

func (s *stubBookings) CancelBooking(_ context.Context, id uuid.UUID, actor, reason string) (*application.BookingDTO, error) {
	s.lastActor, s.lastReason = actor, reason
	return &application.BookingDTO{ID: id, Status: "cancelled", CancelNote: reason}, s.transErr
}

type stubCustomers struct{}

func (stubCustomers) ListCustomers(_ context.Context, _ string, page, limit int) (*domain.PaginatedResult[application.CustomerDTO], error) {
	result := domain.NewPaginatedResult([]application.CustomerDTO{{Phone: "9876543210", Name: "Asha"}}, 1, page, limit)
	return &result, nil
}

type stubPricing struct {
	lastFare application.OutstationFareRequest
}

func (s *stubPricing) GetPricing(context.Context) (*application.PricingDTO, error) {
	return &application.PricingDTO{Local: fare.DefaultRateTable(), Outstation: fare.DefaultOutstationTable(), Currency: domain.CurrencyINR}, nil
}

func (s *stubPricing) UpdateLocalRates(_ context.Context, req application.LocalRatesRequest) (*fare.RateTable, error) {
	return &fare.RateTable{BaseFare: req.BaseFare, StandardRatePerKm: req.StandardRatePerKm, AirportRatePerKm: req.AirportRatePerKm, MinimumFare: req.MinimumFare}, nil
}

func (s *stubPricing) UpsertOutstationFare(_ context.Context, req application.OutstationFareRequest) error {
	s.lastFare = req
	return nil
}

func (s *stubPricing) DeleteOutstationFare(_ context.Context, req application.OutstationFareRequest) error {
	return domain.NewNotFoundError("OutstationFare", req.From+"-"+req.To)
}

func (s *stubPricing) UpdateSurcharge(context.Context, application.SurchargeRequest) error { return nil }

// --- harness ---

type testEnv struct {
	router    *gin.Engine
	jwt       *auth.JWTManager
	estimates *stubEstimates
	bookings  *stubBookings
	pricing   *stubPricing
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)

	env := &testEnv{
		router:    gin.New(),
		jwt:       auth.NewJWTManager("test-secret", time.Hour),
		estimates: &stubEstimates{},
		bookings:  &stubBookings{},
		pricing:   &stubPricing{},
	}
	rg := &env.router.RouterGroup
	NewEstimateHandler(env.estimates, stubCities{"Mumbai", "Pune"}).RegisterRoutes(rg)
	NewBookingHandler(env.bookings).RegisterRoutes(rg)
	NewAdminHandler(env.bookings, stubCustomers{}, env.jwt, AdminCredentials{Username: "admin", PasswordHash: hash}, zap.NewNop()).
		RegisterRoutes(rg, env.jwt)
	NewPricingHandler(env.pricing).RegisterRoutes(rg, env.jwt)
	return env
}

func (e *testEnv) token(t *testing.T, role auth.Role) string {
	t.Helper()
	tok, _, err := e.jwt.Generate("ops", role)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Retryable bool   `json:"retryable"`
	} `json:"error"`
	Pagination *struct {
		Page  int   `json:"page"`
		Limit int   `json:"limit"`
		Total int64 `json:"total"`
	} `json:"pagination"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

// --- public ---

func TestDirections(t *testing.T) {
	env := newTestEnv(t)
	env.estimates.directions = &application.DirectionsDTO{Distance: 12.35, Duration: 28}

	w := env.do(http.MethodGet, "/api/directions?start=72.8777,19.0760&end=72.8656,19.0896", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"distance":12.35,"duration":28}`, w.Body.String())
	assert.Equal(t, 19.0760, env.estimates.lastStart.Latitude)
	assert.Equal(t, 72.8777, env.estimates.lastStart.Longitude)

	for _, q := range []string{"", "?start=72.8,19.0", "?start=abc&end=72.8,19.0", "?start=72.8,95&end=72.8,19.0"} {
		w = env.do(http.MethodGet, "/api/directions"+q, nil, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}

	env.estimates.directionsErr = domain.NewNotFoundError("Route", "x")
	w = env.do(http.MethodGet, "/api/directions?start=72.8,19.0&end=72.9,19.1", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAutocompleteAndReverse(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/v1/locations/autocomplete?text=andheri", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, env.estimates.lastBias)

	w = env.do(http.MethodGet, "/api/v1/locations/autocomplete?text=andheri&lat=19.1&lon=72.8", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, env.estimates.lastBias)
	assert.Equal(t, 19.1, env.estimates.lastBias.Latitude)

	w = env.do(http.MethodGet, "/api/v1/locations/autocomplete?text=andheri&lat=north", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/api/v1/locations/reverse?lat=19.076&lon=72.8777", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var place route.Place
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &place))
	assert.Equal(t, "19.076000, 72.877700", place.Label)
}

func TestEstimates(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/estimates/local", map[string]interface{}{
		"pickup": map[string]interface{}{"label": "Dadar", "lat": 19.018, "lon": 72.843},
		"drop":   map[string]interface{}{"label": "Airport", "lat": 19.089, "lon": 72.865},
	}, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPost, "/api/v1/estimates/local", map[string]interface{}{
		"pickup": map[string]interface{}{"label": "Dadar"},
		"drop":   map[string]interface{}{"label": "Airport", "lat": 19.089, "lon": 72.865},
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.estimates.quoteErr = domain.NewUnprocessableError("no fixed fare", fare.ErrNoFixedRoute)
	w = env.do(http.MethodPost, "/api/v1/estimates/outstation", application.OutstationQuoteRequest{
		From: "Mumbai", To: "Goa", VehicleClass: "4-seater",
	}, "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, string(domain.CodeUnprocessable), decode(t, w).Error.Code)

	w = env.do(http.MethodGet, "/api/v1/pricing/outstation/cities", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `["Mumbai","Pune"]`, string(decode(t, w).Data))
}

func TestCreateBooking(t *testing.T) {
	env := newTestEnv(t)
	req := application.CreateBookingRequest{
		Name: "Asha", Phone: "9876543210", ServiceType: "outstation",
		From: "Mumbai", To: "Pune", VehicleClass: "4-seater",
		TravelDate: "2026-11-02", TravelTime: "07:30",
	}

	w := env.do(http.MethodPost, "/api/v1/bookings", req, "")
	require.Equal(t, http.StatusCreated, w.Code)
	var created application.CreatedBookingDTO
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &created))
	assert.Equal(t, "RM-ABC123", created.Booking.BookingNumber)
	assert.NotEmpty(t, created.WhatsAppLink)

	env.bookings.createErr = domain.NewUnavailableError("failed to save booking", context.DeadlineExceeded)
	w = env.do(http.MethodPost, "/api/v1/bookings", req, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.True(t, decode(t, w).Error.Retryable)

	w = env.do(http.MethodPost, "/api/v1/bookings", map[string]string{"name": "Asha"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

}

func TestTrackBooking(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/v1/bookings/number/RM-ABC123?phone=9876543210", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var view map[string]any
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &view))
	assert.Equal(t, "RM-ABC123", view["booking_number"])
	assert.Equal(t, "Awaiting confirmation", view["status_label"])
	for _, private := range []string{"customer", "phone", "email", "name", "notes", "trip", "id"} {
		assert.NotContains(t, view, private)
	}
	assert.NotContains(t, w.Body.String(), "9876543210")

	w = env.do(http.MethodGet, "/api/v1/bookings/number/RM-ABC123", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/api/v1/bookings/number/RM-ABC123?phone=9000000000", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, "/api/v1/bookings/number/RM-NOPE00?phone=9876543210", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- admin ---

func TestAdminLogin(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/v1/admin/login", LoginRequest{Username: "admin", Password: "s3cret"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var login LoginResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &login))
	assert.Equal(t, "Bearer", login.TokenType)

	claims, err := env.jwt.Validate(login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, claims.Role)

	w = env.do(http.MethodPost, "/api/v1/admin/login", LoginRequest{Username: "admin", Password: "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = env.do(http.MethodPost, "/api/v1/admin/login", LoginRequest{Username: "root", Password: "s3cret"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRoutesRequireAdminToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/v1/admin/bookings", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodGet, "/api/v1/admin/bookings", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodGet, "/api/v1/admin/pricing", nil, env.token(t, auth.RoleStaff))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminBookings(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, auth.RoleAdmin)
	env.bookings.items = []application.BookingDTO{{BookingNumber: "RM-ABC123"}}

	w := env.do(http.MethodGet, "/api/v1/admin/bookings?status=pending&q=asha&page=2&limit=500", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, application.ListBookingsQuery{Status: "pending", Search: "asha", Page: 2, Limit: 100}, env.bookings.lastQuery)
	body := decode(t, w)
	require.NotNil(t, body.Pagination)
	assert.Equal(t, int64(1), body.Pagination.Total)

	id := uuid.New()
	w = env.do(http.MethodPost, "/api/v1/admin/bookings/"+id.String()+"/confirm", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ops", env.bookings.lastActor)

	w = env.do(http.MethodPost, "/api/v1/admin/bookings/"+id.String()+"/cancel", map[string]string{"reason": "  duplicate  "}, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "duplicate", env.bookings.lastReason)

	w = env.do(http.MethodPost, "/api/v1/admin/bookings/"+id.String()+"/cancel", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, env.bookings.lastReason)

	w = env.do(http.MethodPost, "/api/v1/admin/bookings/not-a-uuid/confirm", nil, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	env.bookings.transErr = domain.NewInvalidStateError("completed", "confirmed")
	w = env.do(http.MethodPost, "/api/v1/admin/bookings/"+id.String()+"/confirm", nil, token)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, string(domain.CodeInvalidState), decode(t, w).Error.Code)

	w = env.do(http.MethodGet, "/api/v1/admin/stats/bookings", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/api/v1/admin/customers?q=asha", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAdminExport(t *testing.T) {
	env := newTestEnv(t)
	env.bookings.items = []application.BookingDTO{{BookingNumber: "RM-ABC123", CreatedAt: time.Now()}}

	w := env.do(http.MethodGet, "/api/v1/admin/bookings/export?status=completed", nil, env.token(t, auth.RoleAdmin))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentTypeXLSX, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	assert.Equal(t, "completed", env.bookings.lastQuery.Status)
	// XLSX files are zip archives.
	assert.Equal(t, []byte("PK"), w.Body.Bytes()[:2])
}

func TestAdminPricing(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, auth.RoleAdmin)

	w := env.do(http.MethodGet, "/api/v1/admin/pricing", nil, token)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodPut, "/api/v1/admin/pricing/local", application.LocalRatesRequest{
		BaseFare: 60, StandardRatePerKm: 16, AirportRatePerKm: 20, MinimumFare: 120,
	}, token)
	require.Equal(t, http.StatusOK, w.Code)
	var rates fare.RateTable
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &rates))
	assert.Equal(t, int64(16), rates.StandardRatePerKm)

	w = env.do(http.MethodPut, "/api/v1/admin/pricing/outstation", application.OutstationFareRequest{
		From: "Mumbai", To: "Lonavala", VehicleClass: "4-seater", Amount: 1800,
	}, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(1800), env.pricing.lastFare.Amount)

	w = env.do(http.MethodDelete, "/api/v1/admin/pricing/outstation", application.OutstationFareRequest{
		From: "Mumbai", To: "Goa", VehicleClass: "4-seater",
	}, token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPut, "/api/v1/admin/pricing/surcharge", application.SurchargeRequest{Amount: 300}, token)
	assert.Equal(t, http.StatusOK, w.Code)
}
