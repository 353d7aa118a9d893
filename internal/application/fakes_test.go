package application

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	bookingDomain "github.com/ridemax/service-booking/internal/domain/booking"
	customerDomain "github.com/ridemax/service-booking/internal/domain/customer"
	"github.com/ridemax/service-booking/internal/domain/fare"
	"github.com/ridemax/service-booking/internal/domain/geo"
	"github.com/ridemax/service-booking/internal/domain/route"
	"github.com/ridemax/service-booking/internal/platform/domain"
	"github.com/ridemax/service-booking/internal/platform/kafka"
)

// --- bookings ---

type memBookingRepo struct {
	mu      sync.Mutex
	items   map[uuid.UUID]*bookingDomain.Booking
	saveErr error
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{items: make(map[uuid.UUID]*bookingDomain.Booking)}
}

func (r *memBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bk, ok := r.items[id]
	if !ok {
		return nil, domain.NewNotFoundError("Booking", id.String())
	}
	return bk, nil
}

func (r *memBookingRepo) FindByNumber(_ context.Context, number string) (*bookingDomain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, bk := range r.items {
		if bk.BookingNumber() == number {
			return bk, nil
		}
	}
	return nil, domain.NewNotFoundError("Booking", number)
}

func (r *memBookingRepo) List(_ context.Context, filter bookingDomain.ListFilter, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*bookingDomain.Booking
	for _, bk := range r.items {
		if filter.Status != nil && bk.Status() != *filter.Status {
			continue
		}
		if q := strings.ToLower(filter.Search); q != "" &&
			!strings.Contains(strings.ToLower(bk.Customer().Name), q) &&
			!strings.Contains(bk.Customer().Phone, q) {
			continue
		}
		out = append(out, bk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().After(out[j].CreatedAt()) })
	total := int64(len(out))
	start := (page - 1) * limit
	if start > len(out) {
		start = len(out)
	}
	end := start + limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

func (r *memBookingRepo) CountByStatus(context.Context) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int64)
	for _, bk := range r.items {
		counts[string(bk.Status())]++
	}
	return counts, nil
}

func (r *memBookingRepo) SumPriceByStatus(_ context.Context, status bookingDomain.BookingStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, bk := range r.items {
		if bk.Status() == status {
			sum += bk.EstimatedPrice()
		}
	}
	return sum, nil
}

func (r *memBookingRepo) Save(_ context.Context, bk *bookingDomain.Booking) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[bk.ID()] = bk
	return nil
}

func (r *memBookingRepo) Update(_ context.Context, bk *bookingDomain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[bk.ID()]; !ok {
		return domain.NewNotFoundError("Booking", bk.ID().String())
	}
	r.items[bk.ID()] = bk
	return nil
}

// --- customers ---

type memCustomerRepo struct {
	mu           sync.Mutex
	items        map[string]*customerDomain.Customer
	conflictOnce bool
}

func newMemCustomerRepo() *memCustomerRepo {
	return &memCustomerRepo{items: make(map[string]*customerDomain.Customer)}
}

func (r *memCustomerRepo) FindByPhone(_ context.Context, phone string) (*customerDomain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[phone]
	if !ok {
		return nil, customerDomain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memCustomerRepo) List(_ context.Context, _ string, page, limit int) ([]*customerDomain.Customer, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*customerDomain.Customer
	for _, c := range r.items {
		out = append(out, c)
	}
	return out, int64(len(out)), nil
}

func (r *memCustomerRepo) Save(_ context.Context, c *customerDomain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conflictOnce {
		// Simulate a concurrent first booking winning the insert.
		r.conflictOnce = false
		other, _ := customerDomain.NewCustomer(c.Phone(), c.Name(), "")
		r.items[c.Phone()] = other
		return domain.NewConflictError("duplicate phone")
	}
	if _, ok := r.items[c.Phone()]; ok {
		return domain.NewConflictError("duplicate phone")
	}
	r.items[c.Phone()] = c
	return nil
}

func (r *memCustomerRepo) Update(_ context.Context, c *customerDomain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.items[c.Phone()]
	if !ok {
		return domain.NewNotFoundError("Customer", c.Phone())
	}
	if current.Version() != c.Version()-1 {
		return domain.NewConflictError("customer was modified by another transaction")
	}
	r.items[c.Phone()] = c
	return nil
}

// --- pricing ---

type memPricingRepo struct {
	mu         sync.Mutex
	local      *fare.RateTable
	outstation fare.OutstationTable
	loadErr    error
}

func newMemPricingRepo() *memPricingRepo {
	return &memPricingRepo{outstation: fare.NewOutstationTable()}
}

func seededPricingRepo() *memPricingRepo {
	r := newMemPricingRepo()
	local := fare.DefaultRateTable()
	r.local = &local
	r.outstation = fare.DefaultOutstationTable()
	return r
}

func (r *memPricingRepo) LoadLocalRates(context.Context) (fare.RateTable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return fare.RateTable{}, r.loadErr
	}
	if r.local == nil {
		return fare.RateTable{}, fare.ErrNotConfigured
	}
	return *r.local, nil
}

func (r *memPricingRepo) SaveLocalRates(_ context.Context, rates fare.RateTable) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.local = &rates
	return nil
}

func (r *memPricingRepo) LoadOutstation(context.Context) (fare.OutstationTable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return fare.OutstationTable{}, r.loadErr
	}
	return r.outstation, nil
}

func (r *memPricingRepo) SaveSurcharge(_ context.Context, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outstation.LargeVehicleSurcharge = amount
	return nil
}

func (r *memPricingRepo) UpsertOutstationFare(_ context.Context, class fare.VehicleClass, from, to string, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outstation.Set(class, from, to, amount)
}

func (r *memPricingRepo) DeleteOutstationFare(_ context.Context, class fare.VehicleClass, from, to string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.outstation.Delete(class, from, to) {
		return fare.ErrNoFixedRoute
	}
	return nil
}

// --- events ---

type publishedEvent struct {
	topic string
	event kafka.CloudEvent
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic string, ce kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{topic: topic, event: ce})
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.event.Type
	}
	return out
}

// --- providers ---

type stubRouter struct {
	res   route.RouteResult
	err   error
	calls int
}

func (s *stubRouter) Name() string { return "stub" }

func (s *stubRouter) Route(context.Context, geo.Coordinate, geo.Coordinate) (route.RouteResult, error) {
	s.calls++
	return s.res, s.err
}

type stubGeocoder struct {
	places []route.Place
	place  *route.Place
	err    error
}

func (s *stubGeocoder) Autocomplete(context.Context, string, *geo.Coordinate) ([]route.Place, error) {
	return s.places, s.err
}

func (s *stubGeocoder) Reverse(context.Context, geo.Coordinate) (*route.Place, error) {
	return s.place, s.err
}

var errProviderDown = errors.New("provider down")
