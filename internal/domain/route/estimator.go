package route

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ridemax/service-booking/internal/domain/geo"
	"go.uber.org/zap"
)

const (
	// DefaultProviderTimeout bounds a single routing call before falling back.
	DefaultProviderTimeout = 5 * time.Second

	// FallbackMinutesPerKm is the crude urban driving heuristic used when no provider answers.
	FallbackMinutesPerKm = 3.0
)

// Estimator produces route estimates, preferring a live Router and falling
// back to a great-circle estimate whenever the router cannot answer.
type Estimator struct {
	router  Router
	timeout time.Duration
	logger  *zap.Logger
}

// NewEstimator creates an Estimator. A nil router means every estimate is a fallback.
func NewEstimator(router Router, timeout time.Duration, logger *zap.Logger) *Estimator {
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Estimator{router: router, timeout: timeout, logger: logger}
}

// Estimate returns the route estimate between pickup and drop.
// The only error is an invalid coordinate; provider failures always degrade to the fallback.
func (e *Estimator) Estimate(ctx context.Context, pickup, drop geo.Coordinate) (RouteEstimate, error) {
	if err := pickup.Validate(); err != nil {
		return RouteEstimate{}, fmt.Errorf("invalid pickup: %w", err)
	}
	if err := drop.Validate(); err != nil {
		return RouteEstimate{}, fmt.Errorf("invalid drop: %w", err)
	}

	if pickup.Equal(drop) {
		return RouteEstimate{Source: SourceFallback}, nil
	}

	if e.router != nil {
		est, err := e.fromProvider(ctx, pickup, drop)
		if err == nil {
			return est, nil
		}
		e.logger.Warn("routing provider unavailable, using great-circle fallback",
			zap.String("provider", e.router.Name()),
			zap.Error(err),
		)
	}

	return FallbackEstimate(pickup, drop), nil
}

func (e *Estimator) fromProvider(ctx context.Context, pickup, drop geo.Coordinate) (RouteEstimate, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	res, err := e.router.Route(callCtx, pickup, drop)
	if err != nil {
		return RouteEstimate{}, err
	}
	if !validMeasure(res.DistanceMeters) {
		return RouteEstimate{}, fmt.Errorf("provider returned invalid distance %v", res.DistanceMeters)
	}
	if !validMeasure(res.DurationSeconds) {
		return RouteEstimate{}, fmt.Errorf("provider returned invalid duration %v", res.DurationSeconds)
	}

	provider := res.Provider
	if provider == "" {
		provider = e.router.Name()
	}
	return RouteEstimate{
		DistanceKm:  geo.Round2(res.DistanceMeters / 1000),
		DurationMin: int(math.Round(res.DurationSeconds / 60)),
		Source:      SourceProvider,
		Provider:    provider,
	}, nil
}

// FallbackEstimate computes the great-circle estimate: haversine distance
// rounded to 2 dp and FallbackMinutesPerKm minutes per kilometre.
func FallbackEstimate(pickup, drop geo.Coordinate) RouteEstimate {
	if pickup.Equal(drop) {
		return RouteEstimate{Source: SourceFallback}
	}
	km := geo.Round2(geo.Haversine(pickup, drop))
	return RouteEstimate{
		DistanceKm:  km,
		DurationMin: int(math.Round(km * FallbackMinutesPerKm)),
		Source:      SourceFallback,
	}
}

func validMeasure(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
