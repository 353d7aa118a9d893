// Package provider composes the external routing providers.
package provider

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/ridemax/service-booking/internal/domain/geo"
	"github.com/ridemax/service-booking/internal/domain/route"
)

// ChainRouter tries each router in order and returns the first success.
type ChainRouter struct {
	routers []route.Router
}

// NewChainRouter builds a chain, skipping nil routers.
func NewChainRouter(routers ...route.Router) *ChainRouter {
	kept := make([]route.Router, 0, len(routers))
	for _, r := range routers {
		if r != nil {
			kept = append(kept, r)
		}
	}
	return &ChainRouter{routers: kept}
}

// Name lists the chained providers, e.g. "geoapify>openrouteservice".
func (c *ChainRouter) Name() string {
	names := make([]string, len(c.routers))
	for i, r := range c.routers {
		names[i] = r.Name()
	}
	return strings.Join(names, ">")
}

// Len returns the number of chained routers.
func (c *ChainRouter) Len() int { return len(c.routers) }

// Route returns the first successful answer. If every router fails the
// errors are joined; ErrNoRoute is preserved when all routers reported it.
func (c *ChainRouter) Route(ctx context.Context, origin, destination geo.Coordinate) (route.RouteResult, error) {
	if len(c.routers) == 0 {
		return route.RouteResult{}, errors.New("no routing providers configured")
	}

	var msgs []string
	allNoRoute := true
	for _, r := range c.routers {
		if err := ctx.Err(); err != nil {
			return route.RouteResult{}, err
		}
		res, err := r.Route(ctx, origin, destination)
		if err == nil {
			if res.Provider == "" {
				res.Provider = r.Name()
			}
			return res, nil
		}
		if !errors.Is(err, route.ErrNoRoute) {
			allNoRoute = false
		}
		msgs = append(msgs, r.Name()+": "+err.Error())
	}

	if allNoRoute {
		return route.RouteResult{}, route.ErrNoRoute
	}
	return route.RouteResult{}, errors.Errorf("all routing providers failed: %s", strings.Join(msgs, "; "))
}
