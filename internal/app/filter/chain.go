package filter

import (
	"context"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/radiobox/internal/domain/station"
	"github.com/osa030/radiobox/internal/domain/track"
)

// Chain executes filters in sequence.
type Chain struct {
	filters []Filter
}

// NewChain creates a new filter chain.
func NewChain() *Chain {
	return &Chain{
		filters: make([]Filter, 0),
	}
}

// Add adds a filter to the chain.
func (c *Chain) Add(f Filter) {
	c.filters = append(c.filters, f)
}

// Execute runs all filters in sequence.
// Returns immediately if any filter rejects the track.
func (c *Chain) Execute(ctx context.Context, s station.Station, t track.Track) Result {
	for _, f := range c.filters {
		result := f.Check(ctx, s, t)
		if !result.Accepted {
			return result
		}
	}
	return Accept()
}

// Apply returns the tracks the chain accepts, preserving order.
func (c *Chain) Apply(ctx context.Context, s station.Station, tracks []track.Track) []track.Track {
	if len(c.filters) == 0 {
		return tracks
	}

	accepted := make([]track.Track, 0, len(tracks))
	for _, t := range tracks {
		result := c.Execute(ctx, s, t)
		if !result.Accepted {
			zlog.Debug().Msgf("filter: dropped %q (%s)", t.Title(), result.Code)
			continue
		}
		accepted = append(accepted, t)
	}
	return accepted
}

// Filters returns all filters in the chain.
func (c *Chain) Filters() []Filter {
	return c.filters
}
