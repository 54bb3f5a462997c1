// Package catalog defines the station and track source the player consumes
// and builds the configured implementation.
package catalog

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/osa030/radiobox/internal/domain/station"
	"github.com/osa030/radiobox/internal/domain/track"
)

var (
	// ErrNotFound is returned when a station does not exist.
	ErrNotFound = errors.New("catalog: station not found")
	// ErrNotAllowed is returned when the catalog refuses a station edit.
	ErrNotAllowed = errors.New("catalog: operation not allowed")
)

// Client is a catalog of stations and their tracks.
type Client interface {
	Stations(ctx context.Context) ([]station.Station, error)
	List(ctx context.Context, st station.Station) ([]track.Track, error)
	Rate(ctx context.Context, st station.Station, t track.Track, positive bool) error
	Create(ctx context.Context, query string) (station.Station, error)
	Rename(ctx context.Context, st station.Station, name string) error
	Delete(ctx context.Context, st station.Station) error
}

// Lookup resolves key (an ID or a name) against the catalog's stations.
func Lookup(ctx context.Context, c Client, key string) (station.Station, error) {
	stations, err := c.Stations(ctx)
	if err != nil {
		return station.Station{}, err
	}
	st, ok := station.Find(stations, key)
	if !ok {
		return station.Station{}, errors.Wrapf(ErrNotFound, "%q", key)
	}
	return st, nil
}
