package filter

import (
	"context"

	"github.com/osa030/radiobox/internal/domain/station"
	"github.com/osa030/radiobox/internal/domain/track"
)

// AdvertisementFilter drops advertisement items.
type AdvertisementFilter struct{}

func (f *AdvertisementFilter) Name() string {
	return "advertisement_filter"
}

func (f *AdvertisementFilter) Description() string {
	return "Drops advertisement items from the station's track list"
}

func (f *AdvertisementFilter) ReturnCodes() []string {
	return []string{"advertisement"}
}

func (f *AdvertisementFilter) ValidateConfig(settings map[string]any) error {
	return nil
}

func (f *AdvertisementFilter) Check(ctx context.Context, s station.Station, t track.Track) Result {
	if t.IsAd() {
		return Reject("advertisement")
	}
	return Accept()
}

func init() {
	Register("advertisement_filter", func() Filter {
		return &AdvertisementFilter{}
	})
}
