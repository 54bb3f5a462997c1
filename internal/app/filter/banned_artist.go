package filter

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/osa030/radiobox/internal/domain/station"
	"github.com/osa030/radiobox/internal/domain/track"
)

// BannedArtistConfig represents the configuration for BannedArtistFilter.
type BannedArtistConfig struct {
	Artists []string `yaml:"artists" mapstructure:"artists" validate:"dive,required"`
}

// BannedArtistFilter drops tracks by artists the listener never wants to hear.
type BannedArtistFilter struct {
	banned map[string]struct{}
}

func (f *BannedArtistFilter) Name() string {
	return "banned_artist_filter"
}

func (f *BannedArtistFilter) Description() string {
	return "Drops tracks by configured artists (case-insensitive)"
}

func (f *BannedArtistFilter) ReturnCodes() []string {
	return []string{"banned_artist"}
}

func (f *BannedArtistFilter) ValidateConfig(settings map[string]any) error {
	var config BannedArtistConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return errors.Wrap(err, "validation failed")
	}

	f.banned = make(map[string]struct{}, len(config.Artists))
	for _, a := range config.Artists {
		f.banned[strings.ToLower(strings.TrimSpace(a))] = struct{}{}
	}
	return nil
}

func (f *BannedArtistFilter) Check(ctx context.Context, s station.Station, t track.Track) Result {
	if _, ok := f.banned[strings.ToLower(strings.TrimSpace(t.ArtistName))]; ok && t.ArtistName != "" {
		return Reject("banned_artist")
	}
	return Accept()
}

func init() {
	Register("banned_artist_filter", func() Filter {
		return &BannedArtistFilter{}
	})
}
