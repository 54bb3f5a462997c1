package main

import (
	"context"
	"sort"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/radiobox/internal/app/filter"
	"github.com/osa030/radiobox/internal/app/playback"
	"github.com/osa030/radiobox/internal/domain/track"
	"github.com/osa030/radiobox/internal/infra/audio"
	"github.com/osa030/radiobox/internal/infra/config"
	"github.com/osa030/radiobox/internal/infra/history"
)

const duplicateFilterName = "duplicate_track_filter"

// openHistory opens the history store and prunes entries older than the
// configured window. It returns nil when history is disabled.
func openHistory(ctx context.Context, cfg config.HistoryConfig) (*history.Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	store, err := history.Open(cfg.Path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open history")
	}
	if cfg.Window > 0 {
		before := time.Now().AddDate(0, 0, -cfg.Window)
		n, err := store.Prune(ctx, before)
		if err != nil {
			zlog.Warn().Err(err).Msg("Failed to prune history")
		} else if n > 0 {
			zlog.Info().Msgf("Pruned %d history entries", n)
		}
	}
	return store, nil
}

// buildFilterChain creates the enabled filters in name order and validates
// their settings. The duplicate filter needs the history store.
func buildFilterChain(cfg *config.Config, store *history.Store) (*filter.Chain, error) {
	registry := filter.GetRegistered()

	names := make([]string, 0, len(cfg.Filters))
	for name, filterCfg := range cfg.Filters {
		if filterCfg.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	chain := filter.NewChain()
	for _, name := range names {
		var f filter.Filter
		if factory, exists := registry[name]; exists {
			f = factory()
		} else if name == duplicateFilterName {
			if store == nil {
				return nil, errors.Newf("filter %s: history must be enabled", name)
			}
			f = filter.NewDuplicateTrackFilter(store)
		} else {
			return nil, errors.Newf("unknown filter: %s", name)
		}

		if err := f.ValidateConfig(cfg.Filters[name].Settings); err != nil {
			return nil, errors.Wrapf(err, "filter %s", name)
		}
		chain.Add(f)
		zlog.Debug().Msgf("Filter enabled: %s", name)
	}
	return chain, nil
}

// newOutput creates the configured audio output.
func newOutput(cfg config.AudioConfig) audio.Output {
	if cfg.Output == "null" {
		return &audio.NullOutput{Realtime: true}
	}
	return audio.NewSpeakerOutput(audio.SpeakerConfig{
		SampleRate: cfg.SampleRate,
		BufferSize: time.Duration(cfg.BufferMs) * time.Millisecond,
	})
}

// newPlayer wires the decoder and output into a player.
func newPlayer(cat playback.Catalog, cfg *config.Config, chain *filter.Chain) *playback.Player {
	decoder := audio.NewBeepDecoder(audio.DecoderConfig{
		ChunkDuration: time.Duration(cfg.Audio.ChunkMs) * time.Millisecond,
		HTTPTimeout:   time.Duration(cfg.Audio.HTTPTimeoutSec) * time.Second,
		MaxBytes:      int64(cfg.Audio.MaxTrackMB) << 20,
	})
	return playback.NewPlayer(cat, decoder, newOutput(cfg.Audio), playback.Config{
		Quality:       track.ParseQuality(cfg.Audio.Quality),
		Prefetch:      cfg.Player.PrefetchEnabled(),
		StatusBuffer:  cfg.Player.StatusBuffer,
		CommandBuffer: cfg.Player.CommandBuffer,
		Filter:        chain,
	})
}
