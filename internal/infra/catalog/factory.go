package catalog

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/radiobox/internal/infra/config"
	"github.com/osa030/radiobox/internal/infra/pandora"
	"github.com/osa030/radiobox/internal/infra/spotify"
)

// Catalog types accepted in configuration.
const (
	TypePandora = "pandora"
	TypeSpotify = "spotify"
	TypeStatic  = "static"
)

// NewFromConfig creates the catalog client selected by cfg.Type. Settings
// are decoded into the client's own config, which applies defaults and
// validation.
func NewFromConfig(ctx context.Context, cfg config.CatalogConfig) (Client, error) {
	zlog.Debug().Msgf("creating catalog: type=%s", cfg.Type)

	var (
		client Client
		err    error
	)
	switch cfg.Type {
	case TypePandora:
		var pcfg pandora.Config
		if err = mapstructure.Decode(cfg.Settings, &pcfg); err != nil {
			return nil, errors.Wrap(err, "failed to decode pandora settings")
		}
		client, err = pandora.New(pcfg)

	case TypeSpotify:
		var scfg spotify.Config
		if err = mapstructure.Decode(cfg.Settings, &scfg); err != nil {
			return nil, errors.Wrap(err, "failed to decode spotify settings")
		}
		client, err = spotify.New(ctx, scfg)

	case TypeStatic:
		client, err = NewStaticClient(cfg.Settings)

	default:
		return nil, errors.Newf("unsupported catalog type: %s", cfg.Type)
	}

	if err != nil {
		return nil, errors.Wrapf(err, "failed to create catalog (type %s)", cfg.Type)
	}

	zlog.Info().Msgf("catalog ready: type=%s", cfg.Type)
	return client, nil
}
