package filter

import (
	"context"
	"reflect"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/radiobox/internal/domain/station"
	"github.com/osa030/radiobox/internal/domain/track"
)

// Codes returned by DurationLimitFilter.
const (
	CodeTooShort        = "too_short"
	CodeTooLong         = "too_long"
	CodeUnknownDuration = "unknown_duration"
)

// DurationLimitConfig holds the accepted track length range. Durations are
// given as strings ("90s", "12m") or as a number of seconds.
type DurationLimitConfig struct {
	Min           time.Duration `mapstructure:"min" default:"30s" validate:"gte=0s"`
	Max           time.Duration `mapstructure:"max" validate:"gte=0s"` // 0 means no limit
	RejectUnknown bool          `mapstructure:"reject_unknown"`
}

// DurationLimitFilter drops tracks whose catalog length is outside the
// configured range. Interludes and station IDs are the usual targets.
type DurationLimitFilter struct {
	config *DurationLimitConfig
}

// NewDurationLimitFilter creates an unconfigured filter, which accepts
// every track until ValidateConfig is called.
func NewDurationLimitFilter() *DurationLimitFilter {
	return &DurationLimitFilter{}
}

func (f *DurationLimitFilter) Name() string {
	return "duration_limit_filter"
}

func (f *DurationLimitFilter) Description() string {
	return "Drops tracks shorter or longer than the configured length"
}

func (f *DurationLimitFilter) ReturnCodes() []string {
	return []string{CodeTooShort, CodeTooLong, CodeUnknownDuration}
}

func (f *DurationLimitFilter) ValidateConfig(settings map[string]any) error {
	var config DurationLimitConfig

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &config,
		TagName: "mapstructure",
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			secondsToDurationHook,
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return errors.Wrap(err, "failed to decode settings")
	}

	if err := defaults.Set(&config); err != nil {
		return errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return errors.Wrap(err, "validation failed")
	}
	if config.Max > 0 && config.Min > config.Max {
		return errors.Newf("min (%s) cannot be greater than max (%s)", config.Min, config.Max)
	}

	f.config = &config
	zlog.Debug().Msgf("duration limit filter config: %+v", config)
	return nil
}

func (f *DurationLimitFilter) Check(ctx context.Context, s station.Station, t track.Track) Result {
	if f.config == nil {
		return Accept()
	}

	switch d := t.Duration; {
	case d <= 0:
		if f.config.RejectUnknown {
			return Reject(CodeUnknownDuration)
		}
	case d < f.config.Min:
		return Reject(CodeTooShort)
	case f.config.Max > 0 && d > f.config.Max:
		return Reject(CodeTooLong)
	}
	return Accept()
}

// secondsToDurationHook reads bare YAML numbers as seconds rather than
// nanoseconds.
func secondsToDurationHook(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	switch v := data.(type) {
	case int:
		return time.Duration(v) * time.Second, nil
	case int64:
		return time.Duration(v) * time.Second, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	}
	return data, nil
}

func init() {
	Register("duration_limit_filter", func() Filter {
		return NewDurationLimitFilter()
	})
}
