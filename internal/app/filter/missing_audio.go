package filter

import (
	"context"

	"github.com/osa030/radiobox/internal/domain/station"
	"github.com/osa030/radiobox/internal/domain/track"
)

// MissingAudioFilter drops tracks the catalog returned without any
// rendition, so they are skipped silently instead of surfacing an error.
type MissingAudioFilter struct{}

func (f *MissingAudioFilter) Name() string {
	return "missing_audio_filter"
}

func (f *MissingAudioFilter) Description() string {
	return "Drops tracks that have no playable audio"
}

func (f *MissingAudioFilter) ReturnCodes() []string {
	return []string{"missing_audio"}
}

func (f *MissingAudioFilter) ValidateConfig(settings map[string]any) error {
	return nil
}

func (f *MissingAudioFilter) Check(ctx context.Context, s station.Station, t track.Track) Result {
	if !t.HasAudio() {
		return Reject("missing_audio")
	}
	return Accept()
}

func init() {
	Register("missing_audio_filter", func() Filter {
		return &MissingAudioFilter{}
	})
}
