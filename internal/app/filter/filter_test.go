package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/radiobox/internal/domain/station"
	"github.com/osa030/radiobox/internal/domain/track"
)

func withAudio(t track.Track) track.Track {
	t.Audio = &track.AudioSet{High: &track.Audio{URL: "http://audio/" + t.ID}}
	return t
}

func TestAdvertisementFilter_Check(t *testing.T) {
	f := &AdvertisementFilter{}

	assert.Equal(t, Reject("advertisement"), f.Check(context.Background(), testStation, track.Track{AdToken: "ad"}))
	assert.Equal(t, Accept(), f.Check(context.Background(), testStation, track.Track{ID: "t1"}))
}

func TestMissingAudioFilter_Check(t *testing.T) {
	f := &MissingAudioFilter{}

	tests := []struct {
		name         string
		track        track.Track
		wantAccepted bool
	}{
		{name: "has audio", track: withAudio(track.Track{ID: "t1"}), wantAccepted: true},
		{name: "nil audio set", track: track.Track{ID: "t2"}, wantAccepted: false},
		{name: "empty renditions", track: track.Track{ID: "t3", Audio: &track.AudioSet{}}, wantAccepted: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := f.Check(context.Background(), testStation, tt.track)
			assert.Equal(t, tt.wantAccepted, result.Accepted)
			if !tt.wantAccepted {
				assert.Equal(t, "missing_audio", result.Code)
			}
		})
	}
}

func TestBannedArtistFilter(t *testing.T) {
	f := &BannedArtistFilter{}
	require.NoError(t, f.ValidateConfig(map[string]any{
		"artists": []any{"Nickelback", "  The Wiggles "},
	}))

	tests := []struct {
		artist       string
		wantAccepted bool
	}{
		{"Nickelback", false},
		{"nickelback", false},
		{"The Wiggles", false},
		{"Queen", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.artist, func(t *testing.T) {
			result := f.Check(context.Background(), testStation, track.Track{ArtistName: tt.artist})
			assert.Equal(t, tt.wantAccepted, result.Accepted)
		})
	}

	assert.Error(t, (&BannedArtistFilter{}).ValidateConfig(map[string]any{"artists": []any{""}}))
}

func TestChain_Apply(t *testing.T) {
	chain := NewChain()
	chain.Add(&AdvertisementFilter{})
	chain.Add(&MissingAudioFilter{})

	tracks := []track.Track{
		withAudio(track.Track{ID: "a"}),
		withAudio(track.Track{ID: "ad", AdToken: "x"}),
		{ID: "silent"},
		withAudio(track.Track{ID: "b"}),
	}

	got := chain.Apply(context.Background(), station.Station{ID: "s"}, tracks)

	ids := make([]string, 0, len(got))
	for _, tr := range got {
		ids = append(ids, tr.ID)
	}
	assert.Equal(t, []string{"a", "b"}, ids)
	assert.Len(t, chain.Filters(), 2)
}

func TestChain_ExecuteStopsAtFirstRejection(t *testing.T) {
	chain := NewChain()
	chain.Add(&AdvertisementFilter{})
	chain.Add(&MissingAudioFilter{})

	result := chain.Execute(context.Background(), testStation, track.Track{AdToken: "x"})
	assert.Equal(t, "advertisement", result.Code)

	assert.True(t, NewChain().Execute(context.Background(), testStation, track.Track{}).Accepted)
}

func TestRegistry(t *testing.T) {
	names := Names()
	assert.Equal(t, []string{
		"advertisement_filter",
		"banned_artist_filter",
		"duration_limit_filter",
		"missing_audio_filter",
	}, names)

	for name, factory := range GetRegistered() {
		assert.Equal(t, name, factory().Name())
	}
}
