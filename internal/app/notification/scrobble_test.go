package notification

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/radiobox/internal/app/playback"
	"github.com/osa030/radiobox/internal/domain/station"
	"github.com/osa030/radiobox/internal/domain/track"
)

type fakeScrobbler struct {
	nowPlaying []string
	scrobbled  []string
	started    []time.Time
	err        error
}

func (f *fakeScrobbler) NowPlaying(t track.Track) error {
	f.nowPlaying = append(f.nowPlaying, t.ID)
	return f.err
}

func (f *fakeScrobbler) Scrobble(t track.Track, startedAt time.Time) error {
	f.scrobbled = append(f.scrobbled, t.ID)
	f.started = append(f.started, startedAt)
	return f.err
}

type timedStatus struct {
	at     time.Duration
	status playback.Status
}

func TestScrobbleStream(t *testing.T) {
	jazz := station.Station{ID: "jazz"}
	long := track.Track{ID: "long", Duration: 10 * time.Minute}
	short := track.Track{ID: "short", Duration: 3 * time.Minute}
	tiny := track.Track{ID: "tiny", Duration: 20 * time.Second}
	unknown := track.Track{ID: "unknown"}
	ad := track.Track{ID: "ad", AdToken: "x", Duration: time.Minute}

	tests := []struct {
		name           string
		statuses       []timedStatus
		wantNowPlaying []string
		wantScrobbled  []string
	}{
		{
			name: "half the length is enough",
			statuses: []timedStatus{
				{0, playback.Started(jazz)},
				{0, playback.Playing(short)},
				{90 * time.Second, playback.Finished(short)},
			},
			wantNowPlaying: []string{"short"},
			wantScrobbled:  []string{"short"},
		},
		{
			name: "skipped early",
			statuses: []timedStatus{
				{0, playback.Playing(short)},
				{89 * time.Second, playback.Finished(short)},
			},
			wantNowPlaying: []string{"short"},
		},
		{
			name: "four minutes caps the threshold",
			statuses: []timedStatus{
				{0, playback.Playing(long)},
				{4 * time.Minute, playback.Finished(long)},
			},
			wantNowPlaying: []string{"long"},
			wantScrobbled:  []string{"long"},
		},
		{
			name: "pauses do not count",
			statuses: []timedStatus{
				{0, playback.Playing(short)},
				{60 * time.Second, playback.Paused(short)},
				{10 * time.Minute, playback.Playing(short)},
				{10*time.Minute + 20*time.Second, playback.Finished(short)},
			},
			wantNowPlaying: []string{"short"},
		},
		{
			name: "paused time excluded but enough heard",
			statuses: []timedStatus{
				{0, playback.Playing(short)},
				{60 * time.Second, playback.Paused(short)},
				{5 * time.Minute, playback.Playing(short)},
				{5*time.Minute + 30*time.Second, playback.Finished(short)},
			},
			wantNowPlaying: []string{"short"},
			wantScrobbled:  []string{"short"},
		},
		{
			name: "too short to scrobble",
			statuses: []timedStatus{
				{0, playback.Playing(tiny)},
				{20 * time.Second, playback.Finished(tiny)},
			},
			wantNowPlaying: []string{"tiny"},
		},
		{
			name: "unknown length needs thirty seconds",
			statuses: []timedStatus{
				{0, playback.Playing(unknown)},
				{30 * time.Second, playback.Finished(unknown)},
			},
			wantNowPlaying: []string{"unknown"},
			wantScrobbled:  []string{"unknown"},
		},
		{
			name: "ads are ignored",
			statuses: []timedStatus{
				{0, playback.Playing(ad)},
				{time.Minute, playback.Finished(ad)},
			},
		},
		{
			name: "stop forgets the track",
			statuses: []timedStatus{
				{0, playback.Playing(short)},
				{2 * time.Minute, playback.Stopped(jazz)},
				{2 * time.Minute, playback.Finished(short)},
			},
			wantNowPlaying: []string{"short"},
		},
	}

	base := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeScrobbler{}
			s := NewScrobbleStream(f)
			for i, ts := range tt.statuses {
				n := &Notification{SequenceNo: uint64(i + 1), Time: base.Add(ts.at), Status: ts.status}
				require.NoError(t, s.Send(n))
			}
			assert.Equal(t, tt.wantNowPlaying, f.nowPlaying)
			assert.Equal(t, tt.wantScrobbled, f.scrobbled)
			for _, started := range f.started {
				assert.True(t, started.Equal(base))
			}
		})
	}
}

func TestScrobbleStream_Errors(t *testing.T) {
	f := &fakeScrobbler{err: errors.New("offline")}
	s := NewScrobbleStream(f)
	tr := track.Track{ID: "a", Duration: time.Minute}
	now := time.Now()

	err := s.Send(&Notification{Time: now, Status: playback.Playing(tr)})
	assert.ErrorContains(t, err, "now playing")

	err = s.Send(&Notification{Time: now.Add(time.Minute), Status: playback.Finished(tr)})
	assert.ErrorContains(t, err, "scrobble")
}
