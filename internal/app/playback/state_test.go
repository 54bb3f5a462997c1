package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/osa030/radiobox/internal/domain/station"
	"github.com/osa030/radiobox/internal/domain/track"
)

func TestState_ApplyDerivesFields(t *testing.T) {
	jazz := station.Station{ID: "jazz"}
	tr := track.Track{ID: "t1"}

	type want struct {
		station  string
		track    string
		progress bool
	}
	tests := []struct {
		name   string
		before []Status
		status Status
		want   want
	}{
		{name: "started sets the station", status: Started(jazz), want: want{station: "jazz"}},
		{name: "fetching keeps the station", before: []Status{Started(jazz)}, status: Fetching(jazz), want: want{station: "jazz"}},
		{name: "playing sets the track", before: []Status{Started(jazz)}, status: Playing(tr), want: want{station: "jazz", track: "t1", progress: true}},
		{name: "paused keeps the track", before: []Status{Started(jazz), Playing(tr)}, status: Paused(tr), want: want{station: "jazz", track: "t1", progress: true}},
		{name: "finished drops the track", before: []Status{Started(jazz), Playing(tr)}, status: Finished(tr), want: want{station: "jazz"}},
		{name: "error drops the track", before: []Status{Started(jazz), Playing(tr)}, status: Failed(newErrorInfo(ErrorDecode, ErrNoAudio, &tr)), want: want{station: "jazz"}},
		{name: "stopped drops the station", before: []Status{Started(jazz), Playing(tr), Finished(tr)}, status: Stopped(jazz)},
		{name: "standby is empty", before: []Status{Started(jazz)}, status: Standby()},
		{name: "shutdown is empty", before: []Status{Started(jazz), Playing(tr)}, status: Shutdown()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState()
			progress := &Progress{Elapsed: time.Second, Total: time.Minute}
			for _, st := range tt.before {
				s.apply(st, progress)
			}
			s.apply(tt.status, progress)

			snap := s.Snapshot()
			assert.Equal(t, tt.status.Kind, snap.Status.Kind)
			if tt.want.station == "" {
				assert.Nil(t, snap.Station)
			} else if assert.NotNil(t, snap.Station) {
				assert.Equal(t, tt.want.station, snap.Station.ID)
			}
			if tt.want.track == "" {
				assert.Nil(t, snap.Track)
			} else if assert.NotNil(t, snap.Track) {
				assert.Equal(t, tt.want.track, snap.Track.ID)
			}
			assert.Equal(t, tt.want.progress, snap.Progress != nil)
		})
	}
}

func TestState_ProgressTruncatesToSeconds(t *testing.T) {
	s := NewState()
	s.apply(Playing(track.Track{ID: "t1"}), &Progress{Total: 61500 * time.Millisecond})
	s.setProgress(2999*time.Millisecond, 61500*time.Millisecond)

	snap := s.Snapshot()
	assert.Equal(t, &Progress{Elapsed: 2 * time.Second, Total: 61 * time.Second}, snap.Progress)

	// A new track starts without the old position.
	s.apply(Playing(track.Track{ID: "t2"}), nil)
	assert.Nil(t, s.Snapshot().Progress)

	// Progress is ignored outside Playing and Paused.
	s.apply(Finished(track.Track{ID: "t2"}), nil)
	s.setProgress(time.Second, time.Minute)
	assert.Nil(t, s.Snapshot().Progress)
}

func TestState_SnapshotIsACopy(t *testing.T) {
	s := NewState()
	s.apply(Started(station.Station{ID: "s", Name: "before"}), nil)

	snap := s.Snapshot()
	snap.Station.Name = "after"

	assert.Equal(t, "before", s.Snapshot().Station.Name)
}

func TestPauseGate(t *testing.T) {
	g := NewPauseGate()
	assert.False(t, g.Paused())

	// An open gate does not block or call back.
	g.Wait(func() { t.Fatal("unexpected pause") }, func() { t.Fatal("unexpected resume") })

	g.Set(true)
	g.Set(true)
	assert.True(t, g.Paused())

	var pauses, resumes int
	released := make(chan struct{})
	go func() {
		g.Wait(func() { pauses++ }, func() { resumes++ })
		close(released)
	}()

	select {
	case <-released:
		t.Fatal("Wait returned while paused")
	case <-time.After(50 * time.Millisecond):
	}

	g.Set(false)
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after the gate opened")
	}
	assert.Equal(t, 1, pauses)
	assert.Equal(t, 1, resumes)
}

func TestPauseGate_Release(t *testing.T) {
	g := NewPauseGate()
	g.Set(true)

	released := make(chan struct{})
	go func() {
		g.Wait(func() {}, func() {})
		close(released)
	}()

	g.Release()
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Release")
	}

	// A late pause cannot close a released gate.
	g.Set(true)
	assert.False(t, g.Paused())
	g.Wait(func() { t.Fatal("unexpected pause") }, func() {})
}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status   Status
		expected string
	}{
		{Standby(), "standby"},
		{Started(station.Station{ID: "1", Name: "Jazz"}), "started(Jazz)"},
		{Playing(track.Track{SongName: "So What", ArtistName: "Miles Davis"}), "playing(So What - Miles Davis)"},
		{Failed(newErrorInfo(ErrorTransport, ErrNoAudio, nil)), "error(transport error: track has no playable audio)"},
		{Shutdown(), "shutdown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.status.String())
	}
}
