// Package playback provides the player: a relay goroutine and an engine
// goroutine running the station/track state machine behind a small
// command API.
package playback

import (
	"sync"
	"time"

	"github.com/osa030/radiobox/internal/domain/station"
	"github.com/osa030/radiobox/internal/domain/track"
)

// Progress is the position within the current track, in whole seconds.
type Progress struct {
	Elapsed time.Duration
	Total   time.Duration
}

// Snapshot is a point-in-time copy of the shared playback state.
type Snapshot struct {
	Station *station.Station
	Track   *track.Track
	// Progress is set only while Status is Playing or Paused.
	Progress *Progress
	Status   Status
}

// State is the playback record shared between the engine, the relay and the
// caller. Only the engine writes to it.
type State struct {
	mu       sync.Mutex
	station  *station.Station
	track    *track.Track
	progress *Progress
	status   Status
}

// NewState creates a state in Standby.
func NewState() *State {
	return &State{status: Standby()}
}

// Snapshot returns a consistent copy of all fields.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{Status: s.status}
	if s.station != nil {
		st := *s.station
		snap.Station = &st
	}
	if s.track != nil {
		t := *s.track
		snap.Track = &t
	}
	if s.progress != nil {
		p := *s.progress
		snap.Progress = &p
	}
	return snap
}

// Status returns the current status.
func (s *State) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// apply records st and derives station, track and progress from it under a
// single lock, so a snapshot never mixes fields from two statuses. progress
// is used when st carries a track; nil keeps the current track's position.
func (s *State) apply(st Status, progress *Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch st.Kind {
	case StatusStarted, StatusFetching:
		stn := st.Station
		s.station = &stn
		s.track = nil
		s.progress = nil
	case StatusPlaying, StatusPaused:
		same := s.track != nil && s.track.ID == st.Track.ID
		t := st.Track
		s.track = &t
		switch {
		case progress != nil:
			s.progress = truncated(progress.Elapsed, progress.Total)
		case !same:
			s.progress = nil
		}
	case StatusFinished, StatusError:
		s.track = nil
		s.progress = nil
	default:
		// Standby, Stopped and Shutdown leave no station behind.
		s.station = nil
		s.track = nil
		s.progress = nil
	}
	s.status = st
}

// setProgress records the position of the current track. Ignored unless a
// track is playing or paused.
func (s *State) setProgress(elapsed, total time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status.Kind != StatusPlaying && s.status.Kind != StatusPaused {
		return
	}
	s.progress = truncated(elapsed, total)
}

func truncated(elapsed, total time.Duration) *Progress {
	return &Progress{
		Elapsed: elapsed.Truncate(time.Second),
		Total:   total.Truncate(time.Second),
	}
}
