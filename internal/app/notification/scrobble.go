package notification

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/radiobox/internal/app/playback"
	"github.com/osa030/radiobox/internal/domain/track"
)

const (
	minScrobbleLength = 30 * time.Second
	maxScrobbleWait   = 4 * time.Minute
)

// Scrobbler submits plays to a listening profile.
type Scrobbler interface {
	NowPlaying(t track.Track) error
	Scrobble(t track.Track, startedAt time.Time) error
}

// ScrobbleStream is a Stream that announces each track as it starts and
// scrobbles it when it finishes after being heard long enough: half its
// length or four minutes, whichever is shorter. Tracks under 30 seconds
// and advertisements are never scrobbled. Time spent paused does not count.
// Listening time is measured between notification timestamps.
type ScrobbleStream struct {
	scrobbler Scrobbler

	mu      sync.Mutex
	current *heard
}

type heard struct {
	track     track.Track
	startedAt time.Time
	resumedAt time.Time // zero while paused
	played    time.Duration
}

func (h *heard) pause(at time.Time) {
	if !h.resumedAt.IsZero() {
		h.played += at.Sub(h.resumedAt)
		h.resumedAt = time.Time{}
	}
}

// NewScrobbleStream creates a stream submitting to s.
func NewScrobbleStream(s Scrobbler) *ScrobbleStream {
	return &ScrobbleStream{scrobbler: s}
}

// Send implements Stream.
func (s *ScrobbleStream) Send(n *Notification) error {
	st := n.Status

	s.mu.Lock()
	switch st.Kind {
	case playback.StatusPlaying:
		if s.current != nil && s.current.track.ID == st.Track.ID {
			if s.current.resumedAt.IsZero() {
				s.current.resumedAt = n.Time
			}
			s.mu.Unlock()
			return nil
		}
		s.current = &heard{track: st.Track, startedAt: n.Time, resumedAt: n.Time}
		s.mu.Unlock()
		if st.Track.IsAd() {
			return nil
		}
		return errors.Wrap(s.scrobbler.NowPlaying(st.Track), "now playing")

	case playback.StatusPaused:
		if s.current != nil && s.current.track.ID == st.Track.ID {
			s.current.pause(n.Time)
		}

	case playback.StatusFinished:
		h := s.current
		s.current = nil
		s.mu.Unlock()
		if h == nil || h.track.ID != st.Track.ID {
			return nil
		}
		h.pause(n.Time)
		if !shouldScrobble(h.track, h.played) {
			return nil
		}
		return errors.Wrap(s.scrobbler.Scrobble(h.track, h.startedAt), "scrobble")

	case playback.StatusStarted, playback.StatusStopped, playback.StatusStandby:
		s.current = nil
	}
	s.mu.Unlock()
	return nil
}

// shouldScrobble applies the listening threshold. With no duration hint
// the track must have been heard for 30 seconds.
func shouldScrobble(t track.Track, played time.Duration) bool {
	if t.IsAd() {
		return false
	}
	if t.Duration == 0 {
		return played >= minScrobbleLength
	}
	if t.Duration < minScrobbleLength {
		return false
	}
	threshold := min(t.Duration/2, maxScrobbleWait)
	return played >= threshold
}
