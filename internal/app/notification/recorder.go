package notification

import (
	"context"
	"sync"

	"github.com/osa030/radiobox/internal/app/playback"
	"github.com/osa030/radiobox/internal/domain/station"
	"github.com/osa030/radiobox/internal/domain/track"
)

// PlayLog persists played tracks.
type PlayLog interface {
	Record(ctx context.Context, st station.Station, t track.Track) error
}

// Recorder is a Stream that writes each track reaching Finished after
// Playing to a PlayLog, attributed to the station that was started last.
type Recorder struct {
	log PlayLog

	mu      sync.Mutex
	station station.Station
	playing string
}

// NewRecorder creates a recorder writing to log.
func NewRecorder(log PlayLog) *Recorder {
	return &Recorder{log: log}
}

// Send implements Stream.
func (r *Recorder) Send(n *Notification) error {
	r.mu.Lock()
	st := n.Status
	switch st.Kind {
	case playback.StatusStarted:
		r.station = st.Station
		r.playing = ""
	case playback.StatusPlaying:
		r.playing = st.Track.ID
	case playback.StatusFinished:
		heard := r.playing != "" && r.playing == st.Track.ID
		r.playing = ""
		current := r.station
		r.mu.Unlock()
		if !heard {
			return nil
		}
		return r.log.Record(context.Background(), current, st.Track)
	case playback.StatusStopped, playback.StatusStandby:
		r.station = station.Station{}
		r.playing = ""
	}
	r.mu.Unlock()
	return nil
}
