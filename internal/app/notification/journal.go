package notification

import (
	"github.com/rs/zerolog"
)

// JournalStream writes each notification as one log entry.
type JournalStream struct {
	log zerolog.Logger
}

// NewJournalStream creates a stream writing to log.
func NewJournalStream(log zerolog.Logger) *JournalStream {
	return &JournalStream{log: log}
}

// Send implements Stream.
func (j *JournalStream) Send(n *Notification) error {
	st := n.Status
	ev := j.log.Log().
		Uint64("seq", n.SequenceNo).
		Str("status", st.Kind.String())
	if st.HasStation() {
		ev = ev.Str("station_id", st.Station.ID).Str("station", st.Station.String())
	}
	if st.HasTrack() {
		ev = ev.Str("track_id", st.Track.ID).Str("track", st.Track.Title())
	}
	if st.Err != nil {
		ev = ev.Str("error_kind", st.Err.Kind.String()).
			Bool("fatal", st.Err.Fatal).
			Str("error", st.Err.Error())
	}
	ev.Send()
	return nil
}
