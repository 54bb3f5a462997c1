package playback

import (
	"fmt"

	"github.com/osa030/radiobox/internal/domain/station"
	"github.com/osa030/radiobox/internal/domain/track"
)

// StatusKind identifies a Status variant.
type StatusKind int

const (
	StatusStandby  StatusKind = iota // No station selected
	StatusStarted                    // Station selected
	StatusFetching                   // Requesting the station's track list
	StatusPlaying                    // Rendering a track
	StatusPaused                     // Track held at the pause gate
	StatusFinished                   // Track ended, skipped or abandoned
	StatusStopped                    // Station left
	StatusError                      // Recoverable or fatal failure
	StatusShutdown                   // Engine terminated
)

// String returns the string representation of the status kind.
func (k StatusKind) String() string {
	switch k {
	case StatusStandby:
		return "standby"
	case StatusStarted:
		return "started"
	case StatusFetching:
		return "fetching"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusFinished:
		return "finished"
	case StatusStopped:
		return "stopped"
	case StatusError:
		return "error"
	case StatusShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Status is a single player status. Station is set for Started, Fetching
// and Stopped; Track for Playing, Paused and Finished; Err for Error.
type Status struct {
	Kind    StatusKind
	Station station.Station
	Track   track.Track
	Err     *ErrorInfo
}

// Standby returns a Standby status.
func Standby() Status { return Status{Kind: StatusStandby} }

// Started returns a Started status.
func Started(s station.Station) Status { return Status{Kind: StatusStarted, Station: s} }

// Fetching returns a Fetching status.
func Fetching(s station.Station) Status { return Status{Kind: StatusFetching, Station: s} }

// Playing returns a Playing status.
func Playing(t track.Track) Status { return Status{Kind: StatusPlaying, Track: t} }

// Paused returns a Paused status.
func Paused(t track.Track) Status { return Status{Kind: StatusPaused, Track: t} }

// Finished returns a Finished status.
func Finished(t track.Track) Status { return Status{Kind: StatusFinished, Track: t} }

// Stopped returns a Stopped status.
func Stopped(s station.Station) Status { return Status{Kind: StatusStopped, Station: s} }

// Failed returns an Error status.
func Failed(info *ErrorInfo) Status { return Status{Kind: StatusError, Err: info} }

// Shutdown returns a Shutdown status.
func Shutdown() Status { return Status{Kind: StatusShutdown} }

// HasTrack reports whether the status carries a track.
func (s Status) HasTrack() bool {
	switch s.Kind {
	case StatusPlaying, StatusPaused, StatusFinished:
		return true
	}
	return false
}

// HasStation reports whether the status carries a station.
func (s Status) HasStation() bool {
	switch s.Kind {
	case StatusStarted, StatusFetching, StatusStopped:
		return true
	}
	return false
}

// String returns a human-readable description.
func (s Status) String() string {
	switch {
	case s.HasTrack():
		return fmt.Sprintf("%s(%s)", s.Kind, s.Track.Title())
	case s.HasStation():
		return fmt.Sprintf("%s(%s)", s.Kind, s.Station)
	case s.Kind == StatusError && s.Err != nil:
		return fmt.Sprintf("%s(%s)", s.Kind, s.Err)
	default:
		return s.Kind.String()
	}
}
