package playback

import "github.com/osa030/radiobox/internal/domain/station"

// commandType is a request from the Player to the relay.
type commandType int

const (
	cmdPlay commandType = iota
	cmdStop
	cmdPause
	cmdUnpause
	cmdSkip
	cmdReport
	cmdExit
)

// String returns the string representation of the command type.
func (c commandType) String() string {
	switch c {
	case cmdPlay:
		return "play"
	case cmdStop:
		return "stop"
	case cmdPause:
		return "pause"
	case cmdUnpause:
		return "unpause"
	case cmdSkip:
		return "skip"
	case cmdReport:
		return "report"
	case cmdExit:
		return "exit"
	default:
		return "unknown"
	}
}

type command struct {
	Type    commandType
	Station station.Station // cmdPlay only
}

// eventType is a command forwarded by the relay to the engine.
type eventType int

const (
	evPlay eventType = iota
	evStop
	evSkip
	evExit
)

// String returns the string representation of the event type.
func (e eventType) String() string {
	switch e {
	case evPlay:
		return "play"
	case evStop:
		return "stop"
	case evSkip:
		return "skip"
	case evExit:
		return "exit"
	default:
		return "unknown"
	}
}

type event struct {
	Type    eventType
	Station station.Station // evPlay only
}
