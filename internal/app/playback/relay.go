package playback

import (
	zlog "github.com/rs/zerolog/log"
)

// relay services pause, unpause and report requests itself and forwards
// everything else to the engine, so those requests never queue behind
// engine work.
type relay struct {
	commands   <-chan command
	events     chan<- event
	statuses   chan<- Status
	state      *State
	gate       *PauseGate
	engineDone <-chan struct{}
	done       chan struct{}
}

func (r *relay) run() {
	defer close(r.done)

	for cmd := range r.commands {
		switch cmd.Type {
		case cmdPause:
			r.gate.Set(true)
		case cmdUnpause:
			r.gate.Set(false)
		case cmdReport:
			st := r.state.Status()
			select {
			case r.statuses <- st:
			default:
				zlog.Warn().Msgf("playback: status channel full, dropping report %s", st)
			}
		case cmdExit:
			r.forward(event{Type: evExit})
			return
		case cmdPlay:
			r.forward(event{Type: evPlay, Station: cmd.Station})
		case cmdStop:
			r.forward(event{Type: evStop})
		case cmdSkip:
			r.forward(event{Type: evSkip})
		}
	}
}

// forward hands ev to the engine, giving up once the engine has exited.
func (r *relay) forward(ev event) {
	select {
	case r.events <- ev:
	case <-r.engineDone:
		zlog.Debug().Msgf("playback: engine gone, dropping %s", ev.Type)
	}
}
