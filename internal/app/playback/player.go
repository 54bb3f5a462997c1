package playback

import (
	"context"
	"sync"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/radiobox/internal/domain/station"
	"github.com/osa030/radiobox/internal/domain/track"
	"github.com/osa030/radiobox/internal/infra/audio"
)

// Config holds player configuration.
type Config struct {
	Quality       track.Quality // Preferred rendition
	Prefetch      bool          // Open the next track while the current one plays
	StatusBuffer  int           // Capacity of the status channel
	CommandBuffer int           // Capacity of the command and event channels
	Filter        QueueFilter   // Optional track list filter
}

// Player is the public handle to the relay and engine goroutines.
// Control methods only enqueue a command and return.
type Player struct {
	mu     sync.Mutex
	paused bool // pause intent, for TogglePause

	commands chan command
	statuses chan Status
	state    *State
	gate     *PauseGate

	cancel     context.CancelFunc
	closing    chan struct{}
	closeOnce  sync.Once
	engineDone chan struct{}
	relayDone  chan struct{}
}

// NewPlayer starts a player in Standby.
func NewPlayer(catalog Catalog, decoder audio.Decoder, output audio.Output, cfg Config) *Player {
	if cfg.StatusBuffer <= 0 {
		cfg.StatusBuffer = 256
	}
	if cfg.CommandBuffer <= 0 {
		cfg.CommandBuffer = 16
	}
	if cfg.Quality == "" {
		cfg.Quality = track.QualityHigh
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Player{
		commands:   make(chan command, cfg.CommandBuffer),
		statuses:   make(chan Status, cfg.StatusBuffer),
		state:      NewState(),
		gate:       NewPauseGate(),
		cancel:     cancel,
		closing:    make(chan struct{}),
		engineDone: make(chan struct{}),
		relayDone:  make(chan struct{}),
	}

	events := make(chan event, cfg.CommandBuffer)

	e := &engine{
		ctx:      ctx,
		catalog:  catalog,
		decoder:  decoder,
		output:   output,
		filter:   cfg.Filter,
		quality:  cfg.Quality,
		prefetch: cfg.Prefetch,
		state:    p.state,
		gate:     p.gate,
		events:   events,
		statuses: p.statuses,
		done:     p.engineDone,
	}
	r := &relay{
		commands:   p.commands,
		events:     events,
		statuses:   p.statuses,
		state:      p.state,
		gate:       p.gate,
		engineDone: p.engineDone,
		done:       p.relayDone,
	}

	go e.run()
	go r.run()
	return p
}

// Play switches to station s.
func (p *Player) Play(s station.Station) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.unpauseLocked(); err != nil {
		return err
	}
	return p.send(command{Type: cmdPlay, Station: s})
}

// Stop leaves the current station and returns to Standby.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.unpauseLocked(); err != nil {
		return err
	}
	return p.send(command{Type: cmdStop})
}

// Pause holds playback at the next chunk boundary.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.send(command{Type: cmdPause}); err != nil {
		return err
	}
	p.paused = true
	return nil
}

// Unpause resumes playback.
func (p *Player) Unpause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unpauseLocked()
}

// TogglePause pauses when playing and resumes when paused.
func (p *Player) TogglePause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.paused {
		return p.unpauseLocked()
	}
	if err := p.send(command{Type: cmdPause}); err != nil {
		return err
	}
	p.paused = true
	return nil
}

// Skip abandons the current track. Playback is resumed first so the engine
// can observe the request.
func (p *Player) Skip() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.unpauseLocked(); err != nil {
		return err
	}
	return p.send(command{Type: cmdSkip})
}

// Report asks for the current status to be re-sent on the status channel.
func (p *Player) Report() error {
	return p.send(command{Type: cmdReport})
}

func (p *Player) unpauseLocked() error {
	if err := p.send(command{Type: cmdUnpause}); err != nil {
		return err
	}
	p.paused = false
	return nil
}

func (p *Player) send(c command) error {
	select {
	case <-p.closing:
		return ErrClosed
	default:
	}

	select {
	case p.commands <- c:
		return nil
	case <-p.closing:
		return ErrClosed
	}
}

// State returns a snapshot of the playback state.
func (p *Player) State() Snapshot {
	return p.state.Snapshot()
}

// NextStatus returns the next pending status without blocking.
func (p *Player) NextStatus() (Status, bool) {
	select {
	case st, ok := <-p.statuses:
		return st, ok
	default:
		return Status{}, false
	}
}

// Statuses returns the status channel. It is closed once the player has
// been closed and both goroutines have exited.
func (p *Player) Statuses() <-chan Status {
	return p.statuses
}

// Done is closed when the engine has terminated, including after a fatal
// startup failure.
func (p *Player) Done() <-chan struct{} {
	return p.engineDone
}

func (p *Player) is(kinds ...StatusKind) bool {
	k := p.state.Status().Kind
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

// IsStarted reports whether a station was just selected.
func (p *Player) IsStarted() bool { return p.is(StatusStarted) }

// IsFetching reports whether a track list is being requested.
func (p *Player) IsFetching() bool { return p.is(StatusFetching) }

// IsPlaying reports whether a track is being rendered.
func (p *Player) IsPlaying() bool { return p.is(StatusPlaying) }

// IsPaused reports whether the engine is held at the pause gate.
func (p *Player) IsPaused() bool { return p.is(StatusPaused) }

// IsFinished reports whether a track just ended.
func (p *Player) IsFinished() bool { return p.is(StatusFinished) }

// IsStopped reports whether the player is idle: stopped or in Standby.
func (p *Player) IsStopped() bool { return p.is(StatusStopped, StatusStandby) }

// IsShutdown reports whether the engine has terminated.
func (p *Player) IsShutdown() bool { return p.is(StatusShutdown) }

// Close shuts the player down and waits for its goroutines. Unpause is
// queued ahead of Exit so a Pause still waiting in the command channel
// cannot close the gate behind the engine. Close is safe to call more than
// once.
func (p *Player) Close() error {
	p.closeOnce.Do(func() {
		p.gate.Set(false)

		exit := command{Type: cmdExit}
		if !p.offer(command{Type: cmdUnpause}) || !p.offer(exit) {
			// A full command channel means the engine is stuck in a blocking
			// call; cancel it so the relay can drain.
			p.cancel()
			p.gate.Release()
			select {
			case p.commands <- exit:
			case <-p.relayDone:
			}
		}
		close(p.closing)
		p.cancel()
		p.gate.Release()

		<-p.engineDone
		<-p.relayDone
		close(p.statuses)
		zlog.Debug().Msg("playback: closed")
	})
	return nil
}

// offer enqueues c without blocking.
func (p *Player) offer(c command) bool {
	select {
	case p.commands <- c:
		return true
	default:
		return false
	}
}
