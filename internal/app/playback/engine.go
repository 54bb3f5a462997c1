package playback

import (
	"context"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/radiobox/internal/domain/station"
	"github.com/osa030/radiobox/internal/domain/track"
	"github.com/osa030/radiobox/internal/infra/audio"
)

// Catalog supplies the track list for a station.
type Catalog interface {
	List(ctx context.Context, s station.Station) ([]track.Track, error)
}

// QueueFilter prunes a freshly fetched track list before it is queued.
type QueueFilter interface {
	Apply(ctx context.Context, s station.Station, tracks []track.Track) []track.Track
}

// stateFn is one state of the engine's machine; it returns the next state,
// or nil once shut down.
type stateFn func(*engine) stateFn

// current is the track being rendered.
type current struct {
	track  track.Track
	source audio.Source
	sink   audio.Sink
	total  time.Duration
}

// engine owns the decoder and device handles and drives
// Standby -> Station -> Track -> Playing.
type engine struct {
	ctx      context.Context
	catalog  Catalog
	decoder  audio.Decoder
	output   audio.Output
	filter   QueueFilter
	quality  track.Quality
	prefetch bool

	state    *State
	gate     *PauseGate
	events   <-chan event
	statuses chan<- Status
	done     chan struct{}

	station station.Station
	loader  *trackLoader
	cur     *current
}

func (e *engine) run() {
	defer close(e.done)

	if err := e.output.Init(); err != nil {
		info := newErrorInfo(ErrorDevice, err, nil)
		info.Fatal = true
		e.emit(Failed(info))
		e.emit(Shutdown())
		return
	}

	e.emit(Standby())
	for fn := standbyState; fn != nil; {
		fn = fn(e)
	}
}

// emit mirrors st into the shared state and publishes it. A full status
// channel drops the status rather than stalling playback.
func (e *engine) emit(st Status) {
	e.publish(st, nil)
}

// publish is emit with the starting position of a track.
func (e *engine) publish(st Status, progress *Progress) {
	e.state.apply(st, progress)
	zlog.Debug().Msgf("playback: %s", st)

	select {
	case e.statuses <- st:
	default:
		zlog.Warn().Msgf("playback: status channel full, dropping %s", st)
	}
}

func (e *engine) fail(kind ErrorKind, err error, t *track.Track) {
	zlog.Warn().Err(err).Msgf("playback: %s error", kind)
	e.emit(Failed(newErrorInfo(kind, err, t)))
}

func standbyState(e *engine) stateFn {
	select {
	case ev := <-e.events:
		switch ev.Type {
		case evPlay:
			e.enter(ev.Station)
			return stationState
		case evExit:
			return e.shutdown()
		default:
			return standbyState
		}
	case <-e.ctx.Done():
		return e.shutdown()
	}
}

func stationState(e *engine) stateFn {
	if next, handled := e.poll(); handled {
		return next
	}

	e.emit(Fetching(e.station))
	tracks, err := e.catalog.List(e.ctx, e.station)
	if err != nil {
		if e.ctx.Err() != nil {
			return e.shutdown()
		}
		// Retried immediately: a persistent outage shows as a
		// Fetching/Error oscillation.
		e.fail(ErrorTransport, err, nil)
		return stationState
	}

	if e.filter != nil {
		tracks = e.filter.Apply(e.ctx, e.station, tracks)
	}
	zlog.Debug().Msgf("playback: queued %d tracks for %s", len(tracks), e.station)

	e.loader = newTrackLoader(e.ctx, e.decoder, e.quality, e.prefetch, tracks)
	return trackState
}

func trackState(e *engine) stateFn {
	if e.ctx.Err() != nil {
		return e.shutdown()
	}

	o, ok := e.loader.next()
	if !ok {
		zlog.Debug().Msgf("playback: queue for %s exhausted, refetching", e.station)
		return stationState
	}
	t := o.track

	if o.err != nil {
		if e.ctx.Err() != nil {
			return e.shutdown()
		}
		e.fail(ErrorDecode, o.err, &t)
		return trackState
	}

	sink, err := e.output.Open(o.source.Format())
	if err != nil {
		_ = o.source.Close()
		e.fail(ErrorDevice, err, &t)
		return trackState
	}

	total := o.source.Duration()
	if total <= 0 {
		total = t.Duration
	}
	e.cur = &current{track: t, source: o.source, sink: sink, total: total}

	e.publish(Playing(t), &Progress{Total: total})
	e.loader.ahead()
	zlog.Debug().Msgf("playback: %d tracks left for %s", e.loader.remaining(), e.station)
	return playingState
}

func playingState(e *engine) stateFn {
	t, sink := e.cur.track, e.cur.sink

	e.gate.Wait(
		func() {
			sink.SetPaused(true)
			e.emit(Paused(t))
		},
		func() {
			sink.SetPaused(false)
			e.emit(Playing(t))
		},
	)
	if e.ctx.Err() != nil {
		return e.shutdown()
	}

	select {
	case ev := <-e.events:
		switch ev.Type {
		case evPlay:
			prev := e.station
			e.release()
			e.emit(Finished(t))
			e.emit(Stopped(prev))
			e.enter(ev.Station)
			return stationState
		case evStop:
			prev := e.station
			e.release()
			e.station = station.Station{}
			e.emit(Finished(t))
			e.emit(Stopped(prev))
			e.emit(Standby())
			return standbyState
		case evSkip:
			e.closeTrack()
			e.emit(Finished(t))
			return trackState
		case evExit:
			return e.shutdown()
		}
	case <-e.ctx.Done():
		return e.shutdown()
	default:
	}

	chunk, ok := e.cur.source.Next()
	if !ok {
		if err := e.cur.source.Err(); err != nil {
			e.fail(ErrorDecode, err, &t)
		} else {
			e.cur.sink.Drain()
		}
		e.closeTrack()
		e.emit(Finished(t))
		return trackState
	}

	e.state.setProgress(chunk.Timestamp, e.cur.total)
	if err := e.cur.sink.Play(chunk); err != nil {
		e.fail(ErrorDevice, err, &t)
		e.closeTrack()
		e.emit(Finished(t))
		return trackState
	}
	return playingState
}

// poll handles a pending event between fetch attempts so that a station
// whose catalog keeps failing can still be left.
func (e *engine) poll() (stateFn, bool) {
	select {
	case ev := <-e.events:
		switch ev.Type {
		case evPlay:
			prev := e.station
			e.release()
			e.emit(Stopped(prev))
			e.enter(ev.Station)
			return stationState, true
		case evStop:
			prev := e.station
			e.release()
			e.station = station.Station{}
			e.emit(Stopped(prev))
			e.emit(Standby())
			return standbyState, true
		case evExit:
			return e.shutdown(), true
		}
	case <-e.ctx.Done():
		return e.shutdown(), true
	default:
	}
	return nil, false
}

// enter selects a station from Standby or after leaving another one.
func (e *engine) enter(s station.Station) {
	e.station = s
	e.emit(Started(s))
}

// shutdown leaves the current track and station and terminates.
func (e *engine) shutdown() stateFn {
	playing := e.cur
	prev := e.station

	e.release()
	if playing != nil {
		e.emit(Finished(playing.track))
	}
	if !prev.IsZero() {
		e.emit(Stopped(prev))
	}
	e.emit(Shutdown())
	return nil
}

// release closes the current track and discards the queue.
func (e *engine) release() {
	e.closeTrack()
	if e.loader != nil {
		e.loader.close()
		e.loader = nil
	}
}

func (e *engine) closeTrack() {
	if e.cur == nil {
		return
	}
	if err := e.cur.sink.Close(); err != nil {
		zlog.Debug().Err(err).Msg("playback: sink close")
	}
	if err := e.cur.source.Close(); err != nil {
		zlog.Debug().Err(err).Msg("playback: source close")
	}
	e.cur = nil
}
