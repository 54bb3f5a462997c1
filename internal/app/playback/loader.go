package playback

import (
	"context"

	"github.com/osa030/radiobox/internal/domain/track"
	"github.com/osa030/radiobox/internal/infra/audio"
)

// opened is a queue entry together with the result of opening its source.
type opened struct {
	track  track.Track
	source audio.Source
	err    error
}

// trackLoader is the engine's FIFO of unplayed tracks. With prefetch on, the
// head of the queue is opened in the background while the current track
// plays; the resulting source is handed over through a channel and is only
// ever touched by the engine afterwards.
type trackLoader struct {
	ctx      context.Context
	decoder  audio.Decoder
	quality  track.Quality
	prefetch bool

	queue   []track.Track
	pending chan opened
}

func newTrackLoader(ctx context.Context, decoder audio.Decoder, quality track.Quality, prefetch bool, tracks []track.Track) *trackLoader {
	return &trackLoader{
		ctx:      ctx,
		decoder:  decoder,
		quality:  quality,
		prefetch: prefetch,
		queue:    append([]track.Track(nil), tracks...),
	}
}

// next returns the next entry in queue order, opening it if it was not
// prefetched. ok is false when the queue is exhausted.
func (l *trackLoader) next() (opened, bool) {
	if l.pending != nil {
		o := <-l.pending
		l.pending = nil
		return o, true
	}
	if len(l.queue) == 0 {
		return opened{}, false
	}

	t := l.pop()
	src, err := l.open(t)
	return opened{track: t, source: src, err: err}, true
}

// ahead starts opening the head of the queue in the background.
func (l *trackLoader) ahead() {
	if !l.prefetch || l.pending != nil || len(l.queue) == 0 {
		return
	}

	t := l.pop()
	ch := make(chan opened, 1)
	l.pending = ch
	go func() {
		src, err := l.open(t)
		ch <- opened{track: t, source: src, err: err}
	}()
}

// remaining returns the number of tracks not yet handed out.
func (l *trackLoader) remaining() int {
	n := len(l.queue)
	if l.pending != nil {
		n++
	}
	return n
}

// close discards the queue. An in-flight prefetch is closed once it lands.
func (l *trackLoader) close() {
	l.queue = nil
	if l.pending == nil {
		return
	}

	ch := l.pending
	l.pending = nil
	go func() {
		if o := <-ch; o.source != nil {
			_ = o.source.Close()
		}
	}()
}

func (l *trackLoader) pop() track.Track {
	t := l.queue[0]
	l.queue = l.queue[1:]
	return t
}

func (l *trackLoader) open(t track.Track) (audio.Source, error) {
	a, ok := t.Locator(l.quality)
	if !ok {
		return nil, ErrNoAudio
	}
	return l.decoder.Open(l.ctx, a)
}
