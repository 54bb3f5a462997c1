package audio

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	zlog "github.com/rs/zerolog/log"
)

// SpeakerConfig configures SpeakerOutput.
type SpeakerConfig struct {
	SampleRate   int           // Device sample rate; sources are resampled to it
	BufferSize   time.Duration // Speaker callback buffer
	QueueLength  time.Duration // Audio a sink may hold ahead of the device
	DrainTimeout time.Duration // Upper bound on Drain
}

// SpeakerOutput renders through the system audio device.
type SpeakerOutput struct {
	cfg        SpeakerConfig
	mu         sync.Mutex
	sampleRate beep.SampleRate
	inited     bool
}

// NewSpeakerOutput creates a speaker output. The device is opened by Init.
func NewSpeakerOutput(cfg SpeakerConfig) *SpeakerOutput {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44100
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 100 * time.Millisecond
	}
	if cfg.QueueLength <= 0 {
		cfg.QueueLength = 500 * time.Millisecond
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = 2 * time.Second
	}
	return &SpeakerOutput{cfg: cfg}
}

// Init opens the audio device.
func (o *SpeakerOutput) Init() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.inited {
		return nil
	}

	sr := beep.SampleRate(o.cfg.SampleRate)
	if err := speaker.Init(sr, sr.N(o.cfg.BufferSize)); err != nil {
		return errors.Wrap(err, "failed to initialize speaker")
	}
	o.sampleRate = sr
	o.inited = true
	zlog.Debug().Msgf("audio: speaker initialized %dHz buffer %v", sr, o.cfg.BufferSize)
	return nil
}

// Open starts a sink for the given source format.
func (o *SpeakerOutput) Open(f Format) (Sink, error) {
	o.mu.Lock()
	inited, deviceRate := o.inited, o.sampleRate
	o.mu.Unlock()

	if !inited {
		return nil, ErrNotInitialized
	}
	if f.SampleRate <= 0 {
		return nil, errors.Newf("invalid sample rate %d", f.SampleRate)
	}

	q := newSampleQueue(beep.SampleRate(f.SampleRate).N(o.cfg.QueueLength))

	var s beep.Streamer = q
	if sr := beep.SampleRate(f.SampleRate); sr != deviceRate {
		s = beep.Resample(4, sr, deviceRate, q)
	}
	ctrl := &beep.Ctrl{Streamer: s}
	speaker.Play(ctrl)

	return &speakerSink{queue: q, ctrl: ctrl, drainTimeout: o.cfg.DrainTimeout}, nil
}

type speakerSink struct {
	queue        *sampleQueue
	ctrl         *beep.Ctrl
	drainTimeout time.Duration
}

func (s *speakerSink) Play(c Chunk) error {
	return s.queue.push(c.Samples)
}

func (s *speakerSink) SetPaused(paused bool) {
	speaker.Lock()
	s.ctrl.Paused = paused
	speaker.Unlock()
}

func (s *speakerSink) Drain() {
	s.queue.drain(s.drainTimeout)
}

// Close detaches the sink from the speaker. A paused Ctrl would otherwise
// keep streaming silence forever.
func (s *speakerSink) Close() error {
	speaker.Lock()
	s.ctrl.Streamer = nil
	speaker.Unlock()
	s.queue.close()
	return nil
}

// sampleQueue is a bounded buffer between a producer and the speaker
// callback. Stream never blocks; it pads with silence while the producer is
// behind.
type sampleQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	samples [][2]float64
	limit   int
	closed  bool
}

func newSampleQueue(limit int) *sampleQueue {
	if limit <= 0 {
		limit = 1
	}
	q := &sampleQueue{limit: limit}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Stream implements beep.Streamer.
func (q *sampleQueue) Stream(out [][2]float64) (int, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0, false
	}

	n := copy(out, q.samples)
	q.samples = q.samples[n:]
	for i := n; i < len(out); i++ {
		out[i] = [2]float64{}
	}
	q.cond.Broadcast()
	return len(out), true
}

// Err implements beep.Streamer.
func (q *sampleQueue) Err() error {
	return nil
}

func (q *sampleQueue) push(samples [][2]float64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.samples) >= q.limit && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return ErrSinkClosed
	}
	q.samples = append(q.samples, samples...)
	return nil
}

func (q *sampleQueue) buffered() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.samples)
}

func (q *sampleQueue) drain(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for q.buffered() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
}

func (q *sampleQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.samples = nil
	q.cond.Broadcast()
}
