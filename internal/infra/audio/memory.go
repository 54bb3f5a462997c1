package audio

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/radiobox/internal/domain/track"
)

// ErrUnknownLocator is returned by MemoryDecoder for unregistered locators.
var ErrUnknownLocator = errors.New("unknown locator")

// MemoryClip describes a synthetic track served by MemoryDecoder.
type MemoryClip struct {
	Chunks     int           // Number of chunks produced
	ChunkSize  int           // Samples per chunk
	SampleRate int           // Defaults to 1000 so one sample is one millisecond
	OpenErr    error         // Returned from Open when set
	FailAfter  int           // Fail mid-stream after this many chunks (0 = never)
	StreamErr  error         // Error reported on a mid-stream failure
	OpenDelay  time.Duration // Sleep inside Open
}

// MemoryDecoder is a deterministic in-memory Decoder for tests.
type MemoryDecoder struct {
	mu     sync.Mutex
	clips  map[string]MemoryClip
	opened []string
}

// NewMemoryDecoder creates an empty decoder.
func NewMemoryDecoder() *MemoryDecoder {
	return &MemoryDecoder{clips: make(map[string]MemoryClip)}
}

// Add registers a clip under locator.
func (d *MemoryDecoder) Add(locator string, clip MemoryClip) {
	if clip.SampleRate <= 0 {
		clip.SampleRate = 1000
	}
	if clip.ChunkSize <= 0 {
		clip.ChunkSize = 100
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clips[locator] = clip
}

// Opened returns the locators passed to Open, in call order.
func (d *MemoryDecoder) Opened() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.opened...)
}

// Open implements Decoder.
func (d *MemoryDecoder) Open(ctx context.Context, a track.Audio) (Source, error) {
	d.mu.Lock()
	clip, ok := d.clips[a.URL]
	d.opened = append(d.opened, a.URL)
	d.mu.Unlock()

	if !ok {
		return nil, errors.Wrapf(ErrUnknownLocator, "%q", a.URL)
	}
	if clip.OpenDelay > 0 {
		select {
		case <-time.After(clip.OpenDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if clip.OpenErr != nil {
		return nil, clip.OpenErr
	}
	return &memorySource{clip: clip}, nil
}

type memorySource struct {
	clip   MemoryClip
	next   int
	err    error
	closed bool
}

func (s *memorySource) Next() (Chunk, bool) {
	if s.err != nil || s.closed || s.next >= s.clip.Chunks {
		return Chunk{}, false
	}
	if s.clip.FailAfter > 0 && s.next >= s.clip.FailAfter {
		s.err = s.clip.StreamErr
		if s.err == nil {
			s.err = errors.New("memory source failure")
		}
		return Chunk{}, false
	}

	samples := make([][2]float64, s.clip.ChunkSize)
	ts := time.Duration(s.next*s.clip.ChunkSize) * time.Second / time.Duration(s.clip.SampleRate)
	s.next++
	return Chunk{Samples: samples, Timestamp: ts}, true
}

func (s *memorySource) Err() error {
	return s.err
}

func (s *memorySource) Duration() time.Duration {
	return time.Duration(s.clip.Chunks*s.clip.ChunkSize) * time.Second / time.Duration(s.clip.SampleRate)
}

func (s *memorySource) Format() Format {
	return Format{SampleRate: s.clip.SampleRate, NumChannels: 2, Precision: 2}
}

func (s *memorySource) Close() error {
	s.closed = true
	return nil
}

// MemoryOutput is an Output for tests that records what it renders.
type MemoryOutput struct {
	InitErr   error         // Returned from Init when set
	OpenErr   func(Format) error
	ChunkWait time.Duration // Sleep per Play call

	mu      sync.Mutex
	chunks  int
	opens   int
	closes  int
	drained int
	paused  bool
}

// Init implements Output.
func (o *MemoryOutput) Init() error {
	return o.InitErr
}

// Open implements Output.
func (o *MemoryOutput) Open(f Format) (Sink, error) {
	if o.OpenErr != nil {
		if err := o.OpenErr(f); err != nil {
			return nil, err
		}
	}
	o.mu.Lock()
	o.opens++
	o.mu.Unlock()
	return &memorySink{out: o}, nil
}

// Stats returns counts of opened sinks, closed sinks and played chunks.
func (o *MemoryOutput) Stats() (opens, closes, chunks int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens, o.closes, o.chunks
}

// Paused reports whether the last sink was told to pause.
func (o *MemoryOutput) Paused() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.paused
}

type memorySink struct {
	out    *MemoryOutput
	closed bool
}

func (s *memorySink) Play(c Chunk) error {
	if s.closed {
		return ErrSinkClosed
	}
	if s.out.ChunkWait > 0 {
		time.Sleep(s.out.ChunkWait)
	}
	s.out.mu.Lock()
	s.out.chunks++
	s.out.mu.Unlock()
	return nil
}

func (s *memorySink) SetPaused(paused bool) {
	s.out.mu.Lock()
	s.out.paused = paused
	s.out.mu.Unlock()
}

func (s *memorySink) Drain() {
	s.out.mu.Lock()
	s.out.drained++
	s.out.mu.Unlock()
}

func (s *memorySink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.out.mu.Lock()
	s.out.closes++
	s.out.mu.Unlock()
	return nil
}
