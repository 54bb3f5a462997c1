// Package audio provides the decoder and output capabilities used by the
// playback engine, with a beep-backed production implementation and an
// in-memory implementation for tests.
package audio

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/radiobox/internal/domain/track"
)

// Errors
var (
	ErrUnsupportedEncoding = errors.New("unsupported audio encoding")
	ErrTooLarge            = errors.New("audio payload exceeds size limit")
	ErrNotInitialized      = errors.New("audio output not initialized")
	ErrSinkClosed          = errors.New("audio sink closed")
)

// Format describes decoded PCM.
type Format struct {
	SampleRate  int // Samples per second
	NumChannels int // 1 or 2
	Precision   int // Bytes per sample in the source encoding
}

// Chunk is a run of decoded stereo samples.
// Timestamp is the position of the first sample from the start of the track.
type Chunk struct {
	Samples   [][2]float64
	Timestamp time.Duration
}

// Duration returns the playing time of the chunk at the given rate.
func (c Chunk) Duration(sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(sampleRate)
}

// Source yields the chunks of one opened track.
type Source interface {
	// Next returns the next chunk. ok is false once the source is exhausted
	// or has failed; Err distinguishes the two.
	Next() (chunk Chunk, ok bool)
	// Err returns the mid-stream error, if any.
	Err() error
	// Duration returns the total length, fixed at open time.
	Duration() time.Duration
	// Format returns the decoded sample format.
	Format() Format
	// Close releases the underlying decoder.
	Close() error
}

// Decoder opens sources for track renditions.
type Decoder interface {
	Open(ctx context.Context, a track.Audio) (Source, error)
}

// Sink renders chunks. Play blocks until the chunk has been accepted by the
// device, which paces the caller to real time.
type Sink interface {
	Play(c Chunk) error
	// SetPaused silences the device at once, holding back audio already
	// buffered until playback resumes.
	SetPaused(paused bool)
	// Drain waits for buffered audio to finish.
	Drain()
	Close() error
}

// Output opens sinks on an audio device.
type Output interface {
	// Init prepares the device once. A failure here is fatal to the player.
	Init() error
	Open(f Format) (Sink, error)
}
