package audio

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/radiobox/internal/domain/track"
)

// writeWAV writes half a second of silence at 8kHz and returns its path.
func writeWAV(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	format := beep.Format{SampleRate: 8000, NumChannels: 2, Precision: 2}
	require.NoError(t, wav.Encode(f, beep.Silence(4000), format))
	return path
}

func TestBeepDecoder_LocalWAV(t *testing.T) {
	path := writeWAV(t)
	dec := NewBeepDecoder(DecoderConfig{ChunkDuration: 100 * time.Millisecond})

	src, err := dec.Open(context.Background(), track.Audio{URL: path, Encoding: "wav"})
	require.NoError(t, err)
	defer src.Close()

	assert.Equal(t, 500*time.Millisecond, src.Duration())
	assert.Equal(t, 8000, src.Format().SampleRate)

	var stamps []time.Duration
	for {
		c, ok := src.Next()
		if !ok {
			break
		}
		assert.Len(t, c.Samples, 800)
		stamps = append(stamps, c.Timestamp)
	}
	require.NoError(t, src.Err())
	assert.Equal(t, []time.Duration{
		0, 100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 400 * time.Millisecond,
	}, stamps)
}

func TestBeepDecoder_HTTP(t *testing.T) {
	data, err := os.ReadFile(writeWAV(t))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/clip.wav":
			_, _ = w.Write(data)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dec := NewBeepDecoder(DecoderConfig{HTTPTimeout: 5 * time.Second})

	t.Run("extension picks the codec", func(t *testing.T) {
		src, err := dec.Open(context.Background(), track.Audio{URL: srv.URL + "/clip.wav"})
		require.NoError(t, err)
		defer src.Close()
		assert.Equal(t, 500*time.Millisecond, src.Duration())
	})

	t.Run("non-200 is an error", func(t *testing.T) {
		_, err := dec.Open(context.Background(), track.Audio{URL: srv.URL + "/missing.wav"})
		require.Error(t, err)
		var statusErr *httpStatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	})

	t.Run("size limit", func(t *testing.T) {
		small := NewBeepDecoder(DecoderConfig{MaxBytes: 100})
		_, err := small.Open(context.Background(), track.Audio{URL: srv.URL + "/clip.wav"})
		assert.True(t, errors.Is(err, ErrTooLarge))
	})
}

func TestBeepDecoder_Errors(t *testing.T) {
	dec := NewBeepDecoder(DecoderConfig{})

	tests := []struct {
		name  string
		audio track.Audio
		is    error
	}{
		{name: "aac is not decodable", audio: track.Audio{URL: "http://x/a", Encoding: "aacplus"}, is: ErrUnsupportedEncoding},
		{name: "no hint at all", audio: track.Audio{URL: "http://x/stream"}, is: ErrUnsupportedEncoding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dec.Open(context.Background(), tt.audio)
			assert.True(t, errors.Is(err, tt.is))
		})
	}

	_, err := dec.Open(context.Background(), track.Audio{URL: "ftp://x/a.mp3"})
	assert.Error(t, err)

	_, err = dec.Open(context.Background(), track.Audio{URL: filepath.Join(t.TempDir(), "nope.mp3")})
	assert.Error(t, err)
}

func TestEncodingOf(t *testing.T) {
	tests := []struct {
		audio    track.Audio
		expected string
	}{
		{track.Audio{Encoding: "MP3"}, "mp3"},
		{track.Audio{Encoding: "vorbis"}, "ogg"},
		{track.Audio{URL: "http://host/a/b.flac?sig=1"}, "flac"},
		{track.Audio{URL: "/music/song.ogg"}, "ogg"},
		{track.Audio{Encoding: "aacplus", URL: "x.mp3"}, ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, encodingOf(tt.audio), tt.audio)
	}
}

func TestSampleQueue(t *testing.T) {
	q := newSampleQueue(4)

	require.NoError(t, q.push([][2]float64{{1, 1}, {2, 2}}))

	out := make([][2]float64, 3)
	n, ok := q.Stream(out)
	assert.True(t, ok)
	assert.Equal(t, 3, n)
	assert.Equal(t, [][2]float64{{1, 1}, {2, 2}, {0, 0}}, out)

	// Fill past the limit; the second push waits for the consumer.
	require.NoError(t, q.push(make([][2]float64, 4)))
	pushed := make(chan error, 1)
	go func() { pushed <- q.push(make([][2]float64, 1)) }()

	select {
	case <-pushed:
		t.Fatal("push should block while the queue is full")
	case <-time.After(50 * time.Millisecond):
	}

	_, _ = q.Stream(make([][2]float64, 2))
	require.NoError(t, <-pushed)

	// Close releases blocked producers and ends the stream.
	require.NoError(t, q.push(make([][2]float64, 4)))
	go func() { pushed <- q.push(make([][2]float64, 1)) }()
	time.Sleep(20 * time.Millisecond)
	q.close()
	assert.ErrorIs(t, <-pushed, ErrSinkClosed)

	_, ok = q.Stream(out)
	assert.False(t, ok)
}

func TestMemoryDecoder(t *testing.T) {
	dec := NewMemoryDecoder()
	dec.Add("ok", MemoryClip{Chunks: 3, ChunkSize: 500})
	dec.Add("bad", MemoryClip{OpenErr: errors.New("boom")})
	dec.Add("flaky", MemoryClip{Chunks: 5, FailAfter: 2})

	src, err := dec.Open(context.Background(), track.Audio{URL: "ok"})
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, src.Duration())

	var count int
	for {
		c, ok := src.Next()
		if !ok {
			break
		}
		assert.Equal(t, time.Duration(count)*500*time.Millisecond, c.Timestamp)
		count++
	}
	assert.Equal(t, 3, count)
	assert.NoError(t, src.Err())

	_, err = dec.Open(context.Background(), track.Audio{URL: "bad"})
	assert.EqualError(t, err, "boom")

	_, err = dec.Open(context.Background(), track.Audio{URL: "missing"})
	assert.True(t, errors.Is(err, ErrUnknownLocator))

	flaky, err := dec.Open(context.Background(), track.Audio{URL: "flaky"})
	require.NoError(t, err)
	_, ok := flaky.Next()
	assert.True(t, ok)
	_, ok = flaky.Next()
	assert.True(t, ok)
	_, ok = flaky.Next()
	assert.False(t, ok)
	assert.Error(t, flaky.Err())

	assert.Equal(t, []string{"ok", "bad", "missing", "flaky"}, dec.Opened())
}

func TestNullOutput_Realtime(t *testing.T) {
	out := &NullOutput{Realtime: true}
	require.NoError(t, out.Init())

	sink, err := out.Open(Format{SampleRate: 1000})
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, sink.Play(Chunk{Samples: make([][2]float64, 50)}))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	require.NoError(t, sink.Close())
}

func TestSpeakerOutput_OpenBeforeInit(t *testing.T) {
	out := NewSpeakerOutput(SpeakerConfig{})
	_, err := out.Open(Format{SampleRate: 44100})
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestSpeakerSink_PauseHoldsBufferedAudio(t *testing.T) {
	q := newSampleQueue(8)
	sink := &speakerSink{queue: q, ctrl: &beep.Ctrl{Streamer: q}}
	require.NoError(t, sink.Play(Chunk{Samples: [][2]float64{{1, 1}, {2, 2}}}))

	// Paused: the device hears silence and the queue keeps its samples.
	sink.SetPaused(true)
	out := make([][2]float64, 2)
	n, ok := sink.ctrl.Stream(out)
	assert.True(t, ok)
	assert.Equal(t, 2, n)
	assert.Equal(t, [][2]float64{{0, 0}, {0, 0}}, out)
	assert.Equal(t, 2, q.buffered())

	sink.SetPaused(false)
	_, ok = sink.ctrl.Stream(out)
	assert.True(t, ok)
	assert.Equal(t, [][2]float64{{1, 1}, {2, 2}}, out)

	// A closed sink ends its stream even if it was left paused.
	sink.SetPaused(true)
	require.NoError(t, sink.Close())
	_, ok = sink.ctrl.Stream(out)
	assert.False(t, ok)
}
