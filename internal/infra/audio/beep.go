package audio

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/radiobox/internal/domain/track"
)

// DecoderConfig configures BeepDecoder.
type DecoderConfig struct {
	ChunkDuration time.Duration // Length of each chunk returned by Next
	HTTPTimeout   time.Duration // Overall timeout for fetching a locator
	MaxBytes      int64         // Upper bound on a fetched payload (0 = unlimited)
}

// BeepDecoder decodes mp3, flac, ogg/vorbis and wav renditions.
// Payloads are fetched fully before decoding so that the track length is
// known when the source opens.
type BeepDecoder struct {
	fetcher       *fetcher
	chunkDuration time.Duration
}

// NewBeepDecoder creates a decoder.
func NewBeepDecoder(cfg DecoderConfig) *BeepDecoder {
	if cfg.ChunkDuration <= 0 {
		cfg.ChunkDuration = 100 * time.Millisecond
	}
	return &BeepDecoder{
		fetcher:       newFetcher(cfg.HTTPTimeout, cfg.MaxBytes),
		chunkDuration: cfg.ChunkDuration,
	}
}

// Open fetches and decodes a rendition.
func (d *BeepDecoder) Open(ctx context.Context, a track.Audio) (Source, error) {
	kind := encodingOf(a)
	if kind == "" {
		return nil, errors.Wrapf(ErrUnsupportedEncoding, "encoding %q", a.Encoding)
	}

	data, err := d.fetcher.fetch(ctx, a.URL)
	if err != nil {
		return nil, err
	}

	rc := io.NopCloser(bytes.NewReader(data))

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch kind {
	case "mp3":
		streamer, format, err = mp3.Decode(rc)
	case "flac":
		streamer, format, err = flac.Decode(rc)
	case "ogg":
		streamer, format, err = vorbis.Decode(rc)
	case "wav":
		streamer, format, err = wav.Decode(rc)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", kind)
	}

	src := &beepSource{
		streamer: streamer,
		format:   format,
		duration: format.SampleRate.D(streamer.Len()),
		buf:      make([][2]float64, format.SampleRate.N(d.chunkDuration)),
	}
	zlog.Debug().Msgf("audio: opened %s %dHz %dch %v", kind, format.SampleRate, format.NumChannels, src.duration)
	return src, nil
}

// encodingOf normalizes the catalog encoding, falling back to the locator's
// file extension.
func encodingOf(a track.Audio) string {
	enc := strings.ToLower(a.Encoding)
	if enc == "" {
		if u, err := url.Parse(a.URL); err == nil {
			enc = strings.TrimPrefix(strings.ToLower(path.Ext(u.Path)), ".")
		}
	}

	switch enc {
	case "mp3", "mpeg":
		return "mp3"
	case "flac":
		return "flac"
	case "ogg", "oga", "vorbis":
		return "ogg"
	case "wav", "wave":
		return "wav"
	default:
		return ""
	}
}

// beepSource adapts a beep streamer to Source.
type beepSource struct {
	streamer beep.StreamSeekCloser
	format   beep.Format
	duration time.Duration
	buf      [][2]float64
	pos      int
	err      error
}

func (s *beepSource) Next() (Chunk, bool) {
	if s.err != nil {
		return Chunk{}, false
	}

	n, ok := s.streamer.Stream(s.buf)
	if !ok || n == 0 {
		s.err = s.streamer.Err()
		return Chunk{}, false
	}

	samples := make([][2]float64, n)
	copy(samples, s.buf[:n])
	chunk := Chunk{Samples: samples, Timestamp: s.format.SampleRate.D(s.pos)}
	s.pos += n
	return chunk, true
}

func (s *beepSource) Err() error {
	return s.err
}

func (s *beepSource) Duration() time.Duration {
	return s.duration
}

func (s *beepSource) Format() Format {
	return Format{
		SampleRate:  int(s.format.SampleRate),
		NumChannels: s.format.NumChannels,
		Precision:   s.format.Precision,
	}
}

func (s *beepSource) Close() error {
	return s.streamer.Close()
}
