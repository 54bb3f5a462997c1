package audio

import "time"

// NullOutput discards audio. With Realtime set, Play sleeps for the chunk's
// duration so playback advances at wall-clock speed without a device.
type NullOutput struct {
	Realtime bool
}

// Init is a no-op.
func (o *NullOutput) Init() error {
	return nil
}

// Open returns a discarding sink.
func (o *NullOutput) Open(f Format) (Sink, error) {
	return &nullSink{format: f, realtime: o.Realtime}, nil
}

type nullSink struct {
	format   Format
	realtime bool
}

func (s *nullSink) Play(c Chunk) error {
	if s.realtime {
		time.Sleep(c.Duration(s.format.SampleRate))
	}
	return nil
}

func (s *nullSink) SetPaused(bool) {}

func (s *nullSink) Drain() {}

func (s *nullSink) Close() error {
	return nil
}
