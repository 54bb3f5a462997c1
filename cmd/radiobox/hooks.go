package main

import (
	"io"
	"os"
	"os/exec"
	"sync"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/radiobox/internal/app/notification"
	"github.com/osa030/radiobox/internal/app/playback"
	"github.com/osa030/radiobox/internal/domain/station"
	"github.com/osa030/radiobox/internal/domain/track"
)

// executeHooks runs a list of shell commands with env appended to the
// process environment.
func executeHooks(hooks []string, stage string, env []string, out io.Writer) {
	if len(hooks) == 0 {
		return
	}

	zlog.Info().Msgf("Executing %s hooks (%d commands)", stage, len(hooks))

	for _, hook := range hooks {
		zlog.Info().Msgf("Executing hook: %s", hook)
		// Use sh -c to allow shell features like redirection or pipes
		cmd := exec.Command("sh", "-c", hook)
		cmd.Env = append(os.Environ(), env...)
		cmd.Stdout = out
		cmd.Stderr = out

		if err := cmd.Run(); err != nil {
			zlog.Error().Err(err).Msgf("Failed to execute hook: %s", hook)
		}
	}
}

// trackEnv returns the variables passed to on_track hooks.
func trackEnv(st station.Station, t track.Track) []string {
	return []string{
		"RADIOBOX_STATION=" + st.String(),
		"RADIOBOX_STATION_ID=" + st.ID,
		"RADIOBOX_TRACK=" + t.Title(),
		"RADIOBOX_TRACK_ID=" + t.ID,
		"RADIOBOX_SONG=" + t.SongName,
		"RADIOBOX_ARTIST=" + t.ArtistName,
		"RADIOBOX_ALBUM=" + t.AlbumName,
		"RADIOBOX_ALBUM_ART=" + t.AlbumArtURL,
	}
}

// trackHooks is a notification stream running on_track hooks once per
// track, when it starts playing. Resuming from pause does not fire.
type trackHooks struct {
	hooks []string
	out   io.Writer
	run   func(hooks []string, stage string, env []string, out io.Writer)

	mu      sync.Mutex
	station station.Station
	last    string
}

func newTrackHooks(hooks []string, out io.Writer) *trackHooks {
	return &trackHooks{hooks: hooks, out: out, run: executeHooks}
}

// Send implements notification.Stream.
func (h *trackHooks) Send(n *notification.Notification) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	st := n.Status
	switch st.Kind {
	case playback.StatusStarted:
		h.station = st.Station
		h.last = ""
	case playback.StatusFinished, playback.StatusStopped, playback.StatusStandby:
		h.last = ""
	case playback.StatusPlaying:
		if st.Track.ID == h.last {
			return nil
		}
		h.last = st.Track.ID
		// Hooks may be slow; the manager would time the send out.
		go h.run(h.hooks, "on_track", trackEnv(h.station, st.Track), h.out)
	}
	return nil
}
