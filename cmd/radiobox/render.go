package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/osa030/radiobox/internal/app/notification"
	"github.com/osa030/radiobox/internal/app/playback"
	"github.com/osa030/radiobox/internal/domain/station"
	"github.com/osa030/radiobox/internal/domain/track"
)

// renderer prints player statuses as console lines.
type renderer struct {
	mu     sync.Mutex
	out    io.Writer
	last   string // ID of the last track announced
	paused bool
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{out: out}
}

// Send implements notification.Stream.
func (r *renderer) Send(n *notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	line := r.format(n.Status)
	if line == "" {
		return nil
	}
	_, err := fmt.Fprintln(r.out, line)
	return err
}

func (r *renderer) format(st playback.Status) string {
	switch st.Kind {
	case playback.StatusStandby:
		r.last = ""
		return "💤 Standby (press s to pick a station, ? for help)"
	case playback.StatusStarted:
		return fmt.Sprintf("📻 Station %q", st.Station.String())
	case playback.StatusFetching:
		return "⏳ Fetching playlist..."
	case playback.StatusPlaying:
		if st.Track.ID == r.last && r.paused {
			r.paused = false
			return "▶️  Resumed"
		}
		// A repeated Playing without a pause is a report; print it again.
		r.last = st.Track.ID
		return "▶️  " + formatTrack(st.Track)
	case playback.StatusPaused:
		r.paused = true
		return "⏸  Paused"
	case playback.StatusFinished:
		r.last = ""
		r.paused = false
		return ""
	case playback.StatusStopped:
		r.last = ""
		r.paused = false
		return fmt.Sprintf("⏹  Stopped %q", st.Station.String())
	case playback.StatusError:
		if st.Err == nil {
			return "❗ Error"
		}
		if st.Err.Fatal {
			return "💥 " + st.Err.Error()
		}
		return "❗ " + st.Err.Error()
	case playback.StatusShutdown:
		return "🔚 Player shut down"
	default:
		return "❓ " + st.String()
	}
}

// formatTrack formats a track as `"Song" by "Artist" on "Album"`.
func formatTrack(t track.Track) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%q by %q", t.SongName, t.ArtistName)
	if t.AlbumName != "" {
		fmt.Fprintf(&b, " on %q", t.AlbumName)
	}
	if t.IsLoved() {
		b.WriteString(" ❤️")
	}
	if t.IsAd() {
		b.WriteString(" (ad)")
	}
	return b.String()
}

// formatProgress formats a position as "m:ss / m:ss".
func formatProgress(p *playback.Progress) string {
	if p == nil {
		return "-"
	}
	return formatDuration(p.Elapsed) + " / " + formatDuration(p.Total)
}

func formatDuration(d time.Duration) string {
	s := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

// stationFlags returns the short flag column shown in station lists.
func stationFlags(st station.Station) string {
	var flags []string
	if st.QuickMix {
		flags = append(flags, "quickmix")
	}
	if !st.AllowRename {
		flags = append(flags, "no-rename")
	}
	if !st.AllowDelete {
		flags = append(flags, "no-delete")
	}
	return strings.Join(flags, ",")
}
