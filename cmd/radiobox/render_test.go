package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/radiobox/internal/app/notification"
	"github.com/osa030/radiobox/internal/app/playback"
	"github.com/osa030/radiobox/internal/domain/station"
	"github.com/osa030/radiobox/internal/domain/track"
)

func TestRenderer_Send(t *testing.T) {
	jazz := station.Station{ID: "jazz", Name: "Jazz"}
	loved := 1
	tr := track.Track{ID: "t1", SongName: "So What", ArtistName: "Miles Davis", AlbumName: "Kind of Blue", Rating: &loved}

	var out bytes.Buffer
	r := newRenderer(&out)
	statuses := []playback.Status{
		playback.Standby(),
		playback.Started(jazz),
		playback.Fetching(jazz),
		playback.Playing(tr),
		playback.Paused(tr),
		playback.Playing(tr),
		playback.Playing(tr), // report
		playback.Finished(tr),
		playback.Stopped(jazz),
		playback.Shutdown(),
	}
	for i, st := range statuses {
		require.NoError(t, r.Send(&notification.Notification{SequenceNo: uint64(i + 1), Status: st}))
	}

	want := "💤 Standby (press s to pick a station, ? for help)\n" +
		"📻 Station \"Jazz\"\n" +
		"⏳ Fetching playlist...\n" +
		"▶️  \"So What\" by \"Miles Davis\" on \"Kind of Blue\" ❤️\n" +
		"⏸  Paused\n" +
		"▶️  Resumed\n" +
		"▶️  \"So What\" by \"Miles Davis\" on \"Kind of Blue\" ❤️\n" +
		"⏹  Stopped \"Jazz\"\n" +
		"🔚 Player shut down\n"
	assert.Equal(t, want, out.String())
}

func TestRenderer_Errors(t *testing.T) {
	r := newRenderer(&bytes.Buffer{})

	line := r.format(playback.Failed(&playback.ErrorInfo{Kind: playback.ErrorDecode, Err: errors.New("bad frame")}))
	assert.Contains(t, line, "❗")
	assert.Contains(t, line, "bad frame")

	line = r.format(playback.Failed(&playback.ErrorInfo{Kind: playback.ErrorDevice, Fatal: true, Err: errors.New("no device")}))
	assert.Contains(t, line, "💥")
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{59 * time.Second, "0:59"},
		{61*time.Second + 600*time.Millisecond, "1:02"},
		{10 * time.Minute, "10:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDuration(tt.in))
	}
	assert.Equal(t, "-", formatProgress(nil))
}

func TestStationFlags(t *testing.T) {
	assert.Equal(t, "", stationFlags(station.Station{AllowRename: true, AllowDelete: true}))
	assert.Equal(t, "quickmix,no-rename,no-delete", stationFlags(station.Station{QuickMix: true}))
}
