package pandora

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/radiobox/internal/domain/station"
	"github.com/osa030/radiobox/internal/domain/track"
)

func TestCrypt(t *testing.T) {
	key := "6#26FRL$ZWD"

	for _, in := range []string{"", "a", "12345678", `{"username":"android","version":"5"}`} {
		enc, err := encrypt(key, in)
		require.NoError(t, err)
		assert.Equal(t, 0, len(enc)%16, "hex output is whole blocks")

		dec, err := decrypt(key, enc)
		require.NoError(t, err)
		assert.Equal(t, in, string(dec))
	}

	_, err := decrypt(key, "zz")
	assert.Error(t, err)
	_, err = decrypt(key, "abcd")
	assert.Error(t, err)
}

func TestDecryptSyncTime(t *testing.T) {
	key := "R=U!LH$O2B#"

	enc, err := encrypt(key, "\x01\x02\x03\x041700000000")
	require.NoError(t, err)
	got, err := decryptSyncTime(key, enc)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), got)

	enc, err = encrypt(key, "abc")
	require.NoError(t, err)
	_, err = decryptSyncTime(key, enc)
	assert.Error(t, err)
}

// fakeTuner emulates the JSON API endpoint.
type fakeTuner struct {
	t       *testing.T
	partner Partner

	mu        sync.Mutex
	calls     map[string]int
	bodies    map[string]map[string]any
	failures  map[string]int // method -> remaining invalid token failures
	tokenGen  int
	userToken string
}

func newFakeTuner(t *testing.T) (*fakeTuner, *Client) {
	f := &fakeTuner{
		t:        t,
		calls:    make(map[string]int),
		bodies:   make(map[string]map[string]any),
		failures: make(map[string]int),
	}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)

	c, err := New(Config{Username: "user@example.com", Password: "secret", Endpoint: srv.URL + "/"})
	require.NoError(t, err)
	f.partner = c.cfg.Partner
	return f, c
}

func (f *fakeTuner) reply(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"stat": "ok", "result": result})
}

func (f *fakeTuner) fail(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"stat": "fail", "code": code, "message": msg})
}

func (f *fakeTuner) serve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	method := q.Get("method")
	raw, err := io.ReadAll(r.Body)
	require.NoError(f.t, err)

	if method != methodPartnerLogin {
		dec, err := decrypt(f.partner.EncryptKey, string(raw))
		require.NoError(f.t, err, method)
		raw = dec
	}
	var body map[string]any
	require.NoError(f.t, json.Unmarshal(raw, &body), method)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
	f.bodies[method] = body

	switch method {
	case methodPartnerLogin:
		assert.Equal(f.t, "android", body["username"])
		syncTime, err := encrypt(f.partner.DecryptKey, "\x00\x00\x00\x001700000000")
		require.NoError(f.t, err)
		f.reply(w, map[string]any{"partnerId": "42", "partnerAuthToken": "ptok", "syncTime": syncTime})
		return

	case methodUserLogin:
		assert.Equal(f.t, "ptok", q.Get("auth_token"))
		assert.Equal(f.t, "42", q.Get("partner_id"))
		assert.Equal(f.t, "ptok", body["partnerAuthToken"])
		assert.EqualValues(f.t, 1700000000, body["syncTime"])
		if body["password"] != "secret" {
			f.fail(w, 1002, "INVALID_LOGIN")
			return
		}
		f.tokenGen++
		f.userToken = "utok" + string(rune('0'+f.tokenGen))
		f.reply(w, map[string]any{"userId": "u1", "userAuthToken": f.userToken})
		return
	}

	if q.Get("auth_token") != f.userToken || body["userAuthToken"] != f.userToken || q.Get("user_id") != "u1" {
		f.fail(w, 1001, "INVALID_AUTH_TOKEN")
		return
	}
	if f.failures[method] > 0 {
		f.failures[method]--
		f.fail(w, 1001, "INVALID_AUTH_TOKEN")
		return
	}

	switch method {
	case "user.getStationList":
		f.reply(w, map[string]any{
			"stations": []map[string]any{
				{"stationId": "1", "stationToken": "st1", "stationName": "QuickMix", "isQuickMix": true},
				{"stationId": "2", "stationToken": "st2", "stationName": "Jazz", "allowRename": true, "allowDelete": true},
			},
		})
	case "station.getPlaylist":
		assert.Equal(f.t, "st2", body["stationToken"])
		f.reply(w, map[string]any{
			"items": []map[string]any{
				{"adToken": "ad1"},
				{
					"trackToken": "tt1", "songName": "So What", "artistName": "Miles Davis",
					"albumName": "Kind of Blue", "songRating": 1, "trackLength": 545,
					"audioUrlMap": map[string]any{
						"highQuality":   map[string]any{"bitrate": "64", "encoding": "aacplus", "audioUrl": "http://a/high", "protocol": "http"},
						"mediumQuality": map[string]any{"bitrate": "64", "encoding": "aacplus", "audioUrl": "http://a/med", "protocol": "http"},
						"lowQuality":    map[string]any{"bitrate": "32", "encoding": "aacplus", "audioUrl": "", "protocol": "http"},
					},
				},
			},
		})
	case "station.addFeedback", "station.renameStation", "station.deleteStation":
		f.reply(w, map[string]any{})
	case "music.search":
		f.reply(w, map[string]any{
			"songs":   []map[string]any{{"songName": "Blue in Green", "artistName": "Bill Evans", "musicToken": "S1", "score": 80}},
			"artists": []map[string]any{{"artistName": "Miles Davis", "musicToken": "R1", "score": 100}},
		})
	case "station.createStation":
		f.reply(w, map[string]any{"stationToken": "st3", "stationName": "Miles Davis Radio", "allowRename": true})
	default:
		f.fail(w, 0, "unknown method")
	}
}

func TestClient_Stations(t *testing.T) {
	f, c := newFakeTuner(t)

	stations, err := c.Stations(context.Background())
	require.NoError(t, err)
	require.Len(t, stations, 2)
	assert.Equal(t, station.Station{ID: "st1", Name: "QuickMix", QuickMix: true}, stations[0])
	assert.Equal(t, station.Station{ID: "st2", Name: "Jazz", AllowRename: true, AllowDelete: true}, stations[1])

	assert.Equal(t, 1, f.calls[methodPartnerLogin])
	assert.Equal(t, 1, f.calls[methodUserLogin])

	// The session is reused.
	_, err = c.Stations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.calls[methodUserLogin])
}

func TestClient_List(t *testing.T) {
	_, c := newFakeTuner(t)

	tracks, err := c.List(context.Background(), station.Station{ID: "st2"})
	require.NoError(t, err)
	require.Len(t, tracks, 2)

	assert.True(t, tracks[0].IsAd())
	assert.False(t, tracks[0].HasAudio())

	so := tracks[1]
	assert.Equal(t, "tt1", so.ID)
	assert.Equal(t, "So What - Miles Davis", so.Title())
	assert.True(t, so.IsLoved())
	assert.Equal(t, 545, int(so.Duration.Seconds()))

	a, ok := so.Locator(track.QualityLow)
	require.True(t, ok)
	assert.Equal(t, "http://a/med", a.URL, "empty low rendition falls back to medium")
	assert.Nil(t, so.Audio.Low)
}

func TestClient_Mutations(t *testing.T) {
	f, c := newFakeTuner(t)
	ctx := context.Background()
	jazz := station.Station{ID: "st2", Name: "Jazz"}

	require.NoError(t, c.Rate(ctx, jazz, track.Track{ID: "tt1"}, false))
	assert.Equal(t, false, f.bodies["station.addFeedback"]["isPositive"])
	assert.Equal(t, "tt1", f.bodies["station.addFeedback"]["trackToken"])
	assert.Error(t, c.Rate(ctx, jazz, track.Track{AdToken: "ad"}, true))

	require.NoError(t, c.Rename(ctx, jazz, "Cool Jazz"))
	assert.Equal(t, "Cool Jazz", f.bodies["station.renameStation"]["stationName"])

	require.NoError(t, c.Delete(ctx, jazz))
	assert.Equal(t, "st2", f.bodies["station.deleteStation"]["stationToken"])

	st, err := c.Create(ctx, "miles")
	require.NoError(t, err)
	assert.Equal(t, "st3", st.ID)
	assert.Equal(t, "R1", f.bodies["station.createStation"]["musicToken"], "highest score wins")
}

func TestClient_RelogsInOnce(t *testing.T) {
	f, c := newFakeTuner(t)
	ctx := context.Background()

	f.failures["user.getStationList"] = 1
	_, err := c.Stations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, f.calls[methodUserLogin])
	assert.Equal(t, 2, f.calls["user.getStationList"])

	f.failures["user.getStationList"] = 2
	_, err = c.Stations(ctx)
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 1001, apiErr.Code)
	assert.Equal(t, 3, f.calls[methodUserLogin])
}

func TestClient_BadCredentials(t *testing.T) {
	_, c := newFakeTuner(t)
	c.cfg.Password = "wrong"

	_, err := c.Stations(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAuth))
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Username: "u"})
	assert.Error(t, err)

	c, err := New(Config{Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.Equal(t, "android", c.cfg.Partner.Username)
	assert.Equal(t, "https://tuner.pandora.com/services/json/", c.cfg.Endpoint)
}
