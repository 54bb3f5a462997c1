package lastfm

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	lfm "github.com/shkh/lastfm-go/lastfm"

	"github.com/osa030/radiobox/internal/domain/track"
)

// ErrNotAuthenticated is returned when an operation requires a session key.
var ErrNotAuthenticated = errors.New("last.fm: not authenticated")

// Scrobbler submits plays to a user's Last.fm profile.
type Scrobbler struct {
	api        *lfm.Api
	apiKey     string
	sessionKey string
}

// NewScrobbler creates a scrobbler. sessionKey may be empty while
// authorizing; see Token and Session.
func NewScrobbler(apiKey, apiSecret, sessionKey string) *Scrobbler {
	s := &Scrobbler{
		api:    lfm.New(apiKey, apiSecret),
		apiKey: apiKey,
	}
	if sessionKey != "" {
		s.sessionKey = sessionKey
		s.api.SetSession(sessionKey)
	}
	return s
}

// Token requests an authorization token for the desktop auth flow.
func (s *Scrobbler) Token() (string, error) {
	token, err := s.api.GetToken()
	if err != nil {
		return "", errors.Wrap(err, "failed to get token")
	}
	return token, nil
}

// AuthURL returns the page where the user grants access to token.
func (s *Scrobbler) AuthURL(token string) string {
	return fmt.Sprintf("https://www.last.fm/api/auth/?api_key=%s&token=%s", s.apiKey, token)
}

// Session exchanges an authorized token for a session key and returns the
// key with the user name.
func (s *Scrobbler) Session(token string) (sessionKey, username string, err error) {
	if err := s.api.LoginWithToken(token); err != nil {
		return "", "", errors.Wrap(err, "failed to get session")
	}
	s.sessionKey = s.api.GetSessionKey()

	info, err := s.api.User.GetInfo(nil)
	if err != nil {
		// The session is valid; the name is only informational.
		return s.sessionKey, "", nil
	}
	return s.sessionKey, info.Name, nil
}

// NowPlaying sends a "now playing" notification for t.
func (s *Scrobbler) NowPlaying(t track.Track) error {
	if s.sessionKey == "" {
		return ErrNotAuthenticated
	}
	if _, err := s.api.Track.UpdateNowPlaying(trackParams(t)); err != nil {
		return errors.Wrap(err, "failed to update now playing")
	}
	return nil
}

// Scrobble submits a play of t that started at startedAt.
func (s *Scrobbler) Scrobble(t track.Track, startedAt time.Time) error {
	if s.sessionKey == "" {
		return ErrNotAuthenticated
	}
	params := trackParams(t)
	params["timestamp"] = startedAt.Unix()
	if _, err := s.api.Track.Scrobble(params); err != nil {
		return errors.Wrap(err, "failed to scrobble")
	}
	return nil
}

func trackParams(t track.Track) lfm.P {
	params := lfm.P{
		"artist": t.ArtistName,
		"track":  t.SongName,
	}
	if t.AlbumName != "" {
		params["album"] = t.AlbumName
	}
	if t.Duration > 0 {
		params["duration"] = int(t.Duration.Seconds())
	}
	return params
}
