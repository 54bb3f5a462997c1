package pandora

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/osa030/radiobox/internal/domain/station"
	"github.com/osa030/radiobox/internal/domain/track"
)

// APIError is a "fail" response from the service.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pandora API error %d: %s", e.Code, e.Message)
}

// codeInvalidLogin is returned for a wrong username or password.
const codeInvalidLogin = 1002

type response struct {
	Stat    string          `json:"stat"`
	Result  json.RawMessage `json:"result"`
	Message string          `json:"message"`
	Code    int             `json:"code"`
}

type partnerLoginRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DeviceModel string `json:"deviceModel"`
	Version     string `json:"version"`
}

type partnerLoginResult struct {
	PartnerID        string `json:"partnerId"`
	PartnerAuthToken string `json:"partnerAuthToken"`
	SyncTime         string `json:"syncTime"`
}

type userLoginRequest struct {
	LoginType string `json:"loginType"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

type userLoginResult struct {
	UserID        string `json:"userId"`
	UserAuthToken string `json:"userAuthToken"`
}

type stationJSON struct {
	StationID    string `json:"stationId"`
	StationToken string `json:"stationToken"`
	StationName  string `json:"stationName"`
	ArtURL       string `json:"artUrl"`
	IsQuickMix   bool   `json:"isQuickMix"`
	AllowRename  bool   `json:"allowRename"`
	AllowDelete  bool   `json:"allowDelete"`
}

func (s stationJSON) toStation() station.Station {
	id := s.StationToken
	if id == "" {
		id = s.StationID
	}
	return station.Station{
		ID:          id,
		Name:        s.StationName,
		ArtURL:      s.ArtURL,
		QuickMix:    s.IsQuickMix,
		AllowRename: s.AllowRename,
		AllowDelete: s.AllowDelete,
	}
}

type stationListResult struct {
	Stations []stationJSON `json:"stations"`
	Checksum string        `json:"checksum"`
}

type audioJSON struct {
	Bitrate  string `json:"bitrate"`
	Encoding string `json:"encoding"`
	AudioURL string `json:"audioUrl"`
	Protocol string `json:"protocol"`
}

func (a *audioJSON) toAudio() *track.Audio {
	if a == nil || a.AudioURL == "" {
		return nil
	}
	return &track.Audio{
		URL:      a.AudioURL,
		Encoding: a.Encoding,
		Bitrate:  a.Bitrate,
		Protocol: a.Protocol,
	}
}

type trackJSON struct {
	TrackToken  string `json:"trackToken"`
	ArtistName  string `json:"artistName"`
	AlbumName   string `json:"albumName"`
	SongName    string `json:"songName"`
	SongRating  int    `json:"songRating"`
	AlbumArtURL string `json:"albumArtUrl"`
	TrackLength int    `json:"trackLength"` // seconds
	AudioURLMap *struct {
		High   *audioJSON `json:"highQuality"`
		Medium *audioJSON `json:"mediumQuality"`
		Low    *audioJSON `json:"lowQuality"`
	} `json:"audioUrlMap"`
	AdToken string `json:"adToken"`
}

func (t trackJSON) toTrack() track.Track {
	out := track.Track{
		ID:          t.TrackToken,
		SongName:    t.SongName,
		ArtistName:  t.ArtistName,
		AlbumName:   t.AlbumName,
		AlbumArtURL: t.AlbumArtURL,
		Duration:    time.Duration(t.TrackLength) * time.Second,
		AdToken:     t.AdToken,
	}
	if t.SongRating != 0 {
		r := t.SongRating
		out.Rating = &r
	}
	if m := t.AudioURLMap; m != nil {
		out.Audio = &track.AudioSet{
			High:   m.High.toAudio(),
			Medium: m.Medium.toAudio(),
			Low:    m.Low.toAudio(),
		}
	}
	return out
}

type playlistResult struct {
	Items []trackJSON `json:"items"`
}

type searchResult struct {
	Songs []struct {
		SongName   string `json:"songName"`
		ArtistName string `json:"artistName"`
		MusicToken string `json:"musicToken"`
		Score      int    `json:"score"`
	} `json:"songs"`
	Artists []struct {
		ArtistName  string `json:"artistName"`
		MusicToken  string `json:"musicToken"`
		LikelyMatch bool   `json:"likelyMatch"`
		Score       int    `json:"score"`
	} `json:"artists"`
}

// Match is a search hit that can seed a station.
type Match struct {
	Name       string // "Song - Artist" or artist name
	MusicToken string
	Score      int
}
