// Package pandora provides a client for the Pandora JSON API.
package pandora

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	zlog "github.com/rs/zerolog/log"
)

// ErrAuth is returned when the account credentials are rejected.
var ErrAuth = errors.New("pandora: authentication failed")

const (
	methodPartnerLogin = "auth.partnerLogin"
	methodUserLogin    = "auth.userLogin"
)

// Partner holds the device credentials the service hands out to client
// vendors. The defaults are the public Android partner.
type Partner struct {
	Username    string `yaml:"username" mapstructure:"username" default:"android"`
	Password    string `yaml:"password" mapstructure:"password" default:"AC7IBG09A3DTSYM4R41UJWL07VLN8JI7"`
	DeviceModel string `yaml:"device_model" mapstructure:"device_model" default:"android-generic"`
	Version     string `yaml:"version" mapstructure:"version" default:"5"`
	EncryptKey  string `yaml:"encrypt_key" mapstructure:"encrypt_key" default:"6#26FRL$ZWD"`
	DecryptKey  string `yaml:"decrypt_key" mapstructure:"decrypt_key" default:"R=U!LH$O2B#"`
}

// Config represents Pandora client configuration.
type Config struct {
	Username   string  `yaml:"username" mapstructure:"username" validate:"required"`
	Password   string  `yaml:"password" mapstructure:"password" validate:"required"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint" default:"https://tuner.pandora.com/services/json/" validate:"url"`
	TimeoutSec int     `yaml:"timeout_sec" mapstructure:"timeout_sec" default:"10" validate:"gte=1"`
	Partner    Partner `yaml:"partner" mapstructure:"partner"`
}

type session struct {
	partnerID    string
	partnerToken string
	userID       string
	userToken    string
	syncTime     int64
	syncedAt     time.Time
}

// serverTime returns the service clock, advanced by the time elapsed since
// login.
func (s *session) serverTime(now time.Time) int64 {
	return s.syncTime + int64(now.Sub(s.syncedAt)/time.Second)
}

// Client is a Pandora API client. Login happens lazily on the first call
// and is repeated once whenever a call fails.
type Client struct {
	cfg        Config
	httpClient *http.Client
	now        func() time.Time

	mu   sync.Mutex
	sess *session
}

// New creates a new Pandora client.
func New(cfg Config) (*Client, error) {
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid pandora config")
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
		now:        time.Now,
	}, nil
}

// Login authenticates the partner and the user.
func (c *Client) Login(ctx context.Context) error {
	_, err := c.login(ctx)
	return err
}

func (c *Client) login(ctx context.Context) (*session, error) {
	p := c.cfg.Partner

	var pl partnerLoginResult
	err := c.do(ctx, nil, methodPartnerLogin, map[string]any{
		"username":    p.Username,
		"password":    p.Password,
		"deviceModel": p.DeviceModel,
		"version":     p.Version,
	}, &pl)
	if err != nil {
		return nil, errors.Wrap(err, "partner login failed")
	}

	syncTime, err := decryptSyncTime(p.DecryptKey, pl.SyncTime)
	if err != nil {
		return nil, errors.Wrap(err, "partner login failed")
	}

	sess := &session{
		partnerID:    pl.PartnerID,
		partnerToken: pl.PartnerAuthToken,
		syncTime:     syncTime,
		syncedAt:     c.now(),
	}

	var ul userLoginResult
	err = c.do(ctx, sess, methodUserLogin, map[string]any{
		"loginType": "user",
		"username":  c.cfg.Username,
		"password":  c.cfg.Password,
	}, &ul)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code == codeInvalidLogin {
			return nil, errors.Mark(errors.Wrap(err, "user login failed"), ErrAuth)
		}
		return nil, errors.Wrap(err, "user login failed")
	}
	sess.userID = ul.UserID
	sess.userToken = ul.UserAuthToken

	c.mu.Lock()
	c.sess = sess
	c.mu.Unlock()

	zlog.Debug().Msgf("pandora: logged in as %s", c.cfg.Username)
	return sess, nil
}

// call invokes method, logging in first if needed. A failed call triggers
// one fresh login and a retry; if the login fails the first error is
// returned.
func (c *Client) call(ctx context.Context, method string, body map[string]any, out any) error {
	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()

	if sess == nil {
		var err error
		if sess, err = c.login(ctx); err != nil {
			return err
		}
	}

	err := c.do(ctx, sess, method, body, out)
	if err == nil || ctx.Err() != nil {
		return err
	}

	zlog.Debug().Err(err).Msgf("pandora: %s failed, logging in again", method)
	sess, lerr := c.login(ctx)
	if lerr != nil {
		zlog.Warn().Err(lerr).Msg("pandora: re-login failed")
		return err
	}
	return c.do(ctx, sess, method, body, out)
}

// do sends one request. Everything but the partner login is encrypted.
func (c *Client) do(ctx context.Context, sess *session, method string, body map[string]any, out any) error {
	params := url.Values{}
	params.Set("method", method)

	payload := make(map[string]any, len(body)+2)
	for k, v := range body {
		payload[k] = v
	}
	if sess != nil {
		payload["syncTime"] = sess.serverTime(c.now())
		if sess.userToken != "" {
			params.Set("auth_token", sess.userToken)
			payload["userAuthToken"] = sess.userToken
		} else {
			params.Set("auth_token", sess.partnerToken)
			payload["partnerAuthToken"] = sess.partnerToken
		}
		params.Set("partner_id", sess.partnerID)
		if sess.userID != "" {
			params.Set("user_id", sess.userID)
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "failed to encode request")
	}
	reqBody := string(raw)
	if method != methodPartnerLogin {
		if reqBody, err = encrypt(c.cfg.Partner.EncryptKey, reqBody); err != nil {
			return err
		}
	}

	reqURL := c.cfg.Endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewBufferString(reqBody))
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Newf("%s: unexpected status %d", method, resp.StatusCode)
	}

	var r response
	if err := json.Unmarshal(data, &r); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	if r.Stat != "ok" {
		return &APIError{Code: r.Code, Message: r.Message}
	}
	if out == nil || len(r.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Result, out); err != nil {
		return errors.Wrapf(err, "failed to parse %s result", method)
	}
	return nil
}
