// Package main provides the authorization tool. It obtains the Spotify
// refresh token the spotify catalog needs and the Last.fm session key used
// for scrobbling.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/osa030/radiobox/internal/infra/lastfm"
	"github.com/osa030/radiobox/internal/infra/logger"
	"github.com/osa030/radiobox/internal/infra/spotify"
)

const state = "radiobox-auth-state"

var (
	app = kingpin.New("radiobox-auth", "Authorization tool for radiobox")

	spotifyCmd   = app.Command("spotify", "Obtain a Spotify refresh token (default)").Default()
	clientID     = spotifyCmd.Flag("client-id", "Spotify Client ID").Envar("SPOTIFY_CLIENT_ID").Required().String()
	clientSecret = spotifyCmd.Flag("client-secret", "Spotify Client Secret").Envar("SPOTIFY_CLIENT_SECRET").Required().String()
	port         = spotifyCmd.Flag("port", "Callback server port").Default("8888").Int()

	lastfmCmd    = app.Command("lastfm", "Obtain a Last.fm session key for scrobbling")
	lastfmKey    = lastfmCmd.Flag("api-key", "Last.fm API key").Envar("LASTFM_API_KEY").Required().String()
	lastfmSecret = lastfmCmd.Flag("api-secret", "Last.fm API secret").Envar("LASTFM_API_SECRET").Required().String()
)

const donePage = `<!DOCTYPE html>
<html>
<head><title>radiobox - Authorization Complete</title></head>
<body style="font-family: sans-serif; text-align: center; padding-top: 20vh;">
<h1>Authorization Complete</h1>
<p>You can close this window and return to the terminal.</p>
</body>
</html>
`

func main() {
	_ = godotenv.Load()
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if err := logger.Init(logger.Config{Output: "stderr", Level: "info"}); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch command {
	case spotifyCmd.FullCommand():
		err = runSpotify(ctx)
	case lastfmCmd.FullCommand():
		err = runLastFM(ctx)
	}
	if err != nil {
		zlog.Error().Err(err).Msg("Authorization failed")
		stop()
		os.Exit(1)
	}
}

func runSpotify(ctx context.Context) error {
	token, err := authorize(ctx)
	if err != nil {
		return err
	}

	fmt.Println("")
	fmt.Println("=== Authorization Successful ===")
	fmt.Println("")
	fmt.Println("Add this to your config.yaml:")
	fmt.Println("")
	fmt.Println("catalog:")
	fmt.Println("  type: spotify")
	fmt.Println("  settings:")
	fmt.Printf("    client_id: %q\n", *clientID)
	fmt.Printf("    refresh_token: %q\n", token.RefreshToken)
	fmt.Println("")
	fmt.Println("Or set as environment variable:")
	fmt.Printf("export SPOTIFY_REFRESH_TOKEN=%q\n", token.RefreshToken)
	return nil
}

// runLastFM runs the Last.fm desktop auth flow: the user approves a token in
// the browser, then confirms here and the token is exchanged for a session.
func runLastFM(ctx context.Context) error {
	scrobbler := lastfm.NewScrobbler(*lastfmKey, *lastfmSecret, "")
	token, err := scrobbler.Token()
	if err != nil {
		return err
	}

	fmt.Println("Please visit the following URL to authorize radiobox:")
	fmt.Println("")
	fmt.Println(scrobbler.AuthURL(token))
	fmt.Println("")
	fmt.Println("Press Enter once you have granted access...")

	confirmed := make(chan struct{})
	go func() {
		_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
		close(confirmed)
	}()
	select {
	case <-confirmed:
	case <-ctx.Done():
		return ctx.Err()
	}

	sessionKey, username, err := scrobbler.Session(token)
	if err != nil {
		return err
	}

	fmt.Println("")
	fmt.Printf("=== Authorized as %s ===\n", username)
	fmt.Println("")
	fmt.Println("Add this to your config.yaml:")
	fmt.Println("")
	fmt.Println("lastfm:")
	fmt.Printf("  api_key: %q\n", *lastfmKey)
	fmt.Printf("  session_key: %q\n", sessionKey)
	fmt.Println("  scrobble: true")
	fmt.Println("")
	fmt.Println("Or set as environment variable:")
	fmt.Printf("export LASTFM_SESSION_KEY=%q\n", sessionKey)
	return nil
}

// authorize prints the consent URL and waits for the callback to deliver a
// token.
func authorize(ctx context.Context) (*oauth2.Token, error) {
	auth := spotifyauth.New(
		spotifyauth.WithRedirectURL(fmt.Sprintf("http://127.0.0.1:%d/callback", *port)),
		spotifyauth.WithClientID(*clientID),
		spotifyauth.WithClientSecret(*clientSecret),
		spotifyauth.WithScopes(spotify.Scopes...),
	)

	tokens := make(chan *oauth2.Token, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if st := r.FormValue("state"); st != state {
			http.Error(w, "State mismatch", http.StatusForbidden)
			zlog.Warn().Msgf("State mismatch: %s != %s", st, state)
			return
		}
		token, err := auth.Token(r.Context(), state, r)
		if err != nil {
			http.Error(w, "Failed to get token", http.StatusForbidden)
			zlog.Warn().Err(err).Msg("Failed to get token")
			return
		}
		fmt.Fprint(w, donePage)
		select {
		case tokens <- token:
		default:
		}
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", *port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zlog.Warn().Err(err).Msg("Failed to shutdown server")
		}
	}()

	fmt.Println("Please visit the following URL to authorize radiobox:")
	fmt.Println("")
	fmt.Println(auth.AuthURL(state))
	fmt.Println("")
	fmt.Println("Waiting for authorization...")

	select {
	case token := <-tokens:
		return token, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
