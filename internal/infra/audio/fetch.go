package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// httpStatusError is returned when a locator responds with a non-200 status.
type httpStatusError struct {
	StatusCode int
	Status     string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("audio locator returned status %d: %s", e.StatusCode, e.Status)
}

// fetcher loads a locator into memory. Remote and local locators are both
// accepted so that static catalogs can point at files on disk.
type fetcher struct {
	client   *http.Client
	maxBytes int64
}

func newFetcher(timeout time.Duration, maxBytes int64) *fetcher {
	return &fetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
	}
}

// fetch returns the full payload for locator.
func (f *fetcher) fetch(ctx context.Context, locator string) ([]byte, error) {
	u, err := url.Parse(locator)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Bare path (a single-letter scheme is a Windows drive).
		return f.readFile(locator)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		return f.readFile(u.Path)
	case "http", "https":
		return f.get(ctx, locator)
	default:
		return nil, errors.Newf("unsupported locator scheme %q", u.Scheme)
	}
}

func (f *fetcher) readFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open audio file")
	}
	defer file.Close()

	return f.readAll(file)
}

func (f *fetcher) get(ctx context.Context, locator string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch audio")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &httpStatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if f.maxBytes > 0 && resp.ContentLength > f.maxBytes {
		return nil, errors.Wrapf(ErrTooLarge, "content length %d", resp.ContentLength)
	}

	zlog.Debug().Msgf("audio: fetching %s (%d bytes)", locator, resp.ContentLength)
	return f.readAll(resp.Body)
}

func (f *fetcher) readAll(r io.Reader) ([]byte, error) {
	if f.maxBytes <= 0 {
		return io.ReadAll(r)
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read audio")
	}
	if n > f.maxBytes {
		return nil, ErrTooLarge
	}
	return buf.Bytes(), nil
}
