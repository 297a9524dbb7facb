package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const maxRedirects = 10

// Remote is a RangeReader backed by an HTTP(S) URL that supports byte-range
// requests. Construct it with OpenRemote, which resolves redirects and verifies
// range support before returning.
type Remote struct {
	url    string
	size   uint64
	client *http.Client
	log    *logrus.Entry

	fetched atomic.Uint64
}

// OpenRemote resolves redirects from the given URL, verifies that the
// final location supports Range requests, and returns a Remote ready for
// Read/ReadStream. client may be nil, in which case http.DefaultClient is
// used.
func OpenRemote(ctx context.Context, rawURL string, client *http.Client) (*Remote, error) {
	if client == nil {
		client = http.DefaultClient
	}
	log := logrus.WithField("component", "source.Remote")

	resolved, resp, err := followRedirects(ctx, client, rawURL, log)
	if err != nil {
		return nil, errors.Wrap(ErrSourceUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Wrapf(ErrSourceUnavailable, "HEAD %s: unexpected status %s", resolved, resp.Status)
	}

	r := &Remote{url: resolved, client: client, log: log}

	if !acceptsRangesHeader(resp.Header) {
		log.WithField("url", resolved).Debug("no Accept-Ranges header, probing with bytes=0-0")
		if err := r.probeRangeSupport(ctx); err != nil {
			return nil, errors.Wrap(ErrSourceUnavailable, err.Error())
		}
	}

	size := resp.ContentLength
	if size <= 0 {
		return nil, errors.Wrapf(ErrSourceUnavailable, "could not determine length of %s", resolved)
	}
	r.size = uint64(size)

	return r, nil
}

// followRedirects issues HEAD requests, manually following 3xx responses
// (resolving relative Location values against the current URL) until a
// non-redirect response is returned.
func followRedirects(ctx context.Context, client *http.Client, rawURL string, log *logrus.Entry) (string, *http.Response, error) {
	noFollow := *client
	noFollow.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	current := rawURL
	for i := 0; i < maxRedirects; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, current, nil)
		if err != nil {
			return "", nil, fmt.Errorf("invalid URL %q: %w", current, err)
		}
		resp, err := noFollow.Do(req)
		if err != nil {
			return "", nil, fmt.Errorf("HEAD %s: %w", current, err)
		}
		if resp.StatusCode < 300 || resp.StatusCode >= 400 {
			return current, resp, nil
		}
		resp.Body.Close()

		loc := resp.Header.Get("Location")
		if loc == "" {
			return "", nil, fmt.Errorf("redirect from %s without Location header", current)
		}
		next, err := resolveLocation(current, loc)
		if err != nil {
			return "", nil, fmt.Errorf("resolving redirect Location %q: %w", loc, err)
		}
		log.WithFields(logrus.Fields{"from": current, "to": next}).Debug("following redirect")
		current = next
	}
	return "", nil, fmt.Errorf("too many redirects starting at %s", rawURL)
}

func resolveLocation(base, location string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	locURL, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(locURL).String(), nil
}

func acceptsRangesHeader(h http.Header) bool {
	return h.Get("Accept-Ranges") == "bytes"
}

// probeRangeSupport issues a GET with Range: bytes=0-0 and treats any 2xx
// response (typically 206) as proof of range support.
func (r *Remote) probeRangeSupport(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Range", "bytes=0-0")
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("probing range support on %s: %w", r.url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("probe GET %s: unexpected status %s, server does not support range requests", r.url, resp.Status)
	}
	return nil
}

func (r *Remote) Len() uint64 { return r.size }

// BytesFetched returns the running total of body bytes fetched over the
// life of this Remote, supporting the byte-budget testable properties of
// Open/Extract.
func (r *Remote) BytesFetched() uint64 { return r.fetched.Load() }

func (r *Remote) Read(ctx context.Context, offset, length uint64) ([]byte, error) {
	rc, err := r.ReadStream(ctx, offset, length)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	buf := make([]byte, length)
	n, err := io.ReadFull(rc, buf)
	if err != nil {
		return nil, errors.Wrapf(ErrShortRead, "range %d-%d: read %d of %d bytes: %v", offset, offset+length-1, n, length, err)
	}
	return buf, nil
}

func (r *Remote) ReadStream(ctx context.Context, offset, length uint64) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(ErrCancelled, err.Error())
	}
	if length == 0 {
		return io.NopCloser(http.NoBody), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return nil, errors.Wrap(ErrSourceUnavailable, err.Error())
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", offset, offset+length-1))

	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, errors.Wrap(ErrCancelled, err.Error())
		}
		return nil, fmt.Errorf("fetching range %d-%d from %s: %w", offset, offset+length-1, r.url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("fetching range %d-%d from %s: unexpected status %s", offset, offset+length-1, r.url, resp.Status)
	}

	r.log.WithFields(logrus.Fields{"offset": offset, "length": length, "status": resp.StatusCode}).Trace("fetched range")
	return &countingBody{rc: resp.Body, counter: &r.fetched}, nil
}

// countingBody tallies bytes delivered to the caller into a shared atomic
// counter, so Remote.BytesFetched reflects real transport usage.
type countingBody struct {
	rc      io.ReadCloser
	counter *atomic.Uint64
}

func (c *countingBody) Read(p []byte) (int, error) {
	n, err := c.rc.Read(p)
	if n > 0 {
		c.counter.Add(uint64(n))
	}
	return n, err
}

func (c *countingBody) Close() error { return c.rc.Close() }
