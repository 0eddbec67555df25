// Package mastodon talks to the caller's instance: it fetches the bookmark
// list with hard size and time bounds and decodes it.
package mastodon

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/MrSnakeDoc/bookmarkrss/internal/domain"
	"github.com/MrSnakeDoc/bookmarkrss/internal/logger"
	"github.com/MrSnakeDoc/bookmarkrss/internal/utils"
)

const (
	// DefaultTimeout bounds one fetch, from request start to the last body byte.
	DefaultTimeout = 5 * time.Second
	// DefaultMaxBytes is the response body ceiling (5 MiB).
	DefaultMaxBytes int64 = 5 << 20

	bookmarksPath = "/api/v1/bookmarks"
	chunkSize     = 32 << 10
	maxRedirects  = 5
)

// Options configures a Client. Zero values select the defaults.
type Options struct {
	Timeout    time.Duration
	MaxBytes   int64
	Product    string       // User-Agent product token, ex: "bookmarkrss/v1.2.0"
	HTTPClient *http.Client // optional transport, used by tests
	Logger     logger.Logger
}

// Client fetches bookmark lists. It is safe for concurrent use and shares one
// connection pool across requests.
type Client struct {
	http     *resty.Client
	timeout  time.Duration
	maxBytes int64
	product  string
	log      logger.Logger
}

func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.Product == "" {
		opts.Product = "bookmarkrss"
	}
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}

	var rc *resty.Client
	if opts.HTTPClient != nil {
		rc = resty.NewWithClient(opts.HTTPClient)
	} else {
		rc = resty.New()
	}
	rc.SetTimeout(opts.Timeout).
		SetRetryCount(0).
		SetRedirectPolicy(sameHostRedirectPolicy()).
		SetLogger(opts.Logger)

	return &Client{
		http:     rc,
		timeout:  opts.Timeout,
		maxBytes: opts.MaxBytes,
		product:  opts.Product,
		log:      opts.Logger,
	}
}

// MaxBytes returns the configured body ceiling.
func (c *Client) MaxBytes() int64 { return c.maxBytes }

// FetchBookmarks downloads the first page of req's bookmarks and returns the raw
// body. gatewayHost is this gateway's own public host as reported by the
// inbound request; it only decorates the User-Agent.
//
// The fetch is detached from ctx cancellation: once started it runs until it
// completes, times out or exceeds the size ceiling.
func (c *Client) FetchBookmarks(ctx context.Context, req domain.FeedRequest, gatewayHost string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	url := "https://" + req.Host + bookmarksPath

	resp, err := c.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetHeader("Authorization", "Bearer "+req.Token).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", c.userAgent(gatewayHost)).
		Get(url)
	if resp != nil && resp.RawBody() != nil {
		defer utils.Close(resp.RawBody())
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamTransport, err)
	}

	if !resp.IsSuccess() {
		return nil, &domain.UpstreamStatusError{Status: resp.StatusCode()}
	}

	return readBounded(resp.RawBody(), c.maxBytes)
}

// sameHostRedirectPolicy follows redirects only while they stay on the
// instance the request started on and over https, so the bearer token is never
// sent anywhere else.
func sameHostRedirectPolicy() resty.RedirectPolicy {
	return resty.RedirectPolicyFunc(func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		origin := via[0].URL
		if req.URL.Scheme != "https" || !strings.EqualFold(req.URL.Host, origin.Host) {
			return fmt.Errorf("refusing redirect from %s to %s://%s", origin.Host, req.URL.Scheme, req.URL.Host)
		}
		return nil
	})
}

func (c *Client) userAgent(gatewayHost string) string {
	if !domain.IsHostname(gatewayHost) {
		return c.product
	}
	return fmt.Sprintf("%s (+https://%s)", c.product, gatewayHost)
}

// readBounded reads body chunk by chunk and fails as soon as the running total
// would exceed limit. At most limit+chunkSize bytes are held at any time.
func readBounded(body io.Reader, limit int64) ([]byte, error) {
	if body == nil {
		return nil, fmt.Errorf("%w: empty response body", domain.ErrUpstreamTransport)
	}

	var acc bytes.Buffer
	chunk := make([]byte, chunkSize)

	for {
		n, err := body.Read(chunk)
		if n > 0 {
			if int64(acc.Len())+int64(n) > limit {
				return nil, fmt.Errorf("%w: exceeded %d bytes", domain.ErrUpstreamTooLarge, limit)
			}
			acc.Write(chunk[:n])
		}
		if errors.Is(err, io.EOF) {
			return acc.Bytes(), nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading body: %w", domain.ErrUpstreamTransport, err)
		}
	}
}
