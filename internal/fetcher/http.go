package fetcher

import (
	"context"
	"crypto/tls"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/Vheissu/abn-checker/internal/config"
)

// DefaultMaxBodyBytes caps how much of a page is read.
const DefaultMaxBodyBytes = 2 << 20

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	Referer        string
	UserAgent      string
	Accept         string
	AcceptLanguage string
	Timeout        time.Duration
	VerifyTLS      bool
	Proxy          config.ProxyConfig
	MaxBodyBytes   int64
}

// OptionsFromConfig maps lookup configuration onto fetcher options.
func OptionsFromConfig(cfg config.LookupConfig) HTTPOptions {
	return HTTPOptions{
		Referer:        cfg.Referer,
		UserAgent:      cfg.UserAgent,
		Accept:         cfg.Accept,
		AcceptLanguage: cfg.AcceptLanguage,
		Timeout:        cfg.Timeout(),
		VerifyTLS:      cfg.VerifyTLS,
		Proxy:          cfg.Proxy,
	}
}

// HTTPFetcher implements PageFetcher with a single GET per call. It does not
// retry and does not follow redirects.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) (*HTTPFetcher, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "abn-checker/1.0"
	}
	if opts.MaxBodyBytes == 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: 10 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !opts.VerifyTLS, //nolint:gosec // operator opt-out
		},
	}
	if opts.Proxy.Enabled() {
		proxyURL, err := ProxyURL(opts.Proxy)
		if err != nil {
			return nil, err
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		opts: opts,
	}, nil
}

// ProxyURL builds the proxy URL from its parts. The scheme defaults to http.
func ProxyURL(p config.ProxyConfig) (*url.URL, error) {
	scheme := p.Scheme
	if scheme == "" {
		scheme = "http"
	}
	addr := p.Address
	if i := strings.Index(addr, "://"); i >= 0 {
		addr = addr[i+3:]
	}
	if addr == "" {
		return nil, eris.New("fetcher: proxy address is empty")
	}
	u := &url.URL{Scheme: scheme, Host: addr}
	if p.Username != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	if _, err := url.Parse(u.String()); err != nil {
		return nil, eris.Wrap(err, "fetcher: invalid proxy address")
	}
	return u, nil
}

// Fetch performs one GET and returns the body decoded to UTF-8.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create request")
	}
	f.setHeaders(req)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: request")
	}
	defer func() { _ = resp.Body.Close() }()

	zap.L().Debug("fetcher: response",
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: rawURL}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: read body")
	}
	if len(body) == 0 {
		return nil, eris.Errorf("fetcher: empty body from %s", rawURL)
	}

	if blocked, kind := DetectBlock(resp.Header, body); blocked {
		zap.L().Warn("fetcher: blocked by anti-bot challenge",
			zap.String("url", rawURL),
			zap.String("block_type", string(kind)),
		)
		return nil, &BlockedError{Type: kind, URL: rawURL}
	}

	return decodeBody(body, resp.Header.Get("Content-Type"))
}

func (f *HTTPFetcher) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.opts.UserAgent)
	if f.opts.Referer != "" {
		req.Header.Set("Referer", f.opts.Referer)
	}
	if f.opts.Accept != "" {
		req.Header.Set("Accept", f.opts.Accept)
	}
	if f.opts.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", f.opts.AcceptLanguage)
	}
}

// decodeBody converts a body in the Content-Type's declared charset to
// UTF-8. Unknown or missing charsets leave the bytes untouched.
func decodeBody(body []byte, contentType string) ([]byte, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return body, nil
	}
	charset := strings.ToLower(strings.TrimSpace(params["charset"]))
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return body, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		zap.L().Debug("fetcher: unknown charset, using raw bytes", zap.String("charset", charset))
		return body, nil
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: decode %s body", charset)
	}
	return out, nil
}
