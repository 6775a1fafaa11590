// Package lookup runs a registry lookup end to end: validate the
// identifier, consult the cache, fetch and parse the registry page, and
// cache the normalized record.
package lookup

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/Vheissu/abn-checker/internal/abn"
	"github.com/Vheissu/abn-checker/internal/cache"
	"github.com/Vheissu/abn-checker/internal/config"
	"github.com/Vheissu/abn-checker/internal/extract"
	"github.com/Vheissu/abn-checker/internal/fetcher"
	"github.com/Vheissu/abn-checker/internal/metrics"
	"github.com/Vheissu/abn-checker/internal/model"
	"github.com/Vheissu/abn-checker/internal/normalize"
)

// State names a step of a lookup. They run in declaration order; any step
// may exit early.
type State string

const (
	StateValidating   State = "validating"
	StateCacheCheck   State = "cache_check"
	StateFetching     State = "fetching"
	StateContentCheck State = "content_check"
	StateNormalizing  State = "normalizing"
	StateCaching      State = "caching"
	StateDone         State = "done"
)

// Result is a successful lookup.
type Result struct {
	Record model.Record `json:"record"`
	Origin model.Origin `json:"origin"`
}

// Options configures a Service.
type Options struct {
	// BaseURL is the registry view page; the identifier is sent as ?abn=.
	BaseURL string
	// NotFoundMarkers are page strings that mean the identifier is not
	// registered.
	NotFoundMarkers []string
}

// OptionsFromConfig maps lookup configuration onto service options.
func OptionsFromConfig(cfg config.LookupConfig) Options {
	return Options{BaseURL: cfg.BaseURL, NotFoundMarkers: cfg.NotFoundMarkers}
}

// Service performs lookups. It holds no per-request state and is safe for
// concurrent use.
type Service struct {
	fetcher fetcher.PageFetcher
	cache   *cache.Cache
	metrics *metrics.Metrics
	opts    Options
	now     func() time.Time
}

// New creates a Service. cache and m may be nil.
func New(f fetcher.PageFetcher, c *cache.Cache, m *metrics.Metrics, opts Options) *Service {
	if len(opts.NotFoundMarkers) == 0 {
		opts.NotFoundMarkers = []string{config.DefaultNotFoundMarker}
	}
	return &Service{
		fetcher: f,
		cache:   c,
		metrics: m,
		opts:    opts,
		now:     time.Now,
	}
}

// PageURL returns the registry page address for a canonical identifier.
func PageURL(base, id string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("abn", id)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Lookup resolves raw to a normalized record. Every failure is returned as
// a *Error.
func (s *Service) Lookup(ctx context.Context, raw string) (*Result, error) {
	log := zap.L().With(zap.String("input", raw))

	log.Debug("lookup: state", zap.String("state", string(StateValidating)))
	id, err := abn.Validate(raw)
	if err != nil {
		s.metrics.IncLookup(metrics.OutcomeInvalid)
		if errors.Is(err, abn.ErrMissing) {
			return nil, newError(CodeNoIdentifier, "an ABN is required", err)
		}
		return nil, newError(CodeInvalidFormat, "malformed identifier: an ABN has exactly 11 digits", err)
	}
	log = zap.L().With(zap.String("abn", id))
	if !abn.Checksum(id) {
		// Logged only; the registry decides what is registered.
		log.Debug("lookup: checksum mismatch", zap.String("formatted", abn.Format(id)))
	}

	log.Debug("lookup: state", zap.String("state", string(StateCacheCheck)))
	if rec, ok := s.cache.Get(ctx, id); ok {
		s.metrics.IncLookup(metrics.OutcomeCached)
		log.Debug("lookup: state", zap.String("state", string(StateDone)), zap.String("origin", string(model.OriginCached)))
		return &Result{Record: *rec, Origin: model.OriginCached}, nil
	}

	log.Debug("lookup: state", zap.String("state", string(StateFetching)))
	pageURL, err := PageURL(s.opts.BaseURL, id)
	if err != nil {
		s.metrics.IncLookup(metrics.OutcomeUnavailable)
		return nil, newError(CodeUpstreamUnavailable, "registry address is misconfigured", err)
	}
	start := time.Now()
	body, err := s.fetcher.Fetch(ctx, pageURL)
	s.metrics.ObserveFetch(time.Since(start))
	if err != nil {
		s.metrics.IncLookup(metrics.OutcomeUnavailable)
		log.Error("lookup: upstream fetch failed", zap.String("url", pageURL), zap.Error(err))
		return nil, newError(CodeUpstreamUnavailable, "the business register could not be reached", err)
	}

	log.Debug("lookup: state", zap.String("state", string(StateContentCheck)))
	if marker, found := s.notFoundMarker(body); found {
		s.metrics.IncLookup(metrics.OutcomeNotFound)
		log.Info("lookup: identifier not registered",
			zap.String("formatted", abn.Format(id)),
			zap.Bool("checksum_valid", abn.Checksum(id)),
			zap.String("marker", marker),
		)
		return nil, newError(CodeNotFound, "not a registered identifier", nil)
	}

	log.Debug("lookup: state", zap.String("state", string(StateNormalizing)))
	rec := normalize.FromDocument(extract.ParseBytes(body), id, s.now())

	log.Debug("lookup: state", zap.String("state", string(StateCaching)))
	if err := s.cache.Put(ctx, id, rec); err != nil {
		s.metrics.IncCacheWriteFailure()
		log.Warn("lookup: cache write failed", zap.Error(err))
	}

	s.metrics.IncLookup(metrics.OutcomeFresh)
	log.Debug("lookup: state", zap.String("state", string(StateDone)), zap.String("origin", string(model.OriginFresh)))
	return &Result{Record: rec, Origin: model.OriginFresh}, nil
}

func (s *Service) notFoundMarker(body []byte) (string, bool) {
	for _, m := range s.opts.NotFoundMarkers {
		if m != "" && bytes.Contains(body, []byte(m)) {
			return m, true
		}
	}
	return "", false
}
