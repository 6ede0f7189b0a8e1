package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/Strob0t/taskgate/internal/adapter/lexical"
	"github.com/Strob0t/taskgate/internal/adapter/otel"
	"github.com/Strob0t/taskgate/internal/adapter/semantic"
	"github.com/Strob0t/taskgate/internal/domain/routing"
	"github.com/Strob0t/taskgate/internal/port/cache"
	"github.com/Strob0t/taskgate/internal/port/embedding"
	"github.com/Strob0t/taskgate/internal/port/matcher"
	"github.com/Strob0t/taskgate/internal/port/trainingdata"
)

// SourceRouter tags outcomes recorded by the router.
const SourceRouter = "router"

// MatcherFactory builds a matcher over the routing corpus.
type MatcherFactory func(ctx context.Context, items []routing.ReferenceItem) (matcher.Matcher, error)

// Matcher kinds accepted by NewMatcher.
const (
	MatcherSemantic = "semantic"
	MatcherLexical  = "lexical"
)

// NewMatcher returns a factory preferring the semantic matcher when kind is
// MatcherSemantic and its asset at assetPath is usable, and the lexical
// Aho-Corasick matcher otherwise. embedder may be nil.
func NewMatcher(kind, assetPath string, embedder embedding.Embedder) MatcherFactory {
	return func(_ context.Context, items []routing.ReferenceItem) (matcher.Matcher, error) {
		if kind == MatcherSemantic {
			sem := semantic.New(assetPath, embedder)
			switch err := sem.Build(items); {
			case err != nil:
				slog.Warn("semantic matcher build failed", "asset", assetPath, "error", err)
			case sem.Available():
				return sem, nil
			default:
				slog.Info("semantic asset unavailable, falling back to lexical matcher", "asset", assetPath)
			}
		}
		lex := lexical.New()
		if err := lex.Build(items); err != nil {
			return nil, fmt.Errorf("build lexical matcher: %w", err)
		}
		return lex, nil
	}
}

func matcherName(m matcher.Matcher) string {
	switch m.(type) {
	case *semantic.Matcher:
		return MatcherSemantic
	case *lexical.Matcher:
		return MatcherLexical
	case nil:
		return "linear"
	default:
		return fmt.Sprintf("%T", m)
	}
}

// RouterOption configures a RouterService.
type RouterOption func(*RouterService)

// WithRecordWorkers bounds concurrent outcome recordings (default 4).
func WithRecordWorkers(n int) RouterOption {
	return func(r *RouterService) { r.recordWorkers = n }
}

// WithRouteCache caches matcher results for ttl.
func WithRouteCache(c cache.Cache, ttl time.Duration) RouterOption {
	return func(r *RouterService) {
		r.cache = c
		r.cacheTTL = ttl
	}
}

// WithRouterMetrics records routing metrics.
func WithRouterMetrics(m *otel.Metrics) RouterOption {
	return func(r *RouterService) { r.metrics = m }
}

// RouterService maps prompts to tasks. The corpus and matcher are built
// once on first use (or by Preload) and are read-only afterwards.
type RouterService struct {
	corpus        trainingdata.CorpusLoader
	factory       MatcherFactory
	records       *RecordPool
	recordWorkers int
	cache         cache.Cache
	cacheTTL      time.Duration
	metrics       *otel.Metrics
	now           func() time.Time

	mu         sync.Mutex
	ready      atomic.Bool
	preloading atomic.Bool
	interim    sync.Once
	interimSet []routing.ReferenceItem
	items      []routing.ReferenceItem
	matcher    matcher.Matcher
	corpusKey  string
	bg         sync.WaitGroup
}

// NewRouterService creates a RouterService. recorder may be nil.
func NewRouterService(corpus trainingdata.CorpusLoader, factory MatcherFactory, recorder trainingdata.Recorder, opts ...RouterOption) *RouterService {
	r := &RouterService{
		corpus:        corpus,
		factory:       factory,
		recordWorkers: 4,
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	r.records = NewRecordPool(recorder, r.recordWorkers)
	return r
}

// Init loads the corpus and builds the matcher. It is idempotent and safe
// for concurrent use; only the first successful call does any work. A
// matcher build failure leaves the router on the linear scan.
func (r *RouterService) Init(ctx context.Context) error {
	if r.ready.Load() {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ready.Load() {
		return nil
	}

	items, err := r.corpus.LoadCorpus(ctx)
	if err != nil {
		return fmt.Errorf("load routing corpus: %w", err)
	}

	var m matcher.Matcher
	if r.factory != nil {
		m, err = r.factory(ctx, items)
		if err != nil {
			slog.Error("matcher build failed, using linear scan", "error", err)
			m = nil
		}
	}

	r.items = items
	r.matcher = m
	r.corpusKey = corpusFingerprint(items)
	r.ready.Store(true)
	slog.Info("router initialized", "items", len(items), "matcher", matcherName(m))
	return nil
}

// Preload runs Init in the background. Route calls made meanwhile do not
// wait for it.
func (r *RouterService) Preload(ctx context.Context) {
	if r.ready.Load() || !r.preloading.CompareAndSwap(false, true) {
		return
	}
	r.bg.Add(1)
	go func() {
		defer r.bg.Done()
		defer r.preloading.Store(false)
		if err := r.Init(ctx); err != nil {
			slog.Warn("router preload failed", "error", err)
		}
	}()
}

// Ready reports whether the matcher has been built.
func (r *RouterService) Ready() bool {
	return r.ready.Load()
}

// Close waits for a running preload and for pending outcome recordings.
func (r *RouterService) Close() {
	r.bg.Wait()
	r.records.Close()
}

// Dropped returns the number of outcomes the recorder pool discarded.
func (r *RouterService) Dropped() int64 {
	return r.records.Dropped()
}

// snapshot returns the corpus and matcher to route with. While a preload
// is running it routes by linear scan over a corpus loaded once on the
// first such call.
func (r *RouterService) snapshot(ctx context.Context) ([]routing.ReferenceItem, matcher.Matcher) {
	if r.ready.Load() {
		return r.items, r.matcher
	}
	if r.preloading.Load() {
		r.interim.Do(func() {
			items, err := r.corpus.LoadCorpus(ctx)
			if err != nil {
				slog.Warn("routing corpus unavailable during preload", "error", err)
			}
			r.interimSet = items
		})
		return r.interimSet, nil
	}
	if err := r.Init(ctx); err != nil {
		slog.Error("router init failed", "error", err)
		return nil, nil
	}
	return r.items, r.matcher
}

// Route classifies prompt. A match is accepted when its confidence, the
// matched text's length relative to the prompt's, reaches threshold.
func (r *RouterService) Route(ctx context.Context, prompt string, threshold float64) routing.Decision {
	items, m := r.snapshot(ctx)
	ctx, span := otel.StartRouteSpan(ctx, matcherName(m))
	defer span.End()

	text := strings.ToLower(prompt)
	match, task := r.bestMatch(ctx, m, text)
	if match == "" {
		match, task = linearScan(items, text)
	}

	var d routing.Decision
	switch {
	case match == "" || task == "":
		d = routing.Decision{Error: routing.ErrNoMatch}
	default:
		score := float64(utf8.RuneCountInString(match)) / float64(max(utf8.RuneCountInString(prompt), 1))
		if score >= threshold {
			d = routing.Decision{Task: task, Score: &score, Matched: match}
		} else {
			d = routing.Decision{Score: &score, Error: routing.ErrBelowThreshold}
		}
	}

	slog.Debug("prompt routed", "task", d.Task, "matched", match, "error", d.Error)
	r.metrics.RecordRoute(ctx, d.Task, d.Score)
	r.records.Submit(routing.Outcome{
		Prompt:  prompt,
		Task:    d.Task,
		Success: d.OK(),
		Source:  SourceRouter,
		TS:      r.now(),
	})
	return d
}

// bestMatch asks the matcher, consulting the route cache first. Matcher
// errors are logged and treated as no match.
func (r *RouterService) bestMatch(ctx context.Context, m matcher.Matcher, text string) (match, task string) {
	if m == nil || !m.Available() || text == "" {
		return "", ""
	}

	key := r.cacheKey(text)
	if r.cache != nil {
		if v, ok, err := r.cache.Get(ctx, key); err == nil && ok {
			if t, found := m.TaskFor(string(v)); found {
				return string(v), t
			}
		}
	}

	match, ok, err := m.FindBestMatch(ctx, text)
	if err != nil {
		slog.Warn("matcher failed, using linear scan", "matcher", matcherName(m), "error", err)
		return "", ""
	}
	if !ok {
		return "", ""
	}
	task, found := m.TaskFor(match)
	if !found {
		return "", ""
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, []byte(match), r.cacheTTL); err != nil {
			slog.Debug("route cache set failed", "error", err)
		}
	}
	return match, task
}

func (r *RouterService) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "route." + r.corpusKey + "." + hex.EncodeToString(sum[:16])
}

// linearScan returns the first corpus text contained in text.
func linearScan(items []routing.ReferenceItem, text string) (match, task string) {
	for _, it := range items {
		t := matcher.Normalize(it.Text)
		if t != "" && strings.Contains(text, t) {
			return t, it.Task
		}
	}
	return "", ""
}

// corpusFingerprint identifies a corpus so cached matches from a different
// corpus are never reused.
func corpusFingerprint(items []routing.ReferenceItem) string {
	h := sha256.New()
	for _, it := range items {
		_, _ = h.Write([]byte(it.Task))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write([]byte(it.Text))
		_, _ = h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)[:8])
}
