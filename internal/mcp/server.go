// Package mcp implements the context aggregation server: it fans a chat
// message out to the registered context providers, merges their scored
// contributions and caches the result.
package mcp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/aurahealth/aura-chat/backend/internal/domain/entities"
	"github.com/aurahealth/aura-chat/backend/internal/domain/providers"
	"github.com/aurahealth/aura-chat/backend/internal/infrastructure/observability"
	apperrors "github.com/aurahealth/aura-chat/backend/pkg/errors"
)

// State is the server lifecycle phase. Transitions only move forward:
// uninitialized → initializing → ready.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateReady         State = "ready"
)

const (
	defaultCacheTTLSeconds  = 300
	defaultProviderTimeout  = 5 * time.Second
	defaultMaxContextTokens = 2000

	cacheKeyPrefix     = "mcp:context"
	cacheKeyMessageLen = 50
	summarySeparator   = " | "
)

// Classifier is satisfied by the service classification provider; it backs
// the fast path that skips aggregation and caching.
type Classifier interface {
	Classify(message string) *entities.ClassificationResult
	Stats() *entities.ClassificationStats
}

// PatientSummarizer is satisfied by the patient history provider.
type PatientSummarizer interface {
	PatientSummary(ctx context.Context, userID string) (*entities.PatientSummary, error)
}

// PatternAnalyzer is satisfied by the medical intelligence provider.
type PatternAnalyzer interface {
	AnalyzePatientPatterns(ctx context.Context, userID string) (*entities.PatientPatterns, error)
}

// Config tunes the aggregation server. Zero values fall back to defaults.
type Config struct {
	CacheTTLSeconds  int
	ProviderTimeout  time.Duration
	MaxContextTokens int
}

func (c Config) withDefaults() Config {
	if c.CacheTTLSeconds <= 0 {
		c.CacheTTLSeconds = defaultCacheTTLSeconds
	}
	if c.ProviderTimeout <= 0 {
		c.ProviderTimeout = defaultProviderTimeout
	}
	if c.MaxContextTokens <= 0 {
		c.MaxContextTokens = defaultMaxContextTokens
	}
	return c
}

// ContextQuery is a single aggregation request. ContextTypes narrows the
// fan-out to a subset of providers; empty means all of them. MaxTokens of
// zero falls back to the configured default.
type ContextQuery struct {
	UserID         string
	Message        string
	ConversationID string
	ContextTypes   []entities.ContextSource
	MaxTokens      int
}

// Server aggregates context from its provider set. It must be constructed
// with NewServer and initialized before serving queries; there are no
// package-level instances.
type Server struct {
	cfg       Config
	providers []providers.ContextProvider
	cache     providers.CacheProvider
	metrics   *observability.Metrics
	log       zerolog.Logger

	mu    sync.Mutex
	state State
	inert map[entities.ContextSource]error
}

// NewServer creates an aggregation server over the given providers. cache is
// required; metrics may be nil.
func NewServer(cfg Config, providerSet []providers.ContextProvider, cache providers.CacheProvider, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:       cfg.withDefaults(),
		providers: providerSet,
		cache:     cache,
		metrics:   metrics,
		log:       log.With().Str("component", "mcp_server").Logger(),
		state:     StateUninitialized,
		inert:     make(map[entities.ContextSource]error),
	}
}

// State returns the current lifecycle phase.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Initialize runs each provider's Initialize once. A provider failing to
// initialize stays registered but inert: it is skipped during fan-out with a
// zero-relevance record. The server becomes ready after one attempt
// regardless of per-provider outcome, and never re-enters initialization.
func (s *Server) Initialize(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateUninitialized {
		s.mu.Unlock()
		return nil
	}
	s.state = StateInitializing
	s.mu.Unlock()

	for _, provider := range s.providers {
		if err := provider.Initialize(ctx); err != nil {
			s.log.Error().Err(err).
				Str("provider", string(provider.Name())).
				Msg("provider initialization failed, leaving it inert")
			s.mu.Lock()
			s.inert[provider.Name()] = err
			s.mu.Unlock()
		}
	}

	s.mu.Lock()
	s.state = StateReady
	s.mu.Unlock()
	s.log.Info().Int("providers", len(s.providers)).Msg("aggregation server ready")
	return nil
}

// GetContext returns the aggregated context for a message, serving from
// cache when a fresh entry exists. Provider failures degrade the result but
// never fail the call; only malformed input or an uninitialized server do.
func (s *Server) GetContext(ctx context.Context, query ContextQuery) (*entities.AggregatedContext, error) {
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "mcp.get_context")
	defer span.End()

	if err := s.checkQuery(query.UserID, query.Message); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	if query.MaxTokens <= 0 {
		query.MaxTokens = s.cfg.MaxContextTokens
	}

	key := cacheKey(query.UserID, query.ConversationID, query.Message)
	observability.SetSpanAttributes(span, attribute.String("mcp.cache_key", key))

	if cached := s.cachedContext(ctx, key); cached != nil {
		observability.RecordContextRequest(ctx, s.metrics, true, time.Since(start))
		return cached, nil
	}

	selected := s.selectProviders(query.ContextTypes)
	records := make([]*entities.ContextRecord, len(selected))
	var wg sync.WaitGroup
	for i, provider := range selected {
		wg.Add(1)
		go func(i int, provider providers.ContextProvider) {
			defer wg.Done()
			records[i] = s.invokeProvider(ctx, provider, providers.ContextRequest{
				UserID:         query.UserID,
				Message:        query.Message,
				ConversationID: query.ConversationID,
			})
		}(i, provider)
	}
	wg.Wait()

	aggregated := s.merge(query, records)
	s.storeContext(ctx, key, aggregated)

	observability.RecordContextRequest(ctx, s.metrics, false, time.Since(start))
	return aggregated, nil
}

// ClassifyInteraction delegates to the classification provider directly,
// bypassing aggregation and its cache.
func (s *Server) ClassifyInteraction(ctx context.Context, userID, message, conversationID string) (*entities.ClassificationResult, error) {
	_, span := observability.StartSpan(ctx, "mcp.classify_interaction")
	defer span.End()

	if err := s.checkQuery(userID, message); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	classifier, err := s.classifier()
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	return classifier.Classify(message), nil
}

// ClassificationStats reports the active ruleset and its measured accuracy.
func (s *Server) ClassificationStats(ctx context.Context) (*entities.ClassificationStats, error) {
	classifier, err := s.classifier()
	if err != nil {
		return nil, err
	}
	return classifier.Stats(), nil
}

// GetPatientInsights merges the history provider's patient summary with the
// intelligence provider's pattern analysis. Either half may be missing when
// its provider is absent or failing; having neither is an error.
func (s *Server) GetPatientInsights(ctx context.Context, userID string) (*entities.PatientInsights, error) {
	ctx, span := observability.StartSpan(ctx, "mcp.get_patient_insights")
	defer span.End()

	if userID == "" {
		err := apperrors.NewValidationError("user_id is required")
		observability.RecordError(span, err)
		return nil, err
	}
	if err := s.checkReady(); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	insights := &entities.PatientInsights{}
	for _, provider := range s.providers {
		switch p := provider.(type) {
		case PatientSummarizer:
			summary, err := p.PatientSummary(ctx, userID)
			if err != nil {
				s.log.Warn().Err(err).Str("user_id", userID).Msg("patient summary unavailable")
				continue
			}
			insights.History = summary
		case PatternAnalyzer:
			patterns, err := p.AnalyzePatientPatterns(ctx, userID)
			if err != nil {
				s.log.Warn().Err(err).Str("user_id", userID).Msg("pattern analysis unavailable")
				continue
			}
			insights.Patterns = patterns
		}
	}

	if insights.History == nil && insights.Patterns == nil {
		err := apperrors.NewNotFoundError("no insights available for user")
		observability.RecordError(span, err)
		return nil, err
	}
	return insights, nil
}

// Shutdown calls every provider's shutdown hook, best effort. Errors are
// logged and swallowed.
func (s *Server) Shutdown(ctx context.Context) {
	for _, provider := range s.providers {
		hook, ok := provider.(providers.ShutdownHook)
		if !ok {
			continue
		}
		if err := hook.Shutdown(ctx); err != nil {
			s.log.Warn().Err(err).
				Str("provider", string(provider.Name())).
				Msg("provider shutdown failed")
		}
	}
	s.log.Info().Msg("aggregation server shut down")
}

func (s *Server) checkQuery(userID, message string) error {
	if userID == "" {
		return apperrors.NewValidationError("user_id is required")
	}
	if strings.TrimSpace(message) == "" {
		return apperrors.NewValidationError("message is required")
	}
	return s.checkReady()
}

func (s *Server) checkReady() error {
	if s.State() != StateReady {
		return apperrors.NewInternalError("aggregation server is not initialized", nil)
	}
	return nil
}

func (s *Server) classifier() (Classifier, error) {
	for _, provider := range s.providers {
		if c, ok := provider.(Classifier); ok {
			return c, nil
		}
	}
	return nil, apperrors.NewInternalError("no classification provider registered", nil)
}

// selectProviders narrows the provider set to the requested sources,
// preserving registration order. Unknown sources are ignored.
func (s *Server) selectProviders(types []entities.ContextSource) []providers.ContextProvider {
	if len(types) == 0 {
		return s.providers
	}
	wanted := make(map[entities.ContextSource]struct{}, len(types))
	for _, t := range types {
		wanted[t] = struct{}{}
	}
	selected := make([]providers.ContextProvider, 0, len(types))
	for _, provider := range s.providers {
		if _, ok := wanted[provider.Name()]; ok {
			selected = append(selected, provider)
		}
	}
	return selected
}

// invokeProvider runs one provider under the configured timeout, converting
// timeouts and panics into zero-relevance records. The provider call itself
// is never cancelled mid-flight: once started it runs to completion on its
// own goroutine even if the result is no longer wanted.
func (s *Server) invokeProvider(ctx context.Context, provider providers.ContextProvider, req providers.ContextRequest) *entities.ContextRecord {
	name := provider.Name()

	s.mu.Lock()
	initErr := s.inert[name]
	s.mu.Unlock()
	if initErr != nil {
		return zeroRecord(name, fmt.Sprintf("provider inert: %v", initErr))
	}

	start := time.Now()
	done := make(chan *entities.ContextRecord, 1)
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ProviderTimeout)

	go func() {
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error().
					Str("provider", string(name)).
					Interface("panic", r).
					Msg("provider panicked")
				done <- zeroRecord(name, fmt.Sprintf("provider panicked: %v", r))
			}
		}()
		done <- provider.GetContext(callCtx, req)
	}()

	var record *entities.ContextRecord
	select {
	case record = <-done:
	case <-callCtx.Done():
		s.log.Warn().
			Str("provider", string(name)).
			Dur("timeout", s.cfg.ProviderTimeout).
			Msg("provider timed out")
		record = zeroRecord(name, "provider timed out")
	}

	failed := record == nil || record.Error != ""
	if record == nil {
		record = zeroRecord(name, "provider returned no record")
	}
	observability.RecordProviderMetric(ctx, s.metrics, string(name), failed, time.Since(start))
	return record
}

// merge combines provider records into one AggregatedContext: relevance
// scores add up, and non-empty summary fragments are joined with " | " while
// their running token estimate stays within the budget.
func (s *Server) merge(query ContextQuery, records []*entities.ContextRecord) *entities.AggregatedContext {
	aggregated := &entities.AggregatedContext{
		Timestamp:      time.Now(),
		UserID:         query.UserID,
		ConversationID: query.ConversationID,
		Contexts:       make(map[entities.ContextSource]*entities.ContextRecord, len(records)),
	}

	fragments := make([]string, 0, len(records))
	usedTokens := 0
	for _, record := range records {
		if record == nil {
			continue
		}
		aggregated.Contexts[record.Source] = record
		aggregated.TotalRelevance += record.RelevanceScore

		if record.Error != "" || record.Payload == nil || record.Payload.Empty() {
			continue
		}
		fragment := record.Payload.SummaryFragment()
		if fragment == "" {
			continue
		}
		cost := len(fragment) / 4
		if usedTokens+cost > query.MaxTokens {
			break
		}
		fragments = append(fragments, fragment)
		usedTokens += cost
	}
	aggregated.ContextSummary = strings.Join(fragments, summarySeparator)
	return aggregated
}

func (s *Server) cachedContext(ctx context.Context, key string) *entities.AggregatedContext {
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			s.log.Warn().Err(err).Msg("context cache read failed")
		}
		observability.RecordCacheMiss(ctx, s.metrics, key)
		return nil
	}

	var cached entities.AggregatedContext
	if err := json.Unmarshal(raw, &cached); err != nil {
		s.log.Warn().Err(err).Msg("discarding malformed cached context")
		observability.RecordCacheMiss(ctx, s.metrics, key)
		return nil
	}
	observability.RecordCacheHit(ctx, s.metrics, key)
	return &cached
}

func (s *Server) storeContext(ctx context.Context, key string, aggregated *entities.AggregatedContext) {
	raw, err := json.Marshal(aggregated)
	if err != nil {
		s.log.Warn().Err(err).Msg("context marshal for cache failed")
		return
	}
	if err := s.cache.Set(ctx, key, raw, s.cfg.CacheTTLSeconds); err != nil {
		s.log.Warn().Err(err).Msg("context cache write failed")
	}
}

// cacheKey derives the cache entry name from the query identity. Components
// are length-prefixed before hashing so an ID containing ':' cannot collide
// with a different user/conversation split.
func cacheKey(userID, conversationID, message string) string {
	if len(message) > cacheKeyMessageLen {
		message = message[:cacheKeyMessageLen]
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%s%d:%s%d:%s",
		len(userID), userID, len(conversationID), conversationID, len(message), message)))
	return fmt.Sprintf("%s:%s", cacheKeyPrefix, hex.EncodeToString(sum[:16]))
}

func zeroRecord(source entities.ContextSource, errMsg string) *entities.ContextRecord {
	return &entities.ContextRecord{
		Source:    source,
		Timestamp: time.Now(),
		Error:     errMsg,
	}
}
