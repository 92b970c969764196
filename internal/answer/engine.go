package answer

import (
	"context"
	"strings"

	"github.com/spigell/apply-pilot/internal/util"

	"go.uber.org/zap"
)

// Provider is a pluggable language-model answer source. Ask must honor its
// own timeout and return an error for malformed, empty or failed responses;
// the engine treats any error as "no provider" and falls back to rules.
type Provider interface {
	Ask(ctx context.Context, q Question) (string, error)
	Name() string
}

// Resolver is the deterministic rule-based answer source.
type Resolver interface {
	Resolve(q Question) string
	Override(q Question) (string, bool)
}

const previewLen = 80

// Engine orchestrates answer resolution for form questions: cache first,
// then the deterministic overrides, then the provider, then the rule
// resolver as an unconditional fallback. GetAnswer is total: it always
// returns a string, possibly empty.
type Engine struct {
	resolver Resolver
	provider Provider
	logger   *zap.Logger

	// cache is written once per distinct question key per process run, so
	// an identical question asked twice yields an identical answer even
	// when the provider is non-deterministic. It is never persisted: a
	// fresh run re-derives answers from the unchanged profile.
	cache map[string]ResolvedAnswer
}

// NewEngine builds an engine. provider may be nil, in which case only the
// rule resolver is consulted.
func NewEngine(resolver Resolver, provider Provider, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		resolver: resolver,
		provider: provider,
		logger:   logger,
		cache:    make(map[string]ResolvedAnswer),
	}
}

// GetAnswer returns the answer value for the question.
func (e *Engine) GetAnswer(ctx context.Context, q Question) string {
	return e.Resolve(ctx, q).Value
}

// Resolve returns the answer together with the layer that produced it.
func (e *Engine) Resolve(ctx context.Context, q Question) ResolvedAnswer {
	key := q.cacheKey()
	if cached, ok := e.cache[key]; ok {
		return ResolvedAnswer{Value: cached.Value, Source: SourceCache}
	}

	// The guard categories (experience numbers, compensation, notice
	// period) are resolved deterministically regardless of provider
	// availability: these are exactly the questions where a model is most
	// likely to produce a plausible but false number.
	if value, ok := e.resolver.Override(q); ok {
		return e.store(key, q, ResolvedAnswer{Value: value, Source: SourceRule})
	}

	if e.provider != nil {
		value, err := e.provider.Ask(ctx, q)
		if err == nil {
			if value = strings.TrimSpace(value); value != "" {
				return e.store(key, q, ResolvedAnswer{Value: value, Source: SourceProvider})
			}
		} else {
			e.logger.Debug("provider failed, falling back to rules",
				zap.String("provider", e.provider.Name()),
				zap.String("question", util.TruncateForLog(q.Text, previewLen)),
				zap.Error(err),
			)
		}
	}

	return e.store(key, q, ResolvedAnswer{Value: e.resolver.Resolve(q), Source: SourceRule})
}

func (e *Engine) store(key string, q Question, resolved ResolvedAnswer) ResolvedAnswer {
	e.cache[key] = resolved

	e.logger.Debug("question resolved",
		zap.String("question", util.TruncateForLog(q.Text, previewLen)),
		zap.String("field_type", string(q.Type)),
		zap.String("source", string(resolved.Source)),
		zap.String("answer", util.TruncateForLog(resolved.Value, previewLen)),
	)

	return resolved
}
