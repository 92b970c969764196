package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/spigell/apply-pilot/internal/answer"
	logfields "github.com/spigell/apply-pilot/internal/logger"
	"github.com/spigell/apply-pilot/internal/profile"
	"github.com/spigell/apply-pilot/internal/util"
	"go.uber.org/zap"
)

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

// Answerer turns form questions into language-model requests. The candidate
// profile is rendered into the system instruction once at construction time,
// so every question is answered against the same snapshot.
type Answerer struct {
	generator contentGenerator
	system    string
	logger    *zap.Logger
	maxLogLen int
}

// NewAnswerer builds an Answerer for the given profile. The generator is any
// backend that can complete a system+message exchange.
func NewAnswerer(generator contentGenerator, p *profile.Profile, logger *zap.Logger, maxLogLength int) (*Answerer, error) {
	if generator == nil {
		return nil, fmt.Errorf("content generator is required")
	}
	if p == nil {
		return nil, fmt.Errorf("profile is required")
	}
	logger = logfields.WithCommonFields(logger, "gemini", generator.Model())
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	system, err := buildSystemInstruction(p)
	if err != nil {
		return nil, err
	}

	return &Answerer{
		generator: generator,
		system:    system,
		logger:    logger,
		maxLogLen: maxLogLength,
	}, nil
}

// Name identifies the provider in logs and resolution metadata.
func (a *Answerer) Name() string {
	return "gemini:" + a.generator.Model()
}

// Ask sends a single question to the model and returns a sanitized answer.
// For option-constrained questions the answer must match one of the offered
// options; anything else is treated as unanswerable.
func (a *Answerer) Ask(ctx context.Context, q answer.Question) (string, error) {
	message := renderQuestion(q)

	a.logger.Debug("provider request",
		zap.String("question", util.TruncateForLog(q.Text, a.maxLogLen)),
		zap.String("field_type", string(q.Type)),
		zap.Int("options", len(q.Options)),
	)

	raw, err := a.generator.GenerateContent(ctx, a.system, message)
	if err != nil {
		return "", err
	}

	a.logger.Debug("provider response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", util.TruncateForLog(raw, a.maxLogLen)),
	)

	return sanitizeAnswer(raw, q), nil
}

func buildSystemInstruction(p *profile.Profile) (string, error) {
	snapshot, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal profile snapshot: %w", err)
	}

	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "You answer job application questions for the candidate below.\n\nCandidate profile:\n{{PROFILE_JSON}}"
	}

	return strings.ReplaceAll(template, "{{PROFILE_JSON}}", string(snapshot)), nil
}

func renderQuestion(q answer.Question) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Question: %s\n", strings.TrimSpace(q.Text))
	fmt.Fprintf(&b, "Field type: %s\n", q.Type)

	if q.HasOptions() {
		b.WriteString("Allowed options:\n")
		for _, option := range q.Options {
			fmt.Fprintf(&b, "- %s\n", option)
		}
		b.WriteString("Answer with exactly one of the allowed options.\n")
	}

	b.WriteString("Answer:")

	return b.String()
}

// sanitizeAnswer strips the decoration models like to add (code fences,
// quotes, an "Answer:" prefix) and clamps option-constrained answers to the
// actual option list.
func sanitizeAnswer(raw string, q answer.Question) string {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		if idx := strings.LastIndex(cleaned, "```"); idx != -1 {
			cleaned = cleaned[:idx]
		}
	}
	cleaned = strings.Trim(cleaned, "`\"' \n\t")

	if idx := strings.IndexByte(cleaned, '\n'); idx != -1 && !q.HasOptions() && q.Type != answer.FieldText {
		cleaned = cleaned[:idx]
	}

	lower := strings.ToLower(cleaned)
	if after, ok := strings.CutPrefix(lower, "answer:"); ok {
		cleaned = strings.TrimSpace(cleaned[len(cleaned)-len(after):])
		lower = strings.ToLower(cleaned)
	}

	if !q.HasOptions() {
		return cleaned
	}

	for _, option := range q.Options {
		if strings.EqualFold(strings.TrimSpace(option), cleaned) {
			return option
		}
	}

	// Second pass for answers wrapped in extra prose.
	for _, option := range q.Options {
		trimmed := strings.ToLower(strings.TrimSpace(option))
		if trimmed != "" && strings.Contains(lower, trimmed) {
			return option
		}
	}

	return ""
}
