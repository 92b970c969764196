package answer_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/spigell/apply-pilot/internal/answer"
	"github.com/spigell/apply-pilot/internal/answer/rules"
	"github.com/spigell/apply-pilot/internal/profile"
)

type stubProvider struct {
	answers []string
	err     error
	calls   int
}

func (s *stubProvider) Ask(context.Context, answer.Question) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if len(s.answers) == 0 {
		return "", nil
	}

	next := s.answers[0]
	if len(s.answers) > 1 {
		s.answers = s.answers[1:]
	}

	return next, nil
}

func (s *stubProvider) Name() string { return "stub" }

func engineProfile() *profile.Profile {
	return &profile.Profile{
		Identity: profile.Identity{FirstName: "Asha", LastName: "Nair", Email: "asha@example.com", Gender: "Male"},
		Location: profile.Location{City: "Kozhikode", State: "Kerala", Country: "India"},
		WorkHistory: []profile.Employment{
			{Company: "Acme", Title: "Developer", Start: "2024-09", End: "2025-03", Technologies: []string{"React", "Node.js"}},
		},
		Skills: profile.Skills{Technical: []string{"Python", "React", "SQL"}},
		Preferences: profile.Preferences{
			Salary:           profile.Salary{Minimum: 280000, Maximum: 400000, Currency: "INR"},
			NoticePeriodDays: 10,
		},
	}
}

func newEngine(p answer.Provider) *answer.Engine {
	return answer.NewEngine(rules.New(engineProfile()), p, nil)
}

func TestOverridePrecedenceBypassesProvider(t *testing.T) {
	provider := &stubProvider{answers: []string{"999"}}
	engine := newEngine(provider)

	q := answer.Question{Text: "What is your current CTC (LPA)?", Type: answer.FieldText}
	if got := engine.GetAnswer(context.Background(), q); got != "2.8" {
		t.Fatalf("got %q, want the profile-derived 2.8", got)
	}

	if provider.calls != 0 {
		t.Fatalf("provider must not be consulted for override categories, got %d calls", provider.calls)
	}
}

func TestNoHallucinationForUnknownTechnology(t *testing.T) {
	provider := &stubProvider{answers: []string{"5"}}
	engine := newEngine(provider)

	q := answer.Question{Text: "years of experience with Salesforce Apex", Type: answer.FieldNumber}
	if got := engine.GetAnswer(context.Background(), q); got != "0" {
		t.Fatalf("got %q, want 0 for an unknown technology", got)
	}
}

func TestCacheStability(t *testing.T) {
	provider := &stubProvider{answers: []string{"first call", "second call"}}
	engine := newEngine(provider)

	q := answer.Question{Text: "Why do you want to join us?", Type: answer.FieldText}

	first := engine.GetAnswer(context.Background(), q)
	second := engine.GetAnswer(context.Background(), q)

	if first != "first call" {
		t.Fatalf("unexpected first answer: %q", first)
	}

	if second != first {
		t.Fatalf("cache must return identical answers: %q vs %q", first, second)
	}

	if provider.calls != 1 {
		t.Fatalf("expected a single provider call, got %d", provider.calls)
	}
}

func TestCacheKeyIgnoresOptionOrder(t *testing.T) {
	provider := &stubProvider{answers: []string{"Yes", "No"}}
	engine := newEngine(provider)

	ctx := context.Background()
	first := engine.GetAnswer(ctx, answer.Question{
		Text: "Any question without a rule match", Type: answer.FieldDropdown, Options: []string{"b", "a"},
	})
	second := engine.GetAnswer(ctx, answer.Question{
		Text: "Any question without a rule match", Type: answer.FieldDropdown, Options: []string{"a", "b"},
	})

	if first != second {
		t.Fatalf("reordered options must hit the same cache entry: %q vs %q", first, second)
	}
}

func TestProviderFailureFallsBackToRules(t *testing.T) {
	provider := &stubProvider{err: errors.New("deadline exceeded")}
	engine := newEngine(provider)

	q := answer.Question{Text: "First Name", Type: answer.FieldText}
	if got := engine.GetAnswer(context.Background(), q); got != "Asha" {
		t.Fatalf("got %q, want the rule-based answer", got)
	}
}

func TestEmptyProviderResponseFallsBackToRules(t *testing.T) {
	provider := &stubProvider{answers: []string{"   "}}
	engine := newEngine(provider)

	q := answer.Question{Text: "First Name", Type: answer.FieldText}
	if got := engine.GetAnswer(context.Background(), q); got != "Asha" {
		t.Fatalf("got %q, want the rule-based answer", got)
	}
}

func TestNilProviderUsesRulesOnly(t *testing.T) {
	engine := newEngine(nil)

	q := answer.Question{Text: "Notice period (in days)", Type: answer.FieldNumber}
	if got := engine.GetAnswer(context.Background(), q); got != "10" {
		t.Fatalf("got %q, want 10", got)
	}
}

func TestResolveTagsSources(t *testing.T) {
	engine := newEngine(nil)
	ctx := context.Background()

	q := answer.Question{Text: "First Name", Type: answer.FieldText}

	first := engine.Resolve(ctx, q)
	if first.Source != answer.SourceRule {
		t.Fatalf("expected rule source, got %s", first.Source)
	}

	second := engine.Resolve(ctx, q)
	if second.Source != answer.SourceCache {
		t.Fatalf("expected cache source, got %s", second.Source)
	}

	if second.Value != first.Value {
		t.Fatalf("cache changed the value: %q vs %q", first.Value, second.Value)
	}
}

func TestUnresolvableQuestionIsEmptyNotFatal(t *testing.T) {
	engine := newEngine(&stubProvider{err: fmt.Errorf("api: %w", errors.New("401"))})

	q := answer.Question{Text: "Describe your favourite project", Type: answer.FieldText}
	if got := engine.GetAnswer(context.Background(), q); got != "" {
		t.Fatalf("got %q, want empty string", got)
	}
}
