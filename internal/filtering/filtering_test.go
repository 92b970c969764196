package filtering

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/apply-pilot/internal/jobs"
)

type fakeHistory struct {
	applied map[string]bool
	today   int
	err     error
}

func (f *fakeHistory) HasApplied(_ context.Context, url string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.applied[url], nil
}

func (f *fakeHistory) TodayCount(context.Context) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.today, nil
}

func queue() *jobs.List {
	return &jobs.List{Items: []*jobs.Job{
		{Title: "Senior Backend Engineer", Company: "Acme", URL: "https://a.example/1"},
		{Title: "Backend Engineer (Clearance Required)", Company: "Globex", URL: "https://a.example/2", Description: "Requires security clearance"},
		{Title: "Frontend Engineer", Company: "Initech", URL: "https://a.example/3"},
		{Title: "Backend Engineer", Company: "Hooli", URL: "https://a.example/4"},
	}}
}

func TestRunFullChain(t *testing.T) {
	history := &fakeHistory{applied: map[string]bool{"https://a.example/4": true}}
	deps := Deps{History: history, Logger: zap.NewNop()}

	cfg := &Config{
		DesiredTitles:    []string{"backend"},
		ExcludeKeywords:  []string{"clearance"},
		ExcludeCompanies: []string{"evilcorp"},
	}

	left, err := Run(context.Background(), cfg, deps, Default(false), queue())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if left.Len() != 1 {
		t.Fatalf("expected 1 job left, got %d", left.Len())
	}
	if left.Items[0].URL != "https://a.example/1" {
		t.Fatalf("unexpected survivor: %s", left.Items[0].URL)
	}
}

func TestDesiredTitlesPassThroughWhenEmpty(t *testing.T) {
	deps := Deps{History: &fakeHistory{}, Logger: zap.NewNop()}

	left, err := Run(context.Background(), &Config{}, deps, []Filter{NewDesiredTitles()}, queue())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if left.Len() != 4 {
		t.Fatalf("expected all jobs to pass, got %d", left.Len())
	}
}

func TestAppliedHistoryIgnoreFlag(t *testing.T) {
	history := &fakeHistory{applied: map[string]bool{"https://a.example/1": true}}
	deps := Deps{History: history, Logger: zap.NewNop()}

	left, err := Run(context.Background(), &Config{}, deps, []Filter{NewAppliedHistory(true)}, queue())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if left.Len() != 4 {
		t.Fatalf("expected ignore flag to keep applied jobs, got %d", left.Len())
	}
}

func TestAppliedHistoryPropagatesLedgerError(t *testing.T) {
	deps := Deps{History: &fakeHistory{err: errors.New("database is locked")}, Logger: zap.NewNop()}

	if _, err := Run(context.Background(), &Config{}, deps, []Filter{NewAppliedHistory(false)}, queue()); err == nil {
		t.Fatal("expected ledger error to propagate")
	}
}

func TestDailyCapTruncates(t *testing.T) {
	deps := Deps{History: &fakeHistory{today: 3}, Logger: zap.NewNop()}

	left, err := Run(context.Background(), &Config{DailyCap: 5}, deps, []Filter{NewDailyCap()}, queue())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if left.Len() != 2 {
		t.Fatalf("expected 2 jobs after cap, got %d", left.Len())
	}
}

func TestDailyCapExhausted(t *testing.T) {
	deps := Deps{History: &fakeHistory{today: 7}, Logger: zap.NewNop()}

	left, err := Run(context.Background(), &Config{DailyCap: 5}, deps, []Filter{NewDailyCap()}, queue())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if left.Len() != 0 {
		t.Fatalf("expected empty queue, got %d", left.Len())
	}
}

func TestDailyCapRejectsNegative(t *testing.T) {
	deps := Deps{History: &fakeHistory{}, Logger: zap.NewNop()}

	if _, err := Run(context.Background(), &Config{DailyCap: -1}, deps, []Filter{NewDailyCap()}, queue()); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestDescribeAndDisable(t *testing.T) {
	steps := Default(false)
	DisableByName(steps, "daily_cap", "testing")

	// Disable is a no-op for the always-on filters.
	statuses := Describe(steps)
	if len(statuses) != len(steps) {
		t.Fatalf("expected %d statuses, got %d", len(steps), len(statuses))
	}

	for _, status := range statuses {
		if status.Name == "" {
			t.Fatalf("expected status name, got %+v", status)
		}
		if !status.Enabled {
			t.Fatalf("expected filter %s to stay enabled", status.Name)
		}
	}
}
