package filtering

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/apply-pilot/internal/jobs"
)

const forceFlagSetMsg = "force flag is set"

type desiredTitlesFilter struct {
	titles []string
}

// NewDesiredTitles creates a filter that keeps only jobs whose title matches
// one of the configured role patterns. With no patterns configured the
// filter passes everything through.
func NewDesiredTitles() Filter {
	return &desiredTitlesFilter{}
}

func (f *desiredTitlesFilter) Name() string { return "desired_titles" }

func (f *desiredTitlesFilter) Disable(string) {}

func (f *desiredTitlesFilter) IsEnabled() bool { return true }

func (f *desiredTitlesFilter) Validate(cfg *Config) error {
	f.titles = nil
	if cfg != nil {
		for _, title := range cfg.DesiredTitles {
			if title = strings.TrimSpace(strings.ToLower(title)); title != "" {
				f.titles = append(f.titles, title)
			}
		}
	}
	return nil
}

func (f *desiredTitlesFilter) Apply(_ context.Context, deps Deps, l *jobs.List) (*jobs.List, Step, error) {
	initial := l.Len()
	if len(f.titles) == 0 {
		return l, Step{Initial: initial, Dropped: 0, Left: l.Len()}, nil
	}

	excluded := l.Exclude(func(job *jobs.Job) bool {
		title := strings.ToLower(job.Title)
		for _, wanted := range f.titles {
			if strings.Contains(title, wanted) {
				return false
			}
		}
		return true
	})

	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding jobs not matching desired titles",
			zap.Strings("excluded_jobs", excluded),
			zap.Int("jobs_left", l.Len()),
		)
	}

	return l, Step{Initial: initial, Dropped: len(excluded), Left: l.Len()}, nil
}

func (f *desiredTitlesFilter) Status() Status {
	details := map[string]string{}
	if len(f.titles) > 0 {
		details["titles"] = strings.Join(f.titles, ",")
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}

type keywordsFilter struct {
	keywords []string
}

// NewExcludedKeywords creates a filter that removes jobs whose title or
// description contains a blocked keyword.
func NewExcludedKeywords() Filter {
	return &keywordsFilter{}
}

func (f *keywordsFilter) Name() string { return "excluded_keywords" }

func (f *keywordsFilter) Disable(string) {}

func (f *keywordsFilter) IsEnabled() bool { return true }

func (f *keywordsFilter) Validate(cfg *Config) error {
	f.keywords = nil
	if cfg != nil {
		for _, keyword := range cfg.ExcludeKeywords {
			if keyword = strings.TrimSpace(strings.ToLower(keyword)); keyword != "" {
				f.keywords = append(f.keywords, keyword)
			}
		}
	}
	return nil
}

func (f *keywordsFilter) Apply(_ context.Context, deps Deps, l *jobs.List) (*jobs.List, Step, error) {
	initial := l.Len()
	if len(f.keywords) == 0 {
		return l, Step{Initial: initial, Dropped: 0, Left: l.Len()}, nil
	}

	excluded := l.Exclude(func(job *jobs.Job) bool {
		haystack := strings.ToLower(job.Title + "\n" + job.Description)
		for _, keyword := range f.keywords {
			if strings.Contains(haystack, keyword) {
				return true
			}
		}
		return false
	})

	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding jobs by blocked keywords",
			zap.Strings("excluded_jobs", excluded),
			zap.Int("jobs_left", l.Len()),
		)
	}

	return l, Step{Initial: initial, Dropped: len(excluded), Left: l.Len()}, nil
}

func (f *keywordsFilter) Status() Status {
	details := map[string]string{}
	if len(f.keywords) > 0 {
		details["keywords"] = strings.Join(f.keywords, ",")
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}

type companiesFilter struct {
	companies []string
}

// NewExcludedCompanies creates a filter that removes jobs from blocked companies.
func NewExcludedCompanies() Filter {
	return &companiesFilter{}
}

func (f *companiesFilter) Name() string { return "excluded_companies" }

func (f *companiesFilter) Disable(string) {}

func (f *companiesFilter) IsEnabled() bool { return true }

func (f *companiesFilter) Validate(cfg *Config) error {
	f.companies = nil
	if cfg != nil {
		for _, company := range cfg.ExcludeCompanies {
			if company = strings.TrimSpace(strings.ToLower(company)); company != "" {
				f.companies = append(f.companies, company)
			}
		}
	}
	return nil
}

func (f *companiesFilter) Apply(_ context.Context, deps Deps, l *jobs.List) (*jobs.List, Step, error) {
	initial := l.Len()
	if len(f.companies) == 0 {
		return l, Step{Initial: initial, Dropped: 0, Left: l.Len()}, nil
	}

	excluded := l.Exclude(func(job *jobs.Job) bool {
		company := strings.ToLower(job.Company)
		for _, blocked := range f.companies {
			if strings.Contains(company, blocked) {
				return true
			}
		}
		return false
	})

	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding jobs by blocked companies",
			zap.Strings("excluded_companies", f.companies),
			zap.Strings("excluded_jobs", excluded),
			zap.Int("jobs_left", l.Len()),
		)
	}

	return l, Step{Initial: initial, Dropped: len(excluded), Left: l.Len()}, nil
}

func (f *companiesFilter) Status() Status {
	details := map[string]string{}
	if len(f.companies) > 0 {
		details["companies"] = strings.Join(f.companies, ",")
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}

type appliedHistoryFilter struct {
	ignore bool
}

// NewAppliedHistory creates a filter that removes jobs already present in
// the application ledger.
func NewAppliedHistory(ignore bool) Filter {
	return &appliedHistoryFilter{ignore: ignore}
}

func (f *appliedHistoryFilter) Name() string { return "applied_history" }

func (f *appliedHistoryFilter) Disable(string) {}

func (f *appliedHistoryFilter) IsEnabled() bool { return true }

func (f *appliedHistoryFilter) Validate(*Config) error { return nil }

func (f *appliedHistoryFilter) Apply(ctx context.Context, deps Deps, l *jobs.List) (*jobs.List, Step, error) {
	initial := l.Len()
	if f.ignore {
		if deps.Logger != nil {
			deps.Logger.Info("ignoring already applied jobs", zap.String("reason", forceFlagSetMsg))
		}
		return l, Step{Initial: initial, Dropped: 0, Left: l.Len()}, nil
	}

	if deps.History == nil {
		return l, Step{}, fmt.Errorf("application ledger is required")
	}

	var lookupErr error
	excluded := l.Exclude(func(job *jobs.Job) bool {
		if lookupErr != nil {
			return false
		}
		applied, err := deps.History.HasApplied(ctx, job.URL)
		if err != nil {
			lookupErr = err
			return false
		}
		return applied
	})
	if lookupErr != nil {
		return l, Step{}, fmt.Errorf("checking application ledger: %w", lookupErr)
	}

	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Info("excluding jobs already in the ledger",
			zap.Strings("excluded_jobs", excluded),
			zap.Int("jobs_left", l.Len()),
		)
	}

	return l, Step{Initial: initial, Dropped: len(excluded), Left: l.Len()}, nil
}

func (f *appliedHistoryFilter) Status() Status {
	details := map[string]string{
		"exclude_applied": strconv.FormatBool(!f.ignore),
	}
	reason := ""
	if f.ignore {
		reason = "skip requested via flag"
	}
	return Status{Name: f.Name(), Enabled: true, Reason: reason, Details: details}
}

type dailyCapFilter struct {
	cap int
}

// NewDailyCap creates a filter that truncates the queue so the day's total
// submissions stay under the configured cap.
func NewDailyCap() Filter {
	return &dailyCapFilter{}
}

func (f *dailyCapFilter) Name() string { return "daily_cap" }

func (f *dailyCapFilter) Disable(string) {}

func (f *dailyCapFilter) IsEnabled() bool { return true }

func (f *dailyCapFilter) Validate(cfg *Config) error {
	f.cap = 0
	if cfg != nil {
		f.cap = cfg.DailyCap
	}
	if f.cap < 0 {
		return fmt.Errorf("daily cap must not be negative")
	}
	return nil
}

func (f *dailyCapFilter) Apply(ctx context.Context, deps Deps, l *jobs.List) (*jobs.List, Step, error) {
	initial := l.Len()
	if f.cap == 0 {
		return l, Step{Initial: initial, Dropped: 0, Left: l.Len()}, nil
	}

	if deps.History == nil {
		return l, Step{}, fmt.Errorf("application ledger is required")
	}

	today, err := deps.History.TodayCount(ctx)
	if err != nil {
		return l, Step{}, fmt.Errorf("counting today's applications: %w", err)
	}

	remaining := f.cap - today
	if remaining < 0 {
		remaining = 0
	}
	if initial <= remaining {
		return l, Step{Initial: initial, Dropped: 0, Left: l.Len()}, nil
	}

	dropped := initial - remaining
	l.Items = l.Items[:remaining]

	if deps.Logger != nil {
		deps.Logger.Info("truncating queue to respect daily cap",
			zap.Int("cap", f.cap),
			zap.Int("already_applied_today", today),
			zap.Int("dropped", dropped),
		)
	}

	return l, Step{Initial: initial, Dropped: dropped, Left: l.Len()}, nil
}

func (f *dailyCapFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: true, Details: map[string]string{
		"cap": strconv.Itoa(f.cap),
	}}
}

// Default returns the standard filter chain in execution order.
func Default(ignoreApplied bool) []Filter {
	return []Filter{
		NewDesiredTitles(),
		NewExcludedKeywords(),
		NewExcludedCompanies(),
		NewAppliedHistory(ignoreApplied),
		NewDailyCap(),
	}
}
