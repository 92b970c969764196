package driver

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/apply-pilot/internal/answer"
	"github.com/spigell/apply-pilot/internal/jobs"
	"github.com/spigell/apply-pilot/internal/ledger"
	"github.com/spigell/apply-pilot/internal/profile"
	"github.com/spigell/apply-pilot/internal/util"
)

var (
	// ErrAlreadyApplied means the ledger already holds this posting.
	ErrAlreadyApplied = errors.New("already applied")
	// ErrUnanswerable means a required question could not be answered safely.
	ErrUnanswerable = errors.New("required question cannot be answered")
)

const (
	defaultMaxPages      = 8
	defaultResumeVariant = "default"
)

// Field is one form control discovered on an application page.
type Field struct {
	Label    string
	Type     answer.FieldType
	Options  []string
	Required bool
	Selector string
}

// Session abstracts the browser so the application flow can be tested
// without one.
type Session interface {
	Open(ctx context.Context, url string) error
	Fields(ctx context.Context) ([]Field, error)
	Fill(ctx context.Context, field Field, value string) error
	Upload(ctx context.Context, field Field, path string) error
	// Advance submits or moves to the next page. It reports true once the
	// application has been submitted.
	Advance(ctx context.Context) (bool, error)
	Close() error
}

// Engine resolves form questions into answers.
type Engine interface {
	Resolve(ctx context.Context, q answer.Question) answer.ResolvedAnswer
}

// Ledger is the slice of the application ledger the driver needs.
type Ledger interface {
	HasApplied(ctx context.Context, url string) (bool, error)
	Record(ctx context.Context, app ledger.Application) (bool, error)
}

// Driver walks a single job application end to end: ledger pre-check, page
// by page form filling, submission, and the final ledger record.
type Driver struct {
	session  Session
	engine   Engine
	ledger   Ledger
	profile  *profile.Profile
	logger   *zap.Logger
	maxPages int
}

func New(session Session, engine Engine, ldgr Ledger, p *profile.Profile, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Driver{
		session:  session,
		engine:   engine,
		ledger:   ldgr,
		profile:  p,
		logger:   logger,
		maxPages: defaultMaxPages,
	}
}

// Apply runs one application. The ledger is consulted before any browser
// work and updated only after a confirmed submission, so a crash in between
// leaves the job retryable rather than falsely marked done.
func (d *Driver) Apply(ctx context.Context, job *jobs.Job) error {
	applied, err := d.ledger.HasApplied(ctx, job.URL)
	if err != nil {
		return fmt.Errorf("checking ledger: %w", err)
	}
	if applied {
		return fmt.Errorf("%s: %w", job.URL, ErrAlreadyApplied)
	}

	if err := d.session.Open(ctx, job.URL); err != nil {
		return fmt.Errorf("opening %s: %w", job.URL, err)
	}

	var resumeVariant string

	for page := 1; page <= d.maxPages; page++ {
		fields, err := d.session.Fields(ctx)
		if err != nil {
			return fmt.Errorf("discovering fields on page %d: %w", page, err)
		}

		d.logger.Debug("filling application page",
			zap.String("url", job.URL),
			zap.Int("page", page),
			zap.Int("fields", len(fields)),
		)

		for _, field := range fields {
			if field.Type == answer.FieldFile {
				variant, err := d.uploadResume(ctx, field)
				if err != nil {
					return fmt.Errorf("page %d: %w", page, err)
				}
				if variant != "" {
					resumeVariant = variant
				}
				continue
			}
			if err := d.fillField(ctx, field); err != nil {
				return fmt.Errorf("page %d: %w", page, err)
			}
		}

		done, err := d.session.Advance(ctx)
		if err != nil {
			return fmt.Errorf("advancing from page %d: %w", page, err)
		}
		if done {
			return d.record(ctx, job, resumeVariant)
		}
	}

	return fmt.Errorf("form did not complete within %d pages", d.maxPages)
}

func (d *Driver) fillField(ctx context.Context, field Field) error {
	resolved := d.engine.Resolve(ctx, answer.Question{
		Text:    field.Label,
		Type:    field.Type,
		Options: field.Options,
	})

	if resolved.Value == "" {
		if field.Required {
			return fmt.Errorf("%q: %w", field.Label, ErrUnanswerable)
		}
		d.logger.Debug("leaving optional field blank", zap.String("label", field.Label))
		return nil
	}

	d.logger.Debug("filling field",
		zap.String("label", field.Label),
		zap.String("source", string(resolved.Source)),
		zap.String("value", util.TruncateForLog(resolved.Value, 80)),
	)

	if err := d.session.Fill(ctx, field, resolved.Value); err != nil {
		return fmt.Errorf("filling %q: %w", field.Label, err)
	}

	return nil
}

// uploadResume attaches the default resume variant and reports which variant
// was used, so the ledger record can carry it.
func (d *Driver) uploadResume(ctx context.Context, field Field) (string, error) {
	variant := defaultResumeVariant

	path := d.profile.Resume(variant)
	if path == "" {
		if field.Required {
			return "", fmt.Errorf("%q: no resume configured: %w", field.Label, ErrUnanswerable)
		}
		return "", nil
	}

	if err := d.session.Upload(ctx, field, path); err != nil {
		return "", fmt.Errorf("uploading resume to %q: %w", field.Label, err)
	}

	return variant, nil
}

func (d *Driver) record(ctx context.Context, job *jobs.Job, resumeVariant string) error {
	inserted, err := d.ledger.Record(ctx, ledger.Application{
		URL:           job.URL,
		Company:       job.Company,
		Role:          job.Title,
		Platform:      job.Platform,
		ResumeVariant: resumeVariant,
		Status:        ledger.StatusApplied,
	})
	if err != nil {
		return fmt.Errorf("recording application: %w", err)
	}
	if !inserted {
		// Submission went through but another run recorded it first.
		d.logger.Warn("application was already in the ledger", zap.String("url", job.URL))
	}

	d.logger.Info("application submitted",
		zap.String("company", job.Company),
		zap.String("role", job.Title),
		zap.String("url", job.URL),
	)

	return nil
}
