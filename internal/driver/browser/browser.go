package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/spigell/apply-pilot/internal/answer"
	"github.com/spigell/apply-pilot/internal/driver"
)

const (
	defaultPageTimeout = 45 * time.Second
	settleDelay        = 1500 * time.Millisecond

	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
)

// Config controls the headless browser.
type Config struct {
	Headless    bool          `mapstructure:"headless"`
	UserDataDir string        `mapstructure:"user-data-dir"`
	PageTimeout time.Duration `mapstructure:"page-timeout"`
}

// Session drives application forms through a Chrome instance. It implements
// driver.Session.
type Session struct {
	ctx         context.Context
	cancel      []context.CancelFunc
	pageTimeout time.Duration
	logger      *zap.Logger
}

// NewSession launches a browser. Close must be called to tear it down.
func NewSession(ctx context.Context, cfg Config, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PageTimeout == 0 {
		cfg.PageTimeout = defaultPageTimeout
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(userAgent),
	)
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Starting the browser eagerly surfaces a missing Chrome binary here
	// instead of on the first navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	return &Session{
		ctx:         browserCtx,
		cancel:      []context.CancelFunc{browserCancel, allocCancel},
		pageTimeout: cfg.PageTimeout,
		logger:      logger,
	}, nil
}

func (s *Session) Close() error {
	for _, cancel := range s.cancel {
		cancel()
	}
	return nil
}

func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, s.pageTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(runCtx, actions...) }()

	select {
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// Open navigates to the posting and waits for the page to settle.
func (s *Session) Open(ctx context.Context, url string) error {
	s.logger.Debug("navigating", zap.String("url", url))

	return s.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(settleDelay),
	)
}

// rawField mirrors the object built by the discovery script.
type rawField struct {
	Label    string   `json:"label"`
	Kind     string   `json:"kind"`
	Options  []string `json:"options"`
	Required bool     `json:"required"`
	Selector string   `json:"selector"`
}

// Fields discovers the visible form controls on the current page.
func (s *Session) Fields(ctx context.Context) ([]driver.Field, error) {
	var raw []rawField
	if err := s.run(ctx, chromedp.EvaluateAsDevTools(discoverScript, &raw)); err != nil {
		return nil, fmt.Errorf("discovering fields: %w", err)
	}

	fields := make([]driver.Field, 0, len(raw))
	for _, r := range raw {
		label := strings.TrimSpace(r.Label)
		if label == "" {
			continue
		}
		fields = append(fields, driver.Field{
			Label:    label,
			Type:     fieldType(r.Kind),
			Options:  r.Options,
			Required: r.Required,
			Selector: r.Selector,
		})
	}

	s.logger.Debug("discovered fields", zap.Int("count", len(fields)))

	return fields, nil
}

func fieldType(kind string) answer.FieldType {
	switch kind {
	case "number":
		return answer.FieldNumber
	case "select":
		return answer.FieldDropdown
	case "radio":
		return answer.FieldRadio
	case "checkbox":
		return answer.FieldCheckbox
	case "file":
		return answer.FieldFile
	default:
		return answer.FieldText
	}
}

// Fill writes the value into the control behind the field's selector.
func (s *Session) Fill(ctx context.Context, field driver.Field, value string) error {
	switch field.Type {
	case answer.FieldDropdown:
		return s.run(ctx, chromedp.EvaluateAsDevTools(
			fmt.Sprintf(selectOptionScript, jsString(field.Selector), jsString(value)), nil))
	case answer.FieldRadio, answer.FieldCheckbox:
		return s.run(ctx, chromedp.EvaluateAsDevTools(
			fmt.Sprintf(clickOptionScript, jsString(field.Selector), jsString(value)), nil))
	default:
		return s.run(ctx,
			chromedp.Clear(field.Selector, chromedp.ByQuery),
			chromedp.SendKeys(field.Selector, value, chromedp.ByQuery),
		)
	}
}

// Upload attaches a file to an upload control.
func (s *Session) Upload(ctx context.Context, field driver.Field, path string) error {
	return s.run(ctx, chromedp.SetUploadFiles(field.Selector, []string{path}, chromedp.ByQuery))
}

// Advance clicks the submit or next button and reports whether the
// application reached its confirmation page.
func (s *Session) Advance(ctx context.Context) (bool, error) {
	var clicked bool
	if err := s.run(ctx, chromedp.EvaluateAsDevTools(advanceScript, &clicked)); err != nil {
		return false, fmt.Errorf("advancing form: %w", err)
	}
	if !clicked {
		return false, fmt.Errorf("no submit or next button found")
	}

	var submitted bool
	err := s.run(ctx,
		chromedp.Sleep(settleDelay),
		chromedp.EvaluateAsDevTools(confirmationScript, &submitted),
	)
	if err != nil {
		return false, fmt.Errorf("checking confirmation: %w", err)
	}

	return submitted, nil
}

// jsString produces a JS string literal.
func jsString(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`)
	return "'" + replacer.Replace(s) + "'"
}
