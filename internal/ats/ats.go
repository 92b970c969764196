package ats

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Platform identifies the applicant tracking system hosting a posting.
type Platform string

const (
	Greenhouse Platform = "greenhouse"
	Lever      Platform = "lever"
	Ashby      Platform = "ashby"
	Workday    Platform = "workday"
	LinkedIn   Platform = "linkedin"
	Indeed     Platform = "indeed"
	Naukri     Platform = "naukri"
	Workable   Platform = "workable"
	SmartRec   Platform = "smartrecruiters"
	Unknown    Platform = "unknown"
)

// hostMarkers maps hostname fragments to platforms. Checked in order, the
// first match wins.
var hostMarkers = []struct {
	marker   string
	platform Platform
}{
	{"greenhouse.io", Greenhouse},
	{"lever.co", Lever},
	{"ashbyhq.com", Ashby},
	{"myworkdayjobs.com", Workday},
	{"workday.com", Workday},
	{"linkedin.com", LinkedIn},
	{"indeed.com", Indeed},
	{"naukri.com", Naukri},
	{"workable.com", Workable},
	{"smartrecruiters.com", SmartRec},
}

// Detect classifies a job posting URL by its hostname.
func Detect(jobURL string) Platform {
	parsed, err := url.Parse(strings.TrimSpace(jobURL))
	if err != nil || parsed.Host == "" {
		return Unknown
	}

	host := strings.ToLower(parsed.Host)
	for _, entry := range hostMarkers {
		if host == entry.marker || strings.HasSuffix(host, "."+entry.marker) {
			return entry.platform
		}
	}

	return Unknown
}

// SupportsAutofill reports whether the driver knows how to fill forms on
// the platform. Aggregators like LinkedIn and Indeed redirect to external
// sites and need the target checked instead.
func (p Platform) SupportsAutofill() bool {
	switch p {
	case Greenhouse, Lever, Ashby, Workable, SmartRec:
		return true
	default:
		return false
	}
}

const probeTimeout = 15 * time.Second

// Prober checks that a posting is still reachable before the browser is
// pointed at it.
type Prober struct {
	client *http.Client
	logger *zap.Logger
}

func NewProber(logger *zap.Logger) *Prober {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Prober{
		client: &http.Client{Timeout: probeTimeout},
		logger: logger,
	}
}

// Probe issues a GET against the posting URL and reports whether it still
// answers with a non-error status. Postings are taken down constantly, a
// 404 here saves a full browser session.
func (p *Prober) Probe(ctx context.Context, jobURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jobURL, nil)
	if err != nil {
		return fmt.Errorf("building probe request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("probing %s: %w", jobURL, err)
	}
	defer resp.Body.Close()

	p.logger.Debug("probed job posting",
		zap.String("url", jobURL),
		zap.Int("status", resp.StatusCode),
	)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("posting %s is gone: %s", jobURL, resp.Status)
	}

	return nil
}
