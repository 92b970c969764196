package jobs

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Job is a single posting queued for an application attempt.
type Job struct {
	Title       string `json:"title,omitempty"`
	Company     string `json:"company,omitempty"`
	URL         string `json:"url"`
	Platform    string `json:"platform,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	PostedAt    string `json:"posted_at,omitempty"`
}

type List struct {
	Items []*Job `json:"items"`
}

// FromFile loads a job queue from a JSON file. Both a bare array of jobs
// and an object with an "items" key are accepted, and an empty file yields
// an empty list.
func FromFile(path string) (*List, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &List{}, nil
	}

	var raw any
	if err := json.NewDecoder(file).Decode(&raw); err != nil {
		return nil, err
	}

	if wrapper, ok := raw.(map[string]any); ok {
		raw = wrapper["items"]
	}

	var items []*Job
	cfg := &mapstructure.DecoderConfig{
		Metadata: nil,
		Result:   &items,
		TagName:  "json",
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating jobs decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decoding jobs from %s: %w", path, err)
	}

	return &List{Items: items}, nil
}

func (l *List) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(l)
}

func (l *List) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "jobs_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(l); err != nil {
		return "", err
	}
	return file.Name(), nil
}

func (l *List) Len() int {
	return len(l.Items)
}

func (l *List) FindByURL(url string) *Job {
	for _, job := range l.Items {
		if job.URL == url {
			return job
		}
	}
	return nil
}

func (l *List) URLs() []string {
	urls := make([]string, 0, len(l.Items))
	for _, job := range l.Items {
		urls = append(urls, job.URL)
	}
	return urls
}

// Exclude removes every job the predicate matches and returns their URLs.
func (l *List) Exclude(match func(*Job) bool) []string {
	var excluded []string
	kept := l.Items[:0]
	for _, job := range l.Items {
		if match(job) {
			excluded = append(excluded, job.URL)
			continue
		}
		kept = append(kept, job)
	}
	l.Items = kept
	return excluded
}

// Dedupe removes jobs whose canonicalised URL was already seen earlier in
// the list and returns the number dropped.
func (l *List) Dedupe(canonical func(string) string) int {
	seen := make(map[string]bool, len(l.Items))
	dropped := len(l.Exclude(func(job *Job) bool {
		key := canonical(job.URL)
		if key == "" || seen[key] {
			return true
		}
		seen[key] = true
		return false
	}))
	return dropped
}

// ReportByCompany groups the remaining jobs for the confirmation prompt.
func (l *List) ReportByCompany() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, job := range l.Items {
		company := strings.TrimSpace(job.Company)
		if company == "" {
			company = "unknown"
		}
		report[company] = append(report[company], map[string]string{
			"title":    job.Title,
			"url":      job.URL,
			"platform": job.Platform,
			"location": job.Location,
		})
	}
	return report
}
