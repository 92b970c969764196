package profile

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Ongoing marks an employment or education period that has not ended yet.
const Ongoing = "Present"

// Profile is the single source of truth about the candidate. It is built
// once at startup, validated and never mutated afterwards. Components derive
// answers from it on demand; nothing writes derived facts back.
type Profile struct {
	Identity       Identity          `mapstructure:"identity"`
	Location       Location          `mapstructure:"location"`
	WorkHistory    []Employment      `mapstructure:"work_history"`
	Education      []Education       `mapstructure:"education"`
	Skills         Skills            `mapstructure:"skills"`
	Preferences    Preferences       `mapstructure:"preferences"`
	OnlineProfiles map[string]string `mapstructure:"online_profiles"`
	Authorization  Authorization     `mapstructure:"work_authorization"`
	Resumes        map[string]string `mapstructure:"resumes"`
}

type Identity struct {
	FirstName   string `mapstructure:"first_name"`
	LastName    string `mapstructure:"last_name"`
	FullName    string `mapstructure:"full_name"`
	Email       string `mapstructure:"email"`
	Phone       string `mapstructure:"phone"`
	DateOfBirth string `mapstructure:"date_of_birth"`
	Gender      string `mapstructure:"gender"`
	Nationality string `mapstructure:"nationality"`
}

type Location struct {
	Address           string `mapstructure:"address"`
	AddressLine2      string `mapstructure:"address_line_2"`
	City              string `mapstructure:"city"`
	State             string `mapstructure:"state"`
	Country           string `mapstructure:"country"`
	PostalCode        string `mapstructure:"postal_code"`
	WillingToRelocate bool   `mapstructure:"willing_to_relocate"`
	RemotePreference  string `mapstructure:"remote_preference"`
}

// Employment is one entry of the work history. Start and End use the
// "2006-01" layout; End may be set to Ongoing for the current position.
type Employment struct {
	Company      string   `mapstructure:"company"`
	Title        string   `mapstructure:"title"`
	Start        string   `mapstructure:"start"`
	End          string   `mapstructure:"end"`
	Technologies []string `mapstructure:"technologies"`
}

type Education struct {
	Institution string `mapstructure:"institution"`
	Degree      string `mapstructure:"degree"`
	Field       string `mapstructure:"field"`
	Start       string `mapstructure:"start"`
	End         string `mapstructure:"end"`
	GPA         string `mapstructure:"gpa"`
}

type Skills struct {
	Technical []string `mapstructure:"technical"`
	Soft      []string `mapstructure:"soft"`
	Tools     []string `mapstructure:"tools"`
}

type Preferences struct {
	DesiredTitles    []string `mapstructure:"desired_titles"`
	Salary           Salary   `mapstructure:"salary"`
	NoticePeriodDays int      `mapstructure:"notice_period_days"`
	ExcludeCompanies []string `mapstructure:"exclude_companies"`
	ExcludeKeywords  []string `mapstructure:"exclude_keywords"`
}

type Salary struct {
	Minimum  int    `mapstructure:"minimum"`
	Maximum  int    `mapstructure:"maximum"`
	Currency string `mapstructure:"currency"`
	Period   string `mapstructure:"period"`
}

type Authorization struct {
	AuthorizedToWork    bool   `mapstructure:"authorized_to_work"`
	RequiresSponsorship bool   `mapstructure:"requires_sponsorship"`
	VisaStatus          string `mapstructure:"visa_status"`
}

const monthLayout = "2006-01"

// now is swappable in tests to pin derived experience calculations.
var now = time.Now

// Validate checks structural invariants of the profile. It is called once
// right after loading; a profile that fails validation aborts startup.
func (p *Profile) Validate() error {
	if strings.TrimSpace(p.Identity.FirstName) == "" && strings.TrimSpace(p.Identity.FullName) == "" {
		return errors.New("identity: a first name or full name is required")
	}

	if strings.TrimSpace(p.Identity.Email) == "" {
		return errors.New("identity: email is required")
	}

	for i, emp := range p.WorkHistory {
		start, err := time.Parse(monthLayout, emp.Start)
		if err != nil {
			return fmt.Errorf("work_history[%d]: parsing start %q: %w", i, emp.Start, err)
		}

		if emp.End == Ongoing || emp.End == "" {
			continue
		}

		end, err := time.Parse(monthLayout, emp.End)
		if err != nil {
			return fmt.Errorf("work_history[%d]: parsing end %q: %w", i, emp.End, err)
		}

		if end.Before(start) {
			return fmt.Errorf("work_history[%d]: end %s precedes start %s", i, emp.End, emp.Start)
		}
	}

	return nil
}

// TotalExperienceYears sums the work history spans at month resolution.
// Ongoing positions are counted up to the current month. The value is
// computed on demand and never stored.
func (p *Profile) TotalExperienceYears() float64 {
	months := 0
	for _, emp := range p.WorkHistory {
		start, err := time.Parse(monthLayout, emp.Start)
		if err != nil {
			continue
		}

		var end time.Time
		if emp.End == Ongoing || emp.End == "" {
			end = now()
		} else {
			end, err = time.Parse(monthLayout, emp.End)
			if err != nil {
				continue
			}
		}

		span := (end.Year()-start.Year())*12 + int(end.Month()-start.Month())
		if span > 0 {
			months += span
		}
	}

	return float64(months) / 12
}

// KnowsTechnology reports whether the candidate lists the technology in the
// skills set or in any work history entry. Matching is case-insensitive and
// the question token may be a substring of the listed skill ("node" matches
// "Node.js") or vice versa.
func (p *Profile) KnowsTechnology(token string) bool {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return false
	}

	for _, skill := range p.allTechnologies() {
		if strings.Contains(skill, token) || strings.Contains(token, skill) {
			return true
		}
	}

	return false
}

// Technologies returns the lowercase union of technical skills, tools and
// technologies mentioned in the work history.
func (p *Profile) Technologies() []string {
	return p.allTechnologies()
}

func (p *Profile) allTechnologies() []string {
	seen := make(map[string]struct{})
	all := make([]string, 0, len(p.Skills.Technical))

	add := func(items []string) {
		for _, item := range items {
			item = strings.ToLower(strings.TrimSpace(item))
			if item == "" {
				continue
			}
			if _, ok := seen[item]; ok {
				continue
			}
			seen[item] = struct{}{}
			all = append(all, item)
		}
	}

	add(p.Skills.Technical)
	add(p.Skills.Tools)
	for _, emp := range p.WorkHistory {
		add(emp.Technologies)
	}

	return all
}

// FullName returns the explicit full name or assembles one from the parts.
func (p *Profile) FullName() string {
	if full := strings.TrimSpace(p.Identity.FullName); full != "" {
		return full
	}

	return strings.TrimSpace(p.Identity.FirstName + " " + p.Identity.LastName)
}

// FullLocation renders "City, State, Country" with empty segments collapsed
// and no dangling separators.
func (p *Profile) FullLocation() string {
	segments := make([]string, 0, 3)
	for _, s := range []string{p.Location.City, p.Location.State, p.Location.Country} {
		if s = strings.TrimSpace(s); s != "" {
			segments = append(segments, s)
		}
	}

	return strings.Join(segments, ", ")
}

// Resume returns the path of the requested resume variant, falling back to
// the default variant when the requested one is not configured.
func (p *Profile) Resume(variant string) string {
	if path, ok := p.Resumes[variant]; ok {
		return path
	}

	return p.Resumes["default"]
}

// OnlineProfile returns the URL for the given platform name, if configured.
func (p *Profile) OnlineProfile(platform string) string {
	return p.OnlineProfiles[strings.ToLower(platform)]
}
