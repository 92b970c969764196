package rules

import (
	"math"
	"strconv"
	"strings"

	"github.com/spigell/apply-pilot/internal/answer"
	"github.com/spigell/apply-pilot/internal/profile"
)

// Resolver produces deterministic answers from the candidate profile. It
// never fabricates a number or fact that is not derivable from the profile;
// when no rule matches it returns an empty string, which the caller treats
// as "cannot answer safely".
type Resolver struct {
	profile *profile.Profile
	rules   []rule
}

// rule pairs a match predicate with a resolver. Rules live in one ordered
// table so the priority between them stays auditable and testable: the
// numeric experience guard must fire before the generic experience rule,
// which must fire before any free-text category rule.
type rule struct {
	name     string
	override bool
	match    func(q answer.Question) bool
	resolve  func(q answer.Question) string
}

// New builds a resolver over the given read-only profile.
func New(p *profile.Profile) *Resolver {
	r := &Resolver{profile: p}
	r.rules = r.buildRules()

	return r
}

// Resolve returns the best-known literal answer for the question, or an
// empty string when no rule can answer it safely.
func (r *Resolver) Resolve(q answer.Question) string {
	for _, rule := range r.rules {
		if rule.match(q) {
			return rule.resolve(q)
		}
	}

	return ""
}

// Override runs only the deterministic guard rules (numeric experience,
// compensation, notice period). These are the categories where a language
// model is most likely to produce a plausible but non-profile-derived
// number, so the engine resolves them before consulting any provider.
func (r *Resolver) Override(q answer.Question) (string, bool) {
	for _, rule := range r.rules {
		if rule.override && rule.match(q) {
			return rule.resolve(q), true
		}
	}

	return "", false
}

func (r *Resolver) buildRules() []rule {
	return []rule{
		{
			name:     "numeric_experience",
			override: true,
			match: func(q answer.Question) bool {
				return containsAny(q.Text, "year", "how many")
			},
			resolve: r.resolveNumericExperience,
		},
		{
			name:     "generic_experience",
			override: true,
			match: func(q answer.Question) bool {
				return containsAny(q.Text, "experience")
			},
			resolve: r.resolveGenericExperience,
		},
		{
			name:     "compensation",
			override: true,
			match: func(q answer.Question) bool {
				return containsAny(q.Text, "ctc", "salary", "compensation", "package", "pay")
			},
			resolve: r.resolveCompensation,
		},
		{
			name:     "notice_period",
			override: true,
			match: func(q answer.Question) bool {
				return containsAny(q.Text, "notice")
			},
			resolve: func(answer.Question) string {
				return strconv.Itoa(r.profile.Preferences.NoticePeriodDays)
			},
		},
		{
			name:  "option_constrained",
			match: func(q answer.Question) bool { return q.HasOptions() },
			resolve: func(q answer.Question) string {
				return r.SelectOption(q)
			},
		},
		{
			name: "boolean_intent",
			match: func(q answer.Question) bool {
				_, ok := r.booleanPolarity(q.Text)
				return ok
			},
			resolve: func(q answer.Question) string {
				yes, _ := r.booleanPolarity(q.Text)
				if yes {
					return "Yes"
				}
				return "No"
			},
		},
		{
			name:    "field_category",
			match:   func(q answer.Question) bool { return r.categoryAnswer(q.Text) != nil },
			resolve: func(q answer.Question) string { return *r.categoryAnswer(q.Text) },
		},
	}
}

// resolveNumericExperience guards every "years of X" phrasing. The profile
// supports exactly one technology-specific experience value, so a known
// technology answers "1" and anything else answers "0" rather than letting
// a looser rule or a provider invent a plausible number.
func (r *Resolver) resolveNumericExperience(q answer.Question) string {
	if r.questionMentionsKnownTechnology(q.Text) {
		return "1"
	}

	return "0"
}

func (r *Resolver) resolveGenericExperience(q answer.Question) string {
	if r.questionMentionsKnownTechnology(q.Text) {
		return "1"
	}

	if containsAny(q.Text, "total", "overall", "work", "professional") {
		return r.totalExperienceAnswer()
	}

	return "0"
}

// totalExperienceAnswer rounds the derived work history total, floored at
// one year when any employment exists at all.
func (r *Resolver) totalExperienceAnswer() string {
	if len(r.profile.WorkHistory) == 0 {
		return "0"
	}

	years := int(math.Round(r.profile.TotalExperienceYears()))
	if years < 1 {
		years = 1
	}

	return strconv.Itoa(years)
}

func (r *Resolver) questionMentionsKnownTechnology(text string) bool {
	text = strings.ToLower(text)
	for _, tech := range r.profile.Technologies() {
		if strings.Contains(text, tech) {
			return true
		}
	}

	return false
}

// resolveCompensation normalizes the dozens of recruiter phrasings for the
// same two numbers: current pay maps to the salary range minimum, expected
// pay to the maximum. A lakhs/LPA unit hint switches to lakh units.
func (r *Resolver) resolveCompensation(q answer.Question) string {
	salary := r.profile.Preferences.Salary
	inLakhs := containsAny(q.Text, "lpa", "lakh")

	amount := salary.Maximum
	if containsAny(q.Text, "current", "present", "last", "drawn", "existing") {
		amount = salary.Minimum
	}

	if inLakhs {
		return formatLakhs(amount)
	}

	return strconv.Itoa(amount)
}

// formatLakhs renders an absolute yearly amount in lakh units with trailing
// zeros trimmed: 280000 -> "2.8", 400000 -> "4".
func formatLakhs(amount int) string {
	return strconv.FormatFloat(float64(amount)/100000, 'f', -1, 64)
}

// categoryAnswer maps identity, location, education and online-profile
// keywords to the corresponding profile attribute. A nil return means no
// category matched; a pointer to an empty string is a valid "the profile
// has no value here" answer.
func (r *Resolver) categoryAnswer(text string) *string {
	p := r.profile

	categories := []struct {
		keywords []string
		value    func() string
	}{
		{[]string{"first name", "given name"}, func() string { return p.Identity.FirstName }},
		{[]string{"last name", "surname", "family name"}, func() string { return p.Identity.LastName }},
		{[]string{"full name", "complete name", "your name"}, p.FullName},
		{[]string{"email", "e-mail"}, func() string { return p.Identity.Email }},
		{[]string{"phone", "mobile", "cell", "telephone", "contact number"}, func() string { return p.Identity.Phone }},
		{[]string{"date of birth", "birth date", "dob"}, func() string { return p.Identity.DateOfBirth }},
		{[]string{"nationality"}, func() string { return p.Identity.Nationality }},
		{[]string{"linkedin"}, func() string { return p.OnlineProfile("linkedin") }},
		{[]string{"github"}, func() string { return p.OnlineProfile("github") }},
		{[]string{"portfolio", "personal site", "website"}, func() string {
			if url := p.OnlineProfile("portfolio"); url != "" {
				return url
			}
			return p.OnlineProfile("website")
		}},
		{[]string{"city", "town", "location"}, p.FullLocation},
		{[]string{"state", "province"}, func() string { return p.Location.State }},
		{[]string{"country", "nation"}, func() string { return p.Location.Country }},
		{[]string{"zip", "postal", "pincode"}, func() string { return p.Location.PostalCode }},
		{[]string{"address"}, func() string { return p.Location.Address }},
		{[]string{"university", "college", "school", "institution"}, func() string { return r.education().Institution }},
		{[]string{"degree", "qualification"}, func() string { return r.education().Degree }},
		{[]string{"major", "field of study"}, func() string { return r.education().Field }},
		{[]string{"gpa", "grade"}, func() string { return r.education().GPA }},
		{[]string{"visa status"}, func() string { return p.Authorization.VisaStatus }},
	}

	for _, category := range categories {
		if containsAny(text, category.keywords...) {
			value := category.value()
			return &value
		}
	}

	return nil
}

func (r *Resolver) education() profile.Education {
	if len(r.profile.Education) == 0 {
		return profile.Education{}
	}

	return r.profile.Education[0]
}

// containsAny reports whether the lowercased text contains any of the
// keywords. Question text is always treated case-insensitively.
func containsAny(text string, keywords ...string) bool {
	text = strings.ToLower(text)
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}

	return false
}
