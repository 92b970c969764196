package rules

import (
	"strings"

	"github.com/spigell/apply-pilot/internal/answer"
)

// booleanCategory ties a set of question keywords to a profile-backed
// polarity and the option synonyms for each side. Selection picks the first
// option, in page order, whose lowercase text contains any synonym of the
// resolved polarity. optionKeywords match only when the question carries an
// option list: "work location type" is a remote question for a dropdown but
// a plain location question for a text field.
type booleanCategory struct {
	keywords       []string
	optionKeywords []string
	polarity       func(r *Resolver) bool
	yes            []string
	no             []string
}

var booleanCategories = []booleanCategory{
	{
		keywords: []string{"authorized to work", "legally authorized", "eligible to work", "work authorization", "right to work", "permission to work"},
		polarity: func(r *Resolver) bool { return r.profile.Authorization.AuthorizedToWork },
		yes:      []string{"yes", "authorized"},
		no:       []string{"no"},
	},
	{
		keywords: []string{"sponsorship", "require visa", "need visa", "immigration"},
		polarity: func(r *Resolver) bool { return r.profile.Authorization.RequiresSponsorship },
		yes:      []string{"yes", "require"},
		no:       []string{"no", "do not"},
	},
	{
		keywords: []string{"relocate", "relocation"},
		polarity: func(r *Resolver) bool { return r.profile.Location.WillingToRelocate },
		yes:      []string{"yes", "willing"},
		no:       []string{"no"},
	},
	{
		keywords:       []string{"remote"},
		optionKeywords: []string{"work location", "hybrid"},
		polarity: func(r *Resolver) bool {
			return strings.EqualFold(r.profile.Location.RemotePreference, "remote")
		},
		yes: []string{"yes", "remote"},
		no:  []string{"no", "hybrid", "office"},
	},
	{
		keywords: []string{"18 years", "at least 18", "over 18", "legal age"},
		polarity: func(*Resolver) bool { return true },
		yes:      []string{"yes"},
		no:       []string{"no"},
	},
	{
		keywords: []string{"consent", "agree", "accept", "acknowledge", "terms", "privacy policy", "background check", "certify"},
		polarity: func(*Resolver) bool { return true },
		yes:      []string{"yes", "agree", "accept"},
		no:       []string{"no"},
	},
}

var eeoKeywords = []string{"race", "ethnicity", "veteran", "disability"}

var declineMarkers = []string{"prefer not", "decline", "not"}

var placeholderMarkers = []string{"select", "choose", "please"}

// SelectOption picks a single option for an option-constrained field. It is
// used whenever the question carries a non-empty option list; with no
// options it returns an empty string.
func (r *Resolver) SelectOption(q answer.Question) string {
	if len(q.Options) == 0 {
		return ""
	}

	if category := matchCategory(q.Text, true); category != nil {
		synonyms := category.no
		if category.polarity(r) {
			synonyms = category.yes
		}
		if opt := firstContaining(q.Options, synonyms...); opt != "" {
			return opt
		}
	}

	if containsAny(q.Text, "gender") {
		if opt := r.selectGender(q.Options); opt != "" {
			return opt
		}
	}

	if containsAny(q.Text, eeoKeywords...) {
		if opt := firstContaining(q.Options, declineMarkers...); opt != "" {
			return opt
		}
	}

	for _, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			continue
		}
		if containsAny(opt, placeholderMarkers...) {
			continue
		}

		return opt
	}

	return q.Options[0]
}

// booleanPolarity resolves yes/no-intent questions against the profile.
// The second return is false when the question matches no boolean category.
func (r *Resolver) booleanPolarity(text string) (bool, bool) {
	category := matchCategory(text, false)
	if category == nil {
		return false, false
	}

	return category.polarity(r), true
}

func matchCategory(text string, withOptionKeywords bool) *booleanCategory {
	for i := range booleanCategories {
		category := &booleanCategories[i]
		if containsAny(text, category.keywords...) {
			return category
		}
		if withOptionKeywords && containsAny(text, category.optionKeywords...) {
			return category
		}
	}

	return nil
}

// selectGender matches the profile's configured gender value against the
// options: exact match first, then containment that avoids the opposite
// value ("male" must not select "Female"), then an explicit decline option.
func (r *Resolver) selectGender(options []string) string {
	configured := strings.ToLower(strings.TrimSpace(r.profile.Identity.Gender))

	if configured != "" {
		for _, opt := range options {
			if strings.ToLower(strings.TrimSpace(opt)) == configured {
				return opt
			}
		}

		negations := genderNegations(configured)
		for _, opt := range options {
			lower := strings.ToLower(opt)
			if strings.Contains(lower, configured) && !containsAny(lower, negations...) {
				return opt
			}
		}
	}

	return firstContaining(options, "prefer not", "decline")
}

// genderNegations lists the terms whose presence disqualifies a containment
// match for the configured value. "female" contains "male", so a "male"
// profile must skip any option mentioning "female" or "woman".
func genderNegations(configured string) []string {
	switch configured {
	case "male", "man":
		return []string{"female", "woman"}
	default:
		return nil
	}
}

func firstContaining(options []string, markers ...string) string {
	if len(markers) == 0 {
		return ""
	}

	for _, opt := range options {
		if containsAny(opt, markers...) {
			return opt
		}
	}

	return ""
}
