package rules

import (
	"testing"

	"github.com/spigell/apply-pilot/internal/answer"
	"github.com/spigell/apply-pilot/internal/profile"
)

func testProfile() *profile.Profile {
	return &profile.Profile{
		Identity: profile.Identity{
			FirstName: "Asha",
			LastName:  "Nair",
			Email:     "asha@example.com",
			Phone:     "+91 9000000000",
			Gender:    "Male",
		},
		Location: profile.Location{
			City:              "Kozhikode",
			State:             "Kerala",
			Country:           "India",
			PostalCode:        "673641",
			WillingToRelocate: true,
			RemotePreference:  "Remote",
		},
		WorkHistory: []profile.Employment{
			{Company: "Acme", Title: "Developer", Start: "2024-09", End: "2025-03", Technologies: []string{"React", "Node.js", "MongoDB"}},
			{Company: "Initech", Title: "Intern", Start: "2024-05", End: "2024-08", Technologies: []string{"PostgreSQL", "GraphQL"}},
		},
		Education: []profile.Education{
			{Institution: "State Technological University", Degree: "B.Tech", Field: "Computer Science", GPA: "7.66"},
		},
		Skills: profile.Skills{
			Technical: []string{"Python", "JavaScript", "TypeScript", "React", "SQL", "AWS", "Docker", "Git"},
		},
		Preferences: profile.Preferences{
			Salary:           profile.Salary{Minimum: 280000, Maximum: 400000, Currency: "INR", Period: "yearly"},
			NoticePeriodDays: 10,
		},
		OnlineProfiles: map[string]string{
			"linkedin": "https://www.linkedin.com/in/asha",
			"github":   "https://github.com/asha",
		},
		Authorization: profile.Authorization{
			AuthorizedToWork:    true,
			RequiresSponsorship: false,
			VisaStatus:          "Citizen",
		},
	}
}

func text(q string) answer.Question {
	return answer.Question{Text: q, Type: answer.FieldText}
}

func TestNumericExperienceGuard(t *testing.T) {
	r := New(testProfile())

	cases := []struct {
		question string
		want     string
	}{
		{"How many years of experience do you have with React?", "1"},
		{"Years of experience with Node.js", "1"},
		{"Salesforce Apex years of experience?", "0"},
		{"How many years have you worked with SAP?", "0"},
		{"Number of years with PostgreSQL", "1"},
	}

	for _, tc := range cases {
		if got := r.Resolve(text(tc.question)); got != tc.want {
			t.Fatalf("Resolve(%q) = %q, want %q", tc.question, got, tc.want)
		}
	}
}

func TestGenericExperienceGuard(t *testing.T) {
	r := New(testProfile())

	if got := r.Resolve(text("Do you have experience with Docker?")); got != "1" {
		t.Fatalf("known technology: got %q, want 1", got)
	}

	if got := r.Resolve(text("Total professional experience")); got != "1" {
		t.Fatalf("total experience: got %q, want 1", got)
	}

	if got := r.Resolve(text("Experience with mainframe systems")); got != "0" {
		t.Fatalf("unknown technology: got %q, want 0", got)
	}
}

func TestGenericExperienceWithoutEmployment(t *testing.T) {
	p := testProfile()
	p.WorkHistory = nil
	p.Skills = profile.Skills{}
	r := New(p)

	if got := r.Resolve(text("Total work experience")); got != "0" {
		t.Fatalf("got %q, want 0", got)
	}
}

func TestCompensationGuard(t *testing.T) {
	r := New(testProfile())

	cases := []struct {
		question string
		want     string
	}{
		{"What is your current CTC (LPA)?", "2.8"},
		{"Current salary", "280000"},
		{"Expected CTC in lakhs", "4"},
		{"Expected salary", "400000"},
		{"What is your salary expectation?", "400000"},
		{"Last drawn compensation in LPA", "2.8"},
	}

	for _, tc := range cases {
		if got := r.Resolve(text(tc.question)); got != tc.want {
			t.Fatalf("Resolve(%q) = %q, want %q", tc.question, got, tc.want)
		}
	}
}

func TestNoticePeriodGuard(t *testing.T) {
	r := New(testProfile())

	if got := r.Resolve(answer.Question{Text: "Notice period (in days)", Type: answer.FieldNumber}); got != "10" {
		t.Fatalf("got %q, want 10", got)
	}
}

func TestFieldCategories(t *testing.T) {
	r := New(testProfile())

	cases := []struct {
		question string
		want     string
	}{
		{"First Name", "Asha"},
		{"Your email address", "asha@example.com"},
		{"Phone number", "+91 9000000000"},
		{"City", "Kozhikode, Kerala, India"},
		{"Current location", "Kozhikode, Kerala, India"},
		{"Zip code", "673641"},
		{"LinkedIn profile URL", "https://www.linkedin.com/in/asha"},
		{"University attended", "State Technological University"},
		{"What is your visa status?", "Citizen"},
	}

	for _, tc := range cases {
		if got := r.Resolve(text(tc.question)); got != tc.want {
			t.Fatalf("Resolve(%q) = %q, want %q", tc.question, got, tc.want)
		}
	}
}

func TestBooleanIntentWithoutOptions(t *testing.T) {
	r := New(testProfile())

	if got := r.Resolve(text("Are you legally authorized to work in India?")); got != "Yes" {
		t.Fatalf("authorization: got %q, want Yes", got)
	}

	if got := r.Resolve(text("Will you require visa sponsorship?")); got != "No" {
		t.Fatalf("sponsorship: got %q, want No", got)
	}

	if got := r.Resolve(answer.Question{Text: "I agree to the terms and conditions", Type: answer.FieldCheckbox}); got != "Yes" {
		t.Fatalf("consent: got %q, want Yes", got)
	}
}

func TestUnmatchedQuestionReturnsEmpty(t *testing.T) {
	r := New(testProfile())

	if got := r.Resolve(text("Describe your favourite project")); got != "" {
		t.Fatalf("got %q, want empty string", got)
	}
}

func TestOverrideCoversOnlyGuardRules(t *testing.T) {
	r := New(testProfile())

	if got, ok := r.Override(text("Expected CTC in LPA")); !ok || got != "4" {
		t.Fatalf("compensation override: got %q (%v)", got, ok)
	}

	if got, ok := r.Override(text("Notice period")); !ok || got != "10" {
		t.Fatalf("notice override: got %q (%v)", got, ok)
	}

	if _, ok := r.Override(text("First Name")); ok {
		t.Fatal("identity questions must not be overridden")
	}

	if _, ok := r.Override(text("Are you authorized to work?")); ok {
		t.Fatal("boolean questions must not be overridden")
	}
}
