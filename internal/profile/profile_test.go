package profile

import (
	"testing"
	"time"
)

func testProfile() *Profile {
	return &Profile{
		Identity: Identity{
			FirstName: "Asha",
			LastName:  "Nair",
			Email:     "asha@example.com",
			Gender:    "Female",
		},
		Location: Location{
			City:    "Kochi",
			Country: "India",
		},
		WorkHistory: []Employment{
			{
				Company:      "Acme",
				Title:        "Software Developer",
				Start:        "2024-09",
				End:          Ongoing,
				Technologies: []string{"React", "Node.js"},
			},
			{
				Company:      "Initech",
				Title:        "Backend Intern",
				Start:        "2024-05",
				End:          "2024-08",
				Technologies: []string{"PostgreSQL", "GraphQL"},
			},
		},
		Skills: Skills{
			Technical: []string{"Python", "JavaScript", "React"},
		},
	}
}

func TestValidateRejectsReversedDates(t *testing.T) {
	p := testProfile()
	p.WorkHistory[1].Start = "2024-08"
	p.WorkHistory[1].End = "2024-05"

	if err := p.Validate(); err == nil {
		t.Fatal("expected validation error for end before start")
	}
}

func TestValidateRequiresEmail(t *testing.T) {
	p := testProfile()
	p.Identity.Email = ""

	if err := p.Validate(); err == nil {
		t.Fatal("expected validation error for missing email")
	}
}

func TestTotalExperienceYears(t *testing.T) {
	original := now
	now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }
	defer func() { now = original }()

	p := testProfile()

	// 6 months ongoing + 3 months internship.
	got := p.TotalExperienceYears()
	want := 9.0 / 12

	if got != want {
		t.Fatalf("expected %v years, got %v", want, got)
	}
}

func TestKnowsTechnology(t *testing.T) {
	p := testProfile()

	cases := []struct {
		token string
		want  bool
	}{
		{"react", true},
		{"React", true},
		{"node", true},       // work history technology
		{"postgresql", true}, // work history technology
		{"apex", false},
		{"salesforce", false},
		{"", false},
	}

	for _, tc := range cases {
		if got := p.KnowsTechnology(tc.token); got != tc.want {
			t.Fatalf("KnowsTechnology(%q) = %v, want %v", tc.token, got, tc.want)
		}
	}
}

func TestFullLocationCollapsesEmptySegments(t *testing.T) {
	p := testProfile()

	if got := p.FullLocation(); got != "Kochi, India" {
		t.Fatalf("unexpected location: %q", got)
	}

	p.Location = Location{}
	if got := p.FullLocation(); got != "" {
		t.Fatalf("expected empty location, got %q", got)
	}
}

func TestFullNameFallsBackToParts(t *testing.T) {
	p := testProfile()

	if got := p.FullName(); got != "Asha Nair" {
		t.Fatalf("unexpected full name: %q", got)
	}
}
