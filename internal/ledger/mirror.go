package ledger

import (
	"fmt"
	"os"
)

// Mirror maintains a human-readable copy of the applied jobs, one line per
// application, so the history survives in plain text alongside the database.
type Mirror struct {
	path string
}

func NewMirror(path string) *Mirror {
	return &Mirror{path: path}
}

// Append writes one `date | company | role | platform` line.
func (m *Mirror) Append(app Application) error {
	f, err := os.OpenFile(m.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("opening mirror file: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("%s | %s | %s | %s\n",
		app.AppliedAt.Format("2006-01-02"), app.Company, app.Role, app.Platform)

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("writing mirror line: %w", err)
	}

	return nil
}
