package conversation

import (
	"strings"
	"time"
)

// QuickCommand maps a fixed alias set to a canned reply. Render receives the
// current time for templates that show a date.
type QuickCommand struct {
	Name    string
	Aliases []string
	Render  func(now time.Time) string
}

func StaticReply(text string) func(time.Time) string {
	return func(time.Time) string { return text }
}

type QuickCommands struct {
	byAlias map[string]QuickCommand
	now     func() time.Time
}

func NewQuickCommands(now func() time.Time, commands ...QuickCommand) *QuickCommands {
	if now == nil {
		now = time.Now
	}
	q := &QuickCommands{byAlias: make(map[string]QuickCommand), now: now}
	for _, cmd := range commands {
		for _, alias := range cmd.Aliases {
			q.byAlias[normalize(alias)] = cmd
		}
	}
	return q
}

// Match is an exact lookup on the trimmed, lower-cased text.
func (q *QuickCommands) Match(text string) (string, bool) {
	if q == nil {
		return "", false
	}
	cmd, ok := q.byAlias[normalize(text)]
	if !ok {
		return "", false
	}
	return cmd.Render(q.now()), true
}

// Is reports whether text is one of aliases under the same normalization.
func Is(text string, aliases []string) bool {
	n := normalize(text)
	for _, a := range aliases {
		if normalize(a) == n {
			return true
		}
	}
	return false
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
