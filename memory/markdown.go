package memory

import (
	"fmt"
	"strings"
	"time"
)

// ExportMarkdown renders the current memory state as a human-readable
// markdown document: long-term insights first, then the short-term buffer.
// Useful for debugging a session or handing a transcript to a person.
func (s *Store) ExportMarkdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Session %s\n\n", s.sessionID)
	fmt.Fprintf(&b, "Exported %s\n\n", time.Now().Format(time.RFC3339))

	b.WriteString("## Long-term insights\n\n")
	if len(s.insights) == 0 {
		b.WriteString("_none_\n\n")
	}
	for _, ins := range s.insights {
		fmt.Fprintf(&b, "- **%s** (turns %d-%d): %s\n",
			ins.ID, ins.Covers.From, ins.Covers.To, ins.Text)
	}
	if len(s.insights) > 0 {
		b.WriteString("\n")
	}

	b.WriteString("## Recent turns\n\n")
	if len(s.turns) == 0 {
		b.WriteString("_none_\n")
	}
	for _, t := range s.turns {
		fmt.Fprintf(&b, "**%s**: %s\n\n", t.Role, t.Content)
	}

	return b.String()
}
