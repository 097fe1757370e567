package session

import "strings"

// Turn is one transcript entry accumulated during a session.
type Turn struct {
	Role string
	Text string
}

// Consolidate merges adjacent fragments from the same speaker into whole
// turns. The upstream transcription arrives word-by-word or in short
// bursts, so fragments are concatenated with no separator; the text
// already carries its own spacing. Whitespace-only fragments are dropped
// before merging so they never split two same-speaker turns apart.
func Consolidate(fragments []Turn) []Turn {
	var out []Turn
	for _, f := range fragments {
		if strings.TrimSpace(f.Text) == "" {
			continue
		}
		if len(out) > 0 && out[len(out)-1].Role == f.Role {
			out[len(out)-1].Text += f.Text
			continue
		}
		out = append(out, f)
	}
	return out
}
