// Package coach holds the built-in coach definitions and assembles the
// system prompts sent to Gemini.
package coach

// Custom coach styles.
const (
	StyleWarm    = "warm"
	StyleDirect  = "direct"
	StylePlayful = "playful"
)

// DefaultVoice is used for custom coaches and unknown ids.
const DefaultVoice = "Aoede"

var builtInNames = map[string]string{
	"mira":  "Mira",
	"atlas": "Atlas",
	"lyra":  "Lyra",
	"sol":   "Sol",
	"ember": "Ember",
}

// Gemini Live prebuilt voices, matched to each coach's tone.
var voices = map[string]string{
	"mira":  "Aoede",
	"atlas": "Charon",
	"lyra":  "Puck",
	"sol":   "Kore",
	"ember": "Fenrir",
}

// Coaches reserved for pro subscribers. Free users get Mira only.
var proOnly = map[string]struct{}{
	"atlas": {},
	"lyra":  {},
	"sol":   {},
	"ember": {},
}

func IsBuiltIn(id string) bool {
	_, ok := builtInNames[id]
	return ok
}

func Name(id string) string {
	if name, ok := builtInNames[id]; ok {
		return name
	}
	return id
}

func Voice(id string) string {
	if v, ok := voices[id]; ok {
		return v
	}
	return DefaultVoice
}

func RequiresPro(id string) bool {
	_, ok := proOnly[id]
	return ok
}

func ValidStyle(style string) bool {
	switch style {
	case StyleWarm, StyleDirect, StylePlayful:
		return true
	}
	return false
}

// BuiltInIDs lists the built-in coaches in display order.
func BuiltInIDs() []string {
	return []string{"mira", "atlas", "lyra", "sol", "ember"}
}
