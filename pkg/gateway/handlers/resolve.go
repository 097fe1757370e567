package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/mira-coach/backend/pkg/gateway/coach"
	"github.com/mira-coach/backend/pkg/gateway/store"
)

var (
	errCoachNotFound    = errors.New("coach not found")
	errCoachRequiresPro = errors.New("this coach requires a Pro subscription")
	errCoachForbidden   = errors.New("coach is not in your library")
)

// resolvedCoach is a coach the caller is allowed to talk to.
type resolvedCoach struct {
	ID     string
	Voice  string
	custom *store.Coach
}

// Prompt builds the system instruction for this coach.
func (c resolvedCoach) Prompt(aboutMe string, messageCount int, resumed, voiceMode bool) string {
	params := coach.PromptParams{
		CoachID:      c.ID,
		AboutMe:      aboutMe,
		MessageCount: messageCount,
		Resumed:      resumed,
		VoiceMode:    voiceMode,
	}
	if c.custom != nil {
		params.CustomPrompt = coach.CustomPrompt(c.custom.Name, strings.Join(c.custom.Topics, ", "), c.custom.Style)
	}
	return coach.SystemPrompt(params)
}

// resolveCoach checks that the caller may use coachID. Built-in pro
// coaches need a pro tier; custom coaches must be owned or added to the
// caller's library. An empty id falls back to the default coach.
func resolveCoach(ctx context.Context, st store.Store, userID, tier, coachID string) (resolvedCoach, error) {
	if coachID == "" {
		coachID = "mira"
	}
	if coach.IsBuiltIn(coachID) {
		if coach.RequiresPro(coachID) && tier != store.TierPro {
			return resolvedCoach{}, errCoachRequiresPro
		}
		return resolvedCoach{ID: coachID, Voice: coach.Voice(coachID)}, nil
	}

	c, err := st.GetCoach(ctx, coachID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return resolvedCoach{}, errCoachNotFound
		}
		return resolvedCoach{}, err
	}
	if c.OwnerID != userID {
		library, err := st.ListLibrary(ctx, userID)
		if err != nil {
			return resolvedCoach{}, err
		}
		inLibrary := false
		for _, entry := range library {
			if entry.ID == c.ID {
				inLibrary = true
				break
			}
		}
		if !inLibrary {
			return resolvedCoach{}, errCoachForbidden
		}
	}
	return resolvedCoach{ID: c.ID, Voice: coach.DefaultVoice, custom: &c}, nil
}
