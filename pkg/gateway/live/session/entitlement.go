package session

import (
	"context"
	"fmt"
	"time"

	"github.com/mira-coach/backend/pkg/gateway/store"
)

const (
	msgTrialUsed    = "You've used your free voice session. Upgrade to Pro for unlimited voice coaching."
	msgMonthlyLimit = "Monthly voice limit reached (60 minutes). Resets next month."
)

// DeniedError carries the user-facing message sent when a session is
// refused before any upstream connection is made.
type DeniedError struct {
	Message string
}

func (e *DeniedError) Error() string { return e.Message }

// gate checks the caller's entitlement and returns the time limit for
// this session. For free users the trial flag is written before the
// upstream connection is attempted, so a failed connect still consumes
// the trial. For pro users the monthly ceiling is checked once, here;
// a session admitted under the ceiling gets the full session cap even
// if that overruns the month, and is never cut short mid-session.
func gate(ctx context.Context, st store.Store, userID, tier string, cfg Limits, now time.Time) (time.Duration, error) {
	switch tier {
	case store.TierPro:
		used, err := st.VoiceMinutesForMonth(ctx, userID, store.MonthKey(now))
		if err != nil {
			return 0, fmt.Errorf("look up voice usage: %w", err)
		}
		if used >= float64(cfg.ProMonthlyMinutes) {
			return 0, &DeniedError{Message: msgMonthlyLimit}
		}
		return time.Duration(cfg.SessionMaxMinutes) * time.Minute, nil
	default:
		used, err := st.VoiceTrialUsed(ctx, userID)
		if err != nil {
			return 0, fmt.Errorf("look up voice trial: %w", err)
		}
		if used {
			return 0, &DeniedError{Message: msgTrialUsed}
		}
		if err := st.MarkVoiceTrialUsed(ctx, userID); err != nil {
			return 0, fmt.Errorf("mark voice trial: %w", err)
		}
		return time.Duration(cfg.FreeTrialMinutes) * time.Minute, nil
	}
}
