package coordinator

import (
	"context"
	"fmt"

	"github.com/AnshRaj112/ecoscan-backend/internal/models"
)

// mergeAnonymous folds the device's anonymous balance into the profile and
// clears it. Without anonymous points it simply loads the profile. The
// read-then-write against the profile is not isolated from other devices.
func (c *Coordinator) mergeAnonymous(ctx context.Context, userID string) (models.Profile, error) {
	anon, err := c.anon.Load(ctx)
	if err != nil {
		c.log.Warnw("failed to read anonymous points", "user_id", userID, "error", err)
		anon = 0
	}

	profile, err := c.backend.GetProfile(ctx, userID)
	if err != nil {
		return models.Profile{}, fmt.Errorf("load profile: %w", err)
	}
	if anon <= 0 {
		return profile, nil
	}

	merged := profile.Points + anon
	if err := c.backend.UpdatePoints(ctx, userID, merged); err != nil {
		// The anonymous balance stays stored so the next sign-in can retry.
		c.log.Errorw("failed to merge anonymous points", "user_id", userID, "anonymous", anon, "error", err)
		return profile, nil
	}
	if err := c.anon.Clear(ctx); err != nil {
		c.log.Warnw("failed to clear anonymous points", "user_id", userID, "error", err)
	}

	c.log.Infow("merged anonymous points", "user_id", userID, "anonymous", anon, "points", merged)
	profile.Points = merged
	return profile, nil
}
