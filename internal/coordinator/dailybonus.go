package coordinator

import (
	"context"
	"time"
)

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// shouldOfferDailyBonus reports whether lastLogin is absent or falls strictly
// before the calendar day of now (in now's location).
func shouldOfferDailyBonus(lastLogin *time.Time, now time.Time) bool {
	if lastLogin == nil {
		return true
	}
	return lastLogin.In(now.Location()).Before(startOfDay(now))
}

// DailyBonusOpen reports whether the claim prompt is open.
func (c *Coordinator) DailyBonusOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bonusOpen
}

// ClaimDailyBonus awards the bonus and stamps last_login. The prompt closes
// once the points are persisted.
func (c *Coordinator) ClaimDailyBonus(ctx context.Context) error {
	sess := c.Session()
	if sess == nil {
		return ErrNoSession
	}

	c.mu.Lock()
	if !c.bonusOpen {
		c.mu.Unlock()
		return ErrBonusNotAvailable
	}
	// Closed before the award so a concurrent claim cannot pay twice.
	c.bonusOpen = false
	c.mu.Unlock()

	if err := c.AddBonusPoints(ctx, c.bonus); err != nil {
		c.mu.Lock()
		c.bonusOpen = true
		c.mu.Unlock()
		return err
	}

	now := c.now()
	if err := c.backend.StampLastLogin(ctx, sess.UserID, now); err != nil {
		c.log.Warnw("failed to stamp last login", "user_id", sess.UserID, "error", err)
		return nil
	}
	c.mu.Lock()
	c.lastLogin = &now
	c.mu.Unlock()
	return nil
}

// DismissDailyBonus closes the prompt without changing any state; the bonus
// stays claimable at the next session check.
func (c *Coordinator) DismissDailyBonus() {
	c.mu.Lock()
	c.bonusOpen = false
	c.mu.Unlock()
}
