package coordinator

import (
	"context"
	"fmt"

	"github.com/AnshRaj112/ecoscan-backend/internal/achievements"
	"github.com/AnshRaj112/ecoscan-backend/internal/models"
)

// AddPoints awards amount for a scan. With a session the balance and scan
// count are persisted to the profile (user-visible on failure) and a history
// entry is appended best-effort. Without a session the anonymous balance is
// stored locally instead. The community bottle counter is incremented in both
// cases; its failure is only logged.
func (c *Coordinator) AddPoints(ctx context.Context, amount int, barcode string) error {
	sess := c.Session()

	var primary error
	if sess == nil {
		c.addAnonymous(ctx, amount)
	} else {
		primary = c.awardScan(ctx, sess, amount, barcode)
	}

	c.incrementBottles(ctx)
	return primary
}

func (c *Coordinator) addAnonymous(ctx context.Context, amount int) {
	c.mu.Lock()
	c.points += amount
	pts := c.points
	c.mu.Unlock()

	if err := c.anon.Save(ctx, pts); err != nil {
		c.log.Warnw("failed to store anonymous points", "points", pts, "error", err)
	}
}

// syncBalance replaces the cached balance with the profile's, since other
// instances write the same profile. On failure the cached balance is kept.
// Callers hold c.writes.
func (c *Coordinator) syncBalance(ctx context.Context, userID string) {
	profile, err := c.backend.GetProfile(ctx, userID)
	if err != nil {
		c.log.Warnw("failed to refresh points, using cached balance", "user_id", userID, "error", err)
		return
	}
	c.mu.Lock()
	if c.session != nil && c.session.UserID == userID {
		c.points = profile.Points
	}
	c.mu.Unlock()
}

func (c *Coordinator) awardScan(ctx context.Context, sess *models.Session, amount int, barcode string) error {
	var before, after achievements.Stats
	var next int

	c.writes.Lock()
	defer c.writes.Unlock()
	c.syncBalance(ctx, sess.UserID)

	err := c.optimistic(ctx, "award points",
		func() func() {
			before = c.statsLocked()
			c.points += amount
			c.scanCount++
			next = c.points
			after = c.statsLocked()
			return func() {
				c.points -= amount
				c.scanCount--
			}
		},
		func(ctx context.Context) error {
			return c.backend.UpdatePoints(ctx, sess.UserID, next)
		},
		true, "Failed to save your points. Please try again.",
	)
	if err != nil {
		return err
	}

	entry := models.ScanHistoryEntry{
		UserID:         sess.UserID,
		PointsEarned:   amount,
		ProductBarcode: barcode,
		ScannedAt:      c.now().UTC(),
	}
	if err := c.backend.InsertScan(ctx, entry); err != nil {
		c.log.Warnw("failed to record scan history", "user_id", sess.UserID, "barcode", barcode, "error", err)
	}

	if before.TotalScans == 0 {
		if err := c.backend.AddActiveRecycler(ctx); err != nil {
			c.log.Warnw("failed to count active recycler", "user_id", sess.UserID, "error", err)
		}
	}

	c.announce(before, after)
	return nil
}

func (c *Coordinator) incrementBottles(ctx context.Context) {
	var total int64
	err := c.optimistic(ctx, "increment total bottles",
		func() func() {
			c.community.TotalBottlesRecycled++
			return func() { c.community.TotalBottlesRecycled-- }
		},
		func(ctx context.Context) error {
			var err error
			total, err = c.backend.IncrementTotalBottles(ctx)
			return err
		},
		false, "",
	)
	if err != nil {
		return
	}

	c.mu.Lock()
	c.community.TotalBottlesRecycled = total
	stats := c.community
	c.mu.Unlock()
	c.publishCommunity(stats)
}

// SpendPoints deducts amount. It reports false without a session or when the
// balance is insufficient; neither case changes state.
func (c *Coordinator) SpendPoints(ctx context.Context, amount int) (bool, error) {
	sess := c.Session()
	if sess == nil || amount < 0 {
		return false, nil
	}

	c.writes.Lock()
	defer c.writes.Unlock()
	c.syncBalance(ctx, sess.UserID)

	applied := false
	var next int
	err := c.optimistic(ctx, "spend points",
		func() func() {
			if c.points < amount {
				return func() {}
			}
			applied = true
			c.points -= amount
			next = c.points
			return func() { c.points += amount }
		},
		func(ctx context.Context) error {
			if !applied {
				return nil
			}
			return c.backend.UpdatePoints(ctx, sess.UserID, next)
		},
		true, "Failed to redeem the reward. Please try again.",
	)
	if err != nil {
		return false, err
	}
	return applied, nil
}

// AddBonusPoints awards amount without counting a scan. Failures are returned
// to the caller rather than reported to the user.
func (c *Coordinator) AddBonusPoints(ctx context.Context, amount int) error {
	sess := c.Session()
	if sess == nil {
		return nil
	}

	c.writes.Lock()
	defer c.writes.Unlock()
	c.syncBalance(ctx, sess.UserID)

	var before, after achievements.Stats
	var next int
	err := c.optimistic(ctx, "add bonus points",
		func() func() {
			before = c.statsLocked()
			c.points += amount
			next = c.points
			after = c.statsLocked()
			return func() { c.points -= amount }
		},
		func(ctx context.Context) error {
			return c.backend.UpdatePoints(ctx, sess.UserID, next)
		},
		false, "",
	)
	if err != nil {
		return err
	}
	c.announce(before, after)
	return nil
}

// ResetCommunityStats zeroes the community counters remotely and re-reads
// them. Callers must restrict it to administrators.
func (c *Coordinator) ResetCommunityStats(ctx context.Context) error {
	if err := c.backend.ResetCommunityStats(ctx); err != nil {
		return fmt.Errorf("reset community stats: %w", err)
	}
	stats, err := c.backend.CommunityStats(ctx)
	if err != nil {
		return fmt.Errorf("reload community stats: %w", err)
	}

	c.mu.Lock()
	c.community = stats
	c.mu.Unlock()
	c.publishCommunity(stats)
	return nil
}

// FetchCommunityStats refreshes the local copy. Failures keep the stale copy.
func (c *Coordinator) FetchCommunityStats(ctx context.Context) models.CommunityStats {
	stats, err := c.backend.CommunityStats(ctx)
	if err != nil {
		c.log.Warnw("failed to fetch community stats", "error", err)
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.community
	}
	c.mu.Lock()
	c.community = stats
	c.mu.Unlock()
	return stats
}

func (c *Coordinator) announce(before, after achievements.Stats) {
	for _, a := range achievements.NewlyUnlocked(before, after) {
		a := a
		c.notifier.Notify(Notice{
			Kind:        NoticeAchievement,
			Message:     "Achievement unlocked: " + a.Name,
			Achievement: &a,
		})
	}
}

func (c *Coordinator) publishCommunity(stats models.CommunityStats) {
	if c.onCommunity != nil {
		c.onCommunity(stats)
	}
}
