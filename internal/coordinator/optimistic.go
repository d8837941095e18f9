package coordinator

import (
	"context"
	"fmt"
)

// optimistic applies a local mutation under the lock, runs persist without
// holding it, and undoes the mutation if persist fails. apply returns the
// compensating function. When visible is set the failure is also reported to
// the user through the notifier.
func (c *Coordinator) optimistic(
	ctx context.Context,
	op string,
	apply func() (revert func()),
	persist func(ctx context.Context) error,
	visible bool,
	message string,
) error {
	c.mu.Lock()
	revert := apply()
	c.mu.Unlock()

	if err := persist(ctx); err != nil {
		c.mu.Lock()
		revert()
		c.mu.Unlock()

		c.log.Errorw("remote write failed, local state reverted", "op", op, "error", err)
		if visible {
			c.notifier.Notify(Notice{Kind: NoticeError, Message: message})
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
