package services

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	SignupPromptKeyPrefix = "signup_prompt:"
	signupPromptTTL       = 24 * time.Hour
)

// SignupPrompt records whether an anonymous device has already been asked to
// create an account during its current browsing session.
type SignupPrompt struct {
	client *redis.Client
}

func NewSignupPrompt(client *redis.Client) *SignupPrompt {
	return &SignupPrompt{client: client}
}

// ShouldShow reports true exactly once per device until the flag expires.
func (p *SignupPrompt) ShouldShow(ctx context.Context, deviceID string) (bool, error) {
	return p.client.SetNX(ctx, SignupPromptKeyPrefix+deviceID, "1", signupPromptTTL).Result()
}
