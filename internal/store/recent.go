package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/AnshRaj112/ecoscan-backend/internal/models"
)

const (
	recentScansKeyPrefix = "scans:user:"
	recentScansKeySuffix = ":recent"
	recentScansGenSuffix = ":recent_gen"
	RecentScansMaxLen    = 50
	recentScansTTL       = 1 * time.Hour
)

func recentScansKey(userID string) string {
	return recentScansKeyPrefix + userID + recentScansKeySuffix
}

// recentScansGenKey counts inserts per user. Warm only fills the list when
// no insert landed since the caller read the generation.
func recentScansGenKey(userID string) string {
	return recentScansKeyPrefix + userID + recentScansGenSuffix
}

// RecentScans keeps each user's latest scans in a Redis list, newest at head.
type RecentScans struct {
	client *redis.Client
	log    *zap.SugaredLogger
}

func NewRecentScans(client *redis.Client, log *zap.SugaredLogger) *RecentScans {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &RecentScans{client: client, log: log}
}

// Push prepends entry, but only to a list that is already warm; a cold list
// stays cold so Get never serves a partial history.
func (r *RecentScans) Push(ctx context.Context, entry models.ScanHistoryEntry) {
	key := recentScansKey(entry.UserID)
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := r.client.Incr(ctx, recentScansGenKey(entry.UserID)).Err(); err != nil {
		// Without the bump a concurrent Warm could cache a list missing entry.
		r.log.Warnw("recent scans generation bump failed", "user_id", entry.UserID, "error", err)
		r.client.Del(ctx, key)
		return
	}
	if _, err := r.client.LPushX(ctx, key, data).Result(); err != nil {
		r.log.Warnw("recent scans push failed", "user_id", entry.UserID, "error", err)
		return
	}
	pipe := r.client.Pipeline()
	pipe.LTrim(ctx, key, 0, RecentScansMaxLen-1)
	pipe.Expire(ctx, key, recentScansTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Warnw("recent scans trim failed", "user_id", entry.UserID, "error", err)
	}
}

// Get returns the cached entries newest-first.
func (r *RecentScans) Get(ctx context.Context, userID string) ([]models.ScanHistoryEntry, bool) {
	raw, err := r.client.LRange(ctx, recentScansKey(userID), 0, -1).Result()
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	out := make([]models.ScanHistoryEntry, 0, len(raw))
	for _, s := range raw {
		var e models.ScanHistoryEntry
		if json.Unmarshal([]byte(s), &e) != nil {
			continue
		}
		out = append(out, e)
	}
	return out, len(out) > 0
}

// Generation returns the user's insert counter; pass it to Warm.
func (r *RecentScans) Generation(ctx context.Context, userID string) (int64, error) {
	gen, err := r.client.Get(ctx, recentScansGenKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Warm replaces the cached list with entries (newest-first), unless the
// generation moved past gen since the entries were read.
func (r *RecentScans) Warm(ctx context.Context, userID string, entries []models.ScanHistoryEntry, gen int64) {
	key := recentScansKey(userID)
	genKey := recentScansGenKey(userID)
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStaleWarm
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			for _, e := range entries {
				data, err := json.Marshal(e)
				if err != nil {
					continue
				}
				pipe.RPush(ctx, key, data)
			}
			pipe.LTrim(ctx, key, 0, RecentScansMaxLen-1)
			pipe.Expire(ctx, key, recentScansTTL)
			return nil
		})
		return err
	}, genKey)
	switch {
	case err == nil:
	case errors.Is(err, errStaleWarm), errors.Is(err, redis.TxFailedErr):
		r.log.Debugw("recent scans warm skipped, newer scans exist", "user_id", userID)
	default:
		r.log.Warnw("recent scans warm failed", "user_id", userID, "error", err)
	}
}

var errStaleWarm = errors.New("recent scans changed since read")
