package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/AnshRaj112/ecoscan-backend/internal/models"
)

const (
	ScanHistoryCollection = "scan_history"
	DefaultHistoryLimit   = 20
	MaxHistoryLimit       = 100
)

// ScanLog is the append-only scan history in MongoDB, fronted by an optional
// recent-scan cache.
type ScanLog struct {
	col    *mongo.Collection
	recent *RecentScans
	log    *zap.SugaredLogger
}

func NewScanLog(db *mongo.Database, recent *RecentScans, log *zap.SugaredLogger) *ScanLog {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &ScanLog{col: db.Collection(ScanHistoryCollection), recent: recent, log: log}
}

// EnsureIndexes creates the (user_id, scanned_at desc, _id desc) index used by
// counts and pagination.
func (l *ScanLog) EnsureIndexes(ctx context.Context) error {
	_, err := l.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "scanned_at", Value: -1},
			{Key: "_id", Value: -1},
		},
		Options: options.Index().SetName("idx_user_scanned_at_id"),
	})
	return err
}

func (l *ScanLog) InsertScan(ctx context.Context, entry models.ScanHistoryEntry) error {
	if entry.ScannedAt.IsZero() {
		entry.ScannedAt = time.Now().UTC()
	}
	res, err := l.col.InsertOne(ctx, entry)
	if err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		entry.ID = id
	}
	if l.recent != nil {
		l.recent.Push(ctx, entry)
	}
	return nil
}

func (l *ScanLog) CountScans(ctx context.Context, userID string) (int, error) {
	n, err := l.col.CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("count scans: %w", err)
	}
	return int(n), nil
}

// ListScans returns a user's history newest-first. after continues from the
// last entry of a previous page; the bool reports whether older entries remain.
func (l *ScanLog) ListScans(ctx context.Context, userID string, after *models.HistoryCursor, limit int) ([]models.ScanHistoryEntry, bool, error) {
	limit = clampLimit(limit)

	useCache := after == nil && l.recent != nil && limit <= RecentScansMaxLen
	var gen int64
	if useCache {
		if cached, ok := l.recent.Get(ctx, userID); ok {
			// A list shorter than the cap holds the whole history.
			if len(cached) > limit || len(cached) < RecentScansMaxLen {
				page, more := trimPage(cached, limit)
				return page, more, nil
			}
		}
		// Read before the query so inserts racing it veto the fill.
		var err error
		if gen, err = l.recent.Generation(ctx, userID); err != nil {
			l.log.Warnw("recent scans generation read failed", "user_id", userID, "error", err)
			useCache = false
		}
	}

	fetch := limit
	if useCache {
		fetch = RecentScansMaxLen
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "scanned_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(fetch) + 1)

	cur, err := l.col.Find(ctx, historyFilter(userID, after), opts)
	if err != nil {
		return nil, false, fmt.Errorf("list scans: %w", err)
	}
	defer cur.Close(ctx)

	entries := []models.ScanHistoryEntry{}
	for cur.Next(ctx) {
		var e models.ScanHistoryEntry
		if err := cur.Decode(&e); err != nil {
			l.log.Warnw("skipping undecodable scan entry", "user_id", userID, "error", err)
			continue
		}
		entries = append(entries, e)
	}
	if err := cur.Err(); err != nil {
		return nil, false, fmt.Errorf("list scans: %w", err)
	}

	if useCache && len(entries) > 0 {
		warm, _ := trimPage(entries, RecentScansMaxLen)
		l.recent.Warm(ctx, userID, warm, gen)
	}
	page, more := trimPage(entries, limit)
	return page, more, nil
}

// historyFilter selects a user's entries after the cursor. Entries sharing
// the cursor's timestamp are split by _id so none is skipped or repeated.
func historyFilter(userID string, after *models.HistoryCursor) bson.M {
	filter := bson.M{"user_id": userID}
	if after == nil {
		return filter
	}
	at := after.ScannedAt.UTC()
	if after.ID.IsZero() {
		filter["scanned_at"] = bson.M{"$lt": at}
		return filter
	}
	filter["$or"] = bson.A{
		bson.M{"scanned_at": bson.M{"$lt": at}},
		bson.M{"scanned_at": at, "_id": bson.M{"$lt": after.ID}},
	}
	return filter
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}

// trimPage drops the look-ahead entry fetched to detect further pages.
func trimPage(entries []models.ScanHistoryEntry, limit int) ([]models.ScanHistoryEntry, bool) {
	if len(entries) > limit {
		return entries[:limit], true
	}
	return entries, false
}
