package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScanHistoryEntry is an append-only record of an awarded scan.
type ScanHistoryEntry struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         string             `bson:"user_id" json:"user_id"`
	PointsEarned   int                `bson:"points_earned" json:"points_earned"`
	ProductBarcode string             `bson:"product_barcode" json:"product_barcode"`
	ScannedAt      time.Time          `bson:"scanned_at" json:"scanned_at"`
}

// HistoryCursor is the position after the last entry of a history page.
// Entries follow it when they are older, or equally old with a smaller ID.
type HistoryCursor struct {
	ScannedAt time.Time
	ID        primitive.ObjectID
}

// CursorAfter returns the cursor continuing after e.
func CursorAfter(e ScanHistoryEntry) HistoryCursor {
	return HistoryCursor{ScannedAt: e.ScannedAt, ID: e.ID}
}

// Follows reports whether e comes after c in newest-first order.
func (c HistoryCursor) Follows(e ScanHistoryEntry) bool {
	if e.ScannedAt.Before(c.ScannedAt) {
		return true
	}
	if c.ID.IsZero() || !e.ScannedAt.Equal(c.ScannedAt) {
		return false
	}
	return e.ID.Hex() < c.ID.Hex()
}
