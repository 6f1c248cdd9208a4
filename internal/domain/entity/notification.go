package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/Badsnus/outage-alerts/internal/domain/common/errorz"
)

// LedgerKey selects how an outage is identified in the notification ledger.
type LedgerKey string

const (
	// LedgerKeyContent identifies an outage by area, date and time, so the same
	// real-world outage scraped again in a later run is not re-sent.
	LedgerKeyContent LedgerKey = "content"
	// LedgerKeyOutageID identifies an outage by its generation-scoped row id.
	LedgerKeyOutageID LedgerKey = "outage-id"
)

// ParseLedgerKey validates a configured ledger key.
func ParseLedgerKey(s string) (LedgerKey, error) {
	switch k := LedgerKey(strings.ToLower(strings.TrimSpace(s))); k {
	case LedgerKeyContent, LedgerKeyOutageID:
		return k, nil
	case "":
		return LedgerKeyContent, nil
	default:
		return "", fmt.Errorf("%w: %q", errorz.ErrInvalidLedgerKey, s)
	}
}

// Of returns the ledger key of outage o.
func (k LedgerKey) Of(o *Outage) string {
	if k == LedgerKeyOutageID {
		return fmt.Sprintf("id:%d", o.ID)
	}
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(o.Area)) + "|" + o.Date() + "|" + o.OutageTime))
	return "sha256:" + hex.EncodeToString(sum[:])
}

// NotificationRecord marks that a subscriber has been alerted about an outage.
// There is at most one record per (SubscriberID, OutageKey).
type NotificationRecord struct {
	SubscriberID uint      `gorm:"primaryKey;autoIncrement:false"`
	OutageKey    string    `gorm:"primaryKey;size:80"`
	OutageID     uint      `gorm:"not null;index"`
	SentAt       time.Time `gorm:"not null"`

	Subscriber *Subscriber `gorm:"foreignKey:SubscriberID;constraint:OnDelete:CASCADE"`
}
