package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type ephemeralEntryRecord struct {
	bun.BaseModel `bun:"table:integration_ephemeral_entries,alias:iee"`

	ID         string    `bun:"id,pk"`
	EntryKey   string    `bun:"entry_key,notnull"`
	EntryValue string    `bun:"entry_value,notnull"`
	ExpiresAt  time.Time `bun:"expires_at,notnull"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
