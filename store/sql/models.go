package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type activityEntryRecord struct {
	bun.BaseModel `bun:"table:cloudlib_activity_entries,alias:cae"`

	ID           string         `bun:"id,pk"`
	Action       string         `bun:"action,notnull"`
	Identifier   string         `bun:"identifier,notnull"`
	NamespaceURI string         `bun:"namespace_uri,notnull"`
	State        string         `bun:"state,notnull"`
	Status       string         `bun:"status,notnull"`
	Message      string         `bun:"message,notnull"`
	Metadata     map[string]any `bun:"metadata,type:jsonb,notnull"`
	CreatedAt    time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
