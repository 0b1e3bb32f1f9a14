package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WaitlistTableName is shared with the schema provisioner and the SQL migrations.
const WaitlistTableName = "waitlist"

// WaitlistEntry is one captured address. Rows are insert-only: there is no update or delete path.
//
// No column carries a gorm default, so inserts never need a RETURNING clause and an
// insert-only database role is enough to write.
type WaitlistEntry struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"type:text;not null;uniqueIndex" json:"email"`
	CreatedAt time.Time `gorm:"type:timestamptz;not null;autoCreateTime" json:"created_at"`
}

func (WaitlistEntry) TableName() string {
	return WaitlistTableName
}

func (e *WaitlistEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}
