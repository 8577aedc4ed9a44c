package catalog

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// List types used by the approval engine.
const (
	ListBudgetBrackets = "rfpo_brack" // value is a ceiling in dollars
	ListApprovalTypes  = "rfpo_appro" // value is a display label
	ListDocumentTypes  = "doc_types"  // value is a display label
)

var ErrEntryNotFound = errors.New("catalog entry not found")

// Entry is one key/value pair of a named lookup list.
type Entry struct {
	ID        uuid.UUID `gorm:"type:uuid;column:id;not null;primaryKey" json:"id"`
	ListType  string    `gorm:"type:varchar(50);column:list_type;not null;uniqueIndex:idx_lists_type_key" json:"type"`
	Key       string    `gorm:"type:varchar(100);column:list_key;not null;uniqueIndex:idx_lists_type_key" json:"key"`
	Value     string    `gorm:"type:varchar(255);column:list_value;not null" json:"value"`
	Active    bool      `gorm:"column:active;not null" json:"active"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updatedAt"`
}

func (e *Entry) TableName() string {
	return "lists"
}

func (e *Entry) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == uuid.Nil {
		e.ID, err = uuid.NewRandom()
	}
	return
}
