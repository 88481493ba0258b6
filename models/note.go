package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AttachmentURLPrefix is prepended to note attachment download paths. It is
// set from API_PREFIX at startup.
var AttachmentURLPrefix = "/api"

type Note struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	TaskID    uuid.UUID `gorm:"type:uuid;not null;index" json:"task"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Content   string    `gorm:"type:text" json:"content"`
	File      string    `gorm:"size:512" json:"-"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (n *Note) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}

// FileURL is the owner-scoped download path of the attachment, or "" when
// the note has none.
func (n Note) FileURL() string {
	if n.File == "" {
		return ""
	}
	return AttachmentURLPrefix + "/notes/" + n.ID.String() + "/file/"
}

func (n Note) MarshalJSON() ([]byte, error) {
	type note Note
	var file *string
	if url := n.FileURL(); url != "" {
		file = &url
	}
	return json.Marshal(struct {
		note
		File *string `json:"file"`
	}{note(n), file})
}
