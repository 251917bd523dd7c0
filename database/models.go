package database

import (
	"time"
)

// BaseModel is embedded by every persisted entity. The store assigns ID,
// CreatedAt is set once on insert and UpdatedAt on every gorm write.
type BaseModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime;not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;not null" json:"updated_at"`
}

// PrimaryKey returns the store-assigned key.
func (b BaseModel) PrimaryKey() uint {
	return b.ID
}
