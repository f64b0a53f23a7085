package models

import (
	"time"

	"gorm.io/datatypes"
)

type Conversation struct {
	ID         string         `gorm:"type:char(36);primaryKey" json:"id"`
	Owner      string         `gorm:"type:varchar(255);index;not null" json:"owner"`
	Transcript datatypes.JSON `gorm:"type:json;not null" json:"transcript"`
	Pending    datatypes.JSON `gorm:"type:json" json:"pending"`
	CreatedAt  time.Time      `gorm:"index" json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}
