package models

import (
	"time"

	"github.com/google/uuid"
)

// LLMUsage is one language model call, attributed to the operator that
// owns the conversation. Period is the monthly accounting window (YYYY-MM).
type LLMUsage struct {
	ID               uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`
	Owner            string    `gorm:"type:varchar(255);index:idx_usage_owner_period;not null" json:"owner"`
	Period           string    `gorm:"type:varchar(7);index:idx_usage_owner_period;not null" json:"period"`
	PromptTokens     int       `gorm:"not null" json:"promptTokens"`
	CompletionTokens int       `gorm:"not null" json:"completionTokens"`
	TotalTokens      int       `gorm:"not null" json:"totalTokens"`
	CreatedAt        time.Time `json:"createdAt"`
}
