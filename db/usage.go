package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coachworks/agentchat/core/types"
	"github.com/coachworks/agentchat/core/usage"
	models "github.com/coachworks/agentchat/dbmodels"
)

// UsageTracker stores one LLMUsage row per call and sums the rows of the
// current window on read.
type UsageTracker struct {
	db  *gorm.DB
	now func() time.Time
}

func NewUsageTracker(db *gorm.DB) *UsageTracker {
	return &UsageTracker{db: db, now: time.Now}
}

func (u *UsageTracker) Record(ctx context.Context, owner string, in, out int) error {
	now := u.now()
	return u.db.WithContext(ctx).Create(&models.LLMUsage{
		ID:               uuid.New(),
		Owner:            owner,
		Period:           usage.Window(now),
		PromptTokens:     in,
		CompletionTokens: out,
		TotalTokens:      in + out,
		CreatedAt:        now,
	}).Error
}

func (u *UsageTracker) CurrentWindow(ctx context.Context, owner string) (types.Usage, error) {
	window := usage.Window(u.now())
	total := types.Usage{Owner: owner, Window: window}

	if owner == "" {
		return total, nil
	}
	var rows []models.LLMUsage
	if err := u.db.WithContext(ctx).
		Where(&models.LLMUsage{Owner: owner, Period: window}).
		Find(&rows).Error; err != nil {
		return total, err
	}
	for _, r := range rows {
		total.InputTokens += int64(r.PromptTokens)
		total.OutputTokens += int64(r.CompletionTokens)
		total.TotalTokens += int64(r.TotalTokens)
		total.Calls++
	}
	return total, nil
}
