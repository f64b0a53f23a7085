package db

import (
	"context"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/coachworks/agentchat/core/types"
	models "github.com/coachworks/agentchat/dbmodels"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ConversationStore persists conversations as one row each, with the
// transcript and pending queue in JSON columns.
type ConversationStore struct {
	db *gorm.DB
}

func NewConversationStore(db *gorm.DB) *ConversationStore {
	return &ConversationStore{db: db}
}

func toRow(conv *types.Conversation) (*models.Conversation, error) {
	transcript, err := json.Marshal(conv.Transcript)
	if err != nil {
		return nil, fmt.Errorf("encoding transcript: %w", err)
	}
	pending, err := json.Marshal(conv.Pending)
	if err != nil {
		return nil, fmt.Errorf("encoding pending queue: %w", err)
	}
	return &models.Conversation{
		ID:         conv.ID,
		Owner:      conv.Owner,
		Transcript: transcript,
		Pending:    pending,
		CreatedAt:  conv.CreatedAt,
		UpdatedAt:  conv.UpdatedAt,
	}, nil
}

func fromRow(row *models.Conversation) (*types.Conversation, error) {
	conv := &types.Conversation{
		ID:        row.ID,
		Owner:     row.Owner,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if len(row.Transcript) > 0 {
		if err := json.Unmarshal(row.Transcript, &conv.Transcript); err != nil {
			return nil, fmt.Errorf("decoding transcript of %s: %w", row.ID, err)
		}
	}
	if len(row.Pending) > 0 {
		if err := json.Unmarshal(row.Pending, &conv.Pending); err != nil {
			return nil, fmt.Errorf("decoding pending queue of %s: %w", row.ID, err)
		}
	}
	return conv, nil
}

func (s *ConversationStore) Create(ctx context.Context, conv *types.Conversation) error {
	row, err := toRow(conv)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(row).Error
}

func (s *ConversationStore) Get(ctx context.Context, id string) (*types.Conversation, error) {
	// Struct conditions skip zero values, so an empty id would match any row.
	if id == "" {
		return nil, types.ErrConversationNotFound
	}
	var row models.Conversation
	err := s.db.WithContext(ctx).Where(&models.Conversation{ID: id}).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromRow(&row)
}

func (s *ConversationStore) Save(ctx context.Context, conv *types.Conversation) error {
	if conv.ID == "" {
		return types.ErrConversationNotFound
	}
	row, err := toRow(conv)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&models.Conversation{}).
		Where(&models.Conversation{ID: conv.ID}).
		Select("Transcript", "Pending", "UpdatedAt").
		Updates(row)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// MySQL counts unchanged rows as unaffected.
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Conversation{}).
		Where(&models.Conversation{ID: conv.ID}).
		Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return types.ErrConversationNotFound
	}
	return nil
}

func (s *ConversationStore) History(ctx context.Context, owner string, limit int) ([]*types.Conversation, error) {
	if owner == "" {
		return nil, nil
	}
	var rows []models.Conversation
	q := s.db.WithContext(ctx).
		Where(&models.Conversation{Owner: owner}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "CreatedAt"}, Desc: true})
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]*types.Conversation, 0, len(rows))
	for i := range rows {
		conv, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, conv)
	}
	return out, nil
}
