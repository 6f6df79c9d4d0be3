package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vnkhanh/e-learning-backend/logger"
	"github.com/vnkhanh/e-learning-backend/models"
)

type ConversationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, c *models.AIConversation) error
	AppendMessages(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, msgs ...models.AIMessage) ([]models.AIMessage, error)
	GetWithMessages(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.AIConversation, error)
}

type conversationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConversationRepo(db *gorm.DB, baseLog *logger.Logger) ConversationRepo {
	return &conversationRepo{db: db, log: baseLog.With("repo", "ConversationRepo")}
}

func (r *conversationRepo) Create(ctx context.Context, tx *gorm.DB, c *models.AIConversation) error {
	return pick(r.db, tx).WithContext(ctx).Omit("Messages").Create(c).Error
}

// AppendMessages stores msgs in argument order, numbering them after the
// conversation's current last message. Either all are written or none.
func (r *conversationRepo) AppendMessages(ctx context.Context, tx *gorm.DB, conversationID uuid.UUID, msgs ...models.AIMessage) ([]models.AIMessage, error) {
	if len(msgs) == 0 {
		return nil, nil
	}
	out := make([]models.AIMessage, len(msgs))
	err := pick(r.db, tx).WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var last int
		if err := txx.Model(&models.AIMessage{}).
			Where("conversation_id = ?", conversationID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&last).Error; err != nil {
			return err
		}
		for i, m := range msgs {
			m.ConversationID = conversationID
			m.Seq = last + i + 1
			out[i] = m
		}
		return txx.Create(&out).Error
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *conversationRepo) GetWithMessages(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.AIConversation, error) {
	var c models.AIConversation
	err := pick(r.db, tx).WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("seq ASC")
		}).
		First(&c, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}
