package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// EmbeddingDimensions is the width of every stored content vector.
const EmbeddingDimensions = 768

// LessonEmbedding is one indexed chunk of a lesson. The whole set for a
// lesson is dropped and rebuilt on every index run.
type LessonEmbedding struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	LessonID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"lesson_id"`
	ChunkIndex   int             `gorm:"not null;default:0" json:"chunk_index"`
	ContentChunk string          `gorm:"type:text;not null" json:"content_chunk"`
	Embedding    pgvector.Vector `gorm:"type:vector(768)" json:"-"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

type AIConversation struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID   `gorm:"type:uuid;not null;index" json:"user_id"`
	CourseID  *uuid.UUID  `gorm:"type:uuid" json:"course_id"`
	LessonID  *uuid.UUID  `gorm:"type:uuid" json:"lesson_id"`
	CreatedAt time.Time   `gorm:"autoCreateTime" json:"created_at"`
	Messages  []AIMessage `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE;" json:"messages,omitempty"`
}

type AIMessage struct {
	ID             uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID uuid.UUID   `gorm:"type:uuid;not null;index" json:"conversation_id"`
	Seq            int         `gorm:"not null" json:"seq"`
	Role           MessageRole `gorm:"type:varchar(20);not null" json:"role"`
	Content        string      `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time   `gorm:"autoCreateTime" json:"created_at"`
}

func (e *LessonEmbedding) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

func (c *AIConversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (m *AIMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
