// Package database хранилище сущностей на GORM: PostgreSQL в работе,
// SQLite для локального режима и тестов.
package database

import (
	"time"

	"gorm.io/gorm"
)

// EntityRecord персонаж, мир или проект. Поля сущности лежат в Payload
// как JSON; тип определяется сигилом ID и продублирован в Kind для выборок.
type EntityRecord struct {
	ID        string         `gorm:"primaryKey;type:varchar(64)"`
	Kind      string         `gorm:"type:varchar(16);not null;index"`
	Name      string         `gorm:"type:text;not null"`
	Payload   string         `gorm:"type:text;not null"`
	IsStub    bool           `gorm:"not null;default:false"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index"` // корзина
}

func (EntityRecord) TableName() string { return "entities" }

// QueueItem заготовка, ожидающая доработки пользователем.
type QueueItem struct {
	EntityID   string    `gorm:"primaryKey;type:varchar(64)" json:"entityId"`
	EntityType string    `gorm:"type:varchar(16);not null" json:"entityType"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (QueueItem) TableName() string { return "development_queue" }

// LlmLog представляет лог запроса к LLM.
// Промпт и ответ сохраняются после очистки от секретов.
type LlmLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Provider     string    `gorm:"type:varchar(32);not null" json:"provider"`
	Model        string    `gorm:"type:varchar(128)" json:"model"`
	PromptText   string    `gorm:"type:text;not null" json:"promptText"`
	ResponseText string    `gorm:"type:text" json:"responseText"`
	TokensUsed   int       `json:"tokensUsed"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (LlmLog) TableName() string { return "llm_logs" }

// TrashItem сущность в корзине.
type TrashItem struct {
	ID        string    `json:"id"`
	Kind      string    `json:"type"`
	Name      string    `json:"name"`
	DeletedAt time.Time `json:"deletedAt"`
}

// Models все таблицы для AutoMigrate.
func Models() []any {
	return []any{&EntityRecord{}, &QueueItem{}, &LlmLog{}}
}
