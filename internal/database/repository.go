package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storyForge/internal/entity"
	"storyForge/internal/sanitizer"
)

// Repository реализует entity.Store поверх GORM. Удаление мягкое:
// сущность уходит в корзину и может быть восстановлена.
type Repository struct {
	db        *gorm.DB
	sanitizer *sanitizer.DataSanitizer
	log       *zap.Logger
	now       func() time.Time
}

func NewRepository(db *gorm.DB, log *zap.Logger) *Repository {
	if log == nil {
		log = zap.NewNop()
	}
	return &Repository{db: db, sanitizer: sanitizer.New(), log: log, now: time.Now}
}

func notFound(id entity.ID) error {
	return fmt.Errorf("%w: %s", entity.ErrNotFound, id)
}

func (r *Repository) load(ctx context.Context, id entity.ID, dst any) (*EntityRecord, error) {
	var rec EntityRecord
	err := r.db.WithContext(ctx).Where("id = ?", id.String()).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(rec.Payload), dst); err != nil {
		return nil, fmt.Errorf("повреждённые данные %s: %w", id, err)
	}
	return &rec, nil
}

func (r *Repository) GetCharacter(ctx context.Context, id entity.ID) (*entity.Character, error) {
	var c entity.Character
	if _, err := r.load(ctx, id, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) GetWorld(ctx context.Context, id entity.ID) (*entity.World, error) {
	var w entity.World
	if _, err := r.load(ctx, id, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *Repository) GetProject(ctx context.Context, id entity.ID) (*entity.Project, error) {
	var p entity.Project
	if _, err := r.load(ctx, id, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Get сущность любого типа по ID.
func (r *Repository) Get(ctx context.Context, id entity.ID) (entity.Entity, error) {
	switch id.Kind {
	case entity.KindCharacter:
		return r.GetCharacter(ctx, id)
	case entity.KindWorld:
		return r.GetWorld(ctx, id)
	case entity.KindProject:
		return r.GetProject(ctx, id)
	}
	return nil, fmt.Errorf("%w: %s", entity.ErrInvalidID, id)
}

func listKind[T any](ctx context.Context, db *gorm.DB, kind entity.Kind) ([]T, error) {
	var recs []EntityRecord
	if err := db.WithContext(ctx).Where("kind = ?", kind.String()).Order("name ASC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("ошибка выборки %s: %w", kind, err)
	}
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		var v T
		if err := json.Unmarshal([]byte(rec.Payload), &v); err != nil {
			return nil, fmt.Errorf("повреждённые данные %s: %w", rec.ID, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *Repository) Characters(ctx context.Context) ([]entity.Character, error) {
	return listKind[entity.Character](ctx, r.db, entity.KindCharacter)
}

func (r *Repository) Worlds(ctx context.Context) ([]entity.World, error) {
	return listKind[entity.World](ctx, r.db, entity.KindWorld)
}

func (r *Repository) Projects(ctx context.Context) ([]entity.Project, error) {
	return listKind[entity.Project](ctx, r.db, entity.KindProject)
}

func (r *Repository) SaveCharacter(ctx context.Context, c *entity.Character) error {
	if err := checkKind(c.ID, entity.KindCharacter, c.Name); err != nil {
		return err
	}
	c.CreatedAt, c.UpdatedAt = r.stamps(c.CreatedAt)
	return r.save(ctx, c.ID, c.Name, c.IsStub, c)
}

func (r *Repository) SaveWorld(ctx context.Context, w *entity.World) error {
	if err := checkKind(w.ID, entity.KindWorld, w.Name); err != nil {
		return err
	}
	w.CreatedAt, w.UpdatedAt = r.stamps(w.CreatedAt)
	return r.save(ctx, w.ID, w.Name, w.IsStub, w)
}

func (r *Repository) SaveProject(ctx context.Context, p *entity.Project) error {
	if err := checkKind(p.ID, entity.KindProject, p.Name); err != nil {
		return err
	}
	p.CreatedAt, p.UpdatedAt = r.stamps(p.CreatedAt)
	return r.save(ctx, p.ID, p.Name, p.IsStub, p)
}

func checkKind(id entity.ID, kind entity.Kind, name string) error {
	if id.IsZero() || id.Kind != kind {
		return fmt.Errorf("%w: %q is not a %s ID", entity.ErrInvalidID, id, kind)
	}
	if name == "" {
		return fmt.Errorf("%s %s: name is required", kind, id)
	}
	return nil
}

func (r *Repository) stamps(created time.Time) (time.Time, time.Time) {
	now := r.now().UTC()
	if created.IsZero() {
		created = now
	}
	return created, now
}

// save вставляет или перезаписывает запись (в том числе из корзины).
// Доработанная сущность перестаёт быть заготовкой и уходит из очереди.
func (r *Repository) save(ctx context.Context, id entity.ID, name string, stub bool, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("ошибка сериализации %s: %w", id, err)
	}
	rec := EntityRecord{
		ID:      id.String(),
		Kind:    id.Kind.String(),
		Name:    name,
		Payload: string(payload),
		IsStub:  stub,
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"kind", "name", "payload", "is_stub", "updated_at", "deleted_at"}),
		}).Create(&rec).Error
		if err != nil {
			return fmt.Errorf("ошибка сохранения %s: %w", id, err)
		}
		if !stub {
			return tx.Where("entity_id = ?", rec.ID).Delete(&QueueItem{}).Error
		}
		return nil
	})
}

// CreateStub создаёт заготовку и ставит её в очередь доработки. Если
// сущность с таким ID уже есть (в том числе в корзине), она не меняется,
// а возвращается entity.ErrExists.
func (r *Repository) CreateStub(ctx context.Context, id entity.ID, name string) error {
	now := r.now().UTC()
	var v any
	switch id.Kind {
	case entity.KindCharacter:
		v = &entity.Character{ID: id, Name: name, IsStub: true, CreatedAt: now, UpdatedAt: now}
	case entity.KindWorld:
		v = &entity.World{ID: id, Name: name, IsStub: true, CreatedAt: now, UpdatedAt: now}
	case entity.KindProject:
		v = &entity.Project{ID: id, Name: name, IsStub: true, CreatedAt: now, UpdatedAt: now}
	default:
		return fmt.Errorf("%w: %s", entity.ErrInvalidID, id)
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&EntityRecord{
			ID:      id.String(),
			Kind:    id.Kind.String(),
			Name:    name,
			Payload: string(payload),
			IsStub:  true,
		})
		if res.Error != nil {
			return fmt.Errorf("ошибка создания заготовки %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", entity.ErrExists, id)
		}
		return enqueue(tx, id)
	})
}

// SoftDelete переносит сущность в корзину.
func (r *Repository) SoftDelete(ctx context.Context, id entity.ID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id.String()).Delete(&EntityRecord{})
		if res.Error != nil {
			return fmt.Errorf("ошибка удаления %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return notFound(id)
		}
		return tx.Where("entity_id = ?", id.String()).Delete(&QueueItem{}).Error
	})
}

// Restore возвращает сущность из корзины.
func (r *Repository) Restore(ctx context.Context, id entity.ID) error {
	res := r.db.WithContext(ctx).Unscoped().Model(&EntityRecord{}).
		Where("id = ? AND deleted_at IS NOT NULL", id.String()).
		Update("deleted_at", nil)
	if res.Error != nil {
		return fmt.Errorf("ошибка восстановления %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound(id)
	}
	return nil
}

// Trash содержимое корзины, свежие удаления первыми.
func (r *Repository) Trash(ctx context.Context) ([]TrashItem, error) {
	var recs []EntityRecord
	err := r.db.WithContext(ctx).Unscoped().
		Where("deleted_at IS NOT NULL").
		Order("deleted_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения корзины: %w", err)
	}
	items := make([]TrashItem, 0, len(recs))
	for _, rec := range recs {
		items = append(items, TrashItem{ID: rec.ID, Kind: rec.Kind, Name: rec.Name, DeletedAt: rec.DeletedAt.Time})
	}
	return items, nil
}

// EmptyTrash окончательно удаляет сущности, попавшие в корзину до before.
func (r *Repository) EmptyTrash(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", before).
		Delete(&EntityRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("ошибка очистки корзины: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func enqueue(tx *gorm.DB, id entity.ID) error {
	err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&QueueItem{
		EntityID:   id.String(),
		EntityType: id.Kind.String(),
	}).Error
	if err != nil {
		return fmt.Errorf("ошибка постановки %s в очередь: %w", id, err)
	}
	return nil
}

// Enqueue ставит сущность в очередь доработки; повтор ничего не меняет.
func (r *Repository) Enqueue(ctx context.Context, id entity.ID) error {
	return enqueue(r.db.WithContext(ctx), id)
}

// ListQueue очередь доработки в порядке постановки.
func (r *Repository) ListQueue(ctx context.Context) ([]QueueItem, error) {
	var items []QueueItem
	if err := r.db.WithContext(ctx).Order("created_at ASC, entity_id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("ошибка чтения очереди: %w", err)
	}
	return items, nil
}

func (r *Repository) Dequeue(ctx context.Context, id entity.ID) error {
	return r.db.WithContext(ctx).Where("entity_id = ?", id.String()).Delete(&QueueItem{}).Error
}

// LogLLMRequest сохраняет запрос к модели, вычищая из текста ключи и пароли.
func (r *Repository) LogLLMRequest(ctx context.Context, provider, model, promptText, responseText string, tokensUsed int) error {
	entry := LlmLog{
		Provider:     provider,
		Model:        model,
		PromptText:   r.sanitizer.Sanitize(promptText),
		ResponseText: r.sanitizer.Sanitize(responseText),
		TokensUsed:   tokensUsed,
	}
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("ошибка записи лога LLM: %w", err)
	}
	return nil
}

// ListLLMLogs последние записи, новые первыми.
func (r *Repository) ListLLMLogs(ctx context.Context, limit int) ([]LlmLog, error) {
	if limit <= 0 {
		limit = 20
	}
	var logs []LlmLog
	if err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("ошибка чтения логов LLM: %w", err)
	}
	return logs, nil
}
