package database

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyForge/internal/entity"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := Open(sqlite.Open(":memory:"))
	require.NoError(t, err)
	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate())
	return NewRepository(db.DB, nil)
}

func TestRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	ana := &entity.Character{
		ID:           entity.MustParseID("#ANA"),
		Name:         "Ana",
		Aliases:      []string{"the Fox"},
		Motivations:  []string{"find her brother"},
		VoiceProfile: &entity.VoiceProfile{Tone: "dry"},
	}
	require.NoError(t, repo.SaveCharacter(ctx, ana))
	require.NoError(t, repo.SaveWorld(ctx, &entity.World{ID: entity.MustParseID("@MARSH"), Name: "Marsh"}))
	require.NoError(t, repo.SaveProject(ctx, &entity.Project{
		ID:           entity.MustParseID("$TIDE"),
		Name:         "Tide War",
		CharacterIDs: []entity.ID{ana.ID},
	}))

	got, err := repo.GetCharacter(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)
	assert.Equal(t, []string{"the Fox"}, got.Aliases)
	assert.Equal(t, "dry", got.VoiceProfile.Tone)
	assert.False(t, got.CreatedAt.IsZero())

	p, err := repo.GetProject(ctx, entity.MustParseID("$TIDE"))
	require.NoError(t, err)
	assert.Equal(t, []entity.ID{ana.ID}, p.CharacterIDs)

	e, err := repo.Get(ctx, entity.MustParseID("@MARSH"))
	require.NoError(t, err)
	assert.Equal(t, "Marsh", e.DisplayName())

	_, err = repo.GetWorld(ctx, entity.MustParseID("@NOWHERE"))
	assert.ErrorIs(t, err, entity.ErrNotFound)

	// обновление перезаписывает запись
	ana.Name = "Ana Vell"
	require.NoError(t, repo.SaveCharacter(ctx, ana))
	chars, err := repo.Characters(ctx)
	require.NoError(t, err)
	require.Len(t, chars, 1)
	assert.Equal(t, "Ana Vell", chars[0].Name)

	refs, err := entity.AllRefs(ctx, repo)
	require.NoError(t, err)
	assert.Len(t, refs, 3)
}

func TestRepository_SaveRejectsWrongKind(t *testing.T) {
	repo := newTestRepo(t)
	err := repo.SaveWorld(context.Background(), &entity.World{ID: entity.MustParseID("#ANA"), Name: "Ana"})
	assert.ErrorIs(t, err, entity.ErrInvalidID)

	err = repo.SaveCharacter(context.Background(), &entity.Character{ID: entity.MustParseID("#ANA")})
	assert.Error(t, err)
}

func TestRepository_StubsAndQueue(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	bram := entity.MustParseID("#BRAM")

	require.NoError(t, repo.CreateStub(ctx, bram, "Bram"))
	assert.ErrorIs(t, repo.CreateStub(ctx, bram, "Bram again"), entity.ErrExists)
	require.NoError(t, repo.Enqueue(ctx, bram))

	c, err := repo.GetCharacter(ctx, bram)
	require.NoError(t, err)
	assert.True(t, c.IsStub)
	assert.Equal(t, "Bram", c.Name)

	queue, err := repo.ListQueue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, "#BRAM", queue[0].EntityID)
	assert.Equal(t, "character", queue[0].EntityType)

	// доработка снимает заготовку с очереди
	c.IsStub = false
	c.Backstory = "A ferryman."
	require.NoError(t, repo.SaveCharacter(ctx, c))
	queue, err = repo.ListQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, queue)

	require.NoError(t, repo.CreateStub(ctx, entity.MustParseID("@FEN"), "Fen"))
	require.NoError(t, repo.Dequeue(ctx, entity.MustParseID("@FEN")))
	queue, err = repo.ListQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, queue)
}

func TestRepository_Trash(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	marsh := entity.MustParseID("@MARSH")
	require.NoError(t, repo.SaveWorld(ctx, &entity.World{ID: marsh, Name: "Marsh"}))

	require.NoError(t, repo.SoftDelete(ctx, marsh))
	_, err := repo.GetWorld(ctx, marsh)
	assert.ErrorIs(t, err, entity.ErrNotFound)
	worlds, err := repo.Worlds(ctx)
	require.NoError(t, err)
	assert.Empty(t, worlds)

	trash, err := repo.Trash(ctx)
	require.NoError(t, err)
	require.Len(t, trash, 1)
	assert.Equal(t, "@MARSH", trash[0].ID)
	assert.Equal(t, "world", trash[0].Kind)
	assert.False(t, trash[0].DeletedAt.IsZero())

	assert.ErrorIs(t, repo.SoftDelete(ctx, marsh), entity.ErrNotFound)

	require.NoError(t, repo.Restore(ctx, marsh))
	_, err = repo.GetWorld(ctx, marsh)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Restore(ctx, marsh), entity.ErrNotFound)

	require.NoError(t, repo.SoftDelete(ctx, marsh))
	n, err := repo.EmptyTrash(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	trash, err = repo.Trash(ctx)
	require.NoError(t, err)
	assert.Empty(t, trash)
}

func TestRepository_StubOverTrashedID(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	keep := entity.MustParseID("@KEEP")
	require.NoError(t, repo.SaveWorld(ctx, &entity.World{ID: keep, Name: "Keep", Description: "Old walls."}))
	require.NoError(t, repo.SoftDelete(ctx, keep))

	assert.ErrorIs(t, repo.CreateStub(ctx, keep, "Keep"), entity.ErrExists)

	queue, err := repo.ListQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, queue)

	trash, err := repo.Trash(ctx)
	require.NoError(t, err)
	require.Len(t, trash, 1)

	require.NoError(t, repo.Restore(ctx, keep))
	w, err := repo.GetWorld(ctx, keep)
	require.NoError(t, err)
	assert.False(t, w.IsStub)
	assert.Equal(t, "Old walls.", w.Description)
}

func TestRepository_LogLLMRequest(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.LogLLMRequest(ctx, "openai", "gpt-4o",
		"user: my key is sk-abcdefghijklmnopqrstuvwxyz0123456789", "Sure.", 42))
	require.NoError(t, repo.LogLLMRequest(ctx, "anthropic", "claude", "user: hi", "Hello!", 7))

	logs, err := repo.ListLLMLogs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "anthropic", logs[0].Provider)
	assert.Equal(t, "user: my key is [FILTERED]", logs[1].PromptText)
	assert.Equal(t, 42, logs[1].TokensUsed)
}
