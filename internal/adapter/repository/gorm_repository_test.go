package repository

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"carmarket/internal/domain/entity"
	"carmarket/internal/domain/repository"
	"carmarket/internal/infrastructure/database"
	apperrors "carmarket/pkg/errors"
	"carmarket/pkg/logger"
)

func init() {
	logger.SetOutput(io.Discard)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(sqlite.Open(":memory:"), gormlogger.Silent)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db, true))
	return db
}

// setClock makes the chat repository stamp messages with the given instants
// in order, repeating the last one.
func setClock(repo repository.ChatRepository, instants ...time.Time) {
	r := repo.(*gormChatRepository)
	next := 0
	r.now = func() time.Time {
		at := instants[min(next, len(instants)-1)]
		next++
		return at
	}
}

func TestGormChatFindOrCreateIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormChatRepository(db)
	ctx := context.Background()

	first, created, err := repo.FindOrCreate(ctx, 10, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := repo.FindOrCreate(ctx, 10, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	other, created, err := repo.FindOrCreate(ctx, 11, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestGormChatFindOrCreateConcurrent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormChatRepository(db)

	var wg sync.WaitGroup
	ids := make([]uint64, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			chat, _, err := repo.FindOrCreate(context.Background(), 42, "carol", "dave")
			if assert.NoError(t, err) {
				ids[i] = chat.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	var count int64
	require.NoError(t, db.Model(&entity.Chat{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGormChatMessagesAndUnread(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormChatRepository(db)
	ctx := context.Background()

	chat, _, err := repo.FindOrCreate(ctx, 10, "alice", "bob")
	require.NoError(t, err)
	assert.Nil(t, chat.LastMessageAt)

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	setClock(repo, base, base.Add(time.Minute), base.Add(2*time.Minute))
	msgs := []*entity.Message{
		{ChatID: chat.ID, SenderID: "alice", Text: "Is this still available?"},
		{ChatID: chat.ID, SenderID: "alice", Text: "Any discount?"},
		{ChatID: chat.ID, SenderID: "bob", Text: "Yes"},
	}
	for _, m := range msgs {
		require.NoError(t, repo.CreateMessage(ctx, m))
		assert.NotZero(t, m.ID)
	}

	stored, err := repo.GetByID(ctx, chat.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastMessageAt)
	assert.True(t, stored.LastMessageAt.Equal(base.Add(2*time.Minute)))

	unread, err := repo.CountUnread(ctx, []uint64{chat.ID}, "bob")
	require.NoError(t, err)
	assert.Equal(t, 2, unread[chat.ID])
	unread, err = repo.CountUnread(ctx, []uint64{chat.ID}, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, unread[chat.ID])

	last, err := repo.LastMessages(ctx, []uint64{chat.ID})
	require.NoError(t, err)
	assert.Equal(t, "Yes", last[chat.ID].Text)

	ids, err := repo.MarkRead(ctx, chat.ID, "bob", base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []uint64{msgs[0].ID, msgs[1].ID}, ids)

	ids, err = repo.MarkRead(ctx, chat.ID, "bob", base.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, ids)

	unread, err = repo.CountUnread(ctx, []uint64{chat.ID}, "bob")
	require.NoError(t, err)
	assert.Equal(t, 0, unread[chat.ID])

	thread, err := repo.ListMessages(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, thread, 3)
	assert.True(t, thread[0].Read)
	assert.NotNil(t, thread[0].ReadAt)
	assert.False(t, thread[2].Read, "bob's own message stays unread for alice")
}

func TestGormChatCreateMessageForMissingChat(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormChatRepository(db)

	err := repo.CreateMessage(context.Background(), &entity.Message{ChatID: 999, SenderID: "alice", Text: "hi"})
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	var count int64
	require.NoError(t, db.Model(&entity.Message{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGormChatListOrdersByLastActivity(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormChatRepository(db)
	ctx := context.Background()

	older, _, err := repo.FindOrCreate(ctx, 1, "alice", "bob")
	require.NoError(t, err)
	newer, _, err := repo.FindOrCreate(ctx, 2, "carol", "alice")
	require.NoError(t, err)
	_, _, err = repo.FindOrCreate(ctx, 3, "carol", "bob")
	require.NoError(t, err)

	setClock(repo, time.Now().UTC().Add(time.Hour))
	require.NoError(t, repo.CreateMessage(ctx, &entity.Message{ChatID: older.ID, SenderID: "bob", Text: "ping"}))

	chats, err := repo.ListByParticipant(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, older.ID, chats[0].ID)
	assert.Equal(t, newer.ID, chats[1].ID)

	_, err = repo.GetByID(ctx, 12345)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestGormChatCreateMessageKeepsActivityMonotonic(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormChatRepository(db)
	ctx := context.Background()

	chat, _, err := repo.FindOrCreate(ctx, 10, "alice", "bob")
	require.NoError(t, err)

	// the second commit reads an earlier clock than the first
	later := time.Date(2024, 5, 1, 10, 0, 0, 500_000_000, time.UTC)
	earlier := later.Add(-50 * time.Millisecond)
	setClock(repo, later, earlier)

	first := &entity.Message{ChatID: chat.ID, SenderID: "alice", Text: "first committed"}
	second := &entity.Message{ChatID: chat.ID, SenderID: "bob", Text: "second committed"}
	require.NoError(t, repo.CreateMessage(ctx, first))
	require.NoError(t, repo.CreateMessage(ctx, second))
	assert.False(t, second.CreatedAt.Before(first.CreatedAt))

	stored, err := repo.GetByID(ctx, chat.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastMessageAt)
	assert.True(t, stored.LastMessageAt.Equal(later), "last activity moved backwards to %s", stored.LastMessageAt)

	thread, err := repo.ListMessages(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, thread, 2)
	assert.Equal(t, "first committed", thread[0].Text)
	assert.Equal(t, "second committed", thread[1].Text)

	last, err := repo.LastMessages(ctx, []uint64{chat.ID})
	require.NoError(t, err)
	assert.Equal(t, thread[1].ID, last[chat.ID].ID)
}

func TestGormChatLastMessagesFollowsCreationOrder(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormChatRepository(db)
	ctx := context.Background()

	chat, _, err := repo.FindOrCreate(ctx, 10, "alice", "bob")
	require.NoError(t, err)
	empty, _, err := repo.FindOrCreate(ctx, 11, "alice", "bob")
	require.NoError(t, err)

	// rows imported with ids out of creation order
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&entity.Message{ID: 20, ChatID: chat.ID, SenderID: "alice", Text: "newest", CreatedAt: base.Add(time.Minute)}).Error)
	require.NoError(t, db.Create(&entity.Message{ID: 21, ChatID: chat.ID, SenderID: "bob", Text: "oldest", CreatedAt: base}).Error)

	thread, err := repo.ListMessages(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, thread, 2)

	last, err := repo.LastMessages(ctx, []uint64{chat.ID, empty.ID})
	require.NoError(t, err)
	require.Contains(t, last, chat.ID)
	assert.Equal(t, thread[1].ID, last[chat.ID].ID)
	assert.Equal(t, "newest", last[chat.ID].Text)
	assert.NotContains(t, last, empty.ID)
}

func TestGormNotificationOwnership(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormNotificationRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &entity.Notification{UserID: "bob", Text: "n", Kind: entity.NotificationNewMessage}))
	}
	mine := &entity.Notification{UserID: "alice", Text: "mine", Kind: entity.NotificationOther}
	require.NoError(t, repo.Create(ctx, mine))

	list, err := repo.ListByUser(ctx, "bob", 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Greater(t, list[0].ID, list[1].ID)

	err = repo.MarkRead(ctx, "bob", mine.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
	err = repo.Delete(ctx, "bob", mine.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	require.NoError(t, repo.MarkRead(ctx, "alice", mine.ID))
	require.NoError(t, repo.MarkRead(ctx, "alice", mine.ID))

	n, err := repo.CountUnread(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	changed, err := repo.MarkAllRead(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(3), changed)

	n, err = repo.CountUnread(ctx, "bob")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, repo.Delete(ctx, "alice", mine.ID))
	list, err = repo.ListByUser(ctx, "alice", 50)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGormPriceAlertLifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormPriceAlertRepository(db)
	ctx := context.Background()

	_, err := repo.FindActive(ctx, "alice", 10)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	alert := &entity.PriceAlert{UserID: "alice", ListingID: 10, TargetPrice: 9000, CurrentPrice: 10000, IsActive: true}
	require.NoError(t, repo.Create(ctx, alert))

	found, err := repo.FindActive(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Equal(t, alert.ID, found.ID)

	pending, err := repo.ListPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	found.Notified = true
	require.NoError(t, repo.Update(ctx, found))
	pending, err = repo.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.True(t, apperrors.Is(repo.Delete(ctx, "bob", alert.ID), apperrors.CodeNotFound))
	require.NoError(t, repo.Delete(ctx, "alice", alert.ID))
	list, err := repo.ListByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGormDirectoryLookups(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.Create(&entity.Listing{ID: 10, SellerID: "bob", IsActive: true, Brand: "Toyota", Model: "Camry", Price: 10000, Photos: []string{"a.jpg"}}).Error)
	require.NoError(t, db.Create(&entity.User{ID: "bob", Name: "Bob", Email: "bob@example.com"}).Error)

	listings := NewGormListingRepository(db)
	l, err := listings.GetByID(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg"}, l.Photos)
	_, err = listings.GetByID(ctx, 11)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	byID, err := listings.GetByIDs(ctx, []uint64{10, 11})
	require.NoError(t, err)
	assert.Len(t, byID, 1)

	users := NewGormUserRepository(db)
	u, err := users.GetByID(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "Bob", u.Name)
	m, err := users.GetByIDs(ctx, []string{"bob", "nobody"})
	require.NoError(t, err)
	assert.Len(t, m, 1)
}
