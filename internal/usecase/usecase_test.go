package usecase

import (
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"carmarket/internal/adapter/repository"
	"carmarket/internal/domain/entity"
	"carmarket/internal/infrastructure/database"
	ws "carmarket/internal/infrastructure/websocket"
	"carmarket/pkg/logger"
)

func init() {
	logger.SetOutput(io.Discard)
}

// testEnv wires the use cases to an in-memory database and a real registry.
type testEnv struct {
	db            *gorm.DB
	manager       *ws.Manager
	chats         *ChatUseCase
	notifications *NotificationUseCase
	alerts        *PriceAlertUseCase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(sqlite.Open(":memory:"), gormlogger.Silent)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db, true))

	require.NoError(t, db.Create(&[]entity.User{
		{ID: "1", Name: "Alice", Email: "alice@example.com"},
		{ID: "2", Name: "Bob", Email: "bob@example.com"},
		{ID: "3", Name: "Carol", Email: "carol@example.com"},
	}).Error)
	require.NoError(t, db.Create(&[]entity.Listing{
		{ID: 10, SellerID: "2", IsActive: true, Brand: "Toyota", Model: "Camry", Year: 2019, Price: 12500000, Photos: []string{"camry.jpg"}},
		{ID: 11, SellerID: "2", IsActive: false, Brand: "Lada", Model: "Niva", Year: 2015, Price: 3000000},
		{ID: 12, SellerID: "", IsActive: true, Brand: "Kia", Model: "Rio", Year: 2020, Price: 7000000},
	}).Error)

	manager := ws.NewManager()
	chatRepo := repository.NewGormChatRepository(db)
	listingRepo := repository.NewGormListingRepository(db)
	userRepo := repository.NewGormUserRepository(db)
	notifications := NewNotificationUseCase(repository.NewGormNotificationRepository(db), manager, 50)

	return &testEnv{
		db:            db,
		manager:       manager,
		chats:         NewChatUseCase(chatRepo, listingRepo, userRepo, notifications, manager, nil, 0),
		notifications: notifications,
		alerts:        NewPriceAlertUseCase(repository.NewGormPriceAlertRepository(db), listingRepo, notifications, nil),
	}
}

func (e *testEnv) connect(userID string) *ws.Client {
	c := ws.NewClient(userID, userID, nil, 64)
	e.manager.Register(c)
	return c
}

func (e *testEnv) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(model).Count(&n).Error)
	return n
}

func (e *testEnv) setPrice(t *testing.T, listingID uint64, price float64) {
	t.Helper()
	require.NoError(t, e.db.Model(&entity.Listing{}).Where("id = ?", listingID).Update("price", price).Error)
}

var (
	alice = entity.Actor{ID: "1", DisplayName: "Alice"}
	bob   = entity.Actor{ID: "2", DisplayName: "Bob"}
	carol = entity.Actor{ID: "3", DisplayName: "Carol"}
)

// events drains every queued frame of c.
func events(t *testing.T, c *ws.Client) []ws.Event {
	t.Helper()
	var out []ws.Event
	for {
		select {
		case frame := <-c.Send:
			var ev ws.Event
			require.NoError(t, json.Unmarshal(frame, &ev))
			out = append(out, ev)
		default:
			return out
		}
	}
}

func eventTypes(evs []ws.Event) []string {
	types := make([]string, 0, len(evs))
	for _, ev := range evs {
		types = append(types, ev.Type)
	}
	return types
}
