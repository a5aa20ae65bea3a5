package chat

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"vericode/internal/config"
	"vericode/internal/models"
	"vericode/internal/storage"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := &config.Config{
		Databases: map[string]config.DatabaseConfig{
			"sqlite3": {
				DSN: filepath.Join(t.TempDir(), "test.db"),
			},
		},
	}
	db, err := storage.Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *sql.DB) *Service {
	t.Helper()
	return NewService(db, &stubAnalyzer{reply: "stub analysis"}, nil)
}

func createTestUser(t *testing.T, svc *Service, username string) int64 {
	t.Helper()
	user, err := svc.RegisterUser(context.Background(), username, "pass123")
	if err != nil {
		t.Fatalf("register user: %v", err)
	}
	return user.ID
}

func TestSaveAndReloadRoundTrip(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc := newTestService(t, db)
	userID := createTestUser(t, svc, "alice")

	chat := models.NewChat(userID, "round trip")
	chat.Append(models.RoleUser, "def f(): pass")
	chat.Append(models.RoleModel, "## Report")
	if err := svc.SaveChat(context.Background(), chat); err != nil {
		t.Fatalf("save chat: %v", err)
	}

	loaded, err := svc.FindChat(context.Background(), userID, chat.ID)
	if err != nil {
		t.Fatalf("find chat: %v", err)
	}
	if len(loaded.Messages) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(loaded.Messages))
	}
	if loaded.Messages[0].Role != models.RoleUser || loaded.Messages[0].Content != "def f(): pass" {
		t.Fatalf("first turn mismatch: %+v", loaded.Messages[0])
	}
	if loaded.Messages[1].Role != models.RoleModel || loaded.Messages[1].Content != "## Report" {
		t.Fatalf("second turn mismatch: %+v", loaded.Messages[1])
	}
}

func TestSaveIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc := newTestService(t, db)
	userID := createTestUser(t, svc, "alice")

	chat := models.NewChat(userID, "idempotent")
	chat.Append(models.RoleUser, "hello")
	chat.Append(models.RoleModel, "hi")
	if err := svc.SaveChat(context.Background(), chat); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := svc.SaveChat(context.Background(), chat); err != nil {
		t.Fatalf("second save: %v", err)
	}

	loaded, err := svc.FindChat(context.Background(), userID, chat.ID)
	if err != nil {
		t.Fatalf("find chat: %v", err)
	}
	if len(loaded.Messages) != 2 {
		t.Fatalf("second save duplicated turns: got %d", len(loaded.Messages))
	}
}

func TestFindChatIsOwnerScoped(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc := newTestService(t, db)
	aliceID := createTestUser(t, svc, "alice")
	bobID := createTestUser(t, svc, "bob")

	chat := models.NewChat(aliceID, "private")
	if err := svc.SaveChat(context.Background(), chat); err != nil {
		t.Fatalf("save chat: %v", err)
	}

	if _, err := svc.FindChat(context.Background(), bobID, chat.ID); err != ErrChatNotFound {
		t.Fatalf("expected ErrChatNotFound for foreign owner, got %v", err)
	}
	if _, err := svc.FindChat(context.Background(), aliceID, chat.ID); err != nil {
		t.Fatalf("owner lookup failed: %v", err)
	}
}

func TestListChatsOrderedByActivity(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc := newTestService(t, db)
	userID := createTestUser(t, svc, "alice")

	first := models.NewChat(userID, "first")
	second := models.NewChat(userID, "second")
	for _, c := range []*models.Chat{first, second} {
		if err := svc.SaveChat(context.Background(), c); err != nil {
			t.Fatalf("save chat: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	// Touch the first chat so it becomes the most recent.
	time.Sleep(5 * time.Millisecond)
	first.Append(models.RoleUser, "more")
	if err := svc.SaveChat(context.Background(), first); err != nil {
		t.Fatalf("resave chat: %v", err)
	}

	summaries, err := svc.ListChats(context.Background(), userID)
	if err != nil {
		t.Fatalf("list chats: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if summaries[0].ID != first.ID {
		t.Fatalf("expected most recently active chat first, got %s", summaries[0].Title)
	}

	again, err := svc.ListChats(context.Background(), userID)
	if err != nil {
		t.Fatalf("second list: %v", err)
	}
	for i := range summaries {
		if summaries[i].ID != again[i].ID {
			t.Fatalf("listing is not stable without intervening writes")
		}
	}
}

func TestSaveChatIsOwnerScoped(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc := newTestService(t, db)
	aliceID := createTestUser(t, svc, "alice")
	bobID := createTestUser(t, svc, "bob")

	chat := models.NewChat(aliceID, "private")
	chat.Append(models.RoleUser, "alice's snippet")
	if err := svc.SaveChat(context.Background(), chat); err != nil {
		t.Fatalf("save chat: %v", err)
	}

	// A forged aggregate reusing alice's chat id under bob's identity must
	// not write anything.
	forged := &models.Chat{
		ID:        chat.ID,
		UserID:    bobID,
		Title:     "bob was here",
		CreatedAt: chat.CreatedAt,
	}
	forged.Append(models.RoleUser, "injected turn")
	if err := svc.SaveChat(context.Background(), forged); err != ErrChatNotFound {
		t.Fatalf("expected ErrChatNotFound for foreign owner, got %v", err)
	}

	loaded, err := svc.FindChat(context.Background(), aliceID, chat.ID)
	if err != nil {
		t.Fatalf("find chat: %v", err)
	}
	if loaded.Title != "private" {
		t.Fatalf("foreign save retitled the chat: %q", loaded.Title)
	}
	if len(loaded.Messages) != 1 {
		t.Fatalf("foreign save injected turns: %d", len(loaded.Messages))
	}
}

func TestRenameChat(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc := newTestService(t, db)
	userID := createTestUser(t, svc, "alice")
	otherID := createTestUser(t, svc, "bob")

	chat := models.NewChat(userID, "old title")
	if err := svc.SaveChat(context.Background(), chat); err != nil {
		t.Fatalf("save chat: %v", err)
	}

	updated, err := svc.RenameChat(context.Background(), userID, chat.ID, "new title")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if updated.Title != "new title" {
		t.Fatalf("title not updated: %s", updated.Title)
	}

	if _, err := svc.RenameChat(context.Background(), userID, chat.ID, "  "); err != ErrEmptyTitle {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
	if _, err := svc.RenameChat(context.Background(), otherID, chat.ID, "stolen"); err != ErrChatNotFound {
		t.Fatalf("expected ErrChatNotFound for foreign owner, got %v", err)
	}
}

func TestDeleteChatIsTerminal(t *testing.T) {
	db := openTestDB(t)
	defer db.Close()
	svc := newTestService(t, db)
	userID := createTestUser(t, svc, "alice")

	chat := models.NewChat(userID, "doomed")
	chat.Append(models.RoleUser, "bye")
	if err := svc.SaveChat(context.Background(), chat); err != nil {
		t.Fatalf("save chat: %v", err)
	}

	if err := svc.DeleteChat(context.Background(), userID, chat.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.FindChat(context.Background(), userID, chat.ID); err != ErrChatNotFound {
		t.Fatalf("expected ErrChatNotFound after delete, got %v", err)
	}
	if err := svc.DeleteChat(context.Background(), userID, chat.ID); err != ErrChatNotFound {
		t.Fatalf("expected ErrChatNotFound on repeat delete, got %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM messages WHERE chat_id = ?`, chat.ID).Scan(&count); err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if count != 0 {
		t.Fatalf("turns survived chat deletion: %d", count)
	}
}
