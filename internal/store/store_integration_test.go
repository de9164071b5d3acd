package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/pensieve-cli/pensieve/internal/log"
	"github.com/pensieve-cli/pensieve/internal/store"
	"github.com/pensieve-cli/pensieve/internal/testutil"
)

func TestStoreIntegration(t *testing.T) {
	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	s := store.New(tdb.Pool, log.NewNop())

	convID := uuid.NewString()

	t.Run("conversation lifecycle", func(t *testing.T) {
		if err := s.CreateConversation(ctx, convID, ""); err != nil {
			t.Fatalf("CreateConversation() = %v", err)
		}
		if err := s.SetTopic(ctx, convID, "brewing sencha"); err != nil {
			t.Fatalf("SetTopic() = %v", err)
		}
		if err := s.AddMessage(ctx, convID, "user", "how hot should the water be?"); err != nil {
			t.Fatalf("AddMessage() = %v", err)
		}
		if err := s.AddMessage(ctx, convID, "assistant", "around 70C for sencha"); err != nil {
			t.Fatalf("AddMessage() = %v", err)
		}

		msgs, err := s.GetMessages(ctx, convID)
		if err != nil {
			t.Fatalf("GetMessages() = %v", err)
		}
		if len(msgs) != 2 || msgs[0].Role != "user" || msgs[1].Role != "assistant" {
			t.Fatalf("msgs = %+v", msgs)
		}

		last, err := s.GetLastConversation(ctx)
		if err != nil {
			t.Fatalf("GetLastConversation() = %v", err)
		}
		if last.ID != convID || last.Topic != "brewing sencha" || last.MessageCount != 2 {
			t.Errorf("last = %+v", last)
		}

		convs, err := s.GetRecentConversations(ctx, 5)
		if err != nil {
			t.Fatalf("GetRecentConversations() = %v", err)
		}
		if len(convs) != 1 {
			t.Errorf("got %d conversations, want 1", len(convs))
		}
	})

	t.Run("sync records", func(t *testing.T) {
		modified := "Monday, 3 June 2026 at 10:15:00"
		if err := s.RecordSyncedDocument(ctx, "n1", "notes", "Tea", 2, &modified); err != nil {
			t.Fatalf("RecordSyncedDocument() = %v", err)
		}
		if err := s.RecordSyncedDocument(ctx, "m1", "markdown", "Ideas", 1, nil); err != nil {
			t.Fatalf("RecordSyncedDocument() = %v", err)
		}

		got, err := s.GetSyncedModification(ctx, "n1")
		if err != nil || got == nil || *got != modified {
			t.Fatalf("GetSyncedModification(n1) = %v, %v", got, err)
		}

		got, err = s.GetSyncedModification(ctx, "m1")
		if err != nil {
			t.Fatalf("GetSyncedModification(m1) = %v", err)
		}
		if got != nil {
			t.Errorf("NULL modified_at came back as %q", *got)
		}

		if _, err := s.GetSyncedModification(ctx, "ghost"); !errors.Is(err, store.ErrNoSyncRecord) {
			t.Fatalf("GetSyncedModification(ghost) = %v, want ErrNoSyncRecord", err)
		}

		// Re-recording overwrites in place.
		updated := "Tuesday, 4 June 2026 at 09:00:00"
		if err := s.RecordSyncedDocument(ctx, "n1", "notes", "Tea", 3, &updated); err != nil {
			t.Fatalf("RecordSyncedDocument() = %v", err)
		}
		got, _ = s.GetSyncedModification(ctx, "n1")
		if got == nil || *got != updated {
			t.Errorf("modification after update = %v", got)
		}

		stats, err := s.GetSyncStats(ctx)
		if err != nil {
			t.Fatalf("GetSyncStats() = %v", err)
		}
		if stats.TotalDocuments != 2 || stats.BySource["notes"] != 1 {
			t.Errorf("stats = %+v", stats)
		}
	})

	t.Run("clear", func(t *testing.T) {
		if err := s.ClearSyncRecords(ctx); err != nil {
			t.Fatalf("ClearSyncRecords() = %v", err)
		}
		stats, _ := s.GetSyncStats(ctx)
		if stats.TotalDocuments != 0 {
			t.Errorf("TotalDocuments = %d after clear", stats.TotalDocuments)
		}

		if err := s.ClearConversations(ctx); err != nil {
			t.Fatalf("ClearConversations() = %v", err)
		}
		if _, err := s.GetLastConversation(ctx); !errors.Is(err, store.ErrConversationNotFound) {
			t.Fatalf("GetLastConversation() = %v, want ErrConversationNotFound", err)
		}
	})
}
