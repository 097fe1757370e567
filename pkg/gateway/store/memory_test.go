package store

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMonthKeyAndDayKey(t *testing.T) {
	at := time.Date(2026, time.August, 30, 23, 59, 0, 0, time.UTC)
	if got := MonthKey(at); got != "2026-08" {
		t.Fatalf("MonthKey = %q, want 2026-08", got)
	}
	if got := DayKey(at); got != "2026-08-30" {
		t.Fatalf("DayKey = %q, want 2026-08-30", got)
	}
	// Keys are derived in UTC regardless of the wall clock zone.
	loc := time.FixedZone("UTC+5", 5*3600)
	if got := MonthKey(time.Date(2026, time.September, 1, 2, 0, 0, 0, loc)); got != "2026-08" {
		t.Fatalf("MonthKey = %q, want 2026-08", got)
	}
}

func TestMemory_VoiceTrialIsSetOnce(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if _, err := m.EnsureUser(ctx, "u1", TierFree); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}

	used, err := m.VoiceTrialUsed(ctx, "u1")
	if err != nil || used {
		t.Fatalf("VoiceTrialUsed = %v, %v; want false, nil", used, err)
	}
	if err := m.MarkVoiceTrialUsed(ctx, "u1"); err != nil {
		t.Fatalf("MarkVoiceTrialUsed: %v", err)
	}
	used, err = m.VoiceTrialUsed(ctx, "u1")
	if err != nil || !used {
		t.Fatalf("VoiceTrialUsed = %v, %v; want true, nil", used, err)
	}
	// Marking again is a no-op, never a revert.
	if err := m.MarkVoiceTrialUsed(ctx, "u1"); err != nil {
		t.Fatalf("MarkVoiceTrialUsed (again): %v", err)
	}
	used, _ = m.VoiceTrialUsed(ctx, "u1")
	if !used {
		t.Fatal("trial flag reverted")
	}
}

func TestMemory_VoiceMinutesMonthBuckets(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if _, err := m.EnsureUser(ctx, "u1", TierPro); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}

	if err := m.AddVoiceMinutes(ctx, "u1", "2026-07", 58.2); err != nil {
		t.Fatalf("AddVoiceMinutes: %v", err)
	}
	got, err := m.VoiceMinutesForMonth(ctx, "u1", "2026-07")
	if err != nil || got != 58.2 {
		t.Fatalf("VoiceMinutesForMonth(2026-07) = %v, %v", got, err)
	}
	// A new month reads zero without any explicit reset.
	got, err = m.VoiceMinutesForMonth(ctx, "u1", "2026-08")
	if err != nil || got != 0 {
		t.Fatalf("VoiceMinutesForMonth(2026-08) = %v, %v; want 0", got, err)
	}
}

func TestMemory_AddVoiceMinutesConcurrent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if _, err := m.EnsureUser(ctx, "u1", TierPro); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.AddVoiceMinutes(ctx, "u1", "2026-08", 1)
		}()
	}
	wg.Wait()

	got, err := m.VoiceMinutesForMonth(ctx, "u1", "2026-08")
	if err != nil || got != 50 {
		t.Fatalf("VoiceMinutesForMonth = %v, %v; want 50", got, err)
	}
}

func TestMemory_Conversations(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now().UTC()

	first := Conversation{ID: "c1", UserID: "u1", CoachID: "mira", CreatedAt: now, UpdatedAt: now}
	second := Conversation{ID: "c2", UserID: "u1", CoachID: "mira", CreatedAt: now, UpdatedAt: now.Add(time.Minute)}
	if err := m.CreateConversation(ctx, first); err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if err := m.CreateConversation(ctx, second); err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	list, err := m.ListConversations(ctx, "u1")
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(list) != 2 || list[0].ID != "c2" {
		t.Fatalf("list = %+v, want c2 first", list)
	}

	msgs := []Message{
		{ID: "m1", ConversationID: "c1", Role: "user", Content: "hello", CreatedAt: now},
		{ID: "m2", ConversationID: "c1", Role: "assistant", Content: "hi", CreatedAt: now},
	}
	if err := m.AppendMessages(ctx, "c1", msgs); err != nil {
		t.Fatalf("AppendMessages: %v", err)
	}
	if err := m.TouchConversation(ctx, "c1", len(msgs), now.Add(2*time.Minute)); err != nil {
		t.Fatalf("TouchConversation: %v", err)
	}
	conv, err := m.GetConversation(ctx, "u1", "c1")
	if err != nil || conv.MessageCount != 2 {
		t.Fatalf("GetConversation = %+v, %v", conv, err)
	}

	// Another user cannot see or delete it.
	if _, err := m.GetConversation(ctx, "u2", "c1"); err != ErrNotFound {
		t.Fatalf("cross-user get error = %v, want ErrNotFound", err)
	}
	if err := m.DeleteConversation(ctx, "u2", "c1"); err != ErrNotFound {
		t.Fatalf("cross-user delete error = %v, want ErrNotFound", err)
	}

	if err := m.DeleteConversation(ctx, "u1", "c1"); err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}
	got, err := m.ListMessages(ctx, "c1")
	if err != nil || len(got) != 0 {
		t.Fatalf("messages after delete = %v, %v; want empty", got, err)
	}
}

func TestMemory_CoachLibrary(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now().UTC()

	coach := Coach{ID: "co1", OwnerID: "u1", Name: "Focus", Style: "direct", ShareCode: "AB12CD34", CreatedAt: now}
	if err := m.CreateCoach(ctx, coach); err != nil {
		t.Fatalf("CreateCoach: %v", err)
	}

	got, err := m.GetCoachByShareCode(ctx, "AB12CD34")
	if err != nil || got.ID != "co1" {
		t.Fatalf("GetCoachByShareCode = %+v, %v", got, err)
	}
	if _, err := m.GetCoachByShareCode(ctx, "ZZZZZZZZ"); err != ErrNotFound {
		t.Fatalf("unknown code error = %v, want ErrNotFound", err)
	}

	if err := m.AddCoachToLibrary(ctx, "u2", "co1"); err != nil {
		t.Fatalf("AddCoachToLibrary: %v", err)
	}
	// Adding twice keeps a single entry.
	if err := m.AddCoachToLibrary(ctx, "u2", "co1"); err != nil {
		t.Fatalf("AddCoachToLibrary (again): %v", err)
	}
	lib, err := m.ListLibrary(ctx, "u2")
	if err != nil || len(lib) != 1 {
		t.Fatalf("ListLibrary = %+v, %v; want one coach", lib, err)
	}
}
