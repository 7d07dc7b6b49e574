package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"scheduled-payments/internal/model"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := NewDB(fmt.Sprintf("file:%s?mode=memory&cache=shared", name), zap.NewNop())
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestUserRepository_Upsert(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	first, err := repo.UpsertFromTelegram(ctx, 1001, "Ama", "", "ama")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	second, err := repo.UpsertFromTelegram(ctx, 1001, "Ama", "Mensah", "ama")
	if err != nil {
		t.Fatalf("update user: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected same user, got ids %d and %d", first.ID, second.ID)
	}

	stored, err := repo.FindByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if stored.LastName != "Mensah" {
		t.Errorf("expected last name Mensah, got %q", stored.LastName)
	}

	if stored.CreatedAt.IsZero() || !stored.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("expected created_at to survive the update, got %s vs %s", stored.CreatedAt, first.CreatedAt)
	}
}

func TestUserRepository_ListWithOpenSchedules(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	schedules := NewScheduleRepository(db)
	ctx := context.Background()

	active, _ := users.UpsertFromTelegram(ctx, 1, "Active", "", "")
	ended, _ := users.UpsertFromTelegram(ctx, 2, "Ended", "", "")
	done, _ := users.UpsertFromTelegram(ctx, 3, "Done", "", "")
	if _, err := users.UpsertFromTelegram(ctx, 4, "Idle", "", ""); err != nil {
		t.Fatalf("create user: %v", err)
	}

	past := day(2024, 4, 1)
	seed := []model.ScheduleRecord{
		{UserID: active.ID, Type: model.ActionMe2Me, StartDate: day(2024, 1, 1), Frequency: 1},
		{UserID: ended.ID, Type: model.ActionMe2Me, StartDate: day(2024, 1, 1), EndDate: &past, Frequency: 1},
		{UserID: done.ID, Type: model.ActionMe2Me, StartDate: day(2024, 5, 1), Frequency: 1, Complete: true},
	}
	for i := range seed {
		if err := schedules.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	got, err := users.ListWithOpenSchedules(ctx, day(2024, 5, 1))
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(got) != 1 || got[0].ID != active.ID {
		t.Errorf("expected only the active user, got %+v", got)
	}
}

func TestContactRepository_GetOrCreate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewContactRepository(db)
	ctx := context.Background()

	a, err := repo.GetOrCreate(ctx, 1, "Kofi", "+233200000001")
	if err != nil {
		t.Fatalf("create contact: %v", err)
	}
	b, err := repo.GetOrCreate(ctx, 1, "", "+233200000001")
	if err != nil {
		t.Fatalf("get contact: %v", err)
	}
	if a.ID != b.ID {
		t.Errorf("expected same contact, got %d and %d", a.ID, b.ID)
	}
	if b.Name != "Kofi" {
		t.Errorf("empty name must not overwrite, got %q", b.Name)
	}

	other, err := repo.GetOrCreate(ctx, 2, "Kofi", "+233200000001")
	if err != nil {
		t.Fatalf("create contact for other user: %v", err)
	}
	if other.ID == a.ID {
		t.Error("contacts of different users must not be shared")
	}

	c, err := repo.GetOrCreate(ctx, 1, "Esi", "+233200000002")
	if err != nil {
		t.Fatalf("create second contact: %v", err)
	}
	found, err := repo.FindByIDs(ctx, []uint{c.ID, 999, a.ID})
	if err != nil {
		t.Fatalf("find contacts: %v", err)
	}
	if len(found) != 2 || found[0].ID != c.ID || found[1].ID != a.ID {
		t.Errorf("expected contacts [%d %d] in order, got %+v", c.ID, a.ID, found)
	}

	list, err := repo.ListByUser(ctx, 1)
	if err != nil {
		t.Fatalf("list contacts: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Esi" {
		t.Errorf("expected contacts sorted by name, got %+v", list)
	}
}

func TestScheduleRepository_ListFuture(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScheduleRepository(db)
	ctx := context.Background()

	past := day(2024, 2, 1)
	endToday := day(2024, 3, 1)
	records := []model.ScheduleRecord{
		{UserID: 1, Type: model.ActionP2P, RecipientIDs: "1", Description: "open", StartDate: day(2024, 1, 1), Frequency: 0, ChannelID: 7},
		{UserID: 1, Type: model.ActionP2P, RecipientIDs: "1", Description: "ended", StartDate: day(2024, 1, 1), EndDate: &past, Frequency: 0},
		{UserID: 1, Type: model.ActionAirtime, RecipientIDs: "", Description: "ends today", StartDate: day(2024, 1, 1), EndDate: &endToday, Frequency: 1, ChannelID: 8},
		{UserID: 1, Type: model.ActionRequest, RecipientIDs: "2", Description: "complete", StartDate: day(2024, 1, 1), Frequency: 4, Complete: true},
		{UserID: 2, Type: model.ActionP2P, RecipientIDs: "3", Description: "other user", StartDate: day(2024, 1, 1), Frequency: 0},
	}
	for i := range records {
		if err := repo.Create(ctx, &records[i]); err != nil {
			t.Fatalf("create record %d: %v", i, err)
		}
	}

	got, err := repo.ListFuture(ctx, 1, day(2024, 3, 1))
	if err != nil {
		t.Fatalf("list future: %v", err)
	}
	var names []string
	for _, r := range got {
		names = append(names, r.Description)
	}
	if strings.Join(names, ",") != "open,ends today" {
		t.Errorf("unexpected future schedules: %v", names)
	}

	byChannel, err := repo.ListFutureByChannel(ctx, 1, 8, day(2024, 3, 1))
	if err != nil {
		t.Fatalf("list by channel: %v", err)
	}
	if len(byChannel) != 1 || byChannel[0].Description != "ends today" {
		t.Errorf("unexpected channel schedules: %+v", byChannel)
	}

	later, err := repo.ListFuture(ctx, 1, day(2024, 3, 2))
	if err != nil {
		t.Fatalf("list future: %v", err)
	}
	if len(later) != 1 {
		t.Errorf("expected only the open schedule after end day, got %d", len(later))
	}
}

func TestScheduleRepository_CompleteAndDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScheduleRepository(db)
	ctx := context.Background()

	record := model.ScheduleRecord{UserID: 1, Type: model.ActionP2P, RecipientIDs: "1", Description: "rent", StartDate: day(2024, 1, 1), Frequency: 4}
	if err := repo.Create(ctx, &record); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := repo.MarkComplete(ctx, &record); err != nil {
		t.Fatalf("mark complete: %v", err)
	}
	stored, err := repo.FindByID(ctx, 1, record.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !stored.Complete {
		t.Error("expected record to be complete")
	}

	if err := repo.Delete(ctx, 2, record.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("deleting another user's schedule: expected ErrRecordNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, 1, record.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.FindByID(ctx, 1, record.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("expected ErrRecordNotFound after delete, got %v", err)
	}
}

func TestScheduleRecord_ContactIDs(t *testing.T) {
	r := model.ScheduleRecord{RecipientIDs: "3, 7,,x,12"}
	ids := r.ContactIDs()
	if len(ids) != 3 || ids[0] != 3 || ids[1] != 7 || ids[2] != 12 {
		t.Errorf("unexpected ids %v", ids)
	}
	if got := model.JoinContactIDs(ids); got != "3,7,12" {
		t.Errorf("unexpected join %q", got)
	}
}

func TestWithBusyTimeout(t *testing.T) {
	tests := map[string]string{
		"data/payments.db":              "data/payments.db?_busy_timeout=5000",
		"file:x?mode=memory":            "file:x?mode=memory&_busy_timeout=5000",
		"payments.db?_busy_timeout=100": "payments.db?_busy_timeout=100",
	}
	for in, want := range tests {
		if got := withBusyTimeout(in); got != want {
			t.Errorf("withBusyTimeout(%q) = %q, want %q", in, got, want)
		}
	}
}
