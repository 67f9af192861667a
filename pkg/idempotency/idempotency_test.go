package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeStore struct {
	keys    map[string]bool
	nextErr error
	deleted []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{keys: map[string]bool{}}
}

func (s *fakeStore) Get(context.Context, string) (string, error) { return "", nil }

func (s *fakeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if s.nextErr != nil {
		return false, s.nextErr
	}
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *fakeStore) IdempotencyKey(scope, id string) string {
	return "fsc:idempotency:" + scope + ":" + id
}

func (s *fakeStore) Del(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(s.keys, k)
		s.deleted = append(s.deleted, k)
	}
	return nil
}

func TestCheckAndMarkProcessed(t *testing.T) {
	store := newFakeStore()
	manager, err := NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	eventID := uuid.New()

	already, err := manager.CheckAndMarkProcessed(context.Background(), "ingest", eventID)
	if err != nil {
		t.Fatalf("first check: %v", err)
	}
	if already {
		t.Fatal("first occurrence should not be marked processed")
	}

	already, err = manager.CheckAndMarkProcessed(context.Background(), "ingest", eventID)
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if !already {
		t.Fatal("second occurrence should be marked processed")
	}
}

func TestDeleteAllowsRetry(t *testing.T) {
	store := newFakeStore()
	manager, _ := NewManager(store, time.Hour)
	eventID := uuid.New()

	if _, err := manager.CheckAndMarkProcessed(context.Background(), "ingest", eventID); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := manager.Delete(context.Background(), "ingest", eventID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	already, err := manager.CheckAndMarkProcessed(context.Background(), "ingest", eventID)
	if err != nil {
		t.Fatalf("re-check: %v", err)
	}
	if already {
		t.Fatal("deleted event should be processable again")
	}
}

func TestCheckAndMarkProcessedValidation(t *testing.T) {
	store := newFakeStore()
	manager, _ := NewManager(store, time.Hour)

	if _, err := manager.CheckAndMarkProcessed(context.Background(), "", uuid.New()); err == nil {
		t.Fatal("expected error for empty consumer")
	}
	if _, err := manager.CheckAndMarkProcessed(context.Background(), "ingest", uuid.Nil); err == nil {
		t.Fatal("expected error for nil event id")
	}

	store.nextErr = errors.New("redis down")
	if _, err := manager.CheckAndMarkProcessed(context.Background(), "ingest", uuid.New()); err == nil {
		t.Fatal("expected store error to propagate")
	}
}
