package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"trade-governor/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	st, err := store.NewMemory()
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	svc, err := NewService(st, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestRecordAndListEvents(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	svc.RecordValidation(ctx, ValidationPayload{AccountID: 1, Symbol: "BTCUSDT", Valid: false, Reason: "Daily Loss Limit Hit"})
	svc.RecordSync(ctx, SyncPayload{AccountID: 1, Balance: 4})
	svc.RecordSync(ctx, SyncPayload{AccountID: 1, Warning: "timeout"})
	svc.RecordError(ctx, "boom", errors.New("bad"), nil)

	all, err := svc.ListEvents(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 events, got %d", len(all))
	}
	if all[0].Type != EventError {
		t.Fatalf("expected newest first, got %s", all[0].Type)
	}

	warnings, err := svc.ListEvents(ctx, EventSyncWarning, 10)
	if err != nil {
		t.Fatalf("ListEvents warnings: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected 1 sync warning, got %d", len(warnings))
	}

	raw, ok := warnings[0].Payload.(json.RawMessage)
	if !ok {
		t.Fatalf("expected raw payload, got %T", warnings[0].Payload)
	}
	var payload SyncPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Warning != "timeout" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestNilServiceIsNoop(t *testing.T) {
	var svc *Service
	svc.RecordJournal(context.Background(), JournalPayload{AccountID: 1})
}
