package kvstore

import "testing"

func TestAdapter_RoundTrip(t *testing.T) {
	a := NewMemAdapter()

	entry := SnapshotEntry{
		ID:            "e1",
		TransactionID: "t1",
		AccountID:     "acct-1",
		Amount:        "100.00",
		Currency:      "USD",
		EntryType:     "CREDIT",
		Hash:          "abc123",
		Status:        "CONFIRMED",
	}

	if err := a.PutSnapshotEntry(entry); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := a.GetSnapshotEntry("e1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatalf("expected entry to be found")
	}
	if got != entry {
		t.Errorf("got %+v, want %+v", got, entry)
	}
}

func TestAdapter_GetMissing(t *testing.T) {
	a := NewMemAdapter()
	_, ok, err := a.GetSnapshotEntry("does-not-exist")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Errorf("expected not found")
	}
}
