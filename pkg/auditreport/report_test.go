package auditreport

import (
	"strings"
	"testing"
	"time"

	"github.com/OpenGrantStack/GrantReady-Ledger/pkg/ledger"
)

func sampleEntries() []ledger.Entry {
	return []ledger.Entry{
		{
			ID:            "11111111-1111-4111-8111-111111111111",
			TransactionID: "tx-1",
			Account:       ledger.Account{ID: "acct-fund", Type: ledger.AccountFunding},
			Amount:        ledger.MustParseMoney("100.00"),
			Currency:      "USD",
			EntryType:     ledger.EntryDebit,
			Hash:          "hash-1",
			Status:        ledger.EntryConfirmed,
			Timestamp:     time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
		},
		{
			ID:            "22222222-2222-4222-8222-222222222222",
			TransactionID: "tx-1",
			Account:       ledger.Account{ID: "acct-ben", Type: ledger.AccountBeneficiary},
			Amount:        ledger.MustParseMoney("100.00"),
			Currency:      "USD",
			EntryType:     ledger.EntryCredit,
			Hash:          "hash-2",
			PreviousHash:  "hash-1",
			Status:        ledger.EntryConfirmed,
			Timestamp:     time.Date(2026, 1, 15, 12, 0, 1, 0, time.UTC),
		},
	}
}

func TestWriteEntryCSVIncludesHeaderAndRows(t *testing.T) {
	var b strings.Builder
	if err := WriteEntryCSV(&b, sampleEntries()); err != nil {
		t.Fatalf("WriteEntryCSV: %v", err)
	}
	out := b.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 1 header row + 2 entry rows, got %d lines: %q", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "entry_id,transaction_id") {
		t.Errorf("expected CSV header first, got %q", lines[0])
	}
	if !strings.Contains(lines[1], "acct-fund") || !strings.Contains(lines[2], "acct-ben") {
		t.Errorf("expected both accounts present in output, got %q", out)
	}
}

func TestWriteSummaryRendersAggregates(t *testing.T) {
	summary := ledger.GrantCycleSummary{
		GrantCycleID:     "cycle-1",
		TransactionCount: 2,
		AllocatedByCurrency: map[string]ledger.Money{
			"USD": ledger.MustParseMoney("500.00"),
		},
		DisbursedByCurrency: map[string]ledger.Money{
			"USD": ledger.MustParseMoney("300.00"),
		},
	}

	out, err := SummaryString(summary)
	if err != nil {
		t.Fatalf("SummaryString: %v", err)
	}
	for _, want := range []string{"cycle-1", "Transactions:       2", "500.00", "300.00"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected summary to contain %q, got:\n%s", want, out)
		}
	}
}

func TestWriteSummaryHandlesEmptyCurrencies(t *testing.T) {
	summary := ledger.GrantCycleSummary{
		GrantCycleID:        "cycle-empty",
		AllocatedByCurrency: map[string]ledger.Money{},
		DisbursedByCurrency: map[string]ledger.Money{},
	}
	out, err := SummaryString(summary)
	if err != nil {
		t.Fatalf("SummaryString: %v", err)
	}
	if strings.Count(out, "(none)") != 2 {
		t.Errorf("expected both sections to fall back to (none), got:\n%s", out)
	}
}
