// Copyright 2025 OpenGrantStack
//
// Package auditreport renders grant cycle summaries and entry logs for
// offline audit review, grounded on the certen-validator bulk export
// handlers' CSV writer shape (pkg/server/bulk_handlers.go) and
// extended with a plain-text template for a human-readable summary.
package auditreport

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/OpenGrantStack/GrantReady-Ledger/pkg/ledger"
)

// WriteEntryCSV renders entries as CSV to w: one row per entry, ordered
// as given (callers typically pass engine.Entries(txID) or a
// chronological sweep from the EntryStore).
func WriteEntryCSV(w io.Writer, entries []ledger.Entry) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"entry_id", "transaction_id", "account_id", "entry_type", "amount", "currency", "status", "hash", "previous_hash", "timestamp"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("auditreport: write header: %w", err)
	}

	for _, e := range entries {
		row := []string{
			e.ID,
			e.TransactionID,
			e.Account.ID,
			string(e.EntryType),
			e.Amount.String(),
			e.Currency,
			string(e.Status),
			e.Hash,
			e.PreviousHash,
			e.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z"),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("auditreport: write row for %s: %w", e.ID, err)
		}
	}
	return cw.Error()
}

const summaryTemplateText = `Grant Cycle Audit Summary
=========================
Grant Cycle:        {{.GrantCycleID}}
Transactions:       {{.TransactionCount}}

Allocated (CREDIT):
{{- range $currency, $amount := .AllocatedByCurrency }}
  {{ $currency }}: {{ $amount }}
{{- else }}
  (none)
{{- end }}

Disbursed (DEBIT/ADJUSTMENT):
{{- range $currency, $amount := .DisbursedByCurrency }}
  {{ $currency }}: {{ $amount }}
{{- else }}
  (none)
{{- end }}
`

var summaryTemplate = template.Must(template.New("grant-cycle-summary").Parse(summaryTemplateText))

// WriteSummary renders a GrantCycleSummary as a human-readable report
// to w.
func WriteSummary(w io.Writer, summary ledger.GrantCycleSummary) error {
	return summaryTemplate.Execute(w, summary)
}

// SummaryString is a convenience wrapper returning WriteSummary's
// output as a string.
func SummaryString(summary ledger.GrantCycleSummary) (string, error) {
	var b strings.Builder
	if err := WriteSummary(&b, summary); err != nil {
		return "", err
	}
	return b.String(), nil
}
