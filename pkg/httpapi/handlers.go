// Copyright 2025 OpenGrantStack
//
// Package httpapi exposes a thin REST surface over ledger.Engine,
// grounded on the certen-validator server handlers' shape (one struct
// per resource family, wrapping a core component, writing JSON with
// encoding/json straight onto http.ResponseWriter — pkg/server/ledger_handlers.go)
// rather than adopting a router framework the teacher doesn't use.
package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/OpenGrantStack/GrantReady-Ledger/pkg/auditreport"
	"github.com/OpenGrantStack/GrantReady-Ledger/pkg/ledger"
	"github.com/OpenGrantStack/GrantReady-Ledger/pkg/persistence"
)

// Handlers wraps an Engine and serves the grant ledger's HTTP API.
type Handlers struct {
	engine *ledger.Engine
	repo   *persistence.EntryRepository
}

// NewHandlers constructs Handlers over engine. repo is optional: when
// nil, executed transactions are never exported to durable audit
// storage and the caller only gets the in-memory result.
func NewHandlers(engine *ledger.Engine, repo *persistence.EntryRepository) *Handlers {
	return &Handlers{engine: engine, repo: repo}
}

// Mux builds the http.ServeMux wiring every route to its handler.
func (h *Handlers) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/transactions", h.HandleCreateTransaction)
	mux.HandleFunc("/transactions/", h.dispatchTransactionSubroute)
	mux.HandleFunc("/accounts/", h.HandleAccountBalance)
	mux.HandleFunc("/integrity", h.HandleIntegrity)
	mux.HandleFunc("/grant-cycles/", h.dispatchGrantCycleSubroute)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// createTransactionRequest is the wire shape for POST /transactions.
type createTransactionRequest struct {
	GrantCycleID string                     `json:"grantCycleId"`
	Type         ledger.TransactionType     `json:"type"`
	Description  string                     `json:"description"`
	PolicyID     string                     `json:"policyId,omitempty"`
	Entries      []createEntryDescriptor    `json:"entries"`
}

type createEntryDescriptor struct {
	AccountID   string            `json:"accountId"`
	AccountType ledger.AccountType `json:"accountType"`
	Amount      string            `json:"amount"`
	Currency    string            `json:"currency"`
	EntryType   ledger.EntryType  `json:"entryType"`
	Description string            `json:"description"`
}

// HandleCreateTransaction handles POST /transactions.
func (h *Handlers) HandleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	descriptors := make([]ledger.EntryDescriptor, 0, len(req.Entries))
	for _, ed := range req.Entries {
		amount, err := ledger.ParseMoney(ed.Amount)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		descriptors = append(descriptors, ledger.EntryDescriptor{
			Account:     ledger.Account{ID: ed.AccountID, Type: ed.AccountType},
			Amount:      amount,
			Currency:    ed.Currency,
			EntryType:   ed.EntryType,
			Description: ed.Description,
		})
	}

	tx, entries, err := h.engine.CreateTransaction(req.GrantCycleID, req.Type, descriptors, req.Description, req.PolicyID)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"transaction": tx,
		"entries":     entries,
	})
}

// dispatchTransactionSubroute routes /transactions/{id}/{action}.
func (h *Handlers) dispatchTransactionSubroute(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/transactions/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	txID := parts[0]

	if len(parts) == 1 {
		h.handleGetTransaction(w, r, txID)
		return
	}

	switch parts[1] {
	case "signatures":
		h.handleAddSignature(w, r, txID)
	case "submit":
		h.handleSubmit(w, r, txID)
	case "execute":
		h.handleExecute(w, r, txID)
	case "reject":
		h.handleReject(w, r, txID)
	case "cancel":
		h.handleCancel(w, r, txID)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handlers) handleGetTransaction(w http.ResponseWriter, r *http.Request, txID string) {
	tx, ok := h.engine.GetTransaction(txID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *Handlers) handleSubmit(w http.ResponseWriter, r *http.Request, txID string) {
	var body struct {
		Actor string `json:"actor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tx, err := h.engine.Submit(txID, body.Actor)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

type addSignatureRequest struct {
	Signer         string               `json:"signer"`
	SignatureBytes string               `json:"signatureBytes"`
	SignatureType  ledger.SignatureType `json:"signatureType"`
}

func (h *Handlers) handleAddSignature(w http.ResponseWriter, r *http.Request, txID string) {
	var req addSignatureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	tx, err := h.engine.AddSignature(ctx, txID, req.Signer, req.SignatureBytes, req.SignatureType)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *Handlers) handleExecute(w http.ResponseWriter, r *http.Request, txID string) {
	var body struct {
		Actor string `json:"actor"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	tx, err := h.engine.Execute(ctx, txID, body.Actor)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	// Durable export is best-effort and never rolls back a successful
	// execution: the in-memory ledger is always the source of truth.
	auditExportError := ""
	if h.repo != nil {
		if err := h.repo.ExportEntries(ctx, h.engine.Entries(txID)); err != nil {
			log.Printf("httpapi: audit export failed for %s: %v", txID, err)
			auditExportError = err.Error()
		}
	}

	resp := map[string]interface{}{"transaction": tx}
	if auditExportError != "" {
		resp["auditExportError"] = auditExportError
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) handleReject(w http.ResponseWriter, r *http.Request, txID string) {
	var body struct {
		Actor  string `json:"actor"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tx, err := h.engine.Reject(txID, body.Actor, body.Reason)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *Handlers) handleCancel(w http.ResponseWriter, r *http.Request, txID string) {
	var body struct {
		Actor  string `json:"actor"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ok := h.engine.Cancel(txID, body.Actor, body.Reason)
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": ok})
}

// HandleAccountBalance handles GET /accounts/{id}/balance?currency=USD.
func (h *Handlers) HandleAccountBalance(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/accounts/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[1] != "balance" {
		http.NotFound(w, r)
		return
	}
	currency := r.URL.Query().Get("currency")
	if currency == "" {
		writeError(w, http.StatusBadRequest, errMissingCurrency)
		return
	}
	balance := h.engine.GetAccountBalance(parts[0], currency)
	writeJSON(w, http.StatusOK, balance)
}

var errMissingCurrency = httpAPIError("currency query parameter is required")

type httpAPIError string

func (e httpAPIError) Error() string { return string(e) }

// dispatchGrantCycleSubroute routes /grant-cycles/{id}/{action}.
func (h *Handlers) dispatchGrantCycleSubroute(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/grant-cycles/")
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	cycleID := parts[0]

	switch parts[1] {
	case "summary":
		h.handleGrantCycleSummary(w, r, cycleID)
	case "entries.csv":
		h.handleGrantCycleEntriesCSV(w, r, cycleID)
	default:
		http.NotFound(w, r)
	}
}

// handleGrantCycleSummary handles GET /grant-cycles/{id}/summary,
// rendering the plain-text audit summary the operator hands to a
// grant committee.
func (h *Handlers) handleGrantCycleSummary(w http.ResponseWriter, r *http.Request, cycleID string) {
	summary := h.engine.GrantCycleSummary(cycleID)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := auditreport.WriteSummary(w, summary); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleGrantCycleEntriesCSV handles GET /grant-cycles/{id}/entries.csv.
func (h *Handlers) handleGrantCycleEntriesCSV(w http.ResponseWriter, r *http.Request, cycleID string) {
	entries := h.engine.EntriesByGrantCycle(cycleID)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	if err := auditreport.WriteEntryCSV(w, entries); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// HandleIntegrity handles GET /integrity.
func (h *Handlers) HandleIntegrity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()
	result := h.engine.VerifyIntegrity(ctx)
	status := http.StatusOK
	if !result.Valid {
		status = http.StatusConflict
	}
	writeJSON(w, status, result)
}
