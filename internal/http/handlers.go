package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/core"
	"fintrack/internal/errs"
	applog "fintrack/internal/log"
	"fintrack/internal/projection"
	"fintrack/internal/services"
)

const (
	maxBodyBytes   = 1 << 20
	maxImportBytes = 10 << 20
	readyTimeout   = 2 * time.Second
)

type walletRequest struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type transactionRequest struct {
	Amount      *core.Amount `json:"amount"`
	Description string       `json:"description"`
	// Type is deposit or withdrawal with a positive amount; empty means the
	// amount is already signed.
	Type string `json:"type"`
}

type settingsRequest struct {
	Currency *string `json:"currency"`
	Theme    *string `json:"theme"`
}

type transactionView struct {
	core.Transaction
	Formatted string `json:"formatted"`
}

type walletView struct {
	core.Wallet
	IconKind  core.Icon `json:"iconKind"`
	Formatted string    `json:"formatted"`
}

type importResult struct {
	Wallets            int `json:"wallets"`
	Transactions       int `json:"transactions"`
	RecomputedBalances int `json:"recomputedBalances"`
}

type clearResult struct {
	Wallets      int `json:"wallets"`
	Transactions int `json:"transactions"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
			WriteError(w, http.StatusServiceUnavailable, CodeUnavailable, "storage unavailable")
			return
		}
	}
	WriteSuccess(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleListWallets(w http.ResponseWriter, r *http.Request) {
	wallets := s.svc.Wallets(r.Context())
	out := make([]walletView, len(wallets))
	for i, wl := range wallets {
		out[i] = s.walletView(wl)
	}
	WriteSuccess(w, http.StatusOK, out)
}

func (s *Server) handleCreateWallet(w http.ResponseWriter, r *http.Request) {
	var req walletRequest
	if err := decodeJSON(w, r, &req); err != nil {
		HandleError(w, r, err)
		return
	}
	wl, err := s.svc.CreateWallet(r.Context(), req.Name, req.Icon)
	if err != nil {
		HandleError(w, r, err)
		return
	}
	w.Header().Set("Location", "/wallets/"+wl.ID)
	WriteSuccess(w, http.StatusCreated, s.walletView(wl))
}

func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.Wallet(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		HandleError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, summary)
}

// Deleting a missing wallet is not an error.
func (s *Server) handleDeleteWallet(w http.ResponseWriter, r *http.Request) {
	s.svc.DeleteWallet(r.Context(), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWalletTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.svc.WalletTransactions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		HandleError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, s.transactionViews(txs))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		HandleError(w, r, err)
		return
	}
	if req.Amount == nil {
		HandleError(w, r, errs.NewValidationError("amount is required"))
		return
	}
	amount, err := services.SignedAmount(req.Type, *req.Amount)
	if err != nil {
		HandleError(w, r, err)
		return
	}
	tx, err := s.svc.CreateTransaction(r.Context(), chi.URLParam(r, "id"), amount, req.Description)
	if err != nil {
		HandleError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusCreated, transactionView{Transaction: tx, Formatted: s.svc.Format(tx.Amount)})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			HandleError(w, r, errs.NewValidationError("invalid limit %q: must be a non-negative integer", v))
			return
		}
		limit = n
	}
	WriteSuccess(w, http.StatusOK, s.transactionViews(s.svc.Transactions(r.Context(), limit)))
}

// Deleting a missing transaction is not an error.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	s.svc.DeleteTransaction(r.Context(), chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, http.StatusOK, s.svc.Dashboard(r.Context()))
}

func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	b, err := projection.ParseBucketing(q.Get("bucketing"))
	if err != nil {
		HandleError(w, r, err)
		return
	}
	points, err := s.svc.Projection(r.Context(), b, strings.TrimSpace(q.Get("wallet")))
	if err != nil {
		HandleError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, points)
}

// handleExport serves the raw export document, not an envelope, so the file
// can be imported back unchanged.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, name, err := s.svc.Export(r.Context())
	if err != nil {
		HandleError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		HandleError(w, r, err)
		return
	}
	n, err := s.svc.Import(r.Context(), data)
	if err != nil {
		HandleError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, importResult{
		Wallets:            len(n.Wallets),
		Transactions:       len(n.Transactions),
		RecomputedBalances: n.RecomputedBalances,
	})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	wallets, txs := s.svc.Clear(r.Context())
	WriteSuccess(w, http.StatusOK, clearResult{Wallets: wallets, Transactions: txs})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, http.StatusOK, s.svc.Settings(r.Context()))
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		HandleError(w, r, err)
		return
	}
	settings, err := s.svc.UpdateSettings(r.Context(), req.Currency, req.Theme)
	if err != nil {
		HandleError(w, r, err)
		return
	}
	WriteSuccess(w, http.StatusOK, settings)
}

func (s *Server) walletView(wl core.Wallet) walletView {
	return walletView{Wallet: wl, IconKind: wl.IconKind(), Formatted: s.svc.Format(wl.Balance)}
}

func (s *Server) transactionViews(txs []core.Transaction) []transactionView {
	out := make([]transactionView, len(txs))
	for i, tx := range txs {
		out[i] = transactionView{Transaction: tx, Formatted: s.svc.Format(tx.Amount)}
	}
	return out
}

// decodeJSON reads one JSON object and reports shape problems as validation
// errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return err
		case errs.IsValidation(err):
			return err
		case errors.Is(err, io.EOF):
			return errs.NewValidationError("request body is empty")
		default:
			return errs.NewValidationError("invalid JSON body: %v", err)
		}
	}
	if dec.More() {
		return errs.NewValidationError("request body must contain a single JSON object")
	}
	return nil
}
