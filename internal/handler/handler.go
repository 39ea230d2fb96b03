package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/badgepay/badgepay/internal/apperr"
	"github.com/badgepay/badgepay/internal/auth"
	"github.com/badgepay/badgepay/internal/export"
	"github.com/badgepay/badgepay/internal/service"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	svc *service.Service
	log *logrus.Logger
}

func NewHandler(svc *service.Service, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

var kindStatus = map[apperr.Kind]int{
	apperr.KindCardNotFound:              http.StatusNotFound,
	apperr.KindAccountNotFound:           http.StatusNotFound,
	apperr.KindCardNotActive:             http.StatusForbidden,
	apperr.KindCardNotProvisioned:        http.StatusForbidden,
	apperr.KindCardBlocked:               http.StatusForbidden,
	apperr.KindUnauthorized:              http.StatusForbidden,
	apperr.KindChallengeInvalidOrExpired: http.StatusUnauthorized,
	apperr.KindInvalidSignature:          http.StatusUnauthorized,
	apperr.KindInvalidPin:                http.StatusUnauthorized,
	apperr.KindInvalidCardState:          http.StatusConflict,
	apperr.KindPinNotSet:                 http.StatusConflict,
	apperr.KindInvalidPinFormat:          http.StatusBadRequest,
	apperr.KindInvalidAmount:             http.StatusBadRequest,
	apperr.KindInsufficientFunds:         http.StatusPaymentRequired,
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Errorf("Failed to encode response: %v", err)
	}
}

// writeError maps an error kind to a status and serializes only the
// client-facing parts; causes stay in the logs.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		e = apperr.Internal(err)
	}
	status, ok := kindStatus[e.Kind]
	if !ok {
		status = http.StatusInternalServerError
		h.log.Errorf("Internal error: %v", err)
	}

	body := map[string]interface{}{
		"error": e.Message,
		"code":  string(e.Kind),
	}
	for k, v := range e.Meta {
		body[k] = v
	}
	h.writeJSON(w, status, body)
}

// GetChallenge handles challenge requests for card authentication
func (h *Handler) GetChallenge(w http.ResponseWriter, r *http.Request) {
	cardID := r.URL.Query().Get("card_id")
	if cardID == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "card_id is required"})
		return
	}

	ch, err := h.svc.IssueChallenge(r.Context(), cardID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"challenge": ch.Value})
}

// CardAuth verifies a signed challenge response and returns a card token
func (h *Handler) CardAuth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CardID    string `json:"card_id"`
		Challenge string `json:"challenge"`
		Signature string `json:"signature"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.CardID == "" || req.Challenge == "" || req.Signature == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "card_id, challenge, and signature are required"})
		return
	}

	token, err := h.svc.VerifyResponse(r.Context(), req.CardID, req.Challenge, req.Signature)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, token)
}

// SetupPin activates a card by binding a PIN
func (h *Handler) SetupPin(w http.ResponseWriter, r *http.Request) {
	cardID := mux.Vars(r)["card_id"]
	var req struct {
		Pin string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.svc.SetupPin(r.Context(), cardID, req.Pin); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "active"})
}

// VerifyPin checks a card PIN and returns the linked account
func (h *Handler) VerifyPin(w http.ResponseWriter, r *http.Request) {
	cardID := mux.Vars(r)["card_id"]
	var req struct {
		Pin string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	account, err := h.svc.VerifyPin(r.Context(), cardID, req.Pin)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"account": account,
	})
}

// CreateTransaction appends a new ledger row for the authenticated principal
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no token provided"})
		return
	}

	var req struct {
		DestinationAccountID string `json:"destination_account_id"`
		Amount               int64  `json:"amount"`
		Comment              string `json:"comment"`
		BypassSolvency       bool   `json:"bypass_solvency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.DestinationAccountID == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "destination_account_id is required"})
		return
	}

	t, err := h.svc.CreateTransaction(r.Context(), p, req.DestinationAccountID, req.Amount, req.Comment, req.BypassSolvency)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, t)
}

// ListTransactions returns recent ledger rows for the authenticated principal
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no token provided"})
		return
	}

	transactions, err := h.svc.ListTransactions(r.Context(), p.AccountID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": transactions})
}

// GetBalance returns the derived balance for an account
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["id"]
	p, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no token provided"})
		return
	}
	// Non-admin sessions may only read their own balance.
	if !p.IsAdmin() && p.AccountID != accountID {
		h.writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return
	}

	balance, err := h.svc.ComputeBalance(r.Context(), accountID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"account_id": accountID, "balance": balance})
}

// ExportLedger renders recent ledger rows as an XML statement
func (h *Handler) ExportLedger(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	transactions, err := h.svc.ListTransactions(r.Context(), accountID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	out, err := export.BuildStatement(accountID, transactions, time.Now())
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}
