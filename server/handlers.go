package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"wagerledger/address"
	"wagerledger/instruction"
	"wagerledger/models"
)

// maxSubmitBodyBytes fits the base64 form of the largest transaction plus
// room for the JSON envelope
var maxSubmitBodyBytes = int64(base64.StdEncoding.EncodedLen(instruction.MaxTransactionSize) + 1024)

// SubmitRequest carries one base64 encoded signed transaction
type SubmitRequest struct {
	Transaction string `json:"transaction"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// submitTransaction handles POST /api/v1/transactions
func (s *Server) submitTransaction(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSubmitBodyBytes)

	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithTooLarge(w, tooLarge.Limit)
			return
		}
		respondWithBadRequest(w, "invalid request body")
		return
	}
	if req.Transaction == "" {
		respondWithBadRequest(w, "transaction is required")
		return
	}

	raw, err := base64.StdEncoding.DecodeString(req.Transaction)
	if err != nil {
		respondWithBadRequest(w, "transaction must be base64 encoded")
		return
	}

	receipt, err := s.ledger.Submit(r.Context(), raw)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, receipt)
}

// getAccount handles GET /api/v1/accounts/{address}
func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	addr, ok := addressParam(w, r, "address")
	if !ok {
		return
	}

	view, err := s.query.GetAccount(r.Context(), addr)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

// getProfile handles GET /api/v1/profiles/{wallet}
func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	wallet, ok := addressParam(w, r, "wallet")
	if !ok {
		return
	}

	view, err := s.query.GetProfile(r.Context(), wallet)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, view)
}

// listWalletBets handles GET /api/v1/wallets/{wallet}/bets
func (s *Server) listWalletBets(w http.ResponseWriter, r *http.Request) {
	wallet, ok := addressParam(w, r, "wallet")
	if !ok {
		return
	}

	bets, err := s.query.ListBetsByWallet(r.Context(), wallet)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, bets)
}

// listWalletFriends handles GET /api/v1/wallets/{wallet}/friends
func (s *Server) listWalletFriends(w http.ResponseWriter, r *http.Request) {
	wallet, ok := addressParam(w, r, "wallet")
	if !ok {
		return
	}

	friends, err := s.query.ListFriends(r.Context(), wallet)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, friends)
}

// listBets handles GET /api/v1/bets?status=open. Status defaults to open.
func (s *Server) listBets(w http.ResponseWriter, r *http.Request) {
	status := models.BetStatusOpen
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, ok := models.ParseBetStatus(raw)
		if !ok {
			respondWithBadRequest(w, "unknown bet status "+strconv.Quote(raw))
			return
		}
		status = parsed
	}

	bets, err := s.query.ListBetsByStatus(r.Context(), status)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, bets)
}

// leaderboard handles GET /api/v1/leaderboard?limit=N
func (s *Server) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondWithBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := s.query.Leaderboard(r.Context(), limit)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, entries)
}

func addressParam(w http.ResponseWriter, r *http.Request, name string) (address.Address, bool) {
	addr, err := address.Parse(chi.URLParam(r, name))
	if err != nil {
		respondWithBadRequest(w, "invalid "+name+": "+err.Error())
		return address.Address{}, false
	}
	return addr, true
}
