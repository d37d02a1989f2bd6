package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/liquidpay/liquidpay/pkg/logger"
	"github.com/liquidpay/liquidpay/pkg/store"
	"github.com/liquidpay/liquidpay/pkg/transfer"
)

type errorBody struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

type transferResponse struct {
	Transfer *transferView    `json:"transfer,omitempty"`
	Result   *transfer.Result `json:"result,omitempty"`
	Error    *errorBody       `json:"error,omitempty"`
}

// transferView is the wire shape of a ledger record.
type transferView struct {
	ID            string `json:"id"`
	UserID        string `json:"userId"`
	Network       string `json:"network"`
	Amount        string `json:"amount"`
	Destination   string `json:"destination"`
	TxHash        string `json:"txHash,omitempty"`
	FeePayer      string `json:"feePayer,omitempty"`
	Status        string `json:"status"`
	FailureReason string `json:"failureReason,omitempty"`
}

func viewOf(t *store.Transfer) *transferView {
	if t == nil {
		return nil
	}
	return &transferView{
		ID:            t.ID,
		UserID:        t.UserID,
		Network:       t.Network,
		Amount:        t.Amount,
		Destination:   t.Destination,
		TxHash:        t.TxHash,
		FeePayer:      t.FeePayer,
		Status:        t.Status,
		FailureReason: t.FailureReason,
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "liquidpay",
	})
}

func (s *Server) handleProvisionWallet(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Code: "bad_request", Reason: "user ID is required"})
		return
	}

	wallet, err := s.wallets.ProvisionWallet(userID)
	if err != nil {
		logger.ErrorCF("server", "Wallet provisioning failed", map[string]any{
			"user":  userID,
			"error": err.Error(),
		})
		writeJSON(w, http.StatusInternalServerError, errorBody{Code: "provisioning_failed", Reason: "could not provision wallet"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"userId":        wallet.UserID,
		"evmAddress":    wallet.EVMAddress,
		"solanaAddress": wallet.SolanaAddress,
	})
}

func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	addrs, err := s.wallets.GetWalletAddresses(userID)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody{Code: "wallet_not_found", Reason: "no wallet provisioned for user"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorBody{Code: "internal_error", Reason: "failed to load wallet"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"userId":        userID,
		"evmAddress":    addrs.EVMAddress,
		"solanaAddress": addrs.SolanaAddress,
	})
}

func (s *Server) handleGetBalances(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	addrs, err := s.wallets.GetWalletAddresses(userID)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody{Code: "wallet_not_found", Reason: "no wallet provisioned for user"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorBody{Code: "internal_error", Reason: "failed to load wallet"})
		return
	}

	// One network being down or unconfigured must not hide the other's
	// balance; failures are reported per network.
	balances := map[string]string{}
	unavailable := map[string]string{}
	for network, address := range map[transfer.Network]string{
		transfer.NetworkEVM:    addrs.EVMAddress,
		transfer.NetworkSolana: addrs.SolanaAddress,
	} {
		balance, err := s.oracle.TokenBalance(r.Context(), network, address)
		if err != nil {
			logger.WarnCF("server", "Balance query failed", map[string]any{
				"network": string(network),
				"error":   err.Error(),
			})
			unavailable[string(network)] = "balance oracle unavailable"
			continue
		}
		balances[string(network)] = transfer.FormatBaseUnits(balance)
	}

	if len(balances) == 0 && len(unavailable) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Code: "oracle_unavailable", Reason: "balance oracle unavailable on all networks"})
		return
	}

	resp := map[string]any{
		"userId":   userID,
		"balances": balances,
	}
	if len(unavailable) > 0 {
		resp["errors"] = unavailable
	}
	writeJSON(w, http.StatusOK, resp)
}

type createTransferRequest struct {
	UserID      string `json:"userId"`
	Network     string `json:"network"`
	Destination string `json:"destination"`
	Amount      string `json:"amount"`
}

func (s *Server) handleCreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req createTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Code: "bad_request", Reason: "invalid JSON body"})
		return
	}
	if req.UserID == "" || req.Network == "" || req.Destination == "" || req.Amount == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Code: "bad_request", Reason: "userId, network, destination and amount are required"})
		return
	}

	rec, result, err := s.svc.Submit(r.Context(), req.UserID, req.Network, req.Destination, req.Amount)
	if err != nil {
		status, body := transferErrorResponse(err)
		writeJSON(w, status, transferResponse{Transfer: viewOf(rec), Error: body})
		return
	}

	writeJSON(w, http.StatusOK, transferResponse{Transfer: viewOf(rec), Result: result})
}

func (s *Server) handleGetTransfer(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rec, err := s.svc.Get(id)
	if err != nil {
		if errors.Is(err, store.ErrTransferNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody{Code: "transfer_not_found", Reason: "unknown transfer ID"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorBody{Code: "internal_error", Reason: "failed to load transfer"})
		return
	}

	writeJSON(w, http.StatusOK, transferResponse{Transfer: viewOf(rec)})
}

func (s *Server) handleListTransfers(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := s.svc.ListForUser(userID, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Code: "internal_error", Reason: "failed to list transfers"})
		return
	}

	views := make([]*transferView, 0, len(records))
	for i := range records {
		views = append(views, viewOf(&records[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"userId":    userID,
		"transfers": views,
	})
}

// transferErrorResponse maps the orchestrator's error taxonomy onto
// HTTP statuses.
func transferErrorResponse(err error) (int, *errorBody) {
	var terr *transfer.Error
	if !errors.As(err, &terr) {
		return http.StatusInternalServerError, &errorBody{Code: "internal_error", Reason: "transfer failed"}
	}

	body := &errorBody{Code: string(terr.Code), Reason: terr.Reason}
	switch terr.Code {
	case transfer.CodeInvalidAmount, transfer.CodeInvalidDestination,
		transfer.CodeUnsupportedNetwork, transfer.CodeInsufficientUserBalance,
		transfer.CodeKeyAccessFailed:
		return http.StatusBadRequest, body
	case transfer.CodeRelayerNotConfigured, transfer.CodeInsufficientRelayerBalance,
		transfer.CodeOracleUnavailable:
		return http.StatusServiceUnavailable, body
	case transfer.CodeConfirmationTimeout:
		return http.StatusGatewayTimeout, body
	default:
		return http.StatusBadGateway, body
	}
}
