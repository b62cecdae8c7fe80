package controller

import (
	"net/http"
	"time"

	"github.com/api-sage/account-ledger/src/internal/adapter/http/models"
	"github.com/api-sage/account-ledger/src/internal/commons"
	"github.com/api-sage/account-ledger/src/internal/usecase/service_interfaces"
)

type AccountController struct {
	service service_interfaces.LedgerService
}

func NewAccountController(service service_interfaces.LedgerService) *AccountController {
	return &AccountController{service: service}
}

func (c *AccountController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("POST /accounts", wrap(c.openAccount, authMiddleware))
	mux.Handle("GET /accounts", wrap(c.listAccounts, authMiddleware))
	mux.Handle("GET /accounts/{accountId}/balance", wrap(c.getBalance, authMiddleware))
	mux.Handle("PATCH /accounts/{accountId}", wrap(c.updateDetails, authMiddleware))
	mux.Handle("POST /accounts/{accountId}/close", wrap(c.closeAccount, authMiddleware))
}

func (c *AccountController) openAccount(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.OpenAccountRequest
	if !decodeBody[models.OpenAccountRequest, models.AccountResponse](w, r, &req, start) {
		return
	}
	if err := req.Validate(); err != nil {
		respond(w, r, http.StatusBadRequest, commons.ErrorResponse[models.AccountResponse](commons.MessageValidationFailed, err.Error()), start)
		return
	}

	account, err := c.service.Open(r.Context(), req.HolderName, req.AccountType, req.Deposit())
	if err != nil {
		respondError[models.AccountResponse](w, r, err, start)
		return
	}

	respond(w, r, http.StatusCreated, commons.SuccessResponse("account opened successfully", models.NewAccountResponse(account)), start)
}

func (c *AccountController) listAccounts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	summaries, err := c.service.ListAccounts(r.Context())
	if err != nil {
		respondError[map[string]models.AccountSummaryResponse](w, r, err, start)
		return
	}

	respond(w, r, http.StatusOK, commons.SuccessResponse("accounts fetched successfully", models.NewAccountSummaryResponses(summaries)), start)
}

func (c *AccountController) getBalance(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)
	accountID := r.PathValue("accountId")

	balance, err := c.service.Balance(r.Context(), accountID)
	if err != nil {
		respondError[models.BalanceResponse](w, r, err, start)
		return
	}

	respond(w, r, http.StatusOK, commons.SuccessResponse("balance fetched successfully", models.BalanceResponse{
		AccountID: accountID,
		Balance:   models.FormatMoney(balance),
	}), start)
}

func (c *AccountController) updateDetails(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	accountID := r.PathValue("accountId")

	var req models.UpdateAccountRequest
	if !decodeBody[models.UpdateAccountRequest, models.AccountActionResponse](w, r, &req, start) {
		return
	}

	if err := c.service.UpdateDetails(r.Context(), accountID, req.HolderName, req.AccountType); err != nil {
		respondError[models.AccountActionResponse](w, r, err, start)
		return
	}

	respond(w, r, http.StatusOK, commons.SuccessResponse("account updated successfully", models.AccountActionResponse{AccountID: accountID}), start)
}

func (c *AccountController) closeAccount(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)
	accountID := r.PathValue("accountId")

	if err := c.service.Close(r.Context(), accountID); err != nil {
		respondError[models.AccountActionResponse](w, r, err, start)
		return
	}

	respond(w, r, http.StatusOK, commons.SuccessResponse("account closed successfully", models.AccountActionResponse{AccountID: accountID}), start)
}
