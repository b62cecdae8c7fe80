package controller

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/api-sage/account-ledger/src/internal/adapter/http/models"
	"github.com/api-sage/account-ledger/src/internal/commons"
	"github.com/api-sage/account-ledger/src/internal/domain"
	"github.com/api-sage/account-ledger/src/internal/usecase/service_interfaces"
	"github.com/shopspring/decimal"
)

type TransactionController struct {
	service service_interfaces.LedgerService
}

func NewTransactionController(service service_interfaces.LedgerService) *TransactionController {
	return &TransactionController{service: service}
}

func (c *TransactionController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.Handle("POST /accounts/{accountId}/deposit", wrap(c.deposit, authMiddleware))
	mux.Handle("POST /accounts/{accountId}/withdraw", wrap(c.withdraw, authMiddleware))
	mux.Handle("GET /accounts/{accountId}/transactions", wrap(c.history, authMiddleware))
	mux.Handle("POST /transfers", wrap(c.transfer, authMiddleware))
}

type amountOperation func(ctx context.Context, accountID string, amount decimal.Decimal, description string) error

func (c *TransactionController) deposit(w http.ResponseWriter, r *http.Request) {
	c.postAmount(w, r, "deposit successful", c.service.Deposit)
}

func (c *TransactionController) withdraw(w http.ResponseWriter, r *http.Request) {
	c.postAmount(w, r, "withdrawal successful", c.service.Withdraw)
}

func (c *TransactionController) postAmount(w http.ResponseWriter, r *http.Request, message string, apply amountOperation) {
	start := time.Now()
	accountID := r.PathValue("accountId")

	var req models.AmountRequest
	if !decodeBody[models.AmountRequest, models.AmountResponse](w, r, &req, start) {
		return
	}
	if err := req.Validate(); err != nil {
		respond(w, r, http.StatusBadRequest, commons.ErrorResponse[models.AmountResponse](commons.MessageValidationFailed, err.Error()), start)
		return
	}

	amount := req.Value()
	if err := apply(r.Context(), accountID, amount, req.Description); err != nil {
		respondError[models.AmountResponse](w, r, err, start)
		return
	}

	respond(w, r, http.StatusOK, commons.SuccessResponse(message, models.AmountResponse{
		AccountID:   accountID,
		Amount:      models.FormatMoney(amount),
		Description: req.Description,
	}), start)
}

func (c *TransactionController) history(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)
	accountID := r.PathValue("accountId")

	query := r.URL.Query()
	dateRange, err := domain.ParseDateRange(strings.TrimSpace(query.Get("startDate")), strings.TrimSpace(query.Get("endDate")))
	if err != nil {
		respondError[models.HistoryResponse](w, r, err, start)
		return
	}

	entries, err := c.service.History(r.Context(), accountID, dateRange)
	if err != nil {
		respondError[models.HistoryResponse](w, r, err, start)
		return
	}

	respond(w, r, http.StatusOK, commons.SuccessResponse("transactions fetched successfully", models.NewHistoryResponse(accountID, entries)), start)
}

func (c *TransactionController) transfer(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.TransferRequest
	if !decodeBody[models.TransferRequest, models.TransferResponse](w, r, &req, start) {
		return
	}
	if err := req.Validate(); err != nil {
		respond(w, r, http.StatusBadRequest, commons.ErrorResponse[models.TransferResponse](commons.MessageValidationFailed, err.Error()), start)
		return
	}

	from := strings.TrimSpace(req.FromAccountID)
	to := strings.TrimSpace(req.ToAccountID)
	amount := req.Value()
	if err := c.service.Transfer(r.Context(), from, to, amount); err != nil {
		respondError[models.TransferResponse](w, r, err, start)
		return
	}

	respond(w, r, http.StatusOK, commons.SuccessResponse("transfer successful", models.TransferResponse{
		FromAccountID: from,
		ToAccountID:   to,
		Amount:        models.FormatMoney(amount),
	}), start)
}
