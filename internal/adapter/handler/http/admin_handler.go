package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/shopline-labs/payment-reconciliation/internal/domain/model"
	"github.com/shopline-labs/payment-reconciliation/internal/domain/repository"
)

// AdminHandler serves the back-office reconciliation views.
type AdminHandler struct {
	logger       *zap.Logger
	transactions repository.BankTransactionRepository
}

// NewAdminHandler creates a new AdminHandler instance
func NewAdminHandler(logger *zap.Logger, transactions repository.BankTransactionRepository) *AdminHandler {
	return &AdminHandler{
		logger:       logger,
		transactions: transactions,
	}
}

// ListTransactions handles GET /api/v1/admin/transactions. The outcome
// filter is how operators pull the manual-review queue (unmatched and
// amount_mismatch rows).
func (h *AdminHandler) ListTransactions(c echo.Context) error {
	filters := repository.TransactionFilters{}

	if raw := c.QueryParam("outcome"); raw != "" {
		outcome := model.ProcessingOutcome(raw)
		if !outcome.IsValid() {
			return c.JSON(http.StatusBadRequest, echo.Map{
				"error": "Unknown outcome filter",
				"code":  "INVALID_OUTCOME",
			})
		}
		filters.Outcome = &outcome
	}
	if raw := c.QueryParam("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			filters.Limit = v
		}
	}
	if raw := c.QueryParam("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			filters.Offset = v
		}
	}
	filters.SetDefaults()

	transactions, total, err := h.transactions.List(c.Request().Context(), filters)
	if err != nil {
		h.logger.Error("Failed to list bank transactions", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to list transactions",
			"code":  "LIST_TRANSACTIONS_FAILED",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"transactions": transactions,
		"total":        total,
		"limit":        filters.Limit,
		"offset":       filters.Offset,
	})
}
