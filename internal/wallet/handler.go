package wallet

import (
	"errors"
	"net/http"
	"strconv"

	"agentsouk/internal/api"
	"agentsouk/internal/auth"
	"agentsouk/internal/catalog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// @Summary      Get wallet
// @Description  Balance with status classification and an optional top-up recommendation. The recommendation is computed against the given agent's price, defaulting to the cheapest agent.
// @Tags         wallet
// @Produce      json
// @Security     BearerAuth
// @Param        agent query string false "Agent slug to size the recommendation against"
// @Success      200 {object} wallet.WalletResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /wallet [get]
func (h *Handler) GetWallet(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	a, err := h.repo.GetOrCreateAccount(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load wallet"})
		return
	}

	unitPrice := catalog.CheapestPrice()
	if slug := c.Query("agent"); slug != "" {
		if entry, found := catalog.GetPrice(slug); found {
			unitPrice = entry.Price
		}
	}

	c.JSON(http.StatusOK, WalletResponse{
		Balance:        a.Balance,
		BalanceDisplay: FormatBalance(a.Balance),
		Currency:       a.Currency,
		Status:         ClassifyStatus(a.Balance),
		UsesRemaining:  UsageCount(a.Balance, unitPrice),
		Recommendation: RecommendTopUp(a.Balance, unitPrice),
	})
}

// @Summary      List wallet transactions
// @Tags         wallet
// @Produce      json
// @Security     BearerAuth
// @Param        limit query int false "Page size" default(50)
// @Param        offset query int false "Offset" default(0)
// @Success      200 {array} wallet.Transaction
// @Failure      401 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /wallet/transactions [get]
func (h *Handler) ListTransactions(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "user not authenticated"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	txs, err := h.repo.Transactions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to load transactions"})
		return
	}

	c.JSON(http.StatusOK, txs)
}

// @Summary      List top-up packages
// @Tags         wallet
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} wallet.Package
// @Router       /wallet/packages [get]
func (h *Handler) ListPackages(c *gin.Context) {
	c.JSON(http.StatusOK, ListPackages())
}

type refundRequest struct {
	UserID         int             `json:"user_id" binding:"required"`
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	Reason         string          `json:"reason" binding:"required"`
	IdempotencyKey string          `json:"idempotency_key"`
}

type refundResponse struct {
	Balance        decimal.Decimal `json:"balance"`
	BalanceDisplay string          `json:"balance_display"`
}

// @Summary      Refund a user
// @Description  Credits the user's wallet back, recorded as a refund entry. Admin only. An omitted idempotency key is generated per request.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body wallet.refundRequest true "Refund details"
// @Success      200 {object} wallet.refundResponse
// @Failure      400 {object} api.ErrorResponse
// @Failure      401 {object} api.ErrorResponse
// @Failure      403 {object} api.ErrorResponse
// @Failure      500 {object} api.ErrorResponse
// @Router       /admin/refunds [post]
func (h *Handler) Refund(c *gin.Context) {
	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.RespondBindError(c, err)
		return
	}

	if !req.Amount.IsPositive() {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "refund amount must be positive"})
		return
	}

	key := req.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}

	balance, err := h.repo.Apply(c.Request.Context(), req.UserID, Entry{
		Amount:         req.Amount,
		Type:           TypeRefund,
		Description:    req.Reason,
		IdempotencyKey: &key,
	})
	if err != nil {
		if errors.Is(err, ErrBalanceCeiling) {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "refund would push the balance over the wallet ceiling"})
			return
		}
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "failed to apply refund"})
		return
	}

	c.JSON(http.StatusOK, refundResponse{
		Balance:        balance,
		BalanceDisplay: FormatBalance(balance),
	})
}
