package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"papertrade/internal/errs"
	"papertrade/internal/market"
	"papertrade/internal/models"
	"papertrade/internal/session"
	"papertrade/internal/trade"
	"papertrade/internal/users"
	"papertrade/internal/valuation"
)

type Handler struct {
	users    *users.Service
	sessions *session.Store
	trades   *trade.Executor
	values   *valuation.Service
	market   *market.Client
	log      *logrus.Logger
}

func NewHandler(u *users.Service, s *session.Store, t *trade.Executor, v *valuation.Service, m *market.Client, log *logrus.Logger) *Handler {
	return &Handler{users: u, sessions: s, trades: t, values: v, market: m, log: log}
}

type CredentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TradeRequest struct {
	Symbol string `json:"symbol" binding:"required"`
	Shares string `json:"shares" binding:"required"`
}

func (h *Handler) PostRegister(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("invalid register body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := h.users.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": u.ID, "username": u.Username, "cash": u.Cash.StringFixed(2)})
}

func (h *Handler) PostLogin(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("invalid login body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	u, err := h.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	token, err := h.sessions.Create(c.Request.Context(), u.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "username": u.Username})
}

func (h *Handler) PostLogout(c *gin.Context) {
	if err := h.sessions.Destroy(c.Request.Context(), bearerToken(c)); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

func (h *Handler) PostBuy(c *gin.Context) {
	h.executeTrade(c, h.trades.Buy)
}

func (h *Handler) PostSell(c *gin.Context) {
	h.executeTrade(c, h.trades.Sell)
}

func (h *Handler) GetPortfolio(c *gin.Context) {
	rows, err := h.values.PortfolioReport(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"portfolio": rows})
}

func (h *Handler) GetAccountValue(c *gin.Context) {
	v, err := h.values.AccountValue(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account_value": v.StringFixed(2)})
}

func (h *Handler) GetLeaderboard(c *gin.Context) {
	vals, err := h.values.AllAccountValues(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	out := make([]gin.H, 0, len(vals))
	for _, v := range vals {
		out = append(out, gin.H{"username": v.Username, "account_value": v.Value.StringFixed(2)})
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": out})
}

func (h *Handler) GetQuote(c *gin.Context) {
	q, err := h.market.GetQuote(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (h *Handler) executeTrade(c *gin.Context, exec func(ctx context.Context, userID, symbol string, shares decimal.Decimal) (*models.TradeResult, error)) {
	var req TradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("invalid trade body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	shares, err := decimal.NewFromString(req.Shares)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shares format"})
		return
	}

	res, err := exec(c.Request.Context(), c.GetString(ctxUserID), req.Symbol, shares)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// writeError maps error kinds to HTTP statuses. Messages pass through
// unchanged; the kinds are the contract.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch errs.KindOf(err) {
	case errs.KindValidation:
		status = http.StatusBadRequest
	case errs.KindSymbolNotFound:
		status = http.StatusNotFound
	case errs.KindInsufficientFunds, errs.KindInsufficientShares, errs.KindNoSuchHolding:
		status = http.StatusUnprocessableEntity
	case errs.KindUpstreamUnavailable:
		status = http.StatusBadGateway
	case errs.KindPersistence:
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		h.log.Errorf("request failed: %v", err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": errs.KindOf(err).String()})
}
