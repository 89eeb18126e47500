// Package trade orchestrates buy and sell execution: validate, price, apply
// the ledger math, persist, publish. Nothing is mutated until validation and
// the price lookup have both succeeded.
package trade

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"papertrade/internal/errs"
	"papertrade/internal/ledger"
	"papertrade/internal/models"
	"papertrade/internal/validate"
)

// Store is the slice of the user store the executor needs. PersistBuy and
// PersistSell must each be a single atomic transaction over one user.
type Store interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	PersistBuy(ctx context.Context, userID string, cash decimal.Decimal, h *models.Holding) error
	PersistSell(ctx context.Context, userID string, cash decimal.Decimal, symbol string, remaining *models.Holding) error
}

// MarketData supplies the execution price. The last sale price from the
// top-of-book feed is what trades fill at.
type MarketData interface {
	GetTop(ctx context.Context, symbol string) (*models.TopOfBook, error)
}

// EventSink receives trade-executed events after a successful persist.
type EventSink interface {
	PublishTradeExecuted(ctx context.Context, ev models.TradeEvent) error
}

type Executor struct {
	store  Store
	market MarketData
	events EventSink // optional; nil disables publishing
	log    *logrus.Logger
}

func NewExecutor(store Store, market MarketData, events EventSink, log *logrus.Logger) *Executor {
	return &Executor{store: store, market: market, events: events, log: log}
}

// Buy purchases shares of symbol for the user at the current last sale price.
func (e *Executor) Buy(ctx context.Context, userID, symbol string, shares decimal.Decimal) (*models.TradeResult, error) {
	userID, sym, err := e.checkInputs(userID, symbol, shares)
	if err != nil {
		return nil, err
	}

	user, err := e.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	top, err := e.market.GetTop(ctx, sym)
	if err != nil {
		return nil, err
	}

	price := top.LastSalePrice
	h, err := ledger.ApplyBuy(user, sym, shares, price, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := e.store.PersistBuy(ctx, user.ID, user.Cash, h); err != nil {
		return nil, err
	}

	res := newResult("BUY", sym, shares, price, user.Cash)
	e.publish(ctx, user, res)
	return res, nil
}

// Sell sells shares of symbol for the user at the current last sale price.
// Selling the entire position removes the holding.
func (e *Executor) Sell(ctx context.Context, userID, symbol string, shares decimal.Decimal) (*models.TradeResult, error) {
	userID, sym, err := e.checkInputs(userID, symbol, shares)
	if err != nil {
		return nil, err
	}

	user, err := e.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	top, err := e.market.GetTop(ctx, sym)
	if err != nil {
		return nil, err
	}

	price := top.LastSalePrice
	h, removed, err := ledger.ApplySell(user, sym, shares, price)
	if err != nil {
		var ise *errs.InsufficientSharesError
		if errors.As(err, &ise) {
			return nil, errs.Wrap(errs.KindInsufficientShares, ise,
				"Cannot sell %s share%s of %s. You only have %s share%s!",
				ise.Requested.String(), plural(ise.Requested), sym,
				ise.Owned.String(), plural(ise.Owned))
		}
		return nil, err
	}

	remaining := h
	if removed {
		remaining = nil
	}
	if err := e.store.PersistSell(ctx, user.ID, user.Cash, sym, remaining); err != nil {
		return nil, err
	}

	res := newResult("SELL", sym, shares, price, user.Cash)
	e.publish(ctx, user, res)
	return res, nil
}

func (e *Executor) checkInputs(userID, symbol string, shares decimal.Decimal) (string, string, error) {
	userID, err := validate.UserID(userID)
	if err != nil {
		return "", "", err
	}
	sym, err := validate.Symbol(symbol)
	if err != nil {
		return "", "", err
	}
	if err := validate.Shares(shares); err != nil {
		return "", "", err
	}
	return userID, sym, nil
}

func (e *Executor) publish(ctx context.Context, user *models.User, res *models.TradeResult) {
	if e.events == nil {
		return
	}
	ev := models.TradeEvent{
		EventType: "TRADE_EXECUTED",
		UserID:    user.ID,
		Username:  user.Username,
		Side:      res.Side,
		Symbol:    res.Symbol,
		Shares:    res.Shares.String(),
		Price:     res.Price.String(),
		Total:     res.Total.String(),
		Timestamp: res.ExecutedAt,
	}
	if err := e.events.PublishTradeExecuted(ctx, ev); err != nil {
		e.log.Warnf("trade event publish failed: %v", err)
	}
}

func newResult(side, symbol string, shares, price, cash decimal.Decimal) *models.TradeResult {
	return &models.TradeResult{
		Side:       side,
		Symbol:     symbol,
		Shares:     shares,
		Price:      price,
		Total:      shares.Mul(price),
		Cash:       cash,
		ExecutedAt: time.Now().UTC(),
	}
}

func plural(n decimal.Decimal) string {
	if n.Equal(decimal.NewFromInt(1)) {
		return ""
	}
	return "s"
}
