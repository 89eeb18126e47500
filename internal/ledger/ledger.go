// Package ledger owns the cash and holdings math. All mutation of a user's
// cash and positions goes through ApplyBuy/ApplySell so the invariants live in
// one place: cash never goes negative, at most one holding per symbol, and a
// holding is removed the moment its share count reaches zero.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"papertrade/internal/errs"
	"papertrade/internal/models"
)

// ApplyBuy debits cash and adds shares at price, recomputing the weighted
// average cost. Cash, share count, average and total cost move together on the
// in-memory user; the caller persists them in one transaction.
func ApplyBuy(user *models.User, symbol string, shares, price decimal.Decimal, now time.Time) (*models.Holding, error) {
	if !shares.IsPositive() {
		return nil, errs.New(errs.KindValidation, "shares must be a positive number, got %s", shares.String())
	}
	if !price.IsPositive() {
		return nil, errs.New(errs.KindValidation, "price must be a positive number, got %s", price.String())
	}

	cost := shares.Mul(price)
	if cost.GreaterThan(user.Cash) {
		return nil, errs.New(errs.KindInsufficientFunds,
			"Cannot buy %s shares of '%s' worth $%s. You only have $%s",
			shares.String(), symbol, cost.StringFixed(2), user.Cash.StringFixed(2))
	}

	h := user.Holding(symbol)
	if h == nil {
		user.Holdings = append(user.Holdings, models.Holding{
			Symbol:           symbol,
			NumShares:        shares,
			WeightedAvgPrice: price,
			TotalCost:        cost,
			FirstPurchased:   now,
		})
		h = &user.Holdings[len(user.Holdings)-1]
	} else {
		newShares := h.NumShares.Add(shares)
		h.WeightedAvgPrice = h.WeightedAvgPrice.Mul(h.NumShares).Add(cost).Div(newShares)
		h.NumShares = newShares
		h.TotalCost = h.TotalCost.Add(cost)
	}

	user.Cash = user.Cash.Sub(cost)
	return h, nil
}

// ApplySell credits the proceeds and removes shares at price. Selling the full
// position deletes the holding and returns removed=true.
//
// Partial sales subtract the sale proceeds from the cost basis, so selling
// away from the average price shifts the basis of the remaining shares. That
// is non-standard accounting (a partial sale usually leaves the remaining
// average untouched) but it is the historical behavior and callers depend on
// the resulting totals.
func ApplySell(user *models.User, symbol string, shares, price decimal.Decimal) (*models.Holding, bool, error) {
	if !shares.IsPositive() {
		return nil, false, errs.New(errs.KindValidation, "shares must be a positive number, got %s", shares.String())
	}
	if !price.IsPositive() {
		return nil, false, errs.New(errs.KindValidation, "price must be a positive number, got %s", price.String())
	}

	h := user.Holding(symbol)
	if h == nil {
		return nil, false, errs.New(errs.KindNoSuchHolding, "user does not own any shares of %s", symbol)
	}
	if shares.GreaterThan(h.NumShares) {
		return nil, false, &errs.InsufficientSharesError{Symbol: symbol, Requested: shares, Owned: h.NumShares}
	}

	proceeds := shares.Mul(price)
	if shares.Equal(h.NumShares) {
		sold := *h
		user.RemoveHolding(symbol)
		user.Cash = user.Cash.Add(proceeds)
		return &sold, true, nil
	}

	remaining := h.NumShares.Sub(shares)
	h.WeightedAvgPrice = h.WeightedAvgPrice.Mul(h.NumShares).Sub(proceeds).Div(remaining)
	h.NumShares = remaining
	h.TotalCost = h.TotalCost.Sub(proceeds)
	user.Cash = user.Cash.Add(proceeds)
	return h, false, nil
}
