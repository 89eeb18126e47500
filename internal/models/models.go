package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is a trading account: identity, cash and current positions.
type User struct {
	ID           string          `db:"id" json:"id"`
	Username     string          `db:"username" json:"username"`
	PasswordHash string          `db:"password_hash" json:"-"`
	Cash         decimal.Decimal `db:"cash" json:"cash"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	Holdings     []Holding       `db:"-" json:"holdings"`
}

// Holding returns the user's position in symbol, or nil if none is held.
func (u *User) Holding(symbol string) *Holding {
	for i := range u.Holdings {
		if u.Holdings[i].Symbol == symbol {
			return &u.Holdings[i]
		}
	}
	return nil
}

// RemoveHolding drops the position in symbol from the in-memory user.
func (u *User) RemoveHolding(symbol string) {
	for i := range u.Holdings {
		if u.Holdings[i].Symbol == symbol {
			u.Holdings = append(u.Holdings[:i], u.Holdings[i+1:]...)
			return
		}
	}
}

// Holding is one position. A holding with zero shares is never stored; selling
// out a position removes the row entirely.
type Holding struct {
	Symbol           string          `db:"symbol" json:"symbol"`
	NumShares        decimal.Decimal `db:"num_shares" json:"num_shares"`
	WeightedAvgPrice decimal.Decimal `db:"weighted_avg_price" json:"weighted_avg_price"`
	TotalCost        decimal.Decimal `db:"total_cost" json:"total_cost"`
	FirstPurchased   time.Time       `db:"first_purchased" json:"first_purchased"`
}

// TopOfBook is the lightweight feed entry used as the execution price source.
type TopOfBook struct {
	Symbol        string          `json:"symbol"`
	BidPrice      decimal.Decimal `json:"bidPrice"`
	BidSize       int64           `json:"bidSize"`
	AskPrice      decimal.Decimal `json:"askPrice"`
	AskSize       int64           `json:"askSize"`
	LastSalePrice decimal.Decimal `json:"lastSalePrice"`
	LastSaleSize  int64           `json:"lastSaleSize"`
	Volume        int64           `json:"volume"`
}

// Quote is the full per-symbol quote. Fetched fresh on every call, never
// persisted or cached.
type Quote struct {
	Symbol        string          `json:"symbol"`
	LatestPrice   decimal.Decimal `json:"latestPrice"`
	Change        decimal.Decimal `json:"change"`
	Open          decimal.Decimal `json:"open"`
	High          decimal.Decimal `json:"high"`
	Low           decimal.Decimal `json:"low"`
	PreviousClose decimal.Decimal `json:"previousClose"`
	Volume        int64           `json:"volume"`
	Week52High    decimal.Decimal `json:"week52High"`
	Week52Low     decimal.Decimal `json:"week52Low"`
}

// TradeResult confirms an executed trade back to the caller. The durable state
// change lives in the user row and its holdings.
type TradeResult struct {
	Side       string          `json:"side"`
	Symbol     string          `json:"symbol"`
	Shares     decimal.Decimal `json:"shares"`
	Price      decimal.Decimal `json:"price"`
	Total      decimal.Decimal `json:"total"`
	Cash       decimal.Decimal `json:"cash"`
	ExecutedAt time.Time       `json:"executed_at"`
}

// TradeEvent is the message published to the trade event stream after a
// successful execution.
type TradeEvent struct {
	EventType string    `json:"event_type"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Side      string    `json:"side"`
	Symbol    string    `json:"symbol"`
	Shares    string    `json:"shares"`
	Price     string    `json:"price"`
	Total     string    `json:"total"`
	Timestamp time.Time `json:"timestamp"`
}

// AccountValue is one leaderboard entry: cash plus market value of holdings.
type AccountValue struct {
	Username string          `json:"username"`
	Value    decimal.Decimal `json:"account_value"`
}

// PortfolioRow is one presentation row of the per-holding gain/loss report.
// Currency figures are rounded to 2 decimals here; internal math keeps full
// precision.
type PortfolioRow struct {
	Symbol           string          `json:"symbol"`
	LastPrice        decimal.Decimal `json:"last_price"`
	DayGainLoss      decimal.Decimal `json:"day_gain_loss"`
	TotalGainLoss    decimal.Decimal `json:"total_gain_loss"`
	WeightedAvgPrice decimal.Decimal `json:"weighted_avg_price"`
	MarketValue      decimal.Decimal `json:"market_value"`
	Shares           decimal.Decimal `json:"shares"`
	CostBasis        decimal.Decimal `json:"cost_basis"`
}
