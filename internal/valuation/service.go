// Package valuation computes account values and the per-holding gain/loss
// report. Quotes are fetched fresh per holding, sequentially, so rows in one
// report may reflect slightly different instants; there is no snapshot
// isolation across a set of symbols.
package valuation

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"papertrade/internal/models"
	"papertrade/internal/validate"
)

type Store interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

// QuoteSource is the injected price feed. The default implementation fetches
// one symbol at a time; a batching or parallel fetcher can be swapped in
// behind the same contract.
type QuoteSource interface {
	GetTop(ctx context.Context, symbol string) (*models.TopOfBook, error)
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
}

type Service struct {
	store  Store
	quotes QuoteSource
	log    *logrus.Logger
}

func NewService(store Store, quotes QuoteSource, log *logrus.Logger) *Service {
	return &Service{store: store, quotes: quotes, log: log}
}

// AccountValue returns cash plus the current market value of every holding.
// A holding whose symbol can no longer be quoted fails the whole valuation
// rather than silently under-reporting.
func (s *Service) AccountValue(ctx context.Context, userID string) (decimal.Decimal, error) {
	userID, err := validate.UserID(userID)
	if err != nil {
		return decimal.Zero, err
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return s.valueOf(ctx, user)
}

// AllAccountValues values every account, sorted descending by value. Ties keep
// their original (creation) order.
func (s *Service) AllAccountValues(ctx context.Context) ([]models.AccountValue, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	s.log.Debugf("valuing %d accounts", len(users))
	vals := make([]models.AccountValue, 0, len(users))
	for i := range users {
		v, err := s.valueOf(ctx, &users[i])
		if err != nil {
			return nil, err
		}
		vals = append(vals, models.AccountValue{Username: users[i].Username, Value: v})
	}

	sort.SliceStable(vals, func(i, j int) bool {
		return vals[i].Value.GreaterThan(vals[j].Value)
	})
	return vals, nil
}

// PortfolioReport builds the gain/loss view of a user's holdings. This is the
// presentation boundary: currency figures are rounded to 2 decimals here and
// nowhere earlier.
func (s *Service) PortfolioReport(ctx context.Context, userID string) ([]models.PortfolioRow, error) {
	userID, err := validate.UserID(userID)
	if err != nil {
		return nil, err
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows := make([]models.PortfolioRow, 0, len(user.Holdings))
	for _, h := range user.Holdings {
		q, err := s.quotes.GetQuote(ctx, h.Symbol)
		if err != nil {
			return nil, err
		}
		marketValue := q.LatestPrice.Mul(h.NumShares)
		rows = append(rows, models.PortfolioRow{
			Symbol:           h.Symbol,
			LastPrice:        q.LatestPrice.Round(2),
			DayGainLoss:      q.Change.Mul(h.NumShares).Round(2),
			TotalGainLoss:    marketValue.Sub(h.TotalCost).Round(2),
			WeightedAvgPrice: h.WeightedAvgPrice.Round(2),
			MarketValue:      marketValue.Round(2),
			Shares:           h.NumShares,
			CostBasis:        h.TotalCost.Round(2),
		})
	}
	return rows, nil
}

func (s *Service) valueOf(ctx context.Context, user *models.User) (decimal.Decimal, error) {
	total := user.Cash
	for _, h := range user.Holdings {
		top, err := s.quotes.GetTop(ctx, h.Symbol)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(top.LastSalePrice.Mul(h.NumShares))
	}
	return total, nil
}
