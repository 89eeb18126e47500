package trade

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papertrade/internal/errs"
	"papertrade/internal/models"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fakeStore struct {
	user *models.User

	buyCalls      int
	sellCalls     int
	persistedCash decimal.Decimal
	buyHolding    *models.Holding
	sellSymbol    string
	sellRemaining *models.Holding
	persistErr    error
}

func (f *fakeStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	if f.user == nil || f.user.ID != id {
		return nil, errs.New(errs.KindValidation, "no user found with id %s", id)
	}
	return f.user, nil
}

func (f *fakeStore) PersistBuy(ctx context.Context, userID string, cash decimal.Decimal, h *models.Holding) error {
	f.buyCalls++
	f.persistedCash = cash
	f.buyHolding = h
	return f.persistErr
}

func (f *fakeStore) PersistSell(ctx context.Context, userID string, cash decimal.Decimal, symbol string, remaining *models.Holding) error {
	f.sellCalls++
	f.persistedCash = cash
	f.sellSymbol = symbol
	f.sellRemaining = remaining
	return f.persistErr
}

type fakeMarket struct {
	price decimal.Decimal
	err   error

	requested []string
}

func (f *fakeMarket) GetTop(ctx context.Context, symbol string) (*models.TopOfBook, error) {
	f.requested = append(f.requested, symbol)
	if f.err != nil {
		return nil, f.err
	}
	return &models.TopOfBook{Symbol: symbol, LastSalePrice: f.price}, nil
}

type fakeSink struct {
	events []models.TradeEvent
	err    error
}

func (f *fakeSink) PublishTradeExecuted(ctx context.Context, ev models.TradeEvent) error {
	f.events = append(f.events, ev)
	return f.err
}

func testUser(cash string, holdings ...models.Holding) *models.User {
	return &models.User{ID: "u1", Username: "alice", Cash: dec(cash), Holdings: holdings}
}

func newTestExecutor(store Store, m MarketData, sink EventSink) *Executor {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewExecutor(store, m, sink, log)
}

func TestBuy_HappyPath(t *testing.T) {
	store := &fakeStore{user: testUser("10000")}
	mkt := &fakeMarket{price: dec("150")}
	sink := &fakeSink{}
	e := newTestExecutor(store, mkt, sink)

	res, err := e.Buy(context.Background(), "u1", "aapl", dec("2"))
	require.NoError(t, err)

	assert.Equal(t, "BUY", res.Side)
	assert.Equal(t, "AAPL", res.Symbol, "symbol is normalized to uppercase")
	assert.True(t, dec("300").Equal(res.Total))
	assert.True(t, dec("9700").Equal(res.Cash))

	require.Equal(t, 1, store.buyCalls)
	assert.True(t, dec("9700").Equal(store.persistedCash))
	require.NotNil(t, store.buyHolding)
	assert.True(t, dec("2").Equal(store.buyHolding.NumShares))

	require.Len(t, sink.events, 1)
	assert.Equal(t, "TRADE_EXECUTED", sink.events[0].EventType)
	assert.Equal(t, "BUY", sink.events[0].Side)
}

func TestBuy_SymbolNotFound(t *testing.T) {
	store := &fakeStore{user: testUser("10000")}
	mkt := &fakeMarket{err: errs.New(errs.KindSymbolNotFound, "could not find stock with symbol ZZZZ")}
	e := newTestExecutor(store, mkt, nil)

	_, err := e.Buy(context.Background(), "u1", "ZZZZ", dec("1"))
	require.Error(t, err)
	assert.Equal(t, errs.KindSymbolNotFound, errs.KindOf(err))
	assert.Zero(t, store.buyCalls, "nothing may be persisted on a failed quote")
}

func TestBuy_InsufficientFundsDoesNotPersist(t *testing.T) {
	store := &fakeStore{user: testUser("100")}
	mkt := &fakeMarket{price: dec("150")}
	e := newTestExecutor(store, mkt, nil)

	_, err := e.Buy(context.Background(), "u1", "AAPL", dec("2"))
	require.Error(t, err)
	assert.Equal(t, errs.KindInsufficientFunds, errs.KindOf(err))
	assert.Zero(t, store.buyCalls)
}

func TestBuy_ValidationBeforeAnyIO(t *testing.T) {
	store := &fakeStore{user: testUser("10000")}
	mkt := &fakeMarket{price: dec("150")}
	e := newTestExecutor(store, mkt, nil)

	cases := []struct {
		name   string
		userID string
		symbol string
		shares decimal.Decimal
	}{
		{"empty user", "", "AAPL", dec("1")},
		{"empty symbol", "u1", "", dec("1")},
		{"numeric symbol", "u1", "123", dec("1")},
		{"zero shares", "u1", "AAPL", dec("0")},
		{"negative shares", "u1", "AAPL", dec("-2")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.Buy(context.Background(), tc.userID, tc.symbol, tc.shares)
			require.Error(t, err)
			assert.Equal(t, errs.KindValidation, errs.KindOf(err))
		})
	}
	assert.Empty(t, mkt.requested, "no quote fetch before validation passes")
	assert.Zero(t, store.buyCalls)
}

func TestSell_AllSharesRemovesHolding(t *testing.T) {
	store := &fakeStore{user: testUser("0", models.Holding{
		Symbol: "AAPL", NumShares: dec("4"), WeightedAvgPrice: dec("100"), TotalCost: dec("400"),
	})}
	mkt := &fakeMarket{price: dec("120")}
	e := newTestExecutor(store, mkt, nil)

	res, err := e.Sell(context.Background(), "u1", "AAPL", dec("4"))
	require.NoError(t, err)
	assert.True(t, dec("480").Equal(res.Total))

	require.Equal(t, 1, store.sellCalls)
	assert.Equal(t, "AAPL", store.sellSymbol)
	assert.Nil(t, store.sellRemaining, "full sale must delete the holding row")
}

func TestSell_PartialKeepsRemainingHolding(t *testing.T) {
	store := &fakeStore{user: testUser("0", models.Holding{
		Symbol: "AAPL", NumShares: dec("10"), WeightedAvgPrice: dec("100"), TotalCost: dec("1000"),
	})}
	mkt := &fakeMarket{price: dec("100")}
	e := newTestExecutor(store, mkt, nil)

	_, err := e.Sell(context.Background(), "u1", "AAPL", dec("4"))
	require.NoError(t, err)
	require.NotNil(t, store.sellRemaining)
	assert.True(t, dec("6").Equal(store.sellRemaining.NumShares))
}

func TestSell_InsufficientSharesMessagePluralization(t *testing.T) {
	cases := []struct {
		name     string
		owned    string
		sellReq  string
		expected string
	}{
		{
			name:     "plural requested, singular owned",
			owned:    "1",
			sellReq:  "3",
			expected: "Cannot sell 3 shares of AAPL. You only have 1 share!",
		},
		{
			name:     "plural both",
			owned:    "2",
			sellReq:  "5",
			expected: "Cannot sell 5 shares of AAPL. You only have 2 shares!",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{user: testUser("0", models.Holding{
				Symbol: "AAPL", NumShares: dec(tc.owned), WeightedAvgPrice: dec("100"), TotalCost: dec("100"),
			})}
			e := newTestExecutor(store, &fakeMarket{price: dec("100")}, nil)

			_, err := e.Sell(context.Background(), "u1", "AAPL", dec(tc.sellReq))
			require.Error(t, err)
			assert.Equal(t, errs.KindInsufficientShares, errs.KindOf(err))
			assert.Equal(t, tc.expected, err.Error())
			assert.Zero(t, store.sellCalls)
		})
	}
}

func TestSell_NoSuchHolding(t *testing.T) {
	store := &fakeStore{user: testUser("1000")}
	e := newTestExecutor(store, &fakeMarket{price: dec("100")}, nil)

	_, err := e.Sell(context.Background(), "u1", "NFLX", dec("1"))
	require.Error(t, err)
	assert.Equal(t, errs.KindNoSuchHolding, errs.KindOf(err))
}

func TestTrade_PersistFailureSurfaces(t *testing.T) {
	store := &fakeStore{
		user:       testUser("10000"),
		persistErr: errs.New(errs.KindPersistence, "could not purchase stock"),
	}
	e := newTestExecutor(store, &fakeMarket{price: dec("10")}, nil)

	_, err := e.Buy(context.Background(), "u1", "AAPL", dec("1"))
	require.Error(t, err)
	assert.Equal(t, errs.KindPersistence, errs.KindOf(err))
}

func TestTrade_PublishFailureDoesNotFailTrade(t *testing.T) {
	store := &fakeStore{user: testUser("10000")}
	sink := &fakeSink{err: errors.New("broker down")}
	e := newTestExecutor(store, &fakeMarket{price: dec("10")}, sink)

	res, err := e.Buy(context.Background(), "u1", "AAPL", dec("1"))
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Len(t, sink.events, 1)
}
