// Package market is the HTTP client for the external market-data provider.
// It is the only I/O boundary touching the upstream feed; every call is a
// fresh fetch and nothing is cached or retried.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"papertrade/internal/errs"
	"papertrade/internal/models"
	"papertrade/internal/validate"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *logrus.Logger
}

// NewClient builds a provider client. The timeout bounds every request; a hung
// upstream must not block a trade indefinitely.
func NewClient(baseURL, token string, timeout time.Duration, log *logrus.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// GetTop fetches the top-of-book entry for symbol. The provider returns a JSON
// array; an empty array means the symbol does not exist.
func (c *Client) GetTop(ctx context.Context, symbol string) (*models.TopOfBook, error) {
	sym, err := validate.Symbol(symbol)
	if err != nil {
		return nil, err
	}

	c.log.Debugf("fetching top of book for %s", sym)
	u := fmt.Sprintf("%s/tops?token=%s&symbols=%s", c.baseURL, url.QueryEscape(c.token), url.QueryEscape(sym))
	var tops []models.TopOfBook
	if err := c.getJSON(ctx, u, &tops); err != nil {
		return nil, err
	}
	if len(tops) == 0 {
		return nil, errs.New(errs.KindSymbolNotFound, "could not find stock with symbol %s", sym)
	}
	return &tops[0], nil
}

// GetQuote fetches the full quote object for symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	sym, err := validate.Symbol(symbol)
	if err != nil {
		return nil, err
	}

	c.log.Debugf("fetching quote for %s", sym)
	u := fmt.Sprintf("%s/stock/%s/quote?token=%s", c.baseURL, url.PathEscape(sym), url.QueryEscape(c.token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errs.Wrap(errs.KindUpstreamUnavailable, err, "build quote request for %s", sym)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.KindUpstreamUnavailable, err, "market data provider unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errs.New(errs.KindSymbolNotFound, "could not find stock with symbol %s", sym)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errs.New(errs.KindUpstreamUnavailable, "market data provider returned status %d", resp.StatusCode)
	}

	var q models.Quote
	if err := json.NewDecoder(resp.Body).Decode(&q); err != nil {
		return nil, errs.Wrap(errs.KindUpstreamUnavailable, err, "decode quote for %s", sym)
	}
	return &q, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errs.Wrap(errs.KindUpstreamUnavailable, err, "build market data request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return errs.Wrap(errs.KindUpstreamUnavailable, err, "market data provider unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errs.New(errs.KindUpstreamUnavailable, "market data provider returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.Wrap(errs.KindUpstreamUnavailable, err, "decode market data response")
	}
	return nil
}
