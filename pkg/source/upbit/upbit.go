// Package upbit reads the Upbit market list used by the new listing detector.
package upbit

import (
	"context"
	"fmt"

	"github.com/raykavin/upbitwatch/pkg/core"
	"github.com/raykavin/upbitwatch/pkg/source/fetch"
	"github.com/samber/lo"
)

const (
	MarketsURL  = "https://api.upbit.com/v1/market/all"
	exchangeURL = "https://upbit.com/exchange?code=CRIX.UPBIT."

	Resource = "upbit:markets"
)

// Market is one trading pair as returned by /v1/market/all.
type Market struct {
	Market      string `json:"market"`
	KoreanName  string `json:"korean_name"`
	EnglishName string `json:"english_name"`
}

// ExchangeURL links to the trading page of market.
func ExchangeURL(market string) string {
	return exchangeURL + market
}

type Client struct {
	fetch *fetch.Client
	url   string
}

type Option func(*Client)

// WithURL points the client at another market list endpoint.
func WithURL(url string) Option {
	return func(c *Client) {
		c.url = url
	}
}

func NewClient(f *fetch.Client, options ...Option) *Client {
	c := &Client{fetch: f, url: MarketsURL}
	for _, option := range options {
		option(c)
	}
	return c
}

// Markets returns every listed market in API order.
func (c *Client) Markets(ctx context.Context) ([]Market, error) {
	var markets []Market
	if err := c.fetch.GetJSON(ctx, c.url, &markets); err != nil {
		return nil, fmt.Errorf("upbit markets: %w", err)
	}
	return lo.Filter(markets, func(m Market, _ int) bool { return m.Market != "" }), nil
}

// ListingSource adapts the market list to set-membership entities keyed by
// market symbol.
type ListingSource struct {
	client *Client
}

func NewListingSource(client *Client) *ListingSource {
	return &ListingSource{client: client}
}

func (s *ListingSource) Resource() string {
	return Resource
}

func (s *ListingSource) Fetch(ctx context.Context) ([]core.Entity, error) {
	markets, err := s.client.Markets(ctx)
	if err != nil {
		return nil, err
	}

	return lo.Map(markets, func(m Market, _ int) core.Entity {
		return core.Entity{
			Key: m.Market,
			Attrs: map[string]string{
				core.AttrMarket:      m.Market,
				core.AttrKoreanName:  m.KoreanName,
				core.AttrEnglishName: m.EnglishName,
			},
		}
	}), nil
}
