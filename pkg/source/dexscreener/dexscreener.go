// Package dexscreener reads the 24h traded volume of watched token contracts.
package dexscreener

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/raykavin/upbitwatch/pkg/core"
	"github.com/raykavin/upbitwatch/pkg/logger"
	"github.com/raykavin/upbitwatch/pkg/source/fetch"
	"github.com/tidwall/gjson"
)

const (
	TokensURL = "https://api.dexscreener.com/latest/dex/tokens/"
	TokenURL  = "https://dexscreener.com/ethereum/"

	Resource = "volume:24h"
)

// TokenVolume is the 24h volume of a token summed over all of its pairs.
type TokenVolume struct {
	Address   string
	Name      string
	Symbol    string
	Volume24h float64
	Pairs     int
}

type Client struct {
	fetch   *fetch.Client
	baseURL string
}

type Option func(*Client)

// WithBaseURL points the client at another tokens endpoint.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = base
	}
}

func NewClient(f *fetch.Client, options ...Option) *Client {
	c := &Client{fetch: f, baseURL: TokensURL}
	for _, option := range options {
		option(c)
	}
	return c
}

// Volume24h returns the volume of contract. ok is false when no pair trades
// the token.
func (c *Client) Volume24h(ctx context.Context, contract string) (volume TokenVolume, ok bool, err error) {
	body, err := c.fetch.Get(ctx, c.baseURL+contract)
	if err != nil {
		return TokenVolume{}, false, fmt.Errorf("dexscreener %s: %w", contract, err)
	}
	if !gjson.ValidBytes(body) {
		return TokenVolume{}, false, fmt.Errorf("dexscreener %s: invalid json", contract)
	}

	pairs := gjson.GetBytes(body, "pairs")
	if !pairs.IsArray() || len(pairs.Array()) == 0 {
		return TokenVolume{Address: contract}, false, nil
	}

	volume = TokenVolume{Address: contract}
	for _, pair := range pairs.Array() {
		volume.Volume24h += pair.Get("volume.h24").Float()
		volume.Pairs++
		if volume.Symbol == "" && strings.EqualFold(pair.Get("baseToken.address").String(), contract) {
			volume.Name = pair.Get("baseToken.name").String()
			volume.Symbol = pair.Get("baseToken.symbol").String()
		}
	}
	return volume, true, nil
}

// AddressLister yields the contracts to poll.
type AddressLister interface {
	Items() []string
}

// VolumeSource adapts the watch-list to scalar entities keyed by the lower
// cased contract address. A failing token is skipped for the cycle.
type VolumeSource struct {
	client *Client
	list   AddressLister
	log    logger.Logger
}

func NewVolumeSource(client *Client, list AddressLister, log logger.Logger) *VolumeSource {
	return &VolumeSource{client: client, list: list, log: log}
}

func (s *VolumeSource) Resource() string {
	return Resource
}

func (s *VolumeSource) Fetch(ctx context.Context) ([]core.Entity, error) {
	var (
		entities []core.Entity
		errs     []error
	)

	for _, address := range s.list.Items() {
		volume, ok, err := s.client.Volume24h(ctx, address)
		if err != nil {
			s.log.WithError(err).WithField("token", address).Warn("volume fetch failed")
			errs = append(errs, err)
			continue
		}
		if !ok {
			continue
		}

		entities = append(entities, core.Entity{
			Key:   strings.ToLower(address),
			Value: volume.Volume24h,
			Attrs: map[string]string{
				core.AttrAddress:     address,
				core.AttrTokenName:   volume.Name,
				core.AttrTokenSymbol: volume.Symbol,
			},
		})
	}

	if len(entities) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return entities, nil
}
