// Package etherscan reads ERC-20 token transfers of watched wallets.
package etherscan

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/raykavin/upbitwatch/pkg/core"
	"github.com/raykavin/upbitwatch/pkg/source/fetch"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const (
	BaseURL         = "https://api.etherscan.io/v2/api"
	TxURL           = "https://etherscan.io/tx/"
	DefaultDecimals = 18
	DefaultLimit    = 10
	mainnetChainID  = "1"
)

// Transfer is one token transfer with its amount already scaled by the
// token decimals.
type Transfer struct {
	Hash            string
	From            string
	To              string
	ContractAddress string
	TokenName       string
	TokenSymbol     string
	Value           string
	Decimals        int32
	Amount          decimal.Decimal
	Time            time.Time
}

// Client queries the Etherscan v2 account API on Ethereum mainnet.
type Client struct {
	fetch   *fetch.Client
	apiKey  string
	baseURL string
}

type Option func(*Client)

// WithBaseURL points the client at another API root.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = base
	}
}

func NewClient(f *fetch.Client, apiKey string, options ...Option) *Client {
	c := &Client{fetch: f, apiKey: apiKey, baseURL: BaseURL}
	for _, option := range options {
		option(c)
	}
	return c
}

func (c *Client) transfersURL(address string, limit int) string {
	query := url.Values{}
	query.Set("chainid", mainnetChainID)
	query.Set("module", "account")
	query.Set("action", "tokentx")
	query.Set("address", address)
	query.Set("page", "1")
	query.Set("offset", strconv.Itoa(limit))
	query.Set("sort", "desc")
	query.Set("apikey", c.apiKey)
	return c.baseURL + "?" + query.Encode()
}

// TokenTransfers returns the latest transfers of address, most recent first,
// along with the upstream status message. A result that is not a list (the
// API reports errors and rate limits as a string) yields no transfers and no
// error.
func (c *Client) TokenTransfers(ctx context.Context, address string, limit int) ([]Transfer, string, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	body, err := c.fetch.Get(ctx, c.transfersURL(address, limit))
	if err != nil {
		return nil, "", fmt.Errorf("etherscan tokentx %s: %w", address, err)
	}
	if !gjson.ValidBytes(body) {
		return nil, "", fmt.Errorf("etherscan tokentx %s: invalid json", address)
	}

	status := gjson.GetBytes(body, "message").String()
	result := gjson.GetBytes(body, "result")
	if !result.IsArray() {
		if detail := result.String(); detail != "" {
			status = strings.TrimSpace(status + " " + detail)
		}
		return nil, status, nil
	}

	items := result.Array()
	transfers := make([]Transfer, 0, len(items))
	for _, item := range items {
		transfers = append(transfers, parseTransfer(item))
	}
	return transfers, status, nil
}

func parseTransfer(item gjson.Result) Transfer {
	decimals := int32(DefaultDecimals)
	if raw := item.Get("tokenDecimal").String(); raw != "" {
		if d, err := strconv.ParseInt(raw, 10, 32); err == nil {
			decimals = int32(d)
		}
	}

	value := item.Get("value").String()
	amount, err := decimal.NewFromString(value)
	if err != nil {
		amount = decimal.Zero
	}

	return Transfer{
		Hash:            item.Get("hash").String(),
		From:            item.Get("from").String(),
		To:              item.Get("to").String(),
		ContractAddress: item.Get("contractAddress").String(),
		TokenName:       item.Get("tokenName").String(),
		TokenSymbol:     item.Get("tokenSymbol").String(),
		Value:           value,
		Decimals:        decimals,
		Amount:          amount.Shift(-decimals),
		Time:            time.Unix(item.Get("timeStamp").Int(), 0).UTC(),
	}
}

// Resource is the snapshot id of the wallet at address.
func Resource(address string) string {
	return "wallet:" + address
}

// WalletSource adapts the transfers of one address to latest-value entities
// keyed by transaction hash, most recent first.
type WalletSource struct {
	client  *Client
	address string
	limit   int
}

func NewWalletSource(client *Client, address string) *WalletSource {
	return &WalletSource{client: client, address: address, limit: DefaultLimit}
}

func (s *WalletSource) Address() string {
	return s.address
}

func (s *WalletSource) Resource() string {
	return Resource(s.address)
}

func (s *WalletSource) Fetch(ctx context.Context) ([]core.Entity, error) {
	transfers, _, err := s.client.TokenTransfers(ctx, s.address, s.limit)
	if err != nil {
		return nil, err
	}

	entities := make([]core.Entity, 0, len(transfers))
	for _, tx := range transfers {
		entities = append(entities, core.Entity{
			Key: tx.Hash,
			Attrs: map[string]string{
				core.AttrWallet:       s.address,
				core.AttrHash:         tx.Hash,
				core.AttrFrom:         tx.From,
				core.AttrTokenName:    tx.TokenName,
				core.AttrTokenSymbol:  tx.TokenSymbol,
				core.AttrContract:     tx.ContractAddress,
				core.AttrAmount:       tx.Amount.String(),
				core.AttrTransferTime: tx.Time.Format(time.RFC3339),
			},
		})
	}
	return entities, nil
}
