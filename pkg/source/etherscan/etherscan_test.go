package etherscan

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/raykavin/upbitwatch/pkg/core"
	"github.com/raykavin/upbitwatch/pkg/source/fetch"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const wallet = "0x74de5d4fcbf63e00296fd95d33236b9794016631"

const transfersBody = `{
	"status":"1","message":"OK",
	"result":[
		{"hash":"0xbbb","from":"0x1111111111111111111111111111111111111111","to":"` + wallet + `",
		 "contractAddress":"0xdac17f958d2ee523a2206206994597c13d831ec7","tokenName":"Tether USD",
		 "tokenSymbol":"USDT","tokenDecimal":"6","value":"1234567890","timeStamp":"1700000000"},
		{"hash":"0xaaa","from":"0x2222222222222222222222222222222222222222","to":"` + wallet + `",
		 "contractAddress":"0x6b175474e89094c44da98b954eedeac495271d0f","tokenName":"Dai",
		 "tokenSymbol":"DAI","tokenDecimal":"","value":"2500000000000000000","timeStamp":"1699999000"}
	]
}`

func newServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "1", q.Get("chainid"))
		require.Equal(t, "tokentx", q.Get("action"))
		require.Equal(t, "desc", q.Get("sort"))
		require.Equal(t, "key", q.Get("apikey"))
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClient_TokenTransfers(t *testing.T) {
	server := newServer(t, transfersBody)
	client := NewClient(fetch.New(), "key", WithBaseURL(server.URL))

	transfers, status, err := client.TokenTransfers(context.Background(), wallet, 10)
	require.NoError(t, err)
	require.Equal(t, "OK", status)
	require.Len(t, transfers, 2)

	require.Equal(t, "0xbbb", transfers[0].Hash)
	require.Equal(t, int32(6), transfers[0].Decimals)
	require.True(t, decimal.RequireFromString("1234.56789").Equal(transfers[0].Amount))
	require.Equal(t, int64(1700000000), transfers[0].Time.Unix())

	// missing tokenDecimal falls back to 18
	require.Equal(t, int32(DefaultDecimals), transfers[1].Decimals)
	require.True(t, decimal.RequireFromString("2.5").Equal(transfers[1].Amount))
}

func TestClient_TokenTransfersStringResult(t *testing.T) {
	server := newServer(t, `{"status":"0","message":"NOTOK","result":"Max rate limit reached"}`)
	client := NewClient(fetch.New(), "key", WithBaseURL(server.URL))

	transfers, status, err := client.TokenTransfers(context.Background(), wallet, 10)
	require.NoError(t, err)
	require.Empty(t, transfers)
	require.Equal(t, "NOTOK Max rate limit reached", status)
}

func TestClient_TokenTransfersEmptyResult(t *testing.T) {
	server := newServer(t, `{"status":"0","message":"No transactions found","result":[]}`)
	client := NewClient(fetch.New(), "key", WithBaseURL(server.URL))

	transfers, status, err := client.TokenTransfers(context.Background(), wallet, 10)
	require.NoError(t, err)
	require.Empty(t, transfers)
	require.Equal(t, "No transactions found", status)
}

func TestClient_TokenTransfersInvalidJSON(t *testing.T) {
	server := newServer(t, `<html>`)
	client := NewClient(fetch.New(), "key", WithBaseURL(server.URL))

	_, _, err := client.TokenTransfers(context.Background(), wallet, 10)
	require.Error(t, err)
}

func TestWalletSource_Fetch(t *testing.T) {
	server := newServer(t, transfersBody)
	source := NewWalletSource(NewClient(fetch.New(), "key", WithBaseURL(server.URL)), wallet)

	require.Equal(t, "wallet:"+wallet, source.Resource())

	entities, err := source.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, entities, 2)
	require.Equal(t, "0xbbb", entities[0].Key)
	require.Equal(t, "1234.56789", entities[0].Attr(core.AttrAmount, ""))
	require.Equal(t, "USDT", entities[0].Attr(core.AttrTokenSymbol, ""))
	require.Equal(t, wallet, entities[0].Attr(core.AttrWallet, ""))
}
