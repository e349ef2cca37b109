package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/viper"

	"whistlevault/whistlevault"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// fakeNode answers just enough JSON-RPC for the gateway: nonce, gas price,
// chain id and eth_call. The eth_call return data is settable per test.
func fakeNode(t *testing.T, callResult *string, callError *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req rpcRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("bad rpc request: %v", err)
			return
		}
		reply := func(result string) {
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":%q}`, req.ID, result)
		}
		switch req.Method {
		case "eth_getTransactionCount":
			reply("0x5")
		case "eth_gasPrice":
			reply("0x3b9aca00")
		case "eth_chainId":
			reply("0xe705")
		case "eth_call":
			if *callError != "" {
				fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"error":{"code":3,"message":%q}}`, req.ID, *callError)
				return
			}
			reply(*callResult)
		default:
			t.Errorf("unexpected rpc method %s", req.Method)
		}
	}))
}

func setupGateway(t *testing.T) (*Gateway, *string, *string) {
	t.Helper()
	callResult := new(string)
	callError := new(string)
	srv := fakeNode(t, callResult, callError)
	t.Cleanup(srv.Close)

	conf := viper.New()
	conf.Set("rpcURL", srv.URL)
	conf.Set("contractAddress", "0x1111111111111111111111111111111111111111")
	conf.Set("gasLimit", int64(2000000))
	whistlevault.SetConfig(conf)

	g, err := NewGateway()
	if err != nil {
		t.Fatalf("NewGateway failed: %v", err)
	}
	return g, callResult, callError
}

func TestBuildSubmitTransaction(t *testing.T) {
	g, _, _ := setupGateway(t)

	tx, err := g.BuildSubmitTransaction("QmHash", "0x2222222222222222222222222222222222222222")
	if err != nil {
		t.Fatalf("BuildSubmitTransaction failed: %v", err)
	}
	if tx.From != common.HexToAddress("0x2222222222222222222222222222222222222222").Hex() {
		t.Errorf("unexpected from %s", tx.From)
	}
	if tx.To != common.HexToAddress("0x1111111111111111111111111111111111111111").Hex() {
		t.Errorf("unexpected to %s", tx.To)
	}
	if tx.Nonce != 5 {
		t.Errorf("expected the live pending nonce, got %d", tx.Nonce)
	}
	if tx.Gas != 2000000 {
		t.Errorf("expected the configured gas limit, got %d", tx.Gas)
	}
	if tx.GasPrice != "0x3b9aca00" {
		t.Errorf("expected the node's gas price, got %s", tx.GasPrice)
	}
	if tx.ChainID != "0xe705" {
		t.Errorf("unexpected chain id %s", tx.ChainID)
	}
	if tx.Value != "0x0" {
		t.Errorf("submitReport must not carry value, got %s", tx.Value)
	}

	// data is the packed submitReport call with our content id
	want, err := g.abi.Pack("submitReport", "QmHash")
	if err != nil {
		t.Fatalf("packing failed: %v", err)
	}
	if tx.Data != hexutil.Encode(want) {
		t.Errorf("unexpected calldata %s", tx.Data)
	}
	if !strings.HasPrefix(tx.Data, "0x") {
		t.Errorf("calldata must be hex encoded")
	}
}

func TestReport(t *testing.T) {
	g, callResult, _ := setupGateway(t)

	reporter := common.HexToAddress("0x3333333333333333333333333333333333333333")
	packed, err := g.abi.Methods["getReport"].Outputs.Pack("QmStored", reporter, true)
	if err != nil {
		t.Fatalf("packing outputs failed: %v", err)
	}
	*callResult = hexutil.Encode(packed)

	got, err := g.Report(7)
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	if got.ContentID != "QmStored" {
		t.Errorf("unexpected content id %s", got.ContentID)
	}
	if got.Reporter != reporter.Hex() {
		t.Errorf("unexpected reporter %s", got.Reporter)
	}
	if !got.Resolved {
		t.Error("expected resolved")
	}
}

func TestReportRevertIsALookupError(t *testing.T) {
	g, _, callError := setupGateway(t)
	*callError = "execution reverted"

	_, err := g.Report(7)
	var lookup whistlevault.LookupError
	if !errors.As(err, &lookup) {
		t.Fatalf("expected LookupError, got %v", err)
	}
	if !strings.Contains(lookup.Reason, "execution reverted") {
		t.Errorf("expected the raw revert message, got %q", lookup.Reason)
	}
}
