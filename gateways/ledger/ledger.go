package ledger

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"

	"whistlevault/whistlevault"
)

// The report registry contract. submitReport anchors a content identifier,
// getReport reads one back by numeric id.
const contractABI = `[
 {"inputs":[{"internalType":"string","name":"_ipfsHash","type":"string"}],"name":"submitReport","outputs":[],"stateMutability":"nonpayable","type":"function"},
 {"inputs":[{"internalType":"uint256","name":"_id","type":"uint256"}],"name":"getReport","outputs":[{"internalType":"string","name":"","type":"string"},{"internalType":"address","name":"","type":"address"},{"internalType":"bool","name":"","type":"bool"}],"stateMutability":"view","type":"function"}
]`

// Gateway builds unsigned transactions against the report registry contract
// and performs read-only calls. It never signs and never broadcasts.
type Gateway struct {
	client   *ethclient.Client
	abi      abi.ABI
	contract common.Address
}

func NewGateway() (*Gateway, error) {
	client, err := ethclient.Dial(whistlevault.MakeOrGetConfig().GetString("rpcURL"))
	if err != nil {
		return nil, err
	}
	parsed, err := abi.JSON(strings.NewReader(contractABI))
	if err != nil {
		return nil, err
	}
	return &Gateway{
		client:   client,
		abi:      parsed,
		contract: common.HexToAddress(whistlevault.MakeOrGetConfig().GetString("contractAddress")),
	}, nil
}

// BuildSubmitTransaction assembles an unsigned submitReport call from the
// sender: live pending nonce, the configured gas limit and the node's current
// gas price. The caller's wallet signs and broadcasts it.
func (g *Gateway) BuildSubmitTransaction(contentID, sender string) (whistlevault.UnsignedTx, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
	defer cancel()
	from := common.HexToAddress(sender)
	nonce, err := g.client.PendingNonceAt(ctx, from)
	if err != nil {
		return whistlevault.UnsignedTx{}, whistlevault.LookupError{Reason: err.Error()}
	}
	gasPrice, err := g.client.SuggestGasPrice(ctx)
	if err != nil {
		return whistlevault.UnsignedTx{}, whistlevault.LookupError{Reason: err.Error()}
	}
	chainID, err := g.client.ChainID(ctx)
	if err != nil {
		return whistlevault.UnsignedTx{}, whistlevault.LookupError{Reason: err.Error()}
	}
	data, err := g.abi.Pack("submitReport", contentID)
	if err != nil {
		return whistlevault.UnsignedTx{}, err
	}
	return whistlevault.UnsignedTx{
		From:     from.Hex(),
		To:       g.contract.Hex(),
		Nonce:    nonce,
		Gas:      whistlevault.MakeOrGetConfig().GetUint64("gasLimit"),
		GasPrice: hexutil.EncodeBig(gasPrice),
		Value:    "0x0",
		Data:     hexutil.Encode(data),
		ChainID:  hexutil.EncodeBig(chainID),
	}, nil
}

// Report performs the read-only getReport contract call.
func (g *Gateway) Report(id int64) (whistlevault.LedgerReport, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
	defer cancel()
	data, err := g.abi.Pack("getReport", big.NewInt(id))
	if err != nil {
		return whistlevault.LedgerReport{}, err
	}
	out, err := g.client.CallContract(ctx, ethereum.CallMsg{To: &g.contract, Data: data}, nil)
	if err != nil {
		return whistlevault.LedgerReport{}, whistlevault.LookupError{Reason: err.Error()}
	}
	values, err := g.abi.Unpack("getReport", out)
	if err != nil {
		return whistlevault.LedgerReport{}, whistlevault.LookupError{Reason: err.Error()}
	}
	return whistlevault.LedgerReport{
		ContentID: values[0].(string),
		Reporter:  values[1].(common.Address).Hex(),
		Resolved:  values[2].(bool),
	}, nil
}
