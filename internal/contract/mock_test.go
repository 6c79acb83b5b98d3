package contract_test

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Mohsinsiddi/w3ico/internal/chain"
	"github.com/Mohsinsiddi/w3ico/internal/contract"
	"github.com/Mohsinsiddi/w3ico/internal/wallet"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/stretchr/testify/require"
)

const testKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var (
	contractAddr = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	callerAddr   = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	ownerAddr    = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// chainMock is a JSON-RPC node that answers eth_call per contract method and
// records raw transactions.
type chainMock struct {
	t   *testing.T
	srv *httptest.Server

	mu       sync.Mutex
	outputs  map[string][]interface{}
	reverts  map[string]*rpcError
	estimate *rpcError
	status   uint64
	sent     []*types.Transaction
}

func newChainMock(t *testing.T) *chainMock {
	t.Helper()
	m := &chainMock{
		t:       t,
		outputs: map[string][]interface{}{},
		reverts: map[string]*rpcError{},
		status:  types.ReceiptStatusSuccessful,
	}
	m.srv = httptest.NewServer(http.HandlerFunc(m.serve))
	t.Cleanup(m.srv.Close)
	return m
}

// revertError builds a node error carrying an Error(string) payload.
func revertError(reason string) *rpcError {
	strType, _ := abi.NewType("string", "", nil)
	packed, _ := abi.Arguments{{Type: strType}}.Pack(reason)
	data := append(crypto.Keccak256([]byte("Error(string)"))[:4], packed...)
	return &rpcError{Code: 3, Message: "execution reverted: " + reason, Data: hexutil.Encode(data)}
}

func (m *chainMock) returns(method string, values ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outputs[method] = values
}

func (m *chainMock) reverting(method string, err *rpcError) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reverts[method] = err
}

func (m *chainMock) sentTxs() []*types.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*types.Transaction(nil), m.sent...)
}

func methodBySelector(data []byte) (*abi.Method, bool) {
	if len(data) < 4 {
		return nil, false
	}
	method, err := contract.ParsedABI.MethodById(data[:4])
	if err != nil {
		return nil, false
	}
	return method, true
}

func (m *chainMock) serve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     json.RawMessage   `json:"id"`
		Method string            `json:"method"`
		Params []json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	result, rerr := m.handle(req.Method, req.Params)
	resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
	if rerr != nil {
		resp["error"] = rerr
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp) //nolint:errcheck
}

func (m *chainMock) handle(method string, params []json.RawMessage) (interface{}, *rpcError) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch method {
	case "eth_chainId":
		return "0x4", nil
	case "eth_call":
		var arg struct {
			Input hexutil.Bytes `json:"input"`
			Data  hexutil.Bytes `json:"data"`
		}
		require.NoError(m.t, json.Unmarshal(params[0], &arg))
		data := arg.Input
		if len(data) == 0 {
			data = arg.Data
		}
		abiMethod, ok := methodBySelector(data)
		if !ok {
			return nil, &rpcError{Code: -32000, Message: "unknown selector"}
		}
		if rerr, ok := m.reverts[abiMethod.Name]; ok {
			return nil, rerr
		}
		values, ok := m.outputs[abiMethod.Name]
		if !ok {
			return nil, &rpcError{Code: -32000, Message: "no output scripted for " + abiMethod.Name}
		}
		packed, err := abiMethod.Outputs.Pack(values...)
		require.NoError(m.t, err)
		return hexutil.Encode(packed), nil
	case "eth_getCode":
		return "0x6080604052", nil
	case "eth_estimateGas":
		if m.estimate != nil {
			return nil, m.estimate
		}
		return "0x186a0", nil
	case "eth_sendRawTransaction":
		var raw hexutil.Bytes
		require.NoError(m.t, json.Unmarshal(params[0], &raw))
		tx := new(types.Transaction)
		require.NoError(m.t, tx.UnmarshalBinary(raw))
		m.sent = append(m.sent, tx)
		return tx.Hash().Hex(), nil
	case "eth_getTransactionReceipt":
		var hash common.Hash
		require.NoError(m.t, json.Unmarshal(params[0], &hash))
		return map[string]interface{}{
			"type":              "0x0",
			"status":            hexutil.EncodeUint64(m.status),
			"cumulativeGasUsed": "0x5208",
			"gasUsed":           "0x5208",
			"logsBloom":         "0x" + strings.Repeat("00", 256),
			"logs":              []interface{}{},
			"transactionHash":   hash.Hex(),
			"transactionIndex":  "0x0",
			"blockHash":         common.HexToHash("0xb10c").Hex(),
			"blockNumber":       "0x10",
		}, nil
	}
	return nil, &rpcError{Code: -32601, Message: fmt.Sprintf("method %s not found", method)}
}

// readHandle dials the mock and returns a read-only handle.
func (m *chainMock) readHandle(t *testing.T) *chain.Handle {
	t.Helper()
	client, err := ethclient.Dial(m.srv.URL)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return &chain.Handle{Backend: client, Account: callerAddr, ChainID: big.NewInt(4)}
}

// signingHandle returns a handle whose transactor has gas price, limit and
// nonce fixed so only eth_sendRawTransaction is needed to submit.
func (m *chainMock) signingHandle(t *testing.T, approve func(*types.Transaction) bool) *chain.Handle {
	t.Helper()
	h := m.readHandle(t)
	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)
	opts, err := bind.NewKeyedTransactorWithChainID(key, h.ChainID)
	require.NoError(t, err)
	if approve != nil {
		sign := opts.Signer
		opts.Signer = func(from common.Address, tx *types.Transaction) (*types.Transaction, error) {
			if !approve(tx) {
				return nil, wallet.ErrSignatureDeclined
			}
			return sign(from, tx)
		}
	}
	opts.GasPrice = big.NewInt(1_000_000_000)
	opts.GasLimit = 200_000
	opts.Nonce = big.NewInt(0)
	h.Opts = opts
	return h
}
