package evm_client

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   interface{}     `json:"error,omitempty"`
}

// fakeNode 模拟一个只支持 eth_call / eth_getLogs 的节点
type fakeNode struct {
	t       *testing.T
	pairs   []common.Address
	failOn  common.Address
	mu      sync.Mutex
	batches int
	filters []map[string]interface{}
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	require.NoError(n.t, json.NewDecoder(r.Body).Decode(&raw))
	w.Header().Set("Content-Type", "application/json")

	if len(raw) > 0 && raw[0] == '[' {
		var reqs []rpcRequest
		require.NoError(n.t, json.Unmarshal(raw, &reqs))
		n.mu.Lock()
		n.batches++
		n.mu.Unlock()
		resps := make([]rpcResponse, len(reqs))
		for i, req := range reqs {
			resps[i] = n.handle(req)
		}
		json.NewEncoder(w).Encode(resps)
		return
	}

	var req rpcRequest
	require.NoError(n.t, json.Unmarshal(raw, &req))
	json.NewEncoder(w).Encode(n.handle(req))
}

func (n *fakeNode) handle(req rpcRequest) rpcResponse {
	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}
	contract := MustParseABI(PairFactoryABI)

	switch req.Method {
	case "eth_call":
		var call struct {
			To    common.Address `json:"to"`
			Data  hexutil.Bytes  `json:"data"`
			Input hexutil.Bytes  `json:"input"`
		}
		if err := json.Unmarshal(req.Params[0], &call); err != nil {
			resp.Error = map[string]interface{}{"code": -32602, "message": err.Error()}
			return resp
		}
		if len(call.Data) == 0 {
			call.Data = call.Input
		}
		if call.To == n.failOn {
			resp.Error = map[string]interface{}{"code": 3, "message": "execution reverted"}
			return resp
		}
		method, err := contract.MethodById(call.Data[:4])
		if err != nil {
			resp.Error = map[string]interface{}{"code": -32602, "message": err.Error()}
			return resp
		}
		var out []byte
		switch method.Name {
		case "allPairsLength":
			out, _ = method.Outputs.Pack(big.NewInt(int64(len(n.pairs))))
		case "allPairs":
			args, _ := method.Inputs.Unpack(call.Data[4:])
			out, _ = method.Outputs.Pack(n.pairs[args[0].(*big.Int).Int64()])
		case "token0":
			out, _ = method.Outputs.Pack(common.BigToAddress(new(big.Int).Add(call.To.Big(), big.NewInt(1))))
		case "token1":
			out, _ = method.Outputs.Pack(common.BigToAddress(new(big.Int).Add(call.To.Big(), big.NewInt(2))))
		}
		resp.Result = hexutil.Bytes(out)
	case "eth_getLogs":
		var filter map[string]interface{}
		json.Unmarshal(req.Params[0], &filter)
		n.mu.Lock()
		n.filters = append(n.filters, filter)
		n.mu.Unlock()
		resp.Result = []map[string]interface{}{
			{
				"address":          "0x00000000000000000000000000000000000000aa",
				"topics":           []string{"0xd78ad95fa46c994b6551d0da85fc275fe613ce37657fb8d5e3d130840159d822"},
				"data":             "0x01",
				"blockNumber":      "0x10",
				"transactionHash":  "0x0000000000000000000000000000000000000000000000000000000000000abc",
				"transactionIndex": "0x0",
				"blockHash":        "0x0000000000000000000000000000000000000000000000000000000000000def",
				"logIndex":         "0x0",
				"removed":          false,
			},
		}
	default:
		resp.Error = map[string]interface{}{"code": -32601, "message": "method not found"}
	}
	return resp
}

func (n *fakeNode) batchCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.batches
}

func (n *fakeNode) seenFilters() []map[string]interface{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]map[string]interface{}(nil), n.filters...)
}

func newTestClient(t *testing.T, node *fakeNode, batchSize int) *Client {
	t.Helper()
	server := httptest.NewServer(node)
	t.Cleanup(server.Close)

	rpcClient, err := rpc.DialHTTP(server.URL)
	require.NoError(t, err)
	c := NewClient(ethclient.NewClient(rpcClient), MustParseABI(PairFactoryABI), batchSize, 2, zap.NewNop())
	t.Cleanup(c.Close)
	return c
}

func testPairs(n int) []common.Address {
	pairs := make([]common.Address, n)
	for i := range pairs {
		pairs[i] = common.BigToAddress(big.NewInt(int64(0x10000 * (i + 1))))
	}
	return pairs
}

func TestCallAllPairsLength(t *testing.T) {
	node := &fakeNode{t: t, pairs: testPairs(3)}
	c := newTestClient(t, node, 10)

	out, err := c.Call(context.Background(), common.HexToAddress("0xf1"), "allPairsLength")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, int64(3), out[0].(*big.Int).Int64())
}

func TestMulticallKeepsOrderAcrossBatches(t *testing.T) {
	pairs := testPairs(7)
	node := &fakeNode{t: t, pairs: pairs}
	c := newTestClient(t, node, 3)

	calls := make([]CallRequest, len(pairs))
	for i := range calls {
		calls[i] = CallRequest{Target: common.HexToAddress("0xf1"), Params: []interface{}{big.NewInt(int64(i))}}
	}
	out, err := c.Multicall(context.Background(), "allPairs", calls)
	require.NoError(t, err)
	require.Len(t, out, len(pairs))
	for i, values := range out {
		assert.Equal(t, pairs[i], values[0].(common.Address))
	}
	assert.Equal(t, 3, node.batchCount())
}

func TestMulticallFailsFast(t *testing.T) {
	pairs := testPairs(4)
	node := &fakeNode{t: t, pairs: pairs, failOn: pairs[2]}
	c := newTestClient(t, node, 2)

	calls := make([]CallRequest, len(pairs))
	for i, p := range pairs {
		calls[i] = CallRequest{Target: p}
	}
	_, err := c.Multicall(context.Background(), "token0", calls)
	require.Error(t, err)
	assert.Contains(t, err.Error(), pairs[2].Hex())
}

func TestMulticallEmpty(t *testing.T) {
	node := &fakeNode{t: t}
	c := newTestClient(t, node, 2)

	out, err := c.Multicall(context.Background(), "token0", nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, 0, node.batchCount())
}

func TestGetLogs(t *testing.T) {
	node := &fakeNode{t: t}
	c := newTestClient(t, node, 2)
	topic := common.HexToHash("0xd78ad95fa46c994b6551d0da85fc275fe613ce37657fb8d5e3d130840159d822")
	pair := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	logs, err := c.GetLogs(context.Background(), pair, 100, 200, []common.Hash{topic})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "0x01", logs[0].Data)
	assert.Equal(t, "0x0000000000000000000000000000000000000000000000000000000000000abc", logs[0].TransactionHash)

	filters := node.seenFilters()
	require.Len(t, filters, 1)
	assert.Equal(t, "0x64", filters[0]["fromBlock"])
	assert.Equal(t, "0xc8", filters[0]["toBlock"])
}
