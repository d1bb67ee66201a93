package evm_client

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"equilibre-volume/internal/worker/model"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

const defaultBatchSize = 100

// Init evm client
func Init(rawurl string) *ethclient.Client {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := ethclient.DialContext(ctx, rawurl)
	if err != nil {
		panic(fmt.Sprintf("Init evm client error: %v", err))
	}

	return client
}

// CallRequest 一次合约只读调用
type CallRequest struct {
	Target common.Address
	Params []interface{}
}

// Client 封装 eth_call / JSON-RPC batch / eth_getLogs
type Client struct {
	eth       *ethclient.Client
	rpc       *rpc.Client
	abi       abi.ABI
	batchSize int
	workerNum int
	logger    *zap.Logger
}

func NewClient(eth *ethclient.Client, contractABI abi.ABI, batchSize, workerNum int, logger *zap.Logger) *Client {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if workerNum <= 0 {
		workerNum = 1
	}
	return &Client{
		eth:       eth,
		rpc:       eth.Client(),
		abi:       contractABI,
		batchSize: batchSize,
		workerNum: workerNum,
		logger:    logger,
	}
}

// Call 对 target 发起一次 eth_call 并按 ABI 解析返回值
func (c *Client) Call(ctx context.Context, target common.Address, method string, params ...interface{}) ([]interface{}, error) {
	data, err := c.abi.Pack(method, params...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &target, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, target.Hex(), err)
	}

	values, err := c.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s from %s: %w", method, target.Hex(), err)
	}
	return values, nil
}

// Multicall 批量调用同一方法，结果与 calls 按下标对齐；任一调用失败则整体失败
func (c *Client) Multicall(ctx context.Context, method string, calls []CallRequest) ([][]interface{}, error) {
	results := make([][]interface{}, len(calls))
	if len(calls) == 0 {
		return results, nil
	}

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError().WithMaxGoroutines(c.workerNum)
	for start := 0; start < len(calls); start += c.batchSize {
		start, end := start, min(start+c.batchSize, len(calls))
		p.Go(func(ctx context.Context) error {
			return c.batchCall(ctx, method, calls[start:end], results[start:end])
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	c.logger.Debug("Multicall done", zap.String("method", method), zap.Int("calls", len(calls)))
	return results, nil
}

func (c *Client) batchCall(ctx context.Context, method string, calls []CallRequest, results [][]interface{}) error {
	outs := make([]hexutil.Bytes, len(calls))
	elems := make([]rpc.BatchElem, len(calls))
	for i, call := range calls {
		data, err := c.abi.Pack(method, call.Params...)
		if err != nil {
			return fmt.Errorf("pack %s: %w", method, err)
		}
		elems[i] = rpc.BatchElem{
			Method: "eth_call",
			Args: []interface{}{
				map[string]interface{}{"to": call.Target, "data": hexutil.Bytes(data)},
				"latest",
			},
			Result: &outs[i],
		}
	}

	if err := c.rpc.BatchCallContext(ctx, elems); err != nil {
		return fmt.Errorf("batch call %s: %w", method, err)
	}

	for i, elem := range elems {
		if elem.Error != nil {
			return fmt.Errorf("call %s on %s: %w", method, calls[i].Target.Hex(), elem.Error)
		}
		values, err := c.abi.Unpack(method, outs[i])
		if err != nil {
			return fmt.Errorf("unpack %s from %s: %w", method, calls[i].Target.Hex(), err)
		}
		results[i] = values
	}
	return nil
}

// GetLogs 查询 target 在 [fromBlock, toBlock] 内匹配 topics 的日志，保持节点返回顺序
func (c *Client) GetLogs(ctx context.Context, target common.Address, fromBlock, toBlock uint64, topics []common.Hash) ([]model.RawLog, error) {
	logs, err := c.eth.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{target},
		Topics:    [][]common.Hash{topics},
	})
	if err != nil {
		return nil, fmt.Errorf("get logs of %s in [%d, %d]: %w", target.Hex(), fromBlock, toBlock, err)
	}

	raw := make([]model.RawLog, 0, len(logs))
	for _, l := range logs {
		raw = append(raw, model.RawLog{
			Data:            hexutil.Encode(l.Data),
			TransactionHash: l.TxHash.Hex(),
		})
	}
	return raw, nil
}

func (c *Client) Close() {
	c.eth.Close()
}
