package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"equilibre-volume/internal/worker/config"
	"equilibre-volume/internal/worker/model"
	"equilibre-volume/internal/worker/monitor"
	"equilibre-volume/pkg/evm_client"
	"equilibre-volume/pkg/logger"
	"equilibre-volume/pkg/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

var ErrInvalidTimestamp = errors.New("invalid timestamp")

// ContractCaller 合约只读调用
type ContractCaller interface {
	Call(ctx context.Context, target common.Address, method string, params ...interface{}) ([]interface{}, error)
	Multicall(ctx context.Context, method string, calls []evm_client.CallRequest) ([][]interface{}, error)
}

// LogQuerier 日志查询
type LogQuerier interface {
	GetLogs(ctx context.Context, target common.Address, fromBlock, toBlock uint64, topics []common.Hash) ([]model.RawLog, error)
}

type ChainReader interface {
	ContractCaller
	LogQuerier
}

// BlockResolver 时间戳转区块号
type BlockResolver interface {
	GetBlock(ctx context.Context, chain string, timestamp int64) (uint64, error)
}

// PriceOracle 历史价格
type PriceOracle interface {
	GetPrices(ctx context.Context, coins []string, timestamp int64) (map[string]model.PriceQuote, error)
}

// DailyVolume 计算工厂合约下所有交易对过去 24 小时的 USD 成交量
type DailyVolume struct {
	tl        *zap.Logger
	chainName string
	factory   common.Address
	swapTopic common.Hash
	policy    string
	workerNum int
	chain     ChainReader
	blocks    BlockResolver
	oracle    PriceOracle
}

func NewDailyVolume(cfg config.Config, logger *zap.Logger, chain ChainReader, blocks BlockResolver, oracle PriceOracle) *DailyVolume {
	workerNum := cfg.Worker.WorkerNum
	if workerNum < 1 {
		workerNum = 1
	}
	policy := cfg.Volume.MalformedLogPolicy
	if policy == "" {
		policy = config.MalformedLogSkip
	}
	return &DailyVolume{
		tl:        logger,
		chainName: cfg.Chain.Name,
		factory:   common.HexToAddress(cfg.Chain.FactoryAddress),
		swapTopic: common.HexToHash(cfg.Chain.SwapTopic),
		policy:    policy,
		workerNum: workerNum,
		chain:     chain,
		blocks:    blocks,
		oracle:    oracle,
	}
}

func (d *DailyVolume) Chain() string {
	return d.chainName
}

// Compute 计算 [timestamp-24h, timestamp] 的成交量，任何上游错误都会中止整个计算
func (d *DailyVolume) Compute(ctx context.Context, timestamp int64) (result model.DailyVolumeResult, err error) {
	ctx, span := logger.StartSpan(ctx, "daily_volume", "compute")
	defer span.End()
	tl := logger.WithTrace(ctx, d.tl).With(zap.String("chain", d.chainName), zap.Int64("timestamp", timestamp))
	defer func() {
		if err != nil {
			span.RecordError(err)
			tl.Error("Compute daily volume failed", zap.Error(err))
		}
	}()

	if timestamp < utils.DaySeconds || !utils.IsUnixSeconds(timestamp) {
		return result, fmt.Errorf("%w: %d", ErrInvalidTimestamp, timestamp)
	}

	addresses, err := d.DiscoverPools(ctx)
	if err != nil {
		return result, err
	}
	monitor.PoolsDiscovered.WithLabelValues(d.chainName).Set(float64(len(addresses)))
	if len(addresses) == 0 {
		tl.Info("No pools found", zap.String("factory", d.factory.Hex()))
		return model.DailyVolumeResult{DailyVolume: decimal.Zero.String(), Timestamp: timestamp}, nil
	}

	// 代币解析与区块范围互不依赖
	var (
		tokens0, tokens1   []string
		fromBlock, toBlock uint64
	)
	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(func(ctx context.Context) error {
		var err error
		tokens0, tokens1, err = d.ResolveTokens(ctx, addresses)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		fromBlock, toBlock, err = d.ResolveBlockRange(ctx, timestamp)
		return err
	})
	if err := p.Wait(); err != nil {
		return result, err
	}

	pools := make([]model.Pool, len(addresses))
	for i, addr := range addresses {
		pools[i] = model.Pool{Address: strings.ToLower(addr.Hex()), Token0: tokens0[i], Token1: tokens1[i]}
	}

	// 日志与价格互不依赖
	var (
		logs   [][]model.RawLog
		prices map[string]model.PriceQuote
	)
	p = pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	p.Go(func(ctx context.Context) error {
		var err error
		logs, err = d.fetchAllSwapLogs(ctx, addresses, fromBlock, toBlock)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		prices, err = d.LookupPrices(ctx, append(append([]string{}, tokens0...), tokens1...), timestamp)
		return err
	})
	if err := p.Wait(); err != nil {
		return result, err
	}

	volume := d.aggregate(ctx, pools, logs, prices)
	result = model.DailyVolumeResult{DailyVolume: volume.String(), Timestamp: timestamp}
	tl.Info("Daily volume computed",
		zap.Int("pools", len(pools)),
		zap.Uint64("from_block", fromBlock),
		zap.Uint64("to_block", toBlock),
		zap.String("daily_volume", result.DailyVolume))
	return result, nil
}

// DiscoverPools 通过 allPairsLength + allPairs(i) 枚举所有交易对，保持下标顺序
func (d *DailyVolume) DiscoverPools(ctx context.Context) ([]common.Address, error) {
	ctx, span, tl := logger.StartStage(ctx, d.tl, "discover_pools")
	defer span.End()
	defer d.observeStage("discover_pools", time.Now())

	out, err := d.chain.Call(ctx, d.factory, "allPairsLength")
	if err != nil {
		return nil, fmt.Errorf("get pool length: %w", err)
	}
	length, err := bigIntOutput(out)
	if err != nil {
		return nil, fmt.Errorf("get pool length: %w", err)
	}
	if !length.IsInt64() || length.Int64() > int64(^uint32(0)) {
		return nil, fmt.Errorf("get pool length: unreasonable value %s", length)
	}

	calls := make([]evm_client.CallRequest, length.Int64())
	for i := range calls {
		calls[i] = evm_client.CallRequest{Target: d.factory, Params: []interface{}{big.NewInt(int64(i))}}
	}
	outs, err := d.chain.Multicall(ctx, "allPairs", calls)
	if err != nil {
		return nil, fmt.Errorf("get pools: %w", err)
	}

	pools := make([]common.Address, len(outs))
	for i, out := range outs {
		if pools[i], err = addressOutput(out); err != nil {
			return nil, fmt.Errorf("get pool %d: %w", i, err)
		}
	}

	tl.Debug("Pools discovered", zap.Int("count", len(pools)))
	return pools, nil
}

// ResolveTokens 并发查询 token0 / token1，结果与 pools 按下标对齐，地址统一小写
func (d *DailyVolume) ResolveTokens(ctx context.Context, pools []common.Address) (tokens0, tokens1 []string, err error) {
	ctx, span, _ := logger.StartStage(ctx, d.tl, "resolve_tokens")
	defer span.End()
	defer d.observeStage("resolve_tokens", time.Now())

	calls := make([]evm_client.CallRequest, len(pools))
	for i, addr := range pools {
		calls[i] = evm_client.CallRequest{Target: addr}
	}

	methods := []string{"token0", "token1"}
	tokens := make([][]string, len(methods))
	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	for i, method := range methods {
		p.Go(func(ctx context.Context) error {
			outs, err := d.chain.Multicall(ctx, method, calls)
			if err != nil {
				return fmt.Errorf("get %s: %w", method, err)
			}
			if len(outs) != len(pools) {
				return fmt.Errorf("get %s: got %d results for %d pools", method, len(outs), len(pools))
			}
			tokens[i] = make([]string, len(outs))
			for j, out := range outs {
				addr, err := addressOutput(out)
				if err != nil {
					return fmt.Errorf("get %s of %s: %w", method, pools[j].Hex(), err)
				}
				tokens[i][j] = strings.ToLower(addr.Hex())
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, nil, err
	}

	return tokens[0], tokens[1], nil
}

// ResolveBlockRange 并发解析 timestamp-24h 与 timestamp 对应的区块号
func (d *DailyVolume) ResolveBlockRange(ctx context.Context, timestamp int64) (fromBlock, toBlock uint64, err error) {
	ctx, span, tl := logger.StartStage(ctx, d.tl, "resolve_blocks")
	defer span.End()
	defer d.observeStage("resolve_blocks", time.Now())

	timestamps := []int64{timestamp - utils.DaySeconds, timestamp}
	blocks := make([]uint64, len(timestamps))
	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	for i, ts := range timestamps {
		p.Go(func(ctx context.Context) error {
			block, err := d.blocks.GetBlock(ctx, d.chainName, ts)
			if err != nil {
				return fmt.Errorf("get block at %d: %w", ts, err)
			}
			blocks[i] = block
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return 0, 0, err
	}
	if blocks[0] > blocks[1] {
		return 0, 0, fmt.Errorf("block range inverted: %d > %d", blocks[0], blocks[1])
	}

	tl.Debug("Block range resolved", zap.Uint64("from_block", blocks[0]), zap.Uint64("to_block", blocks[1]))
	return blocks[0], blocks[1], nil
}

// FetchSwapLogs 查询单个池子在 [fromBlock, toBlock] 内的 Swap 日志
func (d *DailyVolume) FetchSwapLogs(ctx context.Context, poolAddr common.Address, fromBlock, toBlock uint64) ([]model.RawLog, error) {
	logs, err := d.chain.GetLogs(ctx, poolAddr, fromBlock, toBlock, []common.Hash{d.swapTopic})
	if err != nil {
		return nil, fmt.Errorf("get swap logs of %s: %w", poolAddr.Hex(), err)
	}
	monitor.SwapLogsFetched.WithLabelValues(d.chainName).Add(float64(len(logs)))
	return logs, nil
}

// fetchAllSwapLogs 按 worker_num 限制并发，结果与 pools 按下标对齐
func (d *DailyVolume) fetchAllSwapLogs(ctx context.Context, pools []common.Address, fromBlock, toBlock uint64) ([][]model.RawLog, error) {
	ctx, span, tl := logger.StartStage(ctx, d.tl, "fetch_logs")
	defer span.End()
	defer d.observeStage("fetch_logs", time.Now())

	logs := make([][]model.RawLog, len(pools))
	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError().WithMaxGoroutines(d.workerNum)
	for i, addr := range pools {
		p.Go(func(ctx context.Context) error {
			poolLogs, err := d.FetchSwapLogs(ctx, addr, fromBlock, toBlock)
			if err != nil {
				return err
			}
			logs[i] = poolLogs
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	tl.Debug("Swap logs fetched", zap.Int("pools", len(pools)))
	return logs, nil
}

// LookupPrices 去重后一次性查询价格，缺失的代币记为 price=0, decimals=0
func (d *DailyVolume) LookupPrices(ctx context.Context, tokens []string, timestamp int64) (map[string]model.PriceQuote, error) {
	ctx, span, tl := logger.StartStage(ctx, d.tl, "lookup_prices")
	defer span.End()
	defer d.observeStage("lookup_prices", time.Now())

	coins := make([]string, len(tokens))
	for i, token := range tokens {
		coins[i] = utils.CoinKey(d.chainName, token)
	}
	coins = utils.Deduplicate(coins)

	prices := make(map[string]model.PriceQuote, len(coins))
	if len(coins) == 0 {
		return prices, nil
	}

	quotes, err := d.oracle.GetPrices(ctx, coins, timestamp)
	if err != nil {
		return nil, fmt.Errorf("get prices: %w", err)
	}

	missing := 0
	for _, coin := range coins {
		quote, ok := quotes[coin]
		if !ok {
			missing++
		}
		prices[coin] = quote
	}

	tl.Debug("Prices resolved", zap.Int("coins", len(coins)), zap.Int("missing", missing))
	return prices, nil
}

func (d *DailyVolume) aggregate(ctx context.Context, pools []model.Pool, logs [][]model.RawLog, prices map[string]model.PriceQuote) decimal.Decimal {
	_, span, tl := logger.StartStage(ctx, d.tl, "aggregate")
	defer span.End()
	defer d.observeStage("aggregate", time.Now())

	volumes := make([]decimal.Decimal, len(pools))
	unpriced := 0
	for i, p := range pools {
		quote0 := prices[utils.CoinKey(d.chainName, p.Token0)]
		quote1 := prices[utils.CoinKey(d.chainName, p.Token1)]
		if quote0.Price == 0 && quote1.Price == 0 {
			unpriced++
		}

		events, ok := d.decodePoolLogs(tl, p, logs[i])
		if !ok {
			volumes[i] = decimal.Zero
			continue
		}
		volumes[i] = PoolVolumeUSD(events, quote0, quote1)
	}
	monitor.UnpricedPools.WithLabelValues(d.chainName).Set(float64(unpriced))

	return AggregateVolume(volumes)
}

// decodePoolLogs 解码池子的全部日志；drop_pool 策略下遇到坏日志返回 false
func (d *DailyVolume) decodePoolLogs(tl *zap.Logger, p model.Pool, logs []model.RawLog) ([]model.SwapEvent, bool) {
	events := make([]model.SwapEvent, 0, len(logs))
	for _, l := range logs {
		ev, err := DecodeSwap(l.Data)
		if err != nil {
			monitor.MalformedSwapLogs.WithLabelValues(d.chainName).Inc()
			tl.Warn("Malformed swap log",
				zap.String("pool", p.Address),
				zap.String("tx_hash", l.TransactionHash),
				zap.String("policy", d.policy),
				zap.Error(err))
			if d.policy == config.MalformedLogDropPool {
				return nil, false
			}
			continue
		}
		events = append(events, ev)
	}
	return events, true
}

func (d *DailyVolume) observeStage(stage string, start time.Time) {
	monitor.StageDuration.WithLabelValues(d.chainName, stage).Observe(time.Since(start).Seconds())
}

func bigIntOutput(out []interface{}) (*big.Int, error) {
	if len(out) == 0 {
		return nil, errors.New("empty output")
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected output type %T", out[0])
	}
	return v, nil
}

func addressOutput(out []interface{}) (common.Address, error) {
	if len(out) == 0 {
		return common.Address{}, errors.New("empty output")
	}
	v, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected output type %T", out[0])
	}
	return v, nil
}
