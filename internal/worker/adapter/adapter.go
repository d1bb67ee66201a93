package adapter

import (
	"context"
	"errors"
	"fmt"

	"equilibre-volume/internal/worker/model"
)

var (
	ErrBeforeStart    = errors.New("timestamp before adapter start")
	ErrUnknownChain   = errors.New("chain not registered")
	ErrDuplicateChain = errors.New("chain already registered")
)

// FetchFunc 计算 timestamp 之前 24 小时的成交量
type FetchFunc func(ctx context.Context, timestamp int64) (model.DailyVolumeResult, error)

// StartFunc 返回该链上数据可用的最早时间戳
type StartFunc func(ctx context.Context) (int64, error)

type ChainAdapter struct {
	Fetch FetchFunc
	Start StartFunc
}

// SimpleAdapter 按链注册的成交量适配器
type SimpleAdapter struct {
	Adapter map[string]ChainAdapter
}

func NewSimpleAdapter() *SimpleAdapter {
	return &SimpleAdapter{Adapter: make(map[string]ChainAdapter)}
}

// Volume 需要被注册的成交量计算实现
type Volume interface {
	Chain() string
	Compute(ctx context.Context, timestamp int64) (model.DailyVolumeResult, error)
}

// Register 以固定起始时间注册一条链
func (a *SimpleAdapter) Register(v Volume, start int64) error {
	chain := v.Chain()
	if _, ok := a.Adapter[chain]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateChain, chain)
	}
	a.Adapter[chain] = ChainAdapter{
		Fetch: func(ctx context.Context, timestamp int64) (model.DailyVolumeResult, error) {
			if timestamp < start {
				return model.DailyVolumeResult{}, fmt.Errorf("%w: %d < %d", ErrBeforeStart, timestamp, start)
			}
			return v.Compute(ctx, timestamp)
		},
		Start: func(ctx context.Context) (int64, error) {
			return start, nil
		},
	}
	return nil
}

// Fetch 调用指定链的适配器
func (a *SimpleAdapter) Fetch(ctx context.Context, chain string, timestamp int64) (model.DailyVolumeResult, error) {
	ca, ok := a.Adapter[chain]
	if !ok {
		return model.DailyVolumeResult{}, fmt.Errorf("%w: %s", ErrUnknownChain, chain)
	}
	return ca.Fetch(ctx, timestamp)
}

// Chains 已注册的链
func (a *SimpleAdapter) Chains() []string {
	chains := make([]string, 0, len(a.Adapter))
	for chain := range a.Adapter {
		chains = append(chains, chain)
	}
	return chains
}
