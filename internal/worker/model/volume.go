package model

import "math/big"

// Pool 工厂合约下的一个交易对
type Pool struct {
	Address string `json:"address"`
	Token0  string `json:"token0"` // 小写地址
	Token1  string `json:"token1"` // 小写地址
}

// RawLog 链上原始日志，Data 为十六进制字符串（可带 0x 前缀）
type RawLog struct {
	Data            string `json:"data"`
	TransactionHash string `json:"transactionHash"`
}

// SwapEvent 解码后的 Swap 事件，数值为链上原始单位，未处理精度
type SwapEvent struct {
	Amount0In  *big.Int
	Amount1In  *big.Int
	Amount0Out *big.Int
	Amount1Out *big.Int
}

// Amount0 返回 token0 的成交量 (in + out)
func (s SwapEvent) Amount0() *big.Int {
	return new(big.Int).Add(orZero(s.Amount0In), orZero(s.Amount0Out))
}

// Amount1 返回 token1 的成交量 (in + out)
func (s SwapEvent) Amount1() *big.Int {
	return new(big.Int).Add(orZero(s.Amount1In), orZero(s.Amount1Out))
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// PriceQuote 价格预言机返回的 USD 价格与精度，缺失时为零值
type PriceQuote struct {
	Price    float64 `json:"price"`
	Decimals int     `json:"decimals"`
}

// DailyVolumeResult 24 小时成交量结果
type DailyVolumeResult struct {
	DailyVolume string `json:"dailyVolume"`
	Timestamp   int64  `json:"timestamp"`
}
