package service

import (
	"math/big"

	"equilibre-volume/internal/worker/model"
	"equilibre-volume/pkg/utils"

	"github.com/shopspring/decimal"
)

// SumAmounts 汇总所有 Swap 中 token0 / token1 的 in+out 原始数量
func SumAmounts(events []model.SwapEvent) (total0, total1 *big.Int) {
	total0, total1 = new(big.Int), new(big.Int)
	for _, ev := range events {
		total0.Add(total0, ev.Amount0())
		total1.Add(total1, ev.Amount1())
	}
	return total0, total1
}

// ToUSD 原始数量按精度换算后乘以价格
func ToUSD(amount *big.Int, quote model.PriceQuote) decimal.Decimal {
	return utils.AdjustDecimals(amount, int32(quote.Decimals)).Mul(decimal.NewFromFloat(quote.Price))
}

// PoolVolumeUSD 单边计量：token0 有价格时只算 token0，否则只算 token1，都没有价格记 0。
// 一笔 swap 的两条腿代表同一笔成交，两边相加会重复计算。
func PoolVolumeUSD(events []model.SwapEvent, quote0, quote1 model.PriceQuote) decimal.Decimal {
	total0, total1 := SumAmounts(events)
	switch {
	case quote0.Price != 0:
		return ToUSD(total0, quote0)
	case quote1.Price != 0:
		return ToUSD(total1, quote1)
	default:
		return decimal.Zero
	}
}

// AggregateVolume 汇总所有池子的 USD 成交量
func AggregateVolume(volumes []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range volumes {
		total = total.Add(v)
	}
	return total
}
