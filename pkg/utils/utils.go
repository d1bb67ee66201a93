package utils

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

const DaySeconds int64 = 24 * 60 * 60

// IsUnixSeconds 检查时间戳是否为秒级
func IsUnixSeconds(ts int64) bool {
	// 定义时间戳范围：1970-01-01 到 2100-01-01
	const maxUnix = 4_102_444_800 // 2100-01-01 00:00:00 UTC
	return ts >= 0 && ts < maxUnix
}

// LastDayStart 返回不晚于 t 的最近一个 UTC 零点
func LastDayStart(t time.Time) int64 {
	ts := t.Unix()
	return ts - ts%DaySeconds
}

// AdjustDecimals 调整精度显示，精确计算 value / 10^decimals
func AdjustDecimals(value *big.Int, decimals int32) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(value, -decimals)
}

// Deduplicate 去重并保持首次出现的顺序
func Deduplicate[T comparable](items []T) []T {
	deduplicated := make([]T, 0, len(items))
	seen := make(map[T]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item]; !ok {
			seen[item] = struct{}{}
			deduplicated = append(deduplicated, item)
		}
	}
	return deduplicated
}
