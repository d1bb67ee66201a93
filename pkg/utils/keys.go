package utils

import (
	"fmt"
	"strings"
)

// CoinKey 价格预言机使用的代币标识 "<chain>:<address>"
func CoinKey(chain, address string) string {
	return fmt.Sprintf("%s:%s", strings.ToLower(chain), strings.ToLower(address))
}

func BlockMemoKey(chain string, timestamp int64) string {
	return fmt.Sprintf("block:%s@%d", chain, timestamp)
}

func PriceMemoKey(coin string, timestamp int64) string {
	return fmt.Sprintf("price:%s@%d", coin, timestamp)
}

func VolumeResultKey(chain string, timestamp int64) string {
	return fmt.Sprintf("daily_volume:%s@%d", chain, timestamp)
}
