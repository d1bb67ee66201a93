package llama

// BlockResp /block/{chain}/{timestamp} 响应
type BlockResp struct {
	Height    uint64 `json:"height"`
	Timestamp int64  `json:"timestamp"`
}

// PricesResp /prices/historical/{timestamp}/{coins} 响应
type PricesResp struct {
	Coins map[string]CoinPrice `json:"coins"`
}

type CoinPrice struct {
	Decimals   int     `json:"decimals"`
	Price      float64 `json:"price"`
	Symbol     string  `json:"symbol"`
	Timestamp  int64   `json:"timestamp"`
	Confidence float64 `json:"confidence"`
}
