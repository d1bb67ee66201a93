package llama

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"equilibre-volume/internal/worker/config"
	"equilibre-volume/internal/worker/model"
	"equilibre-volume/pkg/httpclient"
	"equilibre-volume/pkg/utils"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	defaultChunkSize = 100
	memoTTL          = 6 * time.Hour
)

// Client DefiLlama coins API，提供历史价格与时间戳到区块号的转换
type Client struct {
	baseURL    string
	chunkSize  int
	httpClient *httpclient.HTTPClient
	memo       *cache.Cache
	logger     *zap.Logger
}

func NewClient(cfg config.PriceConfig, logger *zap.Logger) *Client {
	httpCfg := httpclient.HTTPClientConfig{
		Timeout:    time.Duration(cfg.Timeout) * time.Second,
		RateLimit:  cfg.RateLimit,
		MaxRetries: 3,
	}

	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		chunkSize:  chunkSize,
		httpClient: httpclient.NewHTTPClient(httpCfg, logger),
		memo:       cache.New(memoTTL, 10*time.Minute),
		logger:     logger,
	}
}

// GetBlock 返回 chain 上不晚于 timestamp 的区块号
func (c *Client) GetBlock(ctx context.Context, chain string, timestamp int64) (uint64, error) {
	key := utils.BlockMemoKey(chain, timestamp)
	if cached, found := c.memo.Get(key); found {
		return cached.(uint64), nil
	}

	var resp BlockResp
	u := fmt.Sprintf("%s/block/%s/%d", c.baseURL, url.PathEscape(chain), timestamp)
	if err := c.httpClient.Get(ctx, u, nil, &resp); err != nil {
		return 0, fmt.Errorf("get block of %s at %d: %w", chain, timestamp, err)
	}
	if resp.Height == 0 {
		return 0, fmt.Errorf("get block of %s at %d: empty height", chain, timestamp)
	}

	c.memo.Set(key, resp.Height, cache.DefaultExpiration)
	return resp.Height, nil
}

// GetPrices 查询 coins 在 timestamp 时的价格，key 统一为小写；查不到的代币不出现在结果中
func (c *Client) GetPrices(ctx context.Context, coins []string, timestamp int64) (map[string]model.PriceQuote, error) {
	quotes := make(map[string]model.PriceQuote, len(coins))
	pending := make([]string, 0, len(coins))
	for _, coin := range coins {
		coin = strings.ToLower(coin)
		if cached, found := c.memo.Get(utils.PriceMemoKey(coin, timestamp)); found {
			quotes[coin] = cached.(model.PriceQuote)
			continue
		}
		pending = append(pending, coin)
	}

	for start := 0; start < len(pending); start += c.chunkSize {
		end := min(start+c.chunkSize, len(pending))
		chunk := pending[start:end]

		var resp PricesResp
		u := fmt.Sprintf("%s/prices/historical/%d/%s", c.baseURL, timestamp, strings.Join(chunk, ","))
		if err := c.httpClient.Get(ctx, u, nil, &resp); err != nil {
			return nil, fmt.Errorf("get prices at %d: %w", timestamp, err)
		}

		for coin, p := range resp.Coins {
			price := p.Price
			if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
				c.logger.Warn("Ignore invalid price", zap.String("coin", coin), zap.Float64("price", price))
				price = 0
			}
			quote := model.PriceQuote{Price: price, Decimals: p.Decimals}
			coin = strings.ToLower(coin)
			quotes[coin] = quote
			c.memo.Set(utils.PriceMemoKey(coin, timestamp), quote, cache.DefaultExpiration)
		}
	}

	c.logger.Debug("Prices fetched",
		zap.Int("requested", len(coins)),
		zap.Int("remote", len(pending)),
		zap.Int("found", len(quotes)))
	return quotes, nil
}

func (c *Client) Close() error {
	return c.httpClient.Close()
}
