package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"equilibre-volume/internal/worker/adapter"
	"equilibre-volume/internal/worker/cache"
	"equilibre-volume/internal/worker/model"
	"equilibre-volume/internal/worker/monitor"
	"equilibre-volume/pkg/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DailyVolume 周期性计算最近一个 UTC 零点之前 24 小时的成交量
type DailyVolume struct {
	adapter *adapter.SimpleAdapter
	tl      *zap.Logger
	results *cache.VolumeCache
	now     func() time.Time
}

func NewDailyVolume(a *adapter.SimpleAdapter, results *cache.VolumeCache, logger *zap.Logger) *DailyVolume {
	return &DailyVolume{
		adapter: a,
		tl:      logger,
		results: results,
		now:     time.Now,
	}
}

// Run 对所有已注册的链计算一次；同一时间戳已有结果时跳过
func (j *DailyVolume) Run(ctx context.Context) error {
	timestamp := utils.LastDayStart(j.now())

	var errs []error
	for _, chain := range j.adapter.Chains() {
		if _, err := j.runChain(ctx, chain, timestamp); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (j *DailyVolume) runChain(ctx context.Context, chain string, timestamp int64) (model.DailyVolumeResult, error) {
	key := utils.VolumeResultKey(chain, timestamp)
	if cached, found := j.results.Get(key); found {
		j.tl.Debug("Daily volume already computed", zap.String("chain", chain), zap.Int64("timestamp", timestamp))
		return cached, nil
	}

	result, err := j.adapter.Fetch(ctx, chain, timestamp)
	if errors.Is(err, adapter.ErrBeforeStart) {
		j.tl.Info("Skip chain before start", zap.String("chain", chain), zap.Int64("timestamp", timestamp))
		monitor.JobRuns.WithLabelValues(chain, "skipped").Inc()
		return result, nil
	}
	if err != nil {
		monitor.JobRuns.WithLabelValues(chain, "failed").Inc()
		return result, fmt.Errorf("daily volume of %s at %d: %w", chain, timestamp, err)
	}

	monitor.JobRuns.WithLabelValues(chain, "success").Inc()
	if v, err := parseVolume(result.DailyVolume); err == nil {
		monitor.DailyVolumeUSD.WithLabelValues(chain).Set(v)
	}
	j.results.Set(key, result)
	j.tl.Info("Daily volume",
		zap.String("chain", chain),
		zap.Int64("timestamp", result.Timestamp),
		zap.String("daily_volume", result.DailyVolume))
	return result, nil
}

func parseVolume(v string) (float64, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return 0, err
	}
	return d.InexactFloat64(), nil
}
