package monitor

import "github.com/prometheus/client_golang/prometheus"

var (
	// PoolsDiscovered 工厂合约下的交易对数量
	PoolsDiscovered = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "daily_volume_pools_discovered",
			Help: "Number of pools enumerated from the factory in the last run.",
		},
		[]string{"chain"},
	)
	SwapLogsFetched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daily_volume_swap_logs_fetched_total",
			Help: "Total number of swap logs fetched from the chain.",
		},
		[]string{"chain"},
	)
	MalformedSwapLogs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daily_volume_malformed_swap_logs_total",
			Help: "Total number of swap logs rejected by the decoder.",
		},
		[]string{"chain"},
	)
	UnpricedPools = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "daily_volume_unpriced_pools",
			Help: "Number of pools without a price for either token in the last run.",
		},
		[]string{"chain"},
	)
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "daily_volume_stage_duration_seconds",
			Help:    "Time taken by each pipeline stage.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"chain", "stage"},
	)

	// DailyVolumeUSD 最近一次计算结果
	DailyVolumeUSD = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "daily_volume_usd",
			Help: "Trailing 24h volume in USD of the last successful run.",
		},
		[]string{"chain"},
	)
	JobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daily_volume_job_runs_total",
			Help: "Total number of daily volume job runs by result.",
		},
		[]string{"chain", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		PoolsDiscovered,
		SwapLogsFetched,
		MalformedSwapLogs,
		UnpricedPools,
		StageDuration,

		DailyVolumeUSD,
		JobRuns,
	)
}
