package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"equilibre-volume/internal/worker/adapter"
	"equilibre-volume/internal/worker/cache"
	"equilibre-volume/internal/worker/model"
	"equilibre-volume/internal/worker/monitor"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeVolume struct {
	chain string
	value string
	err   error

	mu    sync.Mutex
	calls []int64
}

func (f *fakeVolume) Chain() string { return f.chain }

func (f *fakeVolume) Compute(ctx context.Context, timestamp int64) (model.DailyVolumeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, timestamp)
	if f.err != nil {
		return model.DailyVolumeResult{}, f.err
	}
	return model.DailyVolumeResult{DailyVolume: f.value, Timestamp: timestamp}, nil
}

func newTestJob(t *testing.T, v adapter.Volume, start int64, now time.Time) *DailyVolume {
	t.Helper()
	a := adapter.NewSimpleAdapter()
	require.NoError(t, a.Register(v, start))
	j := NewDailyVolume(a, cache.NewVolumeCache(zap.NewNop()), zap.NewNop())
	j.now = func() time.Time { return now }
	return j
}

func TestDailyVolumeRunUsesLastDayStart(t *testing.T) {
	v := &fakeVolume{chain: "job-kava", value: "1234.5"}
	now := time.Date(2024, 5, 2, 13, 30, 0, 0, time.UTC)
	j := newTestJob(t, v, 1677888000, now)

	require.NoError(t, j.Run(context.Background()))
	require.Len(t, v.calls, 1)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC).Unix(), v.calls[0])

	assert.Equal(t, 1234.5, testutil.ToFloat64(monitor.DailyVolumeUSD.WithLabelValues("job-kava")))
	assert.Equal(t, 1.0, testutil.ToFloat64(monitor.JobRuns.WithLabelValues("job-kava", "success")))
}

func TestDailyVolumeRunCachesResult(t *testing.T) {
	v := &fakeVolume{chain: "job-cache", value: "7"}
	j := newTestJob(t, v, 0, time.Date(2024, 5, 2, 13, 30, 0, 0, time.UTC))

	require.NoError(t, j.Run(context.Background()))
	require.NoError(t, j.Run(context.Background()))
	assert.Len(t, v.calls, 1)

	// 跨过零点后重新计算
	j.now = func() time.Time { return time.Date(2024, 5, 3, 0, 0, 1, 0, time.UTC) }
	require.NoError(t, j.Run(context.Background()))
	assert.Len(t, v.calls, 2)
}

func TestDailyVolumeRunSkipsBeforeStart(t *testing.T) {
	v := &fakeVolume{chain: "job-early", value: "1"}
	j := newTestJob(t, v, 1677888000, time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC))

	require.NoError(t, j.Run(context.Background()))
	assert.Empty(t, v.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(monitor.JobRuns.WithLabelValues("job-early", "skipped")))
}

func TestDailyVolumeRunReportsFailure(t *testing.T) {
	boom := errors.New("rpc down")
	v := &fakeVolume{chain: "job-fail", err: boom}
	j := newTestJob(t, v, 0, time.Date(2024, 5, 2, 13, 30, 0, 0, time.UTC))

	err := j.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1.0, testutil.ToFloat64(monitor.JobRuns.WithLabelValues("job-fail", "failed")))

	// 失败结果不缓存
	_ = j.Run(context.Background())
	assert.Len(t, v.calls, 2)
}
