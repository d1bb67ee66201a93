package adapter

import (
	"context"
	"testing"

	"equilibre-volume/internal/worker/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubVolume struct {
	chain string
	calls int
}

func (s *stubVolume) Chain() string { return s.chain }

func (s *stubVolume) Compute(ctx context.Context, timestamp int64) (model.DailyVolumeResult, error) {
	s.calls++
	return model.DailyVolumeResult{DailyVolume: "42", Timestamp: timestamp}, nil
}

func TestSimpleAdapter(t *testing.T) {
	v := &stubVolume{chain: "kava"}
	a := NewSimpleAdapter()
	require.NoError(t, a.Register(v, 1677888000))
	assert.ErrorIs(t, a.Register(v, 1677888000), ErrDuplicateChain)
	assert.Equal(t, []string{"kava"}, a.Chains())

	start, err := a.Adapter["kava"].Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1677888000), start)

	result, err := a.Fetch(context.Background(), "kava", 1700000000)
	require.NoError(t, err)
	assert.Equal(t, model.DailyVolumeResult{DailyVolume: "42", Timestamp: 1700000000}, result)

	_, err = a.Fetch(context.Background(), "kava", 1600000000)
	assert.ErrorIs(t, err, ErrBeforeStart)
	assert.Equal(t, 1, v.calls)

	_, err = a.Fetch(context.Background(), "ethereum", 1700000000)
	assert.ErrorIs(t, err, ErrUnknownChain)
}
