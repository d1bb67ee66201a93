package service

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// word 把十进制数编码为 64 位十六进制
func word(t *testing.T, dec string) string {
	t.Helper()
	v, ok := new(big.Int).SetString(dec, 10)
	require.True(t, ok)
	s := v.Text(16)
	return strings.Repeat("0", 64-len(s)) + s
}

func swapData(t *testing.T, amount0In, amount1In, amount0Out, amount1Out string) string {
	return "0x" + word(t, amount0In) + word(t, amount1In) + word(t, amount0Out) + word(t, amount1Out)
}

func TestDecodeSwap(t *testing.T) {
	data := swapData(t, "0", "1500000", "2000000000000000000", "0")

	ev, err := DecodeSwap(data)
	require.NoError(t, err)
	assert.Equal(t, "0", ev.Amount0In.String())
	assert.Equal(t, "1500000", ev.Amount1In.String())
	assert.Equal(t, "2000000000000000000", ev.Amount0Out.String())
	assert.Equal(t, "0", ev.Amount1Out.String())

	// 无 0x 前缀结果一致
	again, err := DecodeSwap(strings.TrimPrefix(data, "0x"))
	require.NoError(t, err)
	assert.Equal(t, ev, again)
}

func TestDecodeSwapMaxUint256(t *testing.T) {
	maxWord := strings.Repeat("f", 64)
	ev, err := DecodeSwap("0x" + maxWord + maxWord + maxWord + maxWord)
	require.NoError(t, err)

	maxUint256 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	assert.Equal(t, 0, maxUint256.Cmp(ev.Amount0In))
	assert.Equal(t, 0, maxUint256.Cmp(ev.Amount1Out))
	assert.Equal(t, "0", new(big.Int).Sub(ev.Amount0(), new(big.Int).Lsh(maxUint256, 1)).String())
}

func TestDecodeSwapUpperCaseAndExtraWords(t *testing.T) {
	data := swapData(t, "255", "0", "0", "1")
	upper := "0x" + strings.ToUpper(strings.TrimPrefix(data, "0x"))

	ev, err := DecodeSwap(upper + word(t, "99"))
	require.NoError(t, err)
	assert.Equal(t, "255", ev.Amount0In.String())
	assert.Equal(t, "1", ev.Amount1Out.String())
}

func TestDecodeSwapMalformed(t *testing.T) {
	cases := map[string]string{
		"empty":       "0x",
		"short":       "0x" + strings.Repeat("0", 255),
		"three words": "0x" + strings.Repeat("0", 192),
		"not hex":     "0x" + strings.Repeat("0", 200) + strings.Repeat("zz", 28),
		"signed":      "0x-" + strings.Repeat("0", 255),
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeSwap(data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedSwapData))

			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.NotEmpty(t, decodeErr.Reason)
		})
	}
}

func TestDecodeSwapDeterministic(t *testing.T) {
	data := swapData(t, "123456789012345678901234567890", "0", "0", "42")
	first, err := DecodeSwap(data)
	require.NoError(t, err)
	for range 5 {
		next, err := DecodeSwap(data)
		require.NoError(t, err)
		assert.Equal(t, first, next)
	}
}
