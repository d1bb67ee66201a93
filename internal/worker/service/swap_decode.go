package service

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"equilibre-volume/internal/worker/model"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	swapWordHexLen = 64
	swapDataHexLen = 4 * swapWordHexLen
)

var ErrMalformedSwapData = errors.New("malformed swap data")

// DecodeError Swap 日志 data 无法解码
type DecodeError struct {
	Length int // 去掉 0x 之后的十六进制长度
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %s (hex length %d)", ErrMalformedSwapData, e.Reason, e.Length)
}

func (e *DecodeError) Unwrap() error {
	return ErrMalformedSwapData
}

// DecodeSwap 解析 Swap(amount0In, amount1In, amount0Out, amount1Out) 的 data 字段。
// data 为 4 个连续的 32 字节大端无符号整数，超出部分忽略。
func DecodeSwap(data string) (model.SwapEvent, error) {
	hexData := strings.TrimPrefix(strings.TrimPrefix(data, "0x"), "0X")
	if len(hexData) < swapDataHexLen {
		return model.SwapEvent{}, &DecodeError{Length: len(hexData), Reason: "payload shorter than 4 words"}
	}

	raw, err := hexutil.Decode("0x" + hexData[:swapDataHexLen])
	if err != nil {
		return model.SwapEvent{}, &DecodeError{Length: len(hexData), Reason: err.Error()}
	}

	var words [4]*big.Int
	for i := range words {
		words[i] = new(big.Int).SetBytes(raw[i*32 : (i+1)*32])
	}

	return model.SwapEvent{
		Amount0In:  words[0],
		Amount1In:  words[1],
		Amount0Out: words[2],
		Amount1Out: words[3],
	}, nil
}
