package evm_client

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// PairFactoryABI 工厂合约与交易对合约中用到的只读方法
const PairFactoryABI = `[
	{"type":"function","stateMutability":"view","name":"allPairsLength","inputs":[],"outputs":[{"name":"","type":"uint256","internalType":"uint256"}]},
	{"type":"function","stateMutability":"view","name":"allPairs","inputs":[{"name":"","type":"uint256","internalType":"uint256"}],"outputs":[{"name":"","type":"address","internalType":"address"}]},
	{"type":"function","stateMutability":"view","name":"token0","inputs":[],"outputs":[{"name":"","type":"address","internalType":"address"}]},
	{"type":"function","stateMutability":"view","name":"token1","inputs":[],"outputs":[{"name":"","type":"address","internalType":"address"}]}
]`

func MustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}
