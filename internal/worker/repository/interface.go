package repository

import (
	"equilibre-volume/pkg/evm_client"
	"equilibre-volume/pkg/llama"
)

type Repository interface {
	GetChainClient() *evm_client.Client
	GetLlamaClient() *llama.Client
	Close() error
}
