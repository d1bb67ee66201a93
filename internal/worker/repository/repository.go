package repository

import (
	"equilibre-volume/internal/worker/config"
	"equilibre-volume/pkg/evm_client"
	"equilibre-volume/pkg/llama"

	"go.uber.org/zap"
)

func New(cfg config.Config, logger *zap.Logger) Repository {
	r := &repositoryImpl{
		cfg:    cfg,
		logger: logger,
	}
	r.init()
	return r
}

type repositoryImpl struct {
	cfg         config.Config
	logger      *zap.Logger
	chainClient *evm_client.Client
	llamaClient *llama.Client
}

func (r *repositoryImpl) init() {
	// 初始化 evm client，工厂合约与交易对共用一份 ABI
	eth := evm_client.Init(r.cfg.Chain.RpcUrl)
	r.chainClient = evm_client.NewClient(
		eth,
		evm_client.MustParseABI(evm_client.PairFactoryABI),
		r.cfg.Chain.BatchSize,
		r.cfg.Worker.WorkerNum,
		r.logger,
	)

	// 初始化价格与区块查询
	r.llamaClient = llama.NewClient(r.cfg.Price, r.logger)

	r.logger.Info("Repository initialized",
		zap.String("chain", r.cfg.Chain.Name),
		zap.String("rpc_url", r.cfg.Chain.RpcUrl),
		zap.String("price_base_url", r.cfg.Price.BaseURL))
}

func (r *repositoryImpl) GetChainClient() *evm_client.Client {
	return r.chainClient
}

func (r *repositoryImpl) GetLlamaClient() *llama.Client {
	return r.llamaClient
}

func (r *repositoryImpl) Close() error {
	r.chainClient.Close()
	if err := r.llamaClient.Close(); err != nil {
		r.logger.Warn("close llama client failed", zap.Error(err))
		return err
	}
	r.logger.Info("Repository closed")
	return nil
}
