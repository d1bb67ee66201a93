package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"equilibre-volume/pkg/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "./config/config.worker.yaml"

	MalformedLogSkip     = "skip_log"
	MalformedLogDropPool = "drop_pool"
)

// Config 定义整个配置的结构
type Config struct {
	Log     LogConfig     `mapstructure:"log"`
	Chain   ChainConfig   `mapstructure:"chain"`
	Price   PriceConfig   `mapstructure:"price"`
	Volume  VolumeConfig  `mapstructure:"volume"`
	Worker  WorkerConfig  `mapstructure:"worker"`
	Job     JobConfig     `mapstructure:"job"`
	Monitor MonitorConfig `mapstructure:"monitor"`
}

// LogConfig Log 日志配置
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// ChainConfig 链与工厂合约配置
type ChainConfig struct {
	Name           string `mapstructure:"name"`
	RpcUrl         string `mapstructure:"rpc_url"`
	FactoryAddress string `mapstructure:"factory_address"`
	SwapTopic      string `mapstructure:"swap_topic"`
	StartTimestamp int64  `mapstructure:"start_timestamp"`
	BatchSize      int    `mapstructure:"batch_size"` // 单次 JSON-RPC batch 中的 eth_call 数量
}

// PriceConfig 价格预言机（DefiLlama coins API）配置
type PriceConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	RateLimit int    `mapstructure:"rate_limit"` // 每分钟请求次数
	Timeout   int    `mapstructure:"timeout"`    // 秒
	ChunkSize int    `mapstructure:"chunk_size"` // 单次查询的代币数量
}

type VolumeConfig struct {
	MalformedLogPolicy string `mapstructure:"malformed_log_policy"`
}

type WorkerConfig struct {
	WorkerNum int `mapstructure:"worker_num"`
}

type JobConfig struct {
	Interval int `mapstructure:"interval"` // 秒
}

type MonitorConfig struct {
	Enable         bool   `mapstructure:"enable"`
	PrometheusAddr string `mapstructure:"prometheus_addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("chain.name", "kava")
	v.SetDefault("chain.rpc_url", "https://evm.kava.io")
	v.SetDefault("chain.factory_address", "0xA138FAFc30f6Ec6980aAd22656F2F11C38B56a95")
	v.SetDefault("chain.swap_topic", "0xd78ad95fa46c994b6551d0da85fc275fe613ce37657fb8d5e3d130840159d822")
	v.SetDefault("chain.start_timestamp", 1677888000)
	v.SetDefault("chain.batch_size", 100)
	v.SetDefault("price.base_url", "https://coins.llama.fi")
	v.SetDefault("price.rate_limit", 300)
	v.SetDefault("price.timeout", 30)
	v.SetDefault("price.chunk_size", 100)
	v.SetDefault("volume.malformed_log_policy", MalformedLogSkip)
	v.SetDefault("worker.worker_num", 10)
	v.SetDefault("job.interval", 3600)
	v.SetDefault("monitor.enable", false)
}

// LoadConfig 从指定文件读取配置
func LoadConfig(path string) (Config, error) {
	var config Config

	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType(strings.TrimPrefix(filepath.Ext(path), "."))

	if err := v.ReadInConfig(); err != nil {
		return config, fmt.Errorf("read config file: %w", err)
	}

	if err := mapstructure.Decode(v.AllSettings(), &config); err != nil {
		return config, fmt.Errorf("decode config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return config, err
	}

	return config, nil
}

// Validate 校验必填项
func (c Config) Validate() error {
	if c.Chain.Name == "" {
		return fmt.Errorf("chain.name is required")
	}
	if c.Chain.FactoryAddress == "" {
		return fmt.Errorf("chain.factory_address is required")
	}
	if c.Chain.SwapTopic == "" {
		return fmt.Errorf("chain.swap_topic is required")
	}
	if c.Worker.WorkerNum < 1 {
		return fmt.Errorf("worker.worker_num must be positive, got %d", c.Worker.WorkerNum)
	}
	switch c.Volume.MalformedLogPolicy {
	case MalformedLogSkip, MalformedLogDropPool:
	default:
		return fmt.Errorf("unknown volume.malformed_log_policy %q", c.Volume.MalformedLogPolicy)
	}
	return nil
}

func InitConfig() Config {
	config, err := LoadConfig(defaultConfigPath)
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s", err))
	}

	return config
}

func WatchConfig(config *Config) {
	viper.SetConfigFile(defaultConfigPath)
	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		newConfig, err := LoadConfig(e.Name)
		if err != nil {
			return
		}
		*config = newConfig
		logger.SetLogLevel(config.Log.Level)
	})
}
