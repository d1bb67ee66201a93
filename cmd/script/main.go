package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"equilibre-volume/internal/worker"
	"equilibre-volume/internal/worker/config"
	"equilibre-volume/internal/worker/repository"
	"equilibre-volume/pkg/logger"
	"equilibre-volume/pkg/utils"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// 一次性任务：计算指定时间戳（默认最近一个 UTC 零点）之前 24 小时的成交量并输出 JSON
//
//	go run ./cmd/script [timestamp]

func main() {
	startTime := time.Now()
	cfg := config.InitConfig()

	logger.InitTrace("equilibre-volume", "script")
	ctx, span := logger.StartSpan(context.Background(), "main", "main")
	defer span.End()

	rootLogger := logger.NewLogger("script")
	logger.SetLogLevel(cfg.Log.Level)
	tl := logger.WithTrace(ctx, rootLogger)

	timestamp := utils.LastDayStart(time.Now())
	if len(os.Args) > 1 {
		ts, err := strconv.ParseInt(os.Args[1], 10, 64)
		if err != nil || !utils.IsUnixSeconds(ts) {
			tl.Error("Invalid timestamp argument", zap.String("arg", os.Args[1]))
			os.Exit(2)
		}
		timestamp = ts
	}

	repo := repository.New(cfg, tl)
	defer repo.Close()

	a, err := worker.NewAdapter(cfg, repo, tl)
	if err != nil {
		tl.Error("Failed to register adapter", zap.Error(err))
		os.Exit(1)
	}

	result, err := a.Fetch(ctx, cfg.Chain.Name, timestamp)
	if err != nil {
		tl.Error("Failed to compute daily volume", zap.Error(err))
		os.Exit(1)
	}

	out, err := sonic.Marshal(result)
	if err != nil {
		tl.Error("Failed to encode result", zap.Error(err))
		os.Exit(1)
	}
	fmt.Println(string(out))
	tl.Info("Task completed successfully", zap.Duration("taken_time", time.Since(startTime)))
}
