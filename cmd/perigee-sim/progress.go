package main

import (
	"context"

	"github.com/dep2p/go-perigee/internal/core/eventbus"
	pkgif "github.com/dep2p/go-perigee/pkg/interfaces"
	"github.com/dep2p/go-perigee/pkg/types"
)

// progressInterval 每生成多少个区块输出一次进度
const progressInterval = 100

// progress 汇总全部运行的进度
type progress struct {
	generated int
}

func (p *progress) onBlock(evt types.EvtBlockGenerated) {
	p.generated++
	if p.generated%progressInterval == 0 {
		logger.Info("出块进度",
			"generated", p.generated,
			"block", evt.Block,
			"at", evt.At(),
			"time", evt.Timestamp)
	}
}

func (p *progress) onRound(evt types.EvtCalibrationRound) {
	logger.Debug("校准轮次",
		"round", evt.Round,
		"at", evt.At(),
		"dropped", evt.Dropped,
		"added", evt.Added,
		"starved", evt.Starved)
}

func (p *progress) onFinished(evt types.EvtRunFinished) {
	if evt.Err != nil {
		logger.Warn("运行结束", "run", evt.RunID, "blocks", evt.Blocks, "events", evt.Events, "err", evt.Err)
		return
	}
	logger.Info("运行结束", "run", evt.RunID, "blocks", evt.Blocks, "events", evt.Events, "finishedAt", evt.Timestamp)
}

// watchProgress 以运行事件输出进度日志，返回的函数停止订阅
func watchProgress(ctx context.Context, bus *eventbus.Bus) (func(), error) {
	p := &progress{}
	return eventbus.WatchRun(ctx, bus, eventbus.RunHandlers{
		OnBlock:    p.onBlock,
		OnRound:    p.onRound,
		OnFinished: p.onFinished,
	}, pkgif.BufSize(256), pkgif.Named("cli-progress"))
}
