package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-perigee/config"
	"github.com/dep2p/go-perigee/internal/core/eventbus"
	"github.com/dep2p/go-perigee/internal/core/metrics"
	"github.com/dep2p/go-perigee/internal/core/scheduler"
	"github.com/dep2p/go-perigee/internal/network"
	pkgif "github.com/dep2p/go-perigee/pkg/interfaces"
	"github.com/dep2p/go-perigee/pkg/lib/log"
	"github.com/dep2p/go-perigee/pkg/types"
)

var logger = log.Logger("driver")

// 控制器名称
const (
	ControlMining      = "mining"
	ControlCalibration = "calibration"
	ControlStats       = "stats"
)

// Deps Driver 依赖
type Deps struct {
	// RunID 运行 ID
	RunID string

	// Config 统一配置（必需）
	Config *config.Config

	// Scheduler 调度器（必需）
	Scheduler *scheduler.Scheduler

	// Network 仿真网络（必需）
	Network *network.Network

	// Collector 统计收集器（必需）
	Collector *metrics.Collector

	// Output 统计输出，nil 表示不写文件
	Output *metrics.Output

	// Bus 事件总线，nil 表示不发布事件
	Bus pkgif.EventBus
}

// Driver 仿真运行器
type Driver struct {
	runID string
	cfg   *config.Config
	sched *scheduler.Scheduler
	net   *network.Network
	coll  *metrics.Collector
	out   *metrics.Output

	gen *BlockGenerator
	cal *Calibration

	events *eventbus.RunEmitters

	ran bool
}

// New 创建运行器并在调度器上注册控制器
func New(d Deps) (*Driver, error) {
	if d.Config == nil || d.Scheduler == nil || d.Network == nil || d.Collector == nil {
		return nil, fmt.Errorf("%w: config, scheduler, network and collector are required", ErrInvalidConfig)
	}
	run := d.Config.Run

	drv := &Driver{
		runID: d.RunID,
		cfg:   d.Config,
		sched: d.Scheduler,
		net:   d.Network,
		coll:  d.Collector,
		out:   d.Output,
	}
	d.Network.AddObserver(d.Collector)

	gen, err := NewBlockGenerator(BlockConfig{
		Blocks: run.Blocks,
		Skip:   run.Skip,
		Drain:  run.Drain.Ticks(),
	}, d.Network, d.Collector, run.MinerRand())
	if err != nil {
		return nil, err
	}
	gen.clock = d.Scheduler.Clock()
	drv.gen = gen
	if err := d.Scheduler.AddControl(ControlMining, gen, 0, run.BlockInterval.Ticks()); err != nil {
		return nil, err
	}

	if interval := d.Config.Overlay.CalibrationInterval.Ticks(); d.Network.IsPerigee() && interval > 0 {
		drv.cal = NewCalibration(d.Network, d.Collector)
		drv.cal.clock = d.Scheduler.Clock()
		if err := d.Scheduler.AddControl(ControlCalibration, drv.cal, interval, interval); err != nil {
			return nil, err
		}
	}

	if interval := d.Config.Stats.FlushInterval.Ticks(); d.Output != nil && interval > 0 {
		if err := d.Scheduler.AddControl(ControlStats, NewStatsFlush(d.Collector, d.Output), interval, interval); err != nil {
			return nil, err
		}
	}

	if d.Bus != nil {
		events, err := eventbus.OpenRunEmitters(d.Bus, drv.cal != nil)
		if err != nil {
			return nil, err
		}
		drv.events = events
		drv.gen.events = events
		if drv.cal != nil {
			drv.cal.events = events
		}
	}
	return drv, nil
}

// RunID 运行 ID
func (d *Driver) RunID() string {
	return d.runID
}

// Generator 出块控制器
func (d *Driver) Generator() *BlockGenerator {
	return d.gen
}

// Calibration 校准控制器，静态拓扑或未启用周期校准时返回 nil
func (d *Driver) Calibration() *Calibration {
	return d.cal
}

// Run 运行仿真直到出块结束、达到时间上限或 ctx 取消
//
// 出错时同样返回已收集的汇总。
func (d *Driver) Run(ctx context.Context) (*metrics.Report, error) {
	if d.ran {
		return nil, ErrAlreadyRan
	}
	d.ran = true

	logger.Info("仿真开始",
		"run", d.runID,
		"nodes", d.net.Size(),
		"blocks", d.cfg.Run.Blocks,
		"perigee", d.net.IsPerigee())

	simClock := d.sched.Clock()
	startedAt := simClock.Now()
	start := time.Now()
	err := d.sched.Run(ctx, d.cfg.Run.Until.Ticks())
	if err == nil && d.out != nil {
		err = d.coll.WriteAll(d.out, d.cfg.Run.BlockInterval.Ticks())
	}

	r := d.coll.Report()
	r.RunID = d.runID
	r.SimTime = d.sched.Now()
	r.Events = d.sched.Processed()
	r.WallTime = time.Since(start)
	r.StartedAt = startedAt
	r.FinishedAt = simClock.Now()

	if emitErr := d.events.RunFinished(types.EvtRunFinished{
		BaseEvent: types.NewBaseEventAt(types.EventTypeRunFinished, r.SimTime, r.FinishedAt),
		RunID:     d.runID,
		Blocks:    d.gen.Generated(),
		Events:    r.Events,
		Err:       err,
	}); emitErr != nil {
		logger.Warn("发布结束事件失败", "run", d.runID, "err", emitErr)
	}

	if err != nil {
		logger.Error("仿真失败", "run", d.runID, "at", r.SimTime, "err", err)
		return r, err
	}
	logger.Info("仿真结束", "report", r)
	return r, nil
}

// Close 关闭事件发射器
func (d *Driver) Close() error {
	return d.events.Close()
}

// stamp 以仿真时钟换算事件时间戳，控制器执行前调度器已同步时钟
func stamp(c clock.Clock, eventType string, now types.Tick) types.BaseEvent {
	if c == nil {
		return types.NewBaseEvent(eventType, now)
	}
	return types.NewBaseEventAt(eventType, now, c.Now())
}
