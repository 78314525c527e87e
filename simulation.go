package perigee

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/fx"

	"github.com/dep2p/go-perigee/config"
	"github.com/dep2p/go-perigee/internal/core/metrics"
	"github.com/dep2p/go-perigee/internal/core/scheduler"
	"github.com/dep2p/go-perigee/internal/driver"
	"github.com/dep2p/go-perigee/internal/network"
	pkgperigee "github.com/dep2p/go-perigee/internal/protocol/perigee"
	pkgif "github.com/dep2p/go-perigee/pkg/interfaces"
	"github.com/dep2p/go-perigee/pkg/lib/log"
	"github.com/dep2p/go-perigee/pkg/types"
)

var logger = log.Logger("perigee")

// 生命周期超时
const (
	startTimeout = 30 * time.Second
	stopTimeout  = 10 * time.Second
)

// Report 一次运行的汇总
type Report = metrics.Report

// Round 单节点一轮校准的结果
type Round = pkgperigee.Round

// Simulation 一次仿真
//
// Simulation 的方法不能并发调用；事件总线订阅可以在其他 goroutine 中消费。
type Simulation struct {
	mu     sync.Mutex
	runID  string
	cfg    *config.Config
	app    *fx.App
	closed bool

	sched *scheduler.Scheduler
	net   *network.Network
	coll  *metrics.Collector
	drv   *driver.Driver
	bus   pkgif.EventBus
}

// New 创建仿真：合并配置、组装组件并建立初始拓扑
//
// 示例：
//
//	sim, err := perigee.New(
//	    perigee.WithPreset(config.PresetCR),
//	    perigee.WithOutputBase("out/cr"),
//	)
func New(opts ...Option) (*Simulation, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	cfg, err := o.toConfig()
	if err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	sim := &Simulation{runID: o.runID, cfg: cfg}
	if sim.runID == "" {
		sim.runID = uuid.NewString()
	}

	app := buildFxApp(o, cfg, sim)
	if err := app.Err(); err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		return nil, fmt.Errorf("start fx app: %w", err)
	}
	sim.app = app

	logger.Info("仿真已创建",
		"run", sim.runID,
		"preset", cfg.Preset,
		"nodes", cfg.Run.Nodes,
		"overlay", cfg.Overlay.Kind,
		"seed", cfg.Run.Seed)
	return sim, nil
}

// RunID 运行 ID
func (s *Simulation) RunID() string {
	return s.runID
}

// Config 生效配置的副本
func (s *Simulation) Config() *config.Config {
	return s.cfg.Clone()
}

// Size 网络规模
func (s *Simulation) Size() int {
	return s.net.Size()
}

// Now 当前虚拟时间
func (s *Simulation) Now() types.Tick {
	return s.sched.Now()
}

// EventBus 仿真使用的事件总线
func (s *Simulation) EventBus() pkgif.EventBus {
	return s.bus
}

// Run 运行仿真直到出块结束、达到时间上限或 ctx 取消
//
// 每个 Simulation 只能运行一次；出错时同样返回已收集的汇总。
func (s *Simulation) Run(ctx context.Context) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return s.drv.Run(ctx)
}

// Advance 只处理虚拟时间 until 之前的事件
//
// 与 GenerateBlock、Calibrate 配合可以手动推进仿真，出块控制器同样会运行。
func (s *Simulation) Advance(ctx context.Context, until types.Tick) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.sched.Run(ctx, until)
}

// GenerateBlock 在节点上立即生成区块，不经过出块控制器
//
// 区块 ID 由调用方保证唯一。
func (s *Simulation) GenerateBlock(node types.NodeID, block types.BlockID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.coll.ReportMiner(block, node)
	return s.net.GenerateBlock(node, block)
}

// Validated 节点是否已校验区块
func (s *Simulation) Validated(node types.NodeID, block types.BlockID) bool {
	return s.net.Validated(node, block)
}

// Calibrate 立即对全部节点执行一轮校准，静态拓扑返回 nil
func (s *Simulation) Calibrate() []Round {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	rounds := s.net.Calibrate()
	for _, r := range rounds {
		s.coll.RecordRound(len(r.Dropped), len(r.Added), r.Starved)
	}
	return rounds
}

// Close 停止 Fx 应用，注销指标并关闭自有事件总线
func (s *Simulation) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := s.app.Stop(ctx); err != nil {
		logger.Warn("停止 Fx 应用失败", "run", s.runID, "err", err)
		return err
	}
	logger.Debug("仿真已关闭", "run", s.runID)
	return nil
}
