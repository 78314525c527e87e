package driver

import (
	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-perigee/internal/core/eventbus"
	"github.com/dep2p/go-perigee/internal/protocol/perigee"
	"github.com/dep2p/go-perigee/pkg/types"
)

// Calibrator 全网校准视图
type Calibrator interface {
	Calibrate() []perigee.Round
}

// RoundRecorder 记录单节点校准结果
type RoundRecorder interface {
	RecordRound(dropped, added int, starved bool)
}

// Calibration 校准控制器
type Calibration struct {
	net    Calibrator
	stats  RoundRecorder
	events *eventbus.RunEmitters
	clock  clock.Clock
	rounds int
}

// NewCalibration 创建校准控制器，stats 可以为 nil
func NewCalibration(net Calibrator, stats RoundRecorder) *Calibration {
	return &Calibration{net: net, stats: stats}
}

// Rounds 已执行的全网轮次
func (c *Calibration) Rounds() int {
	return c.rounds
}

// Execute 实现 scheduler.Control
func (c *Calibration) Execute(now types.Tick) (bool, error) {
	rounds := c.net.Calibrate()
	c.rounds++

	evt := types.EvtCalibrationRound{
		BaseEvent: stamp(c.clock, types.EventTypeCalibrationRound, now),
		Round:     c.rounds,
	}
	for _, r := range rounds {
		evt.Dropped += len(r.Dropped)
		evt.Added += len(r.Added)
		if r.Starved {
			evt.Starved++
		}
		if c.stats != nil {
			c.stats.RecordRound(len(r.Dropped), len(r.Added), r.Starved)
		}
	}

	logger.Debug("全网校准完成",
		"round", c.rounds,
		"at", now,
		"dropped", evt.Dropped,
		"added", evt.Added,
		"starved", evt.Starved)

	if err := c.events.CalibrationRound(evt); err != nil {
		logger.Warn("发布校准事件失败", "round", c.rounds, "err", err)
	}
	return false, nil
}
