package driver

import (
	"github.com/dep2p/go-perigee/internal/core/metrics"
	"github.com/dep2p/go-perigee/pkg/types"
)

// StatsFlush 周期输出垂直平均并清空统计窗口
type StatsFlush struct {
	coll *metrics.Collector
	out  *metrics.Output
}

// NewStatsFlush 创建统计输出控制器
func NewStatsFlush(coll *metrics.Collector, out *metrics.Output) *StatsFlush {
	return &StatsFlush{coll: coll, out: out}
}

// Execute 实现 scheduler.Control，时间 0 时统计窗口为空，不输出
func (f *StatsFlush) Execute(now types.Tick) (bool, error) {
	if now == 0 {
		return false, nil
	}
	return false, f.coll.Flush(f.out)
}
