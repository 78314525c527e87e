package metrics

import (
	"log/slog"
	"slices"
	"time"

	"github.com/dep2p/go-perigee/pkg/types"
)

// Report 一次运行的汇总
type Report struct {
	// 运行信息
	RunID    string        `json:"runId"`
	Nodes    int           `json:"nodes"`
	SimTime  types.Tick    `json:"simTime"`
	Events   uint64        `json:"events"`
	WallTime time.Duration `json:"wallTime"`

	// 仿真时钟上的起止时间（仿真起点 + 虚拟时间）
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	// 区块
	Blocks   int `json:"blocks"`
	OnChain  int `json:"onChain"`
	OffChain int `json:"offChain"`
	Complete int `json:"complete"`

	// 交付
	Deliveries       uint64     `json:"deliveries"`
	HeaderDeliveries uint64     `json:"headerDeliveries"`
	MeanDelay        float64    `json:"meanDelay"`
	P50              types.Tick `json:"p50"`
	P90              types.Tick `json:"p90"`
	P99              types.Tick `json:"p99"`
	MaxDelay         types.Tick `json:"maxDelay"`

	// 校准
	Rounds  int `json:"rounds"`
	Dropped int `json:"dropped"`
	Added   int `json:"added"`
	Starved int `json:"starved"`
}

// Report 生成累计汇总（运行信息由调用方填写）
func (c *Collector) Report() *Report {
	r := &Report{
		Nodes:            c.size,
		Blocks:           c.mined,
		OnChain:          c.onChain,
		OffChain:         c.offChain,
		Complete:         c.complete,
		Deliveries:       c.deliveries,
		HeaderDeliveries: c.headerDeliveries,
		Rounds:           c.rounds,
		Dropped:          c.dropped,
		Added:            c.added,
		Starved:          c.starved,
	}
	if len(c.allTimes) == 0 {
		return r
	}

	sorted := slices.Clone(c.allTimes)
	slices.Sort(sorted)
	var sum float64
	for _, t := range sorted {
		sum += float64(t)
	}
	r.MeanDelay = sum / float64(len(sorted))
	r.P50 = percentile(sorted, 50)
	r.P90 = percentile(sorted, 90)
	r.P99 = percentile(sorted, 99)
	r.MaxDelay = sorted[len(sorted)-1]
	return r
}

// percentile 已排序切片的百分位（最近秩）
func percentile(sorted []types.Tick, p int) types.Tick {
	i := p * len(sorted) / 100
	return sorted[min(i, len(sorted)-1)]
}

// LogValue 实现 slog.LogValuer
func (r *Report) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("run", r.RunID),
		slog.Int("nodes", r.Nodes),
		slog.Int("blocks", r.Blocks),
		slog.Int("onChain", r.OnChain),
		slog.Int("offChain", r.OffChain),
		slog.Int("complete", r.Complete),
		slog.Float64("meanDelay", r.MeanDelay),
		slog.Int64("p50", int64(r.P50)),
		slog.Int64("p90", int64(r.P90)),
		slog.Int("rounds", r.Rounds),
		slog.Uint64("events", r.Events),
		slog.Duration("wall", r.WallTime),
		slog.Time("finishedAt", r.FinishedAt),
	)
}
