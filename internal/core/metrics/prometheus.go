package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/dep2p/go-perigee/internal/core/transport"
	"github.com/dep2p/go-perigee/pkg/types"
)

const namespace = "perigee"

var errNotRegistered = errors.New("metrics: collector was not registered")

// Prometheus 仿真指标
//
// 全部方法对 nil 接收者安全。
type Prometheus struct {
	reg        prometheus.Registerer
	labels     prometheus.Labels
	collectors []prometheus.Collector

	blocks  prometheus.Counter
	headers prometheus.Counter
	bodies  prometheus.Counter
	latency prometheus.Histogram
	hops    prometheus.Histogram

	rounds  prometheus.Counter
	drops   prometheus.Counter
	adds    prometheus.Counter
	starved prometheus.Counter
}

// NewPrometheus 在 reg 上注册仿真指标
//
// labels 作为常量标签附加到每个指标上，同一 Registerer 上的多次运行须使用不同的标签值。
func NewPrometheus(reg prometheus.Registerer, labels prometheus.Labels) (*Prometheus, error) {
	counter := func(subsystem, name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}

	p := &Prometheus{
		reg:     reg,
		labels:  labels,
		blocks:  counter("sim", "blocks_generated_total", "Total blocks generated by miners."),
		headers: counter("sim", "header_deliveries_total", "Total header arrivals, including duplicates."),
		bodies:  counter("sim", "body_validations_total", "Total first-time block validations across all nodes."),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "sim",
			Name:        "delivery_delay_ms",
			Help:        "Virtual milliseconds from block generation to validation at each node.",
			Buckets:     prometheus.ExponentialBuckets(10, 1.5, 16),
			ConstLabels: labels,
		}),
		hops: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "sim",
			Name:        "delivery_hops",
			Help:        "Hop count at which each node validated a block.",
			Buckets:     prometheus.LinearBuckets(0, 1, 16),
			ConstLabels: labels,
		}),
		rounds:  counter("overlay", "calibration_rounds_total", "Total per-node calibration rounds."),
		drops:   counter("overlay", "dropped_links_total", "Total selected peers dropped during calibration."),
		adds:    counter("overlay", "added_links_total", "Total selected peers added during calibration."),
		starved: counter("overlay", "starved_rounds_total", "Calibration rounds that could not refill the selected set."),
	}

	if err := p.register(p.blocks, p.headers, p.bodies, p.latency, p.hops,
		p.rounds, p.drops, p.adds, p.starved); err != nil {
		p.Unregister()
		return nil, err
	}
	return p, nil
}

func (p *Prometheus) register(cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := p.reg.Register(c); err != nil {
			return err
		}
		p.collectors = append(p.collectors, c)
	}
	return nil
}

// WatchTransport 以 CounterFunc 导出传输层计数，常量标签与仿真指标相同
func (p *Prometheus) WatchTransport(stats func() transport.Stats) error {
	if p == nil {
		return nil
	}
	counterFunc := func(name, help string, get func(transport.Stats) uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "transport",
			Name:        name,
			Help:        help,
			ConstLabels: p.labels,
		}, func() float64 { return float64(get(stats())) })
	}
	return p.register(
		counterFunc("sent_total", "Messages handed to the transport.", func(s transport.Stats) uint64 { return s.Sent }),
		counterFunc("bodies_total", "Block body messages handed to the transport.", func(s transport.Stats) uint64 { return s.Bodies }),
		counterFunc("dropped_total", "Messages dropped by random failures.", func(s transport.Stats) uint64 { return s.Dropped }),
		counterFunc("broken_total", "Messages dropped on broken links.", func(s transport.Stats) uint64 { return s.Broken }),
	)
}

// Unregister 注销全部指标
func (p *Prometheus) Unregister() error {
	if p == nil {
		return nil
	}
	var err error
	for _, c := range p.collectors {
		if !p.reg.Unregister(c) {
			err = multierr.Append(err, errNotRegistered)
		}
	}
	p.collectors = nil
	return err
}

func (p *Prometheus) blockGenerated() {
	if p != nil {
		p.blocks.Inc()
	}
}

func (p *Prometheus) headerDelivered() {
	if p != nil {
		p.headers.Inc()
	}
}

func (p *Prometheus) bodyValidated(elapsed types.Tick, hops int) {
	if p != nil {
		p.bodies.Inc()
		p.latency.Observe(float64(elapsed))
		p.hops.Observe(float64(hops))
	}
}

func (p *Prometheus) calibrationRound(dropped, added int, starved bool) {
	if p == nil {
		return
	}
	p.rounds.Inc()
	p.drops.Add(float64(dropped))
	p.adds.Add(float64(added))
	if starved {
		p.starved.Inc()
	}
}
