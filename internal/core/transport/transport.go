package transport

import (
	"fmt"
	"math/rand"
	"sync/atomic"

	"github.com/dep2p/go-perigee/pkg/lib/log"
	"github.com/dep2p/go-perigee/pkg/types"
)

var logger = log.Logger("core/transport")

// Payload 可被传输的消息
type Payload interface {
	// CarriesBody 是否为区块体等大消息
	CarriesBody() bool
}

// Sink 消息到达时的投递目标（由调度器实现）
type Sink interface {
	Schedule(delay types.Tick, to, from types.NodeID, ev any) error
}

// Stats 传输计数快照
type Stats struct {
	Sent    uint64
	Bodies  uint64
	Dropped uint64
	Broken  uint64
}

// Transport 基于路由器时延矩阵的仿真传输层
//
// 发送方路由器到接收方路由器的时延决定到达时间；区块体额外计入
// 2*ExtraRoundTrips 倍时延与发送方处理时间。
type Transport struct {
	cfg        *Config
	matrix     *Matrix
	sink       Sink
	rng        *rand.Rand
	processing []types.Tick

	sent    atomic.Uint64
	bodies  atomic.Uint64
	dropped atomic.Uint64
	broken  atomic.Uint64
}

// New 创建传输层
func New(cfg *Config, matrix *Matrix, sink Sink, rng *rand.Rand) (*Transport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if matrix == nil || matrix.Size() == 0 {
		return nil, fmt.Errorf("%w: no latency matrix", ErrInvalidConfig)
	}
	if sink == nil {
		return nil, ErrNilSink
	}
	t := &Transport{
		cfg:    cfg,
		matrix: matrix,
		sink:   sink,
		rng:    rng,
	}
	if cfg.processingEnabled() {
		t.processing = make([]types.Tick, matrix.Size())
		span := int(cfg.ProcessingMax - cfg.ProcessingMin)
		for i := range t.processing {
			t.processing[i] = cfg.ProcessingMin + types.Tick(rng.Intn(span))
		}
	}
	logger.Debug("传输层已创建",
		"routers", matrix.Size(),
		"extraRoundTrips", cfg.ExtraRoundTrips,
		"failurePercent", cfg.FailurePercent,
		"processing", cfg.processingEnabled())
	return t, nil
}

// Matrix 返回时延矩阵
func (t *Transport) Matrix() *Matrix {
	return t.matrix
}

// Delay 计算 from 到 to 的消息时延，负值表示链路中断
func (t *Transport) Delay(from, to types.NodeID, body bool) types.Tick {
	sender := t.matrix.Router(from)
	lat := t.matrix.Latency(sender, t.matrix.Router(to))
	if lat < 0 || !body {
		return lat
	}
	lat *= types.Tick(1 + 2*t.cfg.ExtraRoundTrips)
	if t.processing != nil {
		lat += t.processing[sender]
	}
	return lat
}

// Send 发送消息，丢失或链路中断时静默丢弃
func (t *Transport) Send(from, to types.NodeID, p Payload) error {
	t.sent.Add(1)
	body := p.CarriesBody()
	if body {
		t.bodies.Add(1)
	}

	if t.cfg.FailurePercent > 0 && t.rng.Intn(100) < t.cfg.FailurePercent {
		t.dropped.Add(1)
		return nil
	}
	delay := t.Delay(from, to, body)
	if delay < 0 {
		t.broken.Add(1)
		return nil
	}
	return t.sink.Schedule(delay, to, from, p)
}

// Stats 返回计数快照（可在其他 goroutine 中调用）
func (t *Transport) Stats() Stats {
	return Stats{
		Sent:    t.sent.Load(),
		Bodies:  t.bodies.Load(),
		Dropped: t.dropped.Load(),
		Broken:  t.broken.Load(),
	}
}

// BuildMatrix 按配置加载或生成时延矩阵
func BuildMatrix(cfg *Config, rng *rand.Rand) (*Matrix, error) {
	if cfg.MatrixFile != "" {
		m, err := LoadMatrixFile(cfg.MatrixFile)
		if err != nil {
			return nil, err
		}
		logger.Info("已加载时延矩阵", "file", cfg.MatrixFile, "routers", m.Size())
		return m, nil
	}
	return SyntheticMatrix(cfg.Routers, cfg.MinLatency, cfg.MaxLatency, rng), nil
}
