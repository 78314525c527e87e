package transport

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-perigee/pkg/types"
)

type payload bool

func (p payload) CarriesBody() bool { return bool(p) }

type scheduled struct {
	delay    types.Tick
	to, from types.NodeID
	ev       any
}

type fakeSink struct {
	events []scheduled
}

func (s *fakeSink) Schedule(delay types.Tick, to, from types.NodeID, ev any) error {
	s.events = append(s.events, scheduled{delay, to, from, ev})
	return nil
}

const matrixText = `
# 三个路由器
0  10 20
10 0  -1
20 30 0
`

func TestLoadMatrix(t *testing.T) {
	m, err := LoadMatrix(strings.NewReader(matrixText))
	require.NoError(t, err)
	assert.Equal(t, 3, m.Size())
	assert.Equal(t, types.Tick(10), m.Latency(0, 1))
	assert.Equal(t, types.Tick(-1), m.Latency(1, 2))
	assert.Equal(t, types.Tick(30), m.Latency(2, 1))

	// 节点按 id % 3 映射到路由器
	assert.Equal(t, 1, m.Router(4))
	assert.Equal(t, types.Tick(20), m.NodeLatency(3, 5))
	assert.Equal(t, types.Tick(40), m.RTT(0, 2))

	t.Run("invalid", func(t *testing.T) {
		for name, text := range map[string]string{
			"empty":      "# nothing\n",
			"ragged":     "0 1\n1\n",
			"not square": "0 1 2\n1 0 2\n",
			"bad number": "0 x\n1 0\n",
		} {
			_, err := LoadMatrix(strings.NewReader(text))
			assert.ErrorIs(t, err, ErrInvalidMatrix, name)
		}
	})
}

func TestSyntheticMatrix(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	m := SyntheticMatrix(50, 5, 150, rng)
	require.Equal(t, 50, m.Size())
	for i := 0; i < 50; i++ {
		for j := 0; j < 50; j++ {
			lat := m.Latency(i, j)
			assert.Equal(t, lat, m.Latency(j, i), "矩阵对称")
			assert.GreaterOrEqual(t, lat, types.Tick(5))
			assert.LessOrEqual(t, lat, types.Tick(150))
		}
	}

	again := SyntheticMatrix(50, 5, 150, rand.New(rand.NewSource(1)))
	assert.Equal(t, m.lat, again.lat, "相同种子生成相同矩阵")
}

func newTestTransport(t *testing.T, cfg *Config) (*Transport, *fakeSink) {
	t.Helper()
	m, err := LoadMatrix(strings.NewReader(matrixText))
	require.NoError(t, err)
	sink := &fakeSink{}
	tr, err := New(cfg, m, sink, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	return tr, sink
}

func TestTransport_Delay(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExtraRoundTrips = 2
	tr, _ := newTestTransport(t, cfg)

	assert.Equal(t, types.Tick(10), tr.Delay(0, 1, false))
	assert.Equal(t, types.Tick(50), tr.Delay(0, 1, true), "区块体时延 ×(1+2×2)")
	assert.Equal(t, types.Tick(-1), tr.Delay(1, 2, true), "中断链路不放大")

	cfg = DefaultConfig()
	cfg.ProcessingMin = 7
	cfg.ProcessingMax = 8
	tr, _ = newTestTransport(t, cfg)
	assert.Equal(t, types.Tick(17), tr.Delay(0, 1, true), "区块体计入发送方处理时间")
	assert.Equal(t, types.Tick(10), tr.Delay(0, 1, false))
}

func TestTransport_Send(t *testing.T) {
	tr, sink := newTestTransport(t, DefaultConfig())

	require.NoError(t, tr.Send(0, 2, payload(false)))
	require.NoError(t, tr.Send(2, 1, payload(true)))
	require.NoError(t, tr.Send(1, 2, payload(false)))

	require.Len(t, sink.events, 2)
	assert.Equal(t, scheduled{20, 2, 0, payload(false)}, sink.events[0])
	assert.Equal(t, scheduled{30, 1, 2, payload(true)}, sink.events[1])

	assert.Equal(t, Stats{Sent: 3, Bodies: 1, Broken: 1}, tr.Stats())
}

func TestTransport_Failures(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FailurePercent = 100
	tr, sink := newTestTransport(t, cfg)
	for i := 0; i < 10; i++ {
		require.NoError(t, tr.Send(0, 1, payload(false)))
	}
	assert.Empty(t, sink.events)
	assert.Equal(t, uint64(10), tr.Stats().Dropped)

	cfg.FailurePercent = 30
	tr, sink = newTestTransport(t, cfg)
	for i := 0; i < 1000; i++ {
		require.NoError(t, tr.Send(0, 1, payload(false)))
	}
	dropped := tr.Stats().Dropped
	assert.InDelta(t, 300, float64(dropped), 80)
	assert.Len(t, sink.events, 1000-int(dropped))
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"no routers", func(c *Config) { c.Routers = 0 }},
		{"inverted latency", func(c *Config) { c.MinLatency, c.MaxLatency = 10, 5 }},
		{"negative trips", func(c *Config) { c.ExtraRoundTrips = -1 }},
		{"failure above 100", func(c *Config) { c.FailurePercent = 101 }},
		{"negative processing", func(c *Config) { c.ProcessingMin = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	_, err := New(DefaultConfig(), nil, &fakeSink{}, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = New(DefaultConfig(), NewMatrix(1), nil, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrNilSink)
}

func TestBuildMatrix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latency.txt")
	require.NoError(t, os.WriteFile(path, []byte(matrixText), 0o644))

	cfg := DefaultConfig()
	cfg.MatrixFile = path
	m, err := BuildMatrix(cfg, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 3, m.Size())

	cfg.MatrixFile = filepath.Join(t.TempDir(), "missing.txt")
	_, err = BuildMatrix(cfg, rand.New(rand.NewSource(1)))
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.Routers = 4
	m, err = BuildMatrix(cfg, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 4, m.Size())
}
