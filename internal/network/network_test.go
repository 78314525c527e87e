package network

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-perigee/internal/core/bootstrap"
	"github.com/dep2p/go-perigee/internal/core/scheduler"
	"github.com/dep2p/go-perigee/internal/core/transport"
	"github.com/dep2p/go-perigee/internal/protocol/dissemination"
	"github.com/dep2p/go-perigee/internal/protocol/perigee"
	"github.com/dep2p/go-perigee/pkg/types"
)

// recorder 记录区块体校验
type recorder struct {
	dissemination.NopObserver
	bodies map[types.NodeID]dissemination.Delivery
}

func newRecorder() *recorder {
	return &recorder{bodies: make(map[types.NodeID]dissemination.Delivery)}
}

func (r *recorder) BodyValidated(d dissemination.Delivery) {
	r.bodies[d.Node] = d
}

// newRuntime 单路由器矩阵：任意两节点间单向时延为 lat
func newRuntime(t *testing.T, lat types.Tick) (*scheduler.Scheduler, *transport.Transport) {
	t.Helper()
	sched := scheduler.New(scheduler.Epoch)
	m := transport.NewMatrix(1)
	m.Set(0, 0, lat)
	tr, err := transport.New(transport.DefaultConfig(), m, sched, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	return sched, tr
}

func staticConfig(nodes int) *Config {
	return &Config{
		Nodes:         nodes,
		Dissemination: dissemination.DefaultConfig(),
		Bootstrap:     &bootstrap.Config{},
	}
}

// TestNetwork_StaticLine 测试静态链路 0 -> 1 -> 2 上的传播时间
func TestNetwork_StaticLine(t *testing.T) {
	sched, tr := newRuntime(t, 10)
	net, err := New(staticConfig(3), sched, tr, tr.Matrix(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.False(t, net.IsPerigee())
	assert.Nil(t, net.Overlay())
	assert.Nil(t, net.Calibrate())

	// 1 以 0 为上游，2 以 1 为上游
	require.True(t, net.Node(1).link.AddNeighbor(0))
	require.True(t, net.Node(2).link.AddNeighbor(1))
	assert.Equal(t, 1, net.NumPeers(0))
	assert.Equal(t, 1, net.NumPeers(1))
	assert.Equal(t, 0, net.NumPeers(2))

	rec := newRecorder()
	net.AddObserver(rec)

	require.NoError(t, net.GenerateBlock(0, 0))
	require.NoError(t, sched.Run(context.Background(), 0))

	// 头部 10，请求 20，区块体 30，校验 130；下一跳再加 130
	require.Len(t, rec.bodies, 3)
	assert.Equal(t, types.Tick(0), rec.bodies[0].Elapsed)
	assert.Equal(t, types.Tick(130), rec.bodies[1].Elapsed)
	assert.Equal(t, types.Tick(260), rec.bodies[2].Elapsed)
	assert.Equal(t, 2, rec.bodies[2].Hops)
	assert.True(t, net.Validated(2, 0))
	assert.False(t, net.Validated(2, 1))
	assert.False(t, net.Validated(9, 0))

	stats := tr.Stats()
	assert.Equal(t, uint64(6), stats.Sent)
	assert.Equal(t, uint64(2), stats.Bodies)
}

// reachable 沿转发集合从 src 可达的节点数
func reachable(net *Network, src types.NodeID) int {
	seen := map[types.NodeID]bool{src: true}
	queue := []types.NodeID{src}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, p := range net.Node(id).Engine().Peers() {
			if !seen[p] {
				seen[p] = true
				queue = append(queue, p)
			}
		}
	}
	return len(seen)
}

// TestNetwork_Perigee 测试 Perigee 网络的组装、传播与校准
func TestNetwork_Perigee(t *testing.T) {
	sched, tr := newRuntime(t, 5)
	cfg := staticConfig(12)
	cfg.Perigee = &perigee.Config{
		NumOutgoing:       3,
		NumIncoming:       6,
		WeakestLinks:      1,
		Strategy:          perigee.StrategyRewardAllButLast,
		SubsetPercentile:  90,
		MaxRefillAttempts: 200,
	}
	cfg.Bootstrap = &bootstrap.Config{Random: 3}

	net, err := New(cfg, sched, tr, tr.Matrix(), rand.New(rand.NewSource(7)))
	require.NoError(t, err)
	require.True(t, net.IsPerigee())
	assert.Equal(t, 12, net.Size())
	assert.LessOrEqual(t, net.Bootstrap().RandomLinks, 12*3)

	checkSymmetric(t, net)

	rec := newRecorder()
	net.AddObserver(rec)
	for b := 0; b < 3; b++ {
		require.NoError(t, net.GenerateBlock(types.NodeID(b), types.BlockID(b)))
	}
	require.NoError(t, sched.Run(context.Background(), 0))

	// 可达的节点都校验了最后一个区块
	validated := 0
	for i := 0; i < net.Size(); i++ {
		if net.Validated(types.NodeID(i), 2) {
			validated++
		}
	}
	assert.Equal(t, reachable(net, 2), validated)

	rounds := net.Calibrate()
	require.Len(t, rounds, 12)
	for _, r := range rounds {
		assert.LessOrEqual(t, len(r.Dropped), 1)
	}
	checkSymmetric(t, net)
}

// checkSymmetric 转发集合等于 selected 与 accepted 的并集，且关系对称
func checkSymmetric(t *testing.T, net *Network) {
	t.Helper()
	for i := 0; i < net.Size(); i++ {
		node := net.Node(types.NodeID(i))
		cal := node.Calibrator()
		assert.LessOrEqual(t, len(cal.Selected()), 3)
		assert.LessOrEqual(t, len(cal.Accepted()), 6)
		want := append(cal.Selected(), cal.Accepted()...)
		assert.ElementsMatch(t, want, node.Engine().Peers(), "node %d", i)
		for _, p := range node.Engine().Peers() {
			assert.True(t, net.Node(p).Engine().HasPeer(node.ID()), "%d -> %d not symmetric", i, p)
		}
	}
}

// failingSender 总是发送失败
type failingSender struct{ err error }

func (f failingSender) Send(types.NodeID, types.NodeID, transport.Payload) error {
	return f.err
}

// TestNetwork_SendError 测试传输层错误上报
func TestNetwork_SendError(t *testing.T) {
	boom := errors.New("boom")
	sched := scheduler.New(scheduler.Epoch)
	net, err := New(staticConfig(2), sched, failingSender{boom}, nil, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	// 没有下游时不发送
	require.NoError(t, net.GenerateBlock(1, 0))

	require.True(t, net.Node(1).link.AddNeighbor(0))
	assert.ErrorIs(t, net.GenerateBlock(0, 1), boom)

	// 错误只上报一次
	assert.NoError(t, net.Node(0).env.take())
}

// TestNetwork_Errors 测试参数检查
func TestNetwork_Errors(t *testing.T) {
	sched, tr := newRuntime(t, 1)
	rng := rand.New(rand.NewSource(1))

	_, err := New(nil, sched, tr, nil, rng)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(staticConfig(0), sched, tr, nil, rng)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(staticConfig(2), sched, tr, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	bad := staticConfig(2)
	bad.Dissemination = &dissemination.Config{BodyRequests: 0}
	_, err = New(bad, sched, tr, nil, rng)
	assert.ErrorIs(t, err, dissemination.ErrInvalidConfig)

	net, err := New(staticConfig(2), scheduler.New(scheduler.Epoch), tr, nil, rng)
	require.NoError(t, err)
	assert.ErrorIs(t, net.GenerateBlock(5, 0), ErrNodeOutOfRange)
	assert.Nil(t, net.Node(-1))

	err = net.Node(0).HandleEvent(1, "not a message")
	assert.ErrorIs(t, err, ErrUnexpectedEvent)
}
