// Package bootstrap 构建仿真的初始拓扑
//
// 每个节点先连接往返时延最低的 Close 个节点（由近到远），
// 再连接 Random 个均匀随机的节点。连接通过 Linkable 建立，
// 静态拓扑与 Perigee 校准器都实现了该接口。
package bootstrap

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/dep2p/go-perigee/config"
	"github.com/dep2p/go-perigee/internal/util/quickselect"
	"github.com/dep2p/go-perigee/pkg/lib/log"
	"github.com/dep2p/go-perigee/pkg/types"
)

var logger = log.Logger("core/bootstrap")

// randomAttemptsPerLink 每条随机连接允许的最大抽样次数
const randomAttemptsPerLink = 64

// ErrInvalidConfig 配置无效
var ErrInvalidConfig = errors.New("bootstrap: invalid config")

// Linkable 可建立连接的节点
type Linkable interface {
	AddNeighbor(peer types.NodeID) bool
	Contains(peer types.NodeID) bool
}

// RTT 节点间往返时延
type RTT interface {
	RTT(a, b types.NodeID) types.Tick
}

// Config 初始化配置
type Config struct {
	// Close 每个节点连接的近邻数量
	Close int

	// Random 每个节点连接的随机节点数量
	Random int
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Close < 0 || c.Random < 0 {
		return fmt.Errorf("%w: close=%d random=%d", ErrInvalidConfig, c.Close, c.Random)
	}
	return nil
}

// ConfigFromUnified 从统一配置创建初始化配置
func ConfigFromUnified(cfg *config.Config) *Config {
	if cfg == nil {
		return &Config{}
	}
	return &Config{Close: cfg.Bootstrap.Close, Random: cfg.Bootstrap.Random}
}

// Summary 初始化结果
type Summary struct {
	// CloseLinks 成功建立的近邻连接
	CloseLinks int

	// RandomLinks 成功建立的随机连接
	RandomLinks int

	// Shortfall 因抽样次数耗尽而未尝试的随机连接
	Shortfall int
}

// Initializer 拓扑初始化器
type Initializer struct {
	cfg *Config
	rtt RTT
	rng *rand.Rand
	sel *quickselect.Selector
}

// New 创建初始化器
func New(cfg *Config, rtt RTT, rng *rand.Rand, sel *quickselect.Selector) (*Initializer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sel == nil {
		sel = quickselect.New(rng)
	}
	return &Initializer{cfg: cfg, rtt: rtt, rng: rng, sel: sel}, nil
}

// Run 为全部节点建立初始连接，nodes[i] 为节点 i
func (in *Initializer) Run(nodes []Linkable) Summary {
	var s Summary
	if in.cfg.Close > 0 && in.rtt != nil {
		s.CloseLinks = in.closeLinks(nodes)
	}
	if in.cfg.Random > 0 {
		s.RandomLinks, s.Shortfall = in.randomLinks(nodes)
	}
	if s.Shortfall > 0 {
		logger.Warn("随机连接未能全部建立", "shortfall", s.Shortfall)
	}
	logger.Debug("初始拓扑已建立",
		"nodes", len(nodes),
		"close", s.CloseLinks,
		"random", s.RandomLinks)
	return s
}

// closeLinks 连接往返时延最低的 Close 个节点
//
// 自身的往返时延最低，因此选出 Close+1 个再跳过自身。
func (in *Initializer) closeLinks(nodes []Linkable) int {
	n := len(nodes)
	k := min(in.cfg.Close+1, n)
	dist := make([]int, n)
	links := 0
	for i, node := range nodes {
		self := types.NodeID(i)
		for j := range dist {
			dist[j] = int(in.rtt.RTT(self, types.NodeID(j)))
		}
		in.sel.Select(dist, k)
		in.sel.SortFirst(k)

		for _, j := range in.sel.IDs()[:k] {
			if j == i {
				continue
			}
			if node.AddNeighbor(types.NodeID(j)) {
				links++
			}
		}
	}
	return links
}

// randomLinks 为每个节点尝试 Random 个随机连接
//
// 只要候选既非自身也未连接就计为一次尝试，无论对端是否接受。
func (in *Initializer) randomLinks(nodes []Linkable) (int, int) {
	n := len(nodes)
	links, shortfall := 0, 0
	for i, node := range nodes {
		tried, attempts := 0, 0
		maxAttempts := in.cfg.Random * randomAttemptsPerLink
		for tried < in.cfg.Random && attempts < maxAttempts {
			attempts++
			peer := types.NodeID(in.rng.Intn(n))
			if int(peer) == i || node.Contains(peer) {
				continue
			}
			tried++
			if node.AddNeighbor(peer) {
				links++
			}
		}
		shortfall += in.cfg.Random - tried
	}
	return links, shortfall
}
