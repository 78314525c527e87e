package types

import (
	"strconv"
	"time"
)

// ============================================================================
//                              NodeID - 节点标识
// ============================================================================

// NodeID 节点标识
//
// 仿真开始时一次性分配，取值范围为 [0, 网络规模)，运行期间不变。
// Peer 即可作为消息目的地的 NodeID，按值比较相等。
type NodeID int

// NoNode 表示“无节点”，用于出块节点的 replyTo 等场景
const NoNode NodeID = -1

// Valid 检查是否为有效节点 ID
func (id NodeID) Valid() bool {
	return id >= 0
}

// String 返回节点 ID 的字符串表示
func (id NodeID) String() string {
	if id == NoNode {
		return "none"
	}
	return strconv.Itoa(int(id))
}

// ============================================================================
//                              BlockID - 区块标识
// ============================================================================

// BlockID 区块标识（唯一且单调递增）
type BlockID int

// String 返回区块 ID 的字符串表示
func (id BlockID) String() string {
	return strconv.Itoa(int(id))
}

// ============================================================================
//                              Tick - 虚拟时间
// ============================================================================

// Tick 虚拟时间（单位：仿真毫秒）
type Tick int64

// TicksPerSecond 每秒的 Tick 数
const TicksPerSecond Tick = 1000

// TicksFromDuration 将 time.Duration 转换为 Tick（向下取整到毫秒）
func TicksFromDuration(d time.Duration) Tick {
	return Tick(d / time.Millisecond)
}

// Duration 将 Tick 转换为 time.Duration
func (t Tick) Duration() time.Duration {
	return time.Duration(t) * time.Millisecond
}

// String 返回 Tick 的字符串表示
func (t Tick) String() string {
	return strconv.FormatInt(int64(t), 10) + "ms"
}
