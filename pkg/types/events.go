// Package types 定义 go-perigee 公共类型
//
// 本文件定义事件相关类型。
package types

import "time"

// ============================================================================
//                              Event - 事件接口
// ============================================================================

// Event 基础事件接口
type Event interface {
	// Type 返回事件类型
	Type() string

	// At 返回事件发生的虚拟时间
	At() Tick
}

// BaseEvent 基础事件实现
type BaseEvent struct {
	EventType string
	Time      Tick

	// Timestamp 虚拟时间换算出的时间戳（仿真起点 + Time），未知时为零值
	Timestamp time.Time
}

// Type 返回事件类型
func (e BaseEvent) Type() string {
	return e.EventType
}

// At 返回事件发生的虚拟时间
func (e BaseEvent) At() Tick {
	return e.Time
}

// NewBaseEvent 创建基础事件
func NewBaseEvent(eventType string, at Tick) BaseEvent {
	return BaseEvent{
		EventType: eventType,
		Time:      at,
	}
}

// NewBaseEventAt 创建带时间戳的基础事件，ts 通常取自调度器时钟
func NewBaseEventAt(eventType string, at Tick, ts time.Time) BaseEvent {
	return BaseEvent{
		EventType: eventType,
		Time:      at,
		Timestamp: ts,
	}
}

// ============================================================================
//                              运行期事件
// ============================================================================

// 事件类型常量
const (
	EventTypeBlockGenerated   = "block.generated"
	EventTypeCalibrationRound = "overlay.calibration"
	EventTypeRunFinished      = "run.finished"
)

// EvtBlockGenerated 出块事件
type EvtBlockGenerated struct {
	BaseEvent

	// Block 区块 ID
	Block BlockID

	// Miner 出块节点
	Miner NodeID

	// OnChain 出块节点是否持有当前链尖
	OnChain bool
}

// EvtCalibrationRound 一轮全网校准完成事件
type EvtCalibrationRound struct {
	BaseEvent

	// Round 轮次序号（从 1 开始）
	Round int

	// Dropped 本轮被替换的 selected 关系总数
	Dropped int

	// Added 本轮新建立的 selected 关系总数
	Added int

	// Starved 因候选耗尽未能补满的节点数
	Starved int
}

// EvtRunFinished 仿真运行结束事件
type EvtRunFinished struct {
	BaseEvent

	// RunID 运行 ID
	RunID string

	// Blocks 生成的区块数
	Blocks int

	// Events 处理的事件总数
	Events uint64

	// Err 运行错误（nil 表示正常结束）
	Err error
}
