package perigee

import "errors"

// 错误定义
var (
	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("perigee: invalid config")

	// ErrUnsatisfiable 在不限重试次数时覆盖网络容量不可能满足
	ErrUnsatisfiable = errors.New("perigee: overlay capacity cannot be satisfied")

	// ErrUnknownStrategy 未知评分策略
	ErrUnknownStrategy = errors.New("perigee: unknown strategy")

	// ErrNodeOutOfRange 节点 ID 超出网络规模
	ErrNodeOutOfRange = errors.New("perigee: node id out of range")

	// ErrAlreadyJoined 节点已加入覆盖网络
	ErrAlreadyJoined = errors.New("perigee: node already joined")
)
