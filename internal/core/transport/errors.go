package transport

import "errors"

// 错误定义
var (
	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("transport: invalid config")

	// ErrInvalidMatrix 时延矩阵格式错误
	ErrInvalidMatrix = errors.New("transport: invalid latency matrix")

	// ErrNilSink 未设置事件投递目标
	ErrNilSink = errors.New("transport: sink is nil")
)
