package scheduler

import "errors"

// 错误定义
var (
	// ErrNegativeDelay 调度延迟为负
	ErrNegativeDelay = errors.New("scheduler: negative delay")

	// ErrUnknownNode 目标节点未注册
	ErrUnknownNode = errors.New("scheduler: unknown node")

	// ErrAlreadyRegistered 节点已注册
	ErrAlreadyRegistered = errors.New("scheduler: node already registered")

	// ErrInvalidStep 周期无效
	ErrInvalidStep = errors.New("scheduler: invalid control step")
)
