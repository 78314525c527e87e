package driver

import "errors"

// 错误定义
var (
	// ErrNoEligibleMiner 没有节点拥有至少两个转发对象
	ErrNoEligibleMiner = errors.New("driver: no node has two forwarding peers")

	// ErrInvalidConfig 无效配置
	ErrInvalidConfig = errors.New("driver: invalid config")

	// ErrAlreadyRan 同一个 Driver 只能运行一次
	ErrAlreadyRan = errors.New("driver: already ran")
)
