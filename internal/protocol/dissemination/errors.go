package dissemination

import "errors"

// 错误定义
var (
	// ErrProtocolViolation 协议不变式被破坏（例如向未校验区块的节点拉取区块体）
	//
	// 这是致命错误：表示状态机存在逻辑缺陷，仿真必须终止。
	ErrProtocolViolation = errors.New("dissemination: protocol invariant violation")

	// ErrUnknownKind 未知的消息类型
	ErrUnknownKind = errors.New("dissemination: unknown message kind")

	// ErrNilEnv Env 为 nil
	ErrNilEnv = errors.New("dissemination: env is nil")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("dissemination: invalid config")
)
