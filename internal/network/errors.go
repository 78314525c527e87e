package network

import "errors"

var (
	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("network: invalid config")

	// ErrUnexpectedEvent 节点收到了非传播消息的事件
	ErrUnexpectedEvent = errors.New("network: unexpected event")

	// ErrNodeOutOfRange 节点 ID 超出网络规模
	ErrNodeOutOfRange = errors.New("network: node out of range")
)
