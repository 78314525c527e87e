package perigee

import "errors"

// 公共错误定义
var (
	// ErrClosed 仿真已关闭
	ErrClosed = errors.New("simulation closed")

	// ErrInvalidOption 无效选项
	ErrInvalidOption = errors.New("invalid option")
)
