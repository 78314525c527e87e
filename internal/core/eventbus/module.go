package eventbus

import (
	"context"

	"go.uber.org/fx"

	pkgif "github.com/dep2p/go-perigee/pkg/interfaces"
)

// ============================================================================
// Fx 模块
// ============================================================================

// Params Fx 模块输入参数
type Params struct {
	fx.In

	// Shared 外部提供的总线（跨多次运行共享时使用）
	Shared pkgif.EventBus `name:"shared_eventbus" optional:"true"`
}

// Result Fx 模块输出结果
type Result struct {
	fx.Out

	EventBus pkgif.EventBus
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("eventbus",
		fx.Provide(ProvideEventBus),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideEventBus 提供 EventBus 实例，优先使用外部共享的总线
func ProvideEventBus(p Params) Result {
	if p.Shared != nil {
		return Result{EventBus: p.Shared}
	}
	return Result{EventBus: NewBus()}
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In

	LC       fx.Lifecycle
	EventBus pkgif.EventBus
	Shared   pkgif.EventBus `name:"shared_eventbus" optional:"true"`
}

// registerLifecycle 停止时关闭自有总线；共享总线由提供者关闭
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			if input.Shared != nil {
				return nil
			}
			if b, ok := input.EventBus.(*Bus); ok {
				return b.Close()
			}
			return nil
		},
	})
}

// ============================================================================
// 模块元信息
// ============================================================================

const (
	// Version 模块版本
	Version = "1.0.0"
	// Name 模块名称
	Name = "eventbus"
	// Description 模块描述
	Description = "事件总线模块，发布仿真进度事件"
)
