package scheduler

import (
	"time"

	"go.uber.org/fx"
)

// Epoch 虚拟时间 0 对应的默认时间戳
var Epoch = time.Unix(0, 0).UTC()

// Params 调度器依赖参数
type Params struct {
	fx.In

	Epoch time.Time `name:"sim_epoch" optional:"true"`
}

// Module 是 scheduler 的 Fx 模块
var Module = fx.Module("scheduler",
	fx.Provide(ProvideScheduler),
)

// ProvideScheduler 创建调度器
func ProvideScheduler(p Params) *Scheduler {
	epoch := p.Epoch
	if epoch.IsZero() {
		epoch = Epoch
	}
	return New(epoch)
}
