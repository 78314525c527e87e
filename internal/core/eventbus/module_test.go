package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	pkgif "github.com/dep2p/go-perigee/pkg/interfaces"
	"github.com/dep2p/go-perigee/pkg/types"
)

// ============================================================================
// Fx 模块测试
// ============================================================================

// TestModule_OwnBus 测试模块创建并在停止时关闭自有总线
func TestModule_OwnBus(t *testing.T) {
	var bus pkgif.EventBus

	app := fxtest.New(t, Module(), fx.Populate(&bus))
	app.RequireStart()
	require.NotNil(t, bus)

	sub, err := bus.Subscribe(new(types.EvtRunFinished))
	require.NoError(t, err)

	app.RequireStop()
	_, ok := <-sub.Out()
	assert.False(t, ok)
}

// TestModule_SharedBus 测试共享总线在停止后仍可用
func TestModule_SharedBus(t *testing.T) {
	shared := NewBus()
	defer shared.Close()

	var bus pkgif.EventBus
	app := fxtest.New(t,
		Module(),
		fx.Provide(fx.Annotate(
			func() *Bus { return shared },
			fx.As(new(pkgif.EventBus)),
			fx.ResultTags(`name:"shared_eventbus"`),
		)),
		fx.Populate(&bus),
	)
	app.RequireStart()
	assert.Same(t, shared, bus)
	app.RequireStop()

	_, err := shared.Subscribe(new(types.EvtRunFinished))
	assert.NoError(t, err)
}
