package network

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-perigee/config"
	"github.com/dep2p/go-perigee/internal/core/scheduler"
	"github.com/dep2p/go-perigee/internal/core/transport"
)

func smallConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Run.Nodes = 20
	cfg.Transport.Routers = 5
	cfg.Overlay.NumOutgoing = 3
	cfg.Overlay.NumIncoming = 6
	cfg.Overlay.WeakestLinks = 1
	cfg.Bootstrap.Random = 3
	return cfg
}

func TestConfigFromUnified(t *testing.T) {
	cfg := smallConfig()
	got := ConfigFromUnified(cfg)
	assert.Equal(t, 20, got.Nodes)
	require.NotNil(t, got.Perigee)
	assert.Equal(t, 3, got.Perigee.NumOutgoing)
	assert.Equal(t, 3, got.Bootstrap.Random)

	cfg.Overlay.Kind = config.OverlayStatic
	assert.Nil(t, ConfigFromUnified(cfg).Perigee)
}

func TestModule(t *testing.T) {
	var (
		net   *Network
		sched *scheduler.Scheduler
	)
	app := fxtest.New(t,
		fx.Supply(smallConfig()),
		scheduler.Module,
		fx.Provide(func(s *scheduler.Scheduler) transport.Sink { return s }),
		transport.Module,
		Module,
		fx.Populate(&net, &sched),
	)
	app.RequireStart()
	defer app.RequireStop()

	require.NotNil(t, net)
	assert.Equal(t, 20, net.Size())
	assert.True(t, net.IsPerigee())

	require.NoError(t, net.GenerateBlock(0, 0))
	require.NoError(t, sched.Run(context.Background(), 0))
	assert.True(t, net.Validated(0, 0))
	assert.Greater(t, sched.Processed(), uint64(0))
}
