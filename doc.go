// Package perigee 提供区块传播与 Perigee 覆盖网络校准的离散事件仿真
//
// 仿真网络中的每个节点运行头部优先的区块传播协议：收到头部后校验，
// 向上游拉取区块体，校验完成后向全部转发对象推送头部。覆盖网络可以是
// 初始化后不再变化的静态拓扑，也可以是周期性丢弃最慢对端、随机补足的
// Perigee 拓扑。
//
// # 快速开始
//
//	sim, err := perigee.New(
//	    perigee.WithPreset(config.PresetPerigeeSubset),
//	    perigee.WithNodes(500),
//	    perigee.WithSeed(42),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sim.Close()
//
//	report, err := sim.Run(ctx)
//
// # 组件结构
//
//	┌───────────────────────────────────────────────────────────┐
//	│  Simulation          perigee.New() / sim.Run()            │
//	├───────────────────────────────────────────────────────────┤
//	│  driver              出块 / 校准 / 统计输出控制器         │
//	├───────────────────────────────────────────────────────────┤
//	│  network             节点组装、初始连接                   │
//	│    dissemination     头部优先传播引擎                     │
//	│    perigee | static  覆盖网络                             │
//	├───────────────────────────────────────────────────────────┤
//	│  scheduler  transport  metrics  eventbus                  │
//	└───────────────────────────────────────────────────────────┘
//
// 每个内部包提供一个 Fx 模块，Simulation 通过 go.uber.org/fx 组装它们。
//
// # 确定性
//
// 给定相同的配置与种子，仿真结果完全可重现。调度器单线程运行，
// 传输、覆盖网络与出块节点选择各自使用独立的随机数流。
package perigee
