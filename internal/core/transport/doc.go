// Package transport 实现仿真网络的消息投递
//
// 节点之间不存在真实连接，Transport 根据路由器时延矩阵计算每条消息的投递时延，
// 再把消息交给 Sink（通常是调度器）在对应的仿真时刻送达。
//
// # 时延模型
//
// 节点 id 映射到路由器 id % n，时延矩阵以路由器为单位：
//
//	头部/请求：  latency(from, to) + processing
//	区块体：    latency(from, to) * (1 + 2*extra) + processing
//
// extra 是区块体相对单程时延的额外传输倍数，processing 为可选的随机处理时延。
//
// # 时延矩阵
//
//   - LoadMatrix / LoadMatrixFile: 从空白分隔的文本读取 n×n 矩阵（单位毫秒）
//   - SyntheticMatrix: 路由器随机分布在平面上，按距离生成对称矩阵
//   - BuildMatrix: 根据 Config 选择上面两种方式之一
//
// # 使用示例
//
//	m, err := transport.BuildMatrix(cfg, rng)
//	t, err := transport.New(cfg, m, sched, rng)
//	err = t.Send(from, to, msg)
//
// # Fx 模块集成
//
//	app := fx.New(
//	    fx.Supply(unifiedCfg),
//	    scheduler.Module,
//	    fx.Provide(func(s *scheduler.Scheduler) transport.Sink { return s }),
//	    transport.Module,
//	)
//
// # 并发安全
//
// 仿真是单线程推进的，Send 只在调度器回调中调用；Stats 可以并发读取。
package transport
