// Package dissemination 实现单节点的区块传播协议状态机
//
// 区块以“头部推送 + 区块体拉取”的方式逐跳传播：
//
//	上游                                   下游
//	 │  ReceiveHeader (header, hops)         │
//	 │ ─────────────────────────────────────▶│ 头部校验 (HeaderValidationDelay)
//	 │                                       │ SendBodyRequest
//	 │  ReceiveBodyRequest                   │
//	 │ ◀─────────────────────────────────────│
//	 │  ReceiveBody                          │
//	 │ ─────────────────────────────────────▶│ 区块体校验 (BodyValidationDelay)
//	 │                                       │ Forward → 向其余转发对象推送头部
//
// 引擎不关心转发集合如何构建（静态拓扑或 Perigee 校准），只暴露
// AddPeer/RemovePeer/Peers。移除转发对象不会取消已经调度的消息。
//
// 每个 (节点, 区块) 的 HeaderValidated / BodyValidated 回调至多触发一次；
// 每次头部到达都会触发 HeaderDelivered，供覆盖网络校准器评分。
//
// 引擎运行在单线程离散事件仿真中：“耗时”通过 Env.ScheduleLocal 调度
// 未来的本地事件建模，从不阻塞。Engine 不是并发安全的。
package dissemination
