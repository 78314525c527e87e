// Package metrics 收集区块传播统计并输出报告
//
// Collector 作为传播引擎的 Observer 记录每个节点对每个区块的校验时间与跳数，
// 同时跟踪出块节点与链头（出块节点已持有链头区块时计为上链，否则为分叉）。
//
// # 输出文件
//
// 以 Output 的 base 路径为前缀（为空时写到标准输出）：
//
//	base.times.avg    纵向平均：每个时刻平均尚未收到区块的节点数
//	base.times        每个区块的交付时间与剩余节点数
//	base.times.miners 每个出块节点最后一个区块的交付时间
//	base.hops         每个区块的跳数分布
//	base.hops.avg     跳数分布的区块平均
//	base.thru         上链/分叉区块数
//
// # Prometheus
//
// Prometheus 在注入的 Registerer 上注册计数器与直方图，方法对 nil 接收者安全，
// 未启用指标时可直接传 nil。
package metrics
