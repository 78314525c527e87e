// Package types 定义 go-perigee 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据。
//
// # 文件组织
//
// 基础类型:
//   - ids.go     - NodeID, BlockID, Tick
//
// 事件类型:
//   - events.go  - 运行期事件（出块、校准轮次、运行结束）
//
// # 时间单位
//
// 仿真使用虚拟时钟，一个 Tick 对应一个仿真毫秒。
// 任何与延迟相关的配置在进入核心模块前都会转换为 Tick。
package types
