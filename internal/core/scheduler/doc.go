// Package scheduler 实现单线程离散事件调度器
//
// 全局虚拟时钟以 Tick（仿真毫秒）计时。事件按 (时间, 序号) 出队，
// 同一时刻的事件按调度顺序先进先出。事件处理不会重入，也不能取消：
// 已调度的事件一定会在其时刻被投递。
//
// 除节点事件外，调度器还周期性执行 Control（出块、校准、统计等驱动逻辑），
// Control 返回 stop=true 时运行结束。
//
// Scheduler 不是并发安全的，一次仿真运行独占一个实例。
package scheduler
