// Package driver 驱动一次仿真运行
//
// 运行由调度器上的三个周期控制器推进：
//
//   - BlockGenerator 每个出块间隔随机挑选出块节点生成区块，全部区块生成后
//     再等待 Drain 时间并结束运行
//   - Calibration 每个校准周期对全部 Perigee 节点执行一轮校准
//   - StatsFlush 周期输出垂直平均并清空统计窗口
//
// Driver 负责注册这些控制器、运行调度器、输出统计文件并在事件总线上
// 发布出块、校准与结束事件。
package driver
