// Package network 组装仿真网络
//
// 每个节点由一个传播引擎和一个覆盖网络角色组成：
//
//	┌──────────────── Node ────────────────┐
//	│  dissemination.Engine  ◄── HandleEvent ◄── scheduler
//	│        │ SendTo / ScheduleLocal       │
//	│        ▼                              │
//	│      env ──► transport ──► scheduler  │
//	│                                       │
//	│  static.Linker | perigee.Calibrator   │
//	└───────────────────────────────────────┘
//
// 覆盖网络角色维护引擎的转发集合；Perigee 校准器同时作为引擎的观察者，
// 根据头部到达时间给 selected 对端打分。网络建好后由 bootstrap 建立初始连接。
package network
