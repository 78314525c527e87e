// Package perigee 实现 Perigee 覆盖网络校准
//
// 每个节点维护两组关系：
//   - selected: 本节点主动选择、可在校准时丢弃的对端（容量 NumOutgoing）
//   - accepted: 选择了本节点的对端（容量 NumIncoming，由被选择方检查）
//
// 关系建立时双方互相加入转发集合。同一对端不会同时出现在两个集合中，
// 也不会等于节点自身。
//
// 每轮校准：
//  1. 若已有评分，按策略丢弃最弱的 selected 对端（双向关系原子解除）
//  2. 从全体节点中随机抽样补足 selected
//  3. 重置评分，每个 selected 对端预置 0 分
//
// 评分策略：
//   - reward-all-but-last: 同一区块中除最后一个交付者外每个交付者 +1
//   - reward-first: 首个交付者获得与第二个交付者之间的时间差
//   - subset: 对所有 (NumOutgoing-WeakestLinks) 子集按百分位评分，保留最优子集
//
// 跨节点的关系建立以 propose → acceptProposal 两步完成，在同一个因果步骤内执行。
package perigee
