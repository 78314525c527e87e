// Package quickselect 实现基于随机枢轴的部分选择（QuickSelect）
//
// Selector 不修改输入的评分数组，只重排内部的索引排列 ids，
// 使得 ids[:k] 指向评分最小的 k 个元素（彼此之间无序）。
// 每次选择前都会用注入的随机源打乱 ids，避免有序或对抗性输入
// 造成的二次复杂度。
//
// 使用示例:
//
//	sel := quickselect.New(rng)
//	sel.Select(distances, 8)
//	sel.SortFirst(8)
//	for _, idx := range sel.IDs()[:8] {
//	    // distances[idx] 按升序排列
//	}
//
// Selector 不是并发安全的；一次仿真运行持有一个实例。
package quickselect

import (
	"cmp"
	"fmt"
	"math/rand" //nolint:gosec // G404: 仿真需要可复现的随机源
	"slices"
)

// Selector 部分选择器
type Selector struct {
	rng *rand.Rand

	// ids 索引排列，长度等于最近一次输入的长度
	ids []int

	// scores 最近一次 Select 的输入（只读）
	scores []int
}

// New 创建选择器
func New(rng *rand.Rand) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewSource(0)) //nolint:gosec
	}
	return &Selector{rng: rng}
}

// IDs 返回当前的索引排列
//
// 返回的切片归 Selector 所有，调用方不得修改，下一次 Select 会覆盖它。
func (s *Selector) IDs() []int {
	return s.ids
}

// Len 返回当前索引缓冲区的长度
func (s *Selector) Len() int {
	return len(s.ids)
}

// reset 将索引缓冲区重置为 0..n-1
func (s *Selector) reset(n int) {
	s.ids = make([]int, n)
	for i := range s.ids {
		s.ids[i] = i
	}
}

func (s *Selector) swap(i, j int) {
	s.ids[i], s.ids[j] = s.ids[j], s.ids[i]
}

// Select 选出评分最小的 k 个元素的索引，存放于 IDs()[:k]
//
// k == 0 为空操作；k == len(scores) 返回全部索引；
// k < 0 或 k > len(scores) 违反调用约定，直接 panic。
func (s *Selector) Select(scores []int, k int) {
	n := len(scores)
	if k < 0 || k > n {
		panic(fmt.Sprintf("quickselect: k=%d out of range [0,%d]", k, n))
	}
	if len(s.ids) != n {
		s.reset(n)
	}
	s.scores = scores
	if k == 0 {
		return
	}

	s.rng.Shuffle(n, s.swap)
	if k == n {
		return
	}

	// 不变式: 目标位置始终位于 [left, right]
	target := k - 1
	left, right := 0, n-1
	for {
		j := s.partition(left, right)
		switch {
		case j > target:
			right = j - 1
		case j < target:
			left = j + 1
		default:
			return
		}
	}
}

// partition 以 ids[left] 为枢轴划分 [left, right]，返回枢轴的最终位置
//
// 划分后左侧评分均小于枢轴，右侧均不小于枢轴。
func (s *Selector) partition(left, right int) int {
	pivot := s.scores[s.ids[left]]
	i, j := left+1, right

	for {
		for i <= right && s.scores[s.ids[i]] < pivot {
			i++
		}
		for j > left && s.scores[s.ids[j]] >= pivot {
			j--
		}
		if i > j {
			break
		}
		s.swap(i, j)
		i++
		j--
	}

	s.swap(left, j)
	return j
}

// SortFirst 按评分升序稳定排序前 k 个索引
//
// 依赖最近一次 Select 的输入；k 超出缓冲区长度时 panic。
func (s *Selector) SortFirst(k int) {
	if k < 0 || k > len(s.ids) {
		panic(fmt.Sprintf("quickselect: topK=%d is higher than scores length %d", k, len(s.ids)))
	}
	head := s.ids[:k]
	slices.SortStableFunc(head, func(a, b int) int {
		return cmp.Compare(s.scores[a], s.scores[b])
	})
}

// Kth 返回第 k 小的评分值（k 从 1 开始）
//
// 相当于 Select(scores, k) 后取前 k 个中的最大值。
func (s *Selector) Kth(scores []int, k int) int {
	if k < 1 {
		panic(fmt.Sprintf("quickselect: kth=%d must be positive", k))
	}
	s.Select(scores, k)
	kth := scores[s.ids[0]]
	for _, idx := range s.ids[1:k] {
		if scores[idx] > kth {
			kth = scores[idx]
		}
	}
	return kth
}
