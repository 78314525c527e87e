package perigee

import (
	"math"

	"github.com/dep2p/go-perigee/internal/util/quickselect"
	"github.com/dep2p/go-perigee/pkg/types"
)

// unscored 本区块尚未有成员交付的子集分数
const unscored = math.MaxInt32

// subsetScore 子集组合评分
//
// 对 selected 的每个 (n-WeakestLinks) 子集，每个区块的分数为子集中最早交付的成员
// 相对于全部 selected 中最早交付者的延迟。每轮取各区块分数的指定百分位作为子集的
// 稳健分数，分数最低的子集胜出（同分取先出现者），不在胜出子集中的对端被丢弃。
type subsetScore struct {
	weakest    int
	percentile int
	sel        *quickselect.Selector

	members []types.NodeID
	index   map[types.NodeID]int
	table   *combinationTable

	rows      [][]int
	rowOf     map[types.BlockID]int
	firstAt   []types.Tick
	completed []int

	column []int
}

func newSubsetScore(cfg *Config, sel *quickselect.Selector) *subsetScore {
	return &subsetScore{
		weakest:    cfg.WeakestLinks,
		percentile: cfg.SubsetPercentile,
		sel:        sel,
		index:      make(map[types.NodeID]int),
		rowOf:      make(map[types.BlockID]int),
	}
}

func (s *subsetScore) Kind() StrategyKind { return StrategySubset }

func (s *subsetScore) Observe(from types.NodeID, block types.BlockID, at types.Tick) {
	if s.table == nil {
		return
	}
	idx, ok := s.index[from]
	if !ok {
		return
	}

	r, ok := s.rowOf[block]
	if !ok {
		row := make([]int, s.table.size())
		for i := range row {
			row[i] = unscored
		}
		r = len(s.rows)
		s.rows = append(s.rows, row)
		s.rowOf[block] = r
		s.firstAt = append(s.firstAt, at)
		s.completed = append(s.completed, 0)
	}
	if s.completed[r] == s.table.size() {
		return
	}

	score := int(at - s.firstAt[r])
	row := s.rows[r]
	for _, sub := range s.table.subsetsOf[idx] {
		if row[sub] == unscored {
			row[sub] = score
			s.completed[r]++
		}
	}
}

func (s *subsetScore) HasScores() bool {
	return s.table != nil && len(s.rows) > 0
}

// robust 子集在全部区块上的百分位分数
func (s *subsetScore) robust(sub int) int {
	s.column = s.column[:0]
	for _, row := range s.rows {
		s.column = append(s.column, row[sub])
	}
	p := min(s.percentile*len(s.column)/100, len(s.column)-1)
	return s.sel.Kth(s.column, p+1)
}

// Winner 返回稳健分数最低的子集下标及其分数，没有评分时返回 -1
func (s *subsetScore) Winner() (int, int) {
	if !s.HasScores() {
		return -1, 0
	}
	best, bestScore := 0, s.robust(0)
	for sub := 1; sub < s.table.size(); sub++ {
		if score := s.robust(sub); score < bestScore {
			best, bestScore = sub, score
		}
	}
	return best, bestScore
}

// Weakest 返回不在胜出子集中、且仍在 selected 中的成员
func (s *subsetScore) Weakest(selected []types.NodeID) []types.NodeID {
	winner, _ := s.Winner()
	if winner < 0 {
		return nil
	}
	current := make(map[types.NodeID]struct{}, len(selected))
	for _, p := range selected {
		current[p] = struct{}{}
	}

	var out []types.NodeID
	for i, p := range s.members {
		if s.table.inSubset[winner][i] {
			continue
		}
		if _, ok := current[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Reset 以新的 selected 快照开始一轮评分
//
// selected 不超过 WeakestLinks 个时没有可比较的子集，本轮不评分。
func (s *subsetScore) Reset(selected []types.NodeID) {
	s.members = append(s.members[:0], selected...)
	clear(s.index)
	for i, p := range s.members {
		s.index[p] = i
	}

	n := len(s.members)
	if s.weakest > 0 && n > s.weakest {
		s.table = combinations(n, n-s.weakest)
	} else {
		s.table = nil
	}

	s.rows = s.rows[:0]
	clear(s.rowOf)
	s.firstAt = s.firstAt[:0]
	s.completed = s.completed[:0]
}

// NumSubsets 当前评估的子集数量
func (s *subsetScore) NumSubsets() int {
	if s.table == nil {
		return 0
	}
	return s.table.size()
}
