package perigee

import "sync"

// combinationTable n 选 k 的全部组合
//
// 表在同一 (n, k) 的所有节点之间共享，构造后只读。
type combinationTable struct {
	n, k int

	// members[s] 子集 s 包含的成员下标（升序）
	members [][]int

	// inSubset[s][i] 成员 i 是否属于子集 s
	inSubset [][]bool

	// subsetsOf[i] 包含成员 i 的子集下标
	subsetsOf [][]int
}

type combinationKey struct{ n, k int }

var (
	combinationMu    sync.Mutex
	combinationCache = make(map[combinationKey]*combinationTable)
)

// combinations 返回 (n, k) 的组合表，按字典序排列
func combinations(n, k int) *combinationTable {
	key := combinationKey{n, k}

	combinationMu.Lock()
	defer combinationMu.Unlock()
	if t, ok := combinationCache[key]; ok {
		return t
	}

	t := &combinationTable{n: n, k: k, subsetsOf: make([][]int, n)}
	cur := make([]int, 0, k)
	var walk func(start int)
	walk = func(start int) {
		if len(cur) == k {
			t.members = append(t.members, append([]int(nil), cur...))
			return
		}
		for i := start; i <= n-(k-len(cur)); i++ {
			cur = append(cur, i)
			walk(i + 1)
			cur = cur[:len(cur)-1]
		}
	}
	walk(0)

	t.inSubset = make([][]bool, len(t.members))
	for s, m := range t.members {
		t.inSubset[s] = make([]bool, n)
		for _, i := range m {
			t.inSubset[s][i] = true
			t.subsetsOf[i] = append(t.subsetsOf[i], s)
		}
	}

	combinationCache[key] = t
	return t
}

// size 子集数量
func (t *combinationTable) size() int {
	return len(t.members)
}

// binomial 计算 n 选 k
func binomial(n, k int) int {
	if k < 0 || k > n {
		return 0
	}
	k = min(k, n-k)
	r := 1
	for i := 1; i <= k; i++ {
		r = r * (n - k + i) / i
	}
	return r
}
