package dissemination

import (
	mapset "github.com/deckarep/golang-set/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dep2p/go-perigee/pkg/types"
)

// ============================================================================
//                              区块集合
// ============================================================================

// blockSet 区块 ID 集合
//
// 方法签名与 mapset.Set 保持一致，不淘汰时直接使用 mapset。
type blockSet interface {
	Add(id types.BlockID) bool
	Contains(ids ...types.BlockID) bool
	Cardinality() int
}

// lruSet 有界区块集合，超出容量时淘汰最久未写入的区块
type lruSet struct {
	cache *lru.Cache[types.BlockID, struct{}]
}

func (s *lruSet) Add(id types.BlockID) bool {
	if s.cache.Contains(id) {
		return false
	}
	s.cache.Add(id, struct{}{})
	return true
}

func (s *lruSet) Contains(ids ...types.BlockID) bool {
	for _, id := range ids {
		if !s.cache.Contains(id) {
			return false
		}
	}
	return true
}

func (s *lruSet) Cardinality() int {
	return s.cache.Len()
}

// newBlockSet 创建区块集合，onEvict 非 nil 时在淘汰区块时回调
func newBlockSet(retention int, onEvict func(types.BlockID)) (blockSet, error) {
	if retention <= 0 {
		return mapset.NewThreadUnsafeSet[types.BlockID](), nil
	}
	var evict func(types.BlockID, struct{})
	if onEvict != nil {
		evict = func(id types.BlockID, _ struct{}) { onEvict(id) }
	}
	cache, err := lru.NewWithEvict[types.BlockID, struct{}](retention, evict)
	if err != nil {
		return nil, err
	}
	return &lruSet{cache: cache}, nil
}

// ============================================================================
//                              拉取计数
// ============================================================================

// requestCounter 每个区块的区块体拉取次数
type requestCounter interface {
	get(id types.BlockID) int
	set(id types.BlockID, n int)
}

type mapCounter map[types.BlockID]int

func (c mapCounter) get(id types.BlockID) int     { return c[id] }
func (c mapCounter) set(id types.BlockID, n int) { c[id] = n }

type lruCounter struct {
	cache *lru.Cache[types.BlockID, int]
}

func (c *lruCounter) get(id types.BlockID) int {
	n, _ := c.cache.Peek(id)
	return n
}

func (c *lruCounter) set(id types.BlockID, n int) {
	c.cache.Add(id, n)
}

func newRequestCounter(retention int) (requestCounter, error) {
	if retention <= 0 {
		return make(mapCounter), nil
	}
	cache, err := lru.New[types.BlockID, int](retention)
	if err != nil {
		return nil, err
	}
	return &lruCounter{cache: cache}, nil
}

// ============================================================================
//                              节点交付状态
// ============================================================================

// deliveryState 单个节点的交付状态
type deliveryState struct {
	headers         blockSet // 已接收头部
	headerValidated blockSet // 已触发 HeaderValidated
	bodies          blockSet // 已接收区块体
	validated       blockSet // 已校验区块体
	requests        requestCounter

	// horizon 已从 validated 淘汰的最大区块 ID，forgot 为 false 时无效
	horizon types.BlockID
	forgot  bool
}

func newDeliveryState(retention int) (*deliveryState, error) {
	s := &deliveryState{}
	var err error
	for _, p := range []*blockSet{&s.headers, &s.headerValidated, &s.bodies} {
		if *p, err = newBlockSet(retention, nil); err != nil {
			return nil, err
		}
	}
	if s.validated, err = newBlockSet(retention, s.forget); err != nil {
		return nil, err
	}
	if s.requests, err = newRequestCounter(retention); err != nil {
		return nil, err
	}
	return s, nil
}

// forget 记录被淘汰的已校验区块
func (s *deliveryState) forget(id types.BlockID) {
	if !s.forgot || id > s.horizon {
		s.horizon = id
		s.forgot = true
	}
}

// expired 区块是否已落在保留窗口之外
//
// 区块 ID 单调递增，不大于 horizon 的区块视为已淘汰：不再拉取，也不再应答拉取，
// 窗口外的区块不会被重复校验。
func (s *deliveryState) expired(id types.BlockID) bool {
	return s.forgot && id <= s.horizon
}
