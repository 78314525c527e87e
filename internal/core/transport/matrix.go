package transport

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/dep2p/go-perigee/pkg/types"
)

// Matrix 路由器之间的单向时延矩阵
//
// 节点 id 映射到路由器 id % Size()。负时延表示链路中断。
type Matrix struct {
	n   int
	lat []int32
}

// NewMatrix 创建 n×n 的零时延矩阵
func NewMatrix(n int) *Matrix {
	return &Matrix{n: n, lat: make([]int32, n*n)}
}

// Size 路由器数量
func (m *Matrix) Size() int {
	return m.n
}

// Latency 路由器 from 到 to 的单向时延
func (m *Matrix) Latency(from, to int) types.Tick {
	return types.Tick(m.lat[from*m.n+to])
}

// Set 设置路由器 from 到 to 的单向时延
func (m *Matrix) Set(from, to int, lat types.Tick) {
	m.lat[from*m.n+to] = int32(lat)
}

// Router 节点所在的路由器
func (m *Matrix) Router(id types.NodeID) int {
	return int(id) % m.n
}

// NodeLatency 节点 from 到 to 的单向时延
func (m *Matrix) NodeLatency(from, to types.NodeID) types.Tick {
	return m.Latency(m.Router(from), m.Router(to))
}

// RTT 节点之间的往返时延
func (m *Matrix) RTT(a, b types.NodeID) types.Tick {
	return m.NodeLatency(a, b) + m.NodeLatency(b, a)
}

// LoadMatrix 从文本读取时延矩阵
//
// 每行一个路由器，以空白分隔的整数时延（毫秒），行数与列数必须相等。
// 空行与以 # 开头的行被忽略。
func LoadMatrix(r io.Reader) (*Matrix, error) {
	var rows [][]int32
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		row := make([]int32, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseInt(f, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d column %d: %v", ErrInvalidMatrix, line, i+1, err)
			}
			row[i] = int32(v)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read latency matrix: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidMatrix)
	}

	m := NewMatrix(len(rows))
	for i, row := range rows {
		if len(row) != m.n {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidMatrix, i, len(row), m.n)
		}
		copy(m.lat[i*m.n:], row)
	}
	return m, nil
}

// LoadMatrixFile 从文件读取时延矩阵
func LoadMatrixFile(path string) (*Matrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open latency matrix: %w", err)
	}
	defer f.Close()
	return LoadMatrix(f)
}

// SyntheticMatrix 生成合成时延矩阵
//
// 路由器随机分布在单位正方形上，时延随欧氏距离在 [lo, hi] 内线性增长，矩阵对称。
func SyntheticMatrix(n int, lo, hi types.Tick, rng *rand.Rand) *Matrix {
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		xs[i] = rng.Float64()
		ys[i] = rng.Float64()
	}

	m := NewMatrix(n)
	span := float64(hi - lo)
	for i := 0; i < n; i++ {
		m.Set(i, i, lo)
		for j := i + 1; j < n; j++ {
			d := math.Hypot(xs[i]-xs[j], ys[i]-ys[j]) / math.Sqrt2
			lat := lo + types.Tick(math.Round(d*span))
			m.Set(i, j, lat)
			m.Set(j, i, lat)
		}
	}
	return m
}
