package metrics

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"go.uber.org/multierr"

	"github.com/dep2p/go-perigee/pkg/types"
)

// ============================================================================
//                              Output
// ============================================================================

// Output 报告输出目标
//
// base 非空时每类报告写到 base.<扩展名>：首次写入时创建文件，
// 此后追加类报告追加写入。base 为空时全部写到 stdout。
type Output struct {
	base    string
	stdout  io.Writer
	created map[string]bool
}

// NewOutput 创建输出目标
func NewOutput(base string, stdout io.Writer) *Output {
	if stdout == nil {
		stdout = os.Stdout
	}
	return &Output{base: base, stdout: stdout, created: make(map[string]bool)}
}

// Base 输出文件前缀
func (o *Output) Base() string {
	return o.base
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// Open 打开扩展名 ext 对应的输出
func (o *Output) Open(ext string, appendMode bool) (io.WriteCloser, error) {
	if o.base == "" {
		return nopCloser{o.stdout}, nil
	}
	name := o.base + "." + ext
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode && o.created[ext] {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(name, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output %s: %w", name, err)
	}
	o.created[ext] = true
	return f, nil
}

// write 打开输出并通过带缓冲的 writer 写入
func (o *Output) write(ext string, appendMode bool, fn func(w *bufio.Writer)) (err error) {
	wc, err := o.Open(ext, appendMode)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, wc.Close()) }()

	w := bufio.NewWriter(wc)
	fn(w)
	return w.Flush()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ============================================================================
//                              报告
// ============================================================================

// WriteVerticalAvg 纵向平均：每个时刻所有区块平均尚未收到区块的节点数
func (c *Collector) WriteVerticalAvg(o *Output) error {
	return o.write("times.avg", true, func(w *bufio.Writer) {
		fmt.Fprintln(w, "#time\tnodes")
		n := len(c.blocks)
		if n == 0 {
			fmt.Fprint(w, "\n\n")
			return
		}

		var all []types.Tick
		for _, r := range c.blocks {
			all = append(all, r.times...)
		}
		slices.Sort(all)

		uninformed := c.size * n
		var now, prev types.Tick
		for _, t := range all {
			now = t
			if now != prev {
				fmt.Fprintf(w, "%d\t%s\n", prev, formatFloat(float64(uninformed)/float64(n)))
				prev = now
			}
			uninformed--
		}
		fmt.Fprintf(w, "%d\t%s\n", now, formatFloat(0))
		fmt.Fprint(w, "\n\n")
	})
}

// WriteAllTimes 每个区块的交付时间与剩余节点数
func (c *Collector) WriteAllTimes(o *Output) error {
	return o.write("times", true, func(w *bufio.Writer) {
		fmt.Fprintln(w, "#time\tnodes")
		for _, r := range c.blocks {
			uninformed := c.size
			for _, t := range r.times {
				uninformed--
				fmt.Fprintf(w, "%d\t%d\n", t, uninformed)
			}
			fmt.Fprint(w, "\n\n")
		}
	})
}

// WriteTimesPerMiner 每个节点最后出的区块的交付时间，未出块的节点输出 0
func (c *Collector) WriteTimesPerMiner(o *Output) error {
	last := make(map[types.NodeID]types.BlockID)
	for _, m := range c.miners {
		last[m.miner] = m.block
	}
	return o.write("times.miners", false, func(w *bufio.Writer) {
		fmt.Fprintln(w, "#time\tnodes\tminer")
		for i := 0; i < c.size; i++ {
			miner := types.NodeID(i)
			block, ok := last[miner]
			if !ok {
				fmt.Fprintf(w, "0\t0\t%d\n", miner)
			} else {
				uninformed := c.size
				for _, t := range c.byID[block].times {
					uninformed--
					fmt.Fprintf(w, "%d\t%d\t%d\n", t, uninformed, miner)
				}
			}
			fmt.Fprint(w, "\n\n")
		}
	})
}

// WriteHops 每个区块的跳数分布及其区块平均
func (c *Collector) WriteHops(o *Output) error {
	avg := make(map[int]int)
	err := o.write("hops", true, func(w *bufio.Writer) {
		fmt.Fprintln(w, "#hops\tcount")
		for _, r := range c.blocks {
			for h := 0; ; h++ {
				count, ok := r.hops[h]
				if !ok {
					break
				}
				fmt.Fprintf(w, "%d\t%d\n", h, count)
				avg[h] += count
			}
			fmt.Fprint(w, "\n\n")
		}
	})
	if err != nil {
		return err
	}

	return o.write("hops.avg", true, func(w *bufio.Writer) {
		fmt.Fprintln(w, "#hops\tcount%")
		n := len(c.blocks)
		for h := 0; n > 0; h++ {
			count, ok := avg[h]
			if !ok {
				break
			}
			fmt.Fprintf(w, "%d\t%s\n", h, formatFloat(float64(count)/float64(n)))
		}
		fmt.Fprint(w, "\n\n")
	})
}

// WriteThroughput 上链与分叉区块数，cycle 为出块间隔
func (c *Collector) WriteThroughput(o *Output, cycle types.Tick) error {
	return o.write("thru", true, func(w *bufio.Writer) {
		fmt.Fprintln(w, "#cycle\ton\toff")
		fmt.Fprintf(w, "%d\t%d\t%d\n", int64(cycle), c.onChain, c.offChain)
	})
}

// WriteAll 输出全部报告
func (c *Collector) WriteAll(o *Output, cycle types.Tick) error {
	return multierr.Combine(
		c.WriteVerticalAvg(o),
		c.WriteAllTimes(o),
		c.WriteTimesPerMiner(o),
		c.WriteHops(o),
		c.WriteThroughput(o, cycle),
	)
}

// Flush 输出纵向平均并清空统计窗口
func (c *Collector) Flush(o *Output) error {
	if err := c.WriteVerticalAvg(o); err != nil {
		return err
	}
	logger.Debug("统计窗口已输出", "blocks", len(c.blocks), "maxTime", c.maxTime, "maxHops", c.maxHops)
	c.Reset()
	return nil
}
