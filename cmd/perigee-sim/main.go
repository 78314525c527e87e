// Package main 提供 perigee-sim 命令行入口
//
// 每个位置参数是一个配置文件（.json/.toml/.yaml），各自独立运行一次仿真；
// 没有位置参数时使用默认配置运行一次。命令行参数覆盖配置文件中的同名项。
//
//	perigee-sim -preset perigee-subset -nodes 1000 -out out/subset
//	perigee-sim -parallel 4 -out out/exp configs/*.toml
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dep2p/go-perigee"
	"github.com/dep2p/go-perigee/config"
	"github.com/dep2p/go-perigee/internal/core/eventbus"
	"github.com/dep2p/go-perigee/pkg/lib/log"
)

var logger = log.Logger("perigee/cmd")

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
var (
	// ─────────────────────────────────────────────────────────────────────
	// 仿真参数（覆盖配置文件）
	// ─────────────────────────────────────────────────────────────────────
	preset = flag.String("preset", "", "预设配置 (cr/perigee-last/perigee-first/perigee-subset)")
	nodes  = flag.Int("nodes", 0, "网络规模（0 = 使用配置）")
	seed   = flag.Int64("seed", 0, "随机种子")
	out    = flag.String("out", "", "统计文件前缀，多个配置时追加配置名")

	// ─────────────────────────────────────────────────────────────────────
	// 运行参数
	// ─────────────────────────────────────────────────────────────────────
	parallel    = flag.Int("parallel", 1, "同时运行的仿真数")
	metricsAddr = flag.String("metrics-addr", "", "Prometheus 指标监听地址（如 :9100）")
	jsonReport  = flag.Bool("json", false, "以 JSON 输出运行汇总")

	// ─────────────────────────────────────────────────────────────────────
	// 日志参数
	// ─────────────────────────────────────────────────────────────────────
	logFile   = flag.String("log", "", "日志文件路径（按大小轮转），为空时输出到 stderr")
	logLevel  = flag.String("log-level", "info", "日志级别 (debug/info/warn/error)")
	logFormat = flag.String("log-format", "text", "日志格式 (text/json)")

	showVersion = flag.Bool("version", false, "显示版本信息")
)

// job 一次仿真任务
type job struct {
	name string
	cfg  *config.Config
	out  string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	if *showVersion {
		fmt.Println(perigee.VersionInfo())
		return nil
	}
	if *parallel < 1 {
		return fmt.Errorf("-parallel 必须大于 0: %d", *parallel)
	}

	closeLog, err := setupLogging()
	if err != nil {
		return err
	}
	defer closeLog()

	jobs, err := buildJobs(flag.Args())
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if *metricsAddr != "" {
		shutdown := serveMetrics(*metricsAddr, reg)
		defer shutdown()
	}

	bus := eventbus.NewBus()
	defer bus.Close()
	stopProgress, err := watchProgress(ctx, bus)
	if err != nil {
		return err
	}
	defer stopProgress()

	logger.Info("开始运行", "version", perigee.Version, "jobs", len(jobs), "parallel", *parallel)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(*parallel)
	for _, j := range jobs {
		g.Go(func() error {
			return runJob(gctx, j, reg, bus)
		})
	}
	return g.Wait()
}

// buildJobs 加载配置文件，每个文件对应一个任务
func buildJobs(paths []string) ([]job, error) {
	if len(paths) == 0 {
		return []job{{name: "default", cfg: config.NewConfig(), out: *out}}, nil
	}

	jobs := make([]job, 0, len(paths))
	for _, p := range paths {
		cfg, err := config.Load(p)
		if err != nil {
			return nil, fmt.Errorf("加载配置文件 %s 失败: %w", p, err)
		}
		name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		j := job{name: name, cfg: cfg, out: *out}
		if *out != "" && len(paths) > 1 {
			j.out = *out + "-" + name
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// runJob 运行一次仿真并输出汇总
func runJob(ctx context.Context, j job, reg prometheus.Registerer, bus *eventbus.Bus) error {
	opts := []perigee.Option{
		perigee.WithConfig(j.cfg),
		perigee.WithRunID(j.name + "-" + uuid.NewString()[:8]),
		perigee.WithRegistry(reg),
		perigee.WithEventBus(bus),
	}
	if *preset != "" {
		opts = append(opts, perigee.WithPreset(*preset))
	}
	if *nodes > 0 {
		opts = append(opts, perigee.WithNodes(*nodes))
	}
	if isFlagSet("seed") {
		opts = append(opts, perigee.WithSeed(*seed))
	}
	if j.out != "" {
		if err := os.MkdirAll(filepath.Dir(j.out), 0o755); err != nil {
			return fmt.Errorf("创建输出目录失败: %w", err)
		}
		opts = append(opts, perigee.WithOutputBase(j.out))
	}

	sim, err := perigee.New(opts...)
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	defer func() { _ = sim.Close() }()

	report, err := sim.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	return printReport(os.Stdout, j.name, report)
}

// printReport 输出运行汇总
func printReport(w io.Writer, name string, r *perigee.Report) error {
	if *jsonReport {
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	_, err := fmt.Fprintf(w, "%s\tnodes=%d\tblocks=%d\ton=%d\toff=%d\tmean=%.1fms\tp50=%s\tp90=%s\tp99=%s\trounds=%d\twall=%s\n",
		name, r.Nodes, r.Blocks, r.OnChain, r.OffChain, r.MeanDelay, r.P50, r.P90, r.P99, r.Rounds,
		r.WallTime.Round(time.Millisecond))
	return err
}

// setupLogging 设置日志输出，返回关闭函数
func setupLogging() (func(), error) {
	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		return nil, err
	}
	format := log.FormatText
	if *logFormat == string(log.FormatJSON) {
		format = log.FormatJSON
	}

	if *logFile == "" {
		log.Setup(os.Stderr, level, format)
		return func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(*logFile), 0o750); err != nil {
		return nil, fmt.Errorf("创建日志目录失败: %w", err)
	}
	rotated := &lumberjack.Logger{
		Filename:   *logFile,
		MaxSize:    100, // MB
		MaxBackups: 5,
		MaxAge:     30, // 天
		Compress:   true,
	}
	log.Setup(rotated, level, format)
	return func() { _ = rotated.Close() }, nil
}

// serveMetrics 启动指标 HTTP 服务，返回关闭函数
func serveMetrics(addr string, reg *prometheus.Registry) func() {
	srv := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("指标服务异常退出", "addr", addr, "err", err)
		}
	}()
	logger.Info("指标服务已启动", "addr", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// isFlagSet 检查命令行参数是否被显式设置
func isFlagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
