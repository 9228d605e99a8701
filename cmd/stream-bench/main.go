// Package main 提供 stream-bench 命令行入口
//
// 在一个 Hub 上注册若干流对象，由多个并发调用方通过代理对象分发，
// 结束后打印耗时和指标。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	stream "github.com/dep2p/go-stream"
	"github.com/dep2p/go-stream/config"
	"github.com/dep2p/go-stream/pkg/lib/log"
)

var logger = log.Logger("stream/cmd")

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
var (
	// ─────────────────────────────────────────────────────────────────────
	// 配置
	// ─────────────────────────────────────────────────────────────────────
	configFile = flag.String("config", "", "配置文件路径（JSON）")
	preset     = flag.String("preset", "default", "预设配置 (default/debug/minimal)")

	// ─────────────────────────────────────────────────────────────────────
	// 压测参数
	// ─────────────────────────────────────────────────────────────────────
	streams  = flag.Int("streams", 8, "注册的流对象数量")
	tagged   = flag.Int("tagged", 2, "其中带 tag 的流对象数量")
	callers  = flag.Int("callers", 4, "并发调用方数量")
	calls    = flag.Int("calls", 10000, "每个调用方的调用次数")
	sticky   = flag.Bool("sticky", true, "演示粘性代理与重放")
	priority = flag.Bool("priority", true, "为流对象设置递增优先级")

	// ─────────────────────────────────────────────────────────────────────
	// 日志与输出
	// ─────────────────────────────────────────────────────────────────────
	logLevel    = flag.String("log-level", "", "日志级别（覆盖配置文件）")
	logFormat   = flag.String("log-format", "", "日志格式 text/json（覆盖配置文件）")
	showMetrics = flag.Bool("metrics", true, "结束后打印指标")

	// ─────────────────────────────────────────────────────────────────────
	// 信息显示
	// ─────────────────────────────────────────────────────────────────────
	showVersion = flag.Bool("version", false, "显示版本信息")
	showHelp    = flag.Bool("help", false, "显示帮助信息")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	if *showVersion {
		printVersion()
		return nil
	}
	if *showHelp {
		printHelp()
		return nil
	}

	cfg, err := buildConfig()
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}
	if err := log.Configure(os.Stderr, cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("日志配置错误: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("📦 %s\n", stream.VersionInfo())
	logger.Info("启动 stream-bench",
		"streams", *streams,
		"tagged", *tagged,
		"callers", *callers,
		"calls", *calls)

	hub, err := stream.New(ctx, stream.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("创建 Hub 失败: %w", err)
	}
	defer func() { _ = hub.Close() }()

	workers, err := registerWorkers(hub, *streams, *tagged, *priority)
	if err != nil {
		return err
	}

	if *sticky && cfg.Sticky.Enabled {
		if err := runSticky(hub); err != nil {
			return err
		}
	}

	elapsed, err := runCallers(ctx, hub, *callers, *calls)
	if err != nil {
		return err
	}

	printSummary(workers, elapsed)
	if *showMetrics {
		if err := printMetrics(hub); err != nil {
			return err
		}
	}
	return nil
}

// buildConfig 配置文件 → 预设 → 命令行覆盖
func buildConfig() (*config.Config, error) {
	var cfg *config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.LoadFile(*configFile)
		if err != nil {
			return nil, fmt.Errorf("加载配置文件失败: %w", err)
		}
	} else {
		cfg = config.NewConfig()
	}

	if *configFile == "" || isFlagSet("preset") {
		if err := config.ApplyPreset(cfg, *preset); err != nil {
			return nil, err
		}
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *streams <= 0 || *callers <= 0 || *calls <= 0 {
		return nil, fmt.Errorf("streams/callers/calls 必须为正数")
	}
	if *tagged < 0 || *tagged > *streams {
		return nil, fmt.Errorf("tagged 必须在 0 到 %d 之间", *streams)
	}
	return cfg, cfg.Validate()
}

// isFlagSet 检查命令行参数是否显式设置
func isFlagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// runCallers 并发调用方压测
func runCallers(ctx context.Context, hub *stream.Hub, nCallers, nCalls int) (time.Duration, error) {
	g, ctx := errgroup.WithContext(ctx)
	start := time.Now()

	for i := 0; i < nCallers; i++ {
		id := i
		g.Go(func() error {
			p, err := newTickerProxy(hub)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			for n := 0; n < nCalls; n++ {
				if n%1024 == 0 && ctx.Err() != nil {
					return ctx.Err()
				}
				if _, err := p.tick(n); err != nil {
					return fmt.Errorf("caller %d: %w", id, err)
				}
			}
			logger.Debug("caller done", "caller", id, "calls", nCalls)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}

// runSticky 先通知再注册，演示重放
func runSticky(hub *stream.Hub) error {
	p, err := stream.NewProxy[StatusListener](hub, stream.WithSticky())
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	status := statusProxy{p}
	status.OnStatus("warming")
	status.OnStatus("ready")

	late := &statusBoard{}
	if _, err := hub.Register(late); err != nil {
		return err
	}
	if _, err := hub.ReplayAll(late); err != nil {
		return err
	}
	fmt.Printf("粘性重放: 新流对象收到 %q\n", late.Last())
	return nil
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("stream-bench %s\n", stream.Version)
	if stream.GitCommit != "" {
		fmt.Printf("  commit: %s\n", stream.GitCommit)
	}
	if stream.BuildDate != "" {
		fmt.Printf("  built:  %s\n", stream.BuildDate)
	}
}

// printHelp 打印帮助信息
func printHelp() {
	fmt.Println("stream-bench - 流分发压测工具")
	fmt.Println()
	fmt.Println("用法:")
	fmt.Println("  stream-bench [选项]")
	fmt.Println()
	fmt.Println("选项:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("═══════════════════════════════════════════════════════════════════════════")
	fmt.Println("配置文件示例 (config.json)")
	fmt.Println("═══════════════════════════════════════════════════════════════════════════")
	fmt.Println()
	fmt.Println(`  {`)
	fmt.Println(`    "debug": false,`)
	fmt.Println(`    "log": {"level": "info", "format": "text"},`)
	fmt.Println(`    "sticky": {"enabled": true},`)
	fmt.Println(`    "defaults": {"factory": "lru", "lru_size": 64},`)
	fmt.Println(`    "metrics": {"enabled": true, "namespace": "stream"}`)
	fmt.Println(`  }`)
	fmt.Println()
	fmt.Println("使用示例:")
	fmt.Println("  stream-bench -streams 16 -callers 8 -calls 50000")
	fmt.Println("  stream-bench -preset debug -calls 10")
	fmt.Println("  stream-bench -config config.json -log-format json")
}
