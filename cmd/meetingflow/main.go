// =============================================================================
// MeetingFlow 主入口
// =============================================================================
// 多智能体会议编排器的命令行入口
//
// 使用方法:
//
//	meetingflow run                        # 用默认配置开会
//	meetingflow run --config meeting.yaml  # 指定配置文件
//	meetingflow run --topic "..."          # 覆盖会议主题
//	meetingflow version                    # 显示版本信息
// =============================================================================
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/BaSui01/meetingflow"
	"github.com/BaSui01/meetingflow/config"
	"github.com/BaSui01/meetingflow/logging"
	"github.com/BaSui01/meetingflow/meeting"
	"github.com/BaSui01/meetingflow/meeting/persistence"
	"github.com/BaSui01/meetingflow/metrics"
	"github.com/BaSui01/meetingflow/types"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runMeeting(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// =============================================================================
// 🗣️ run 命令
// =============================================================================

func runMeeting(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (YAML)")
	topic := fs.String("topic", "", "Override the meeting topic")
	jsonOut := fs.Bool("json", false, "Print the full result as JSON")
	fs.Parse(args)

	// 加载配置
	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *topic != "" {
		cfg.Topic = *topic
	}
	cfg.Finalize()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger := logging.NewLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("starting meetingflow",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("topic", cfg.Topic),
		zap.Int("agents", len(cfg.Agents)),
	)

	// 组装事件接收端
	var sinks meeting.MultiSink

	writer, err := logging.NewWriter(cfg, logger)
	if err != nil {
		logger.Warn("transcript writer unavailable", zap.Error(err))
	} else {
		defer writer.Close()
		sinks = append(sinks, writer)
		logger.Info("transcript output ready", zap.String("dir", writer.Dir()))
	}

	if cfg.Metrics.Enabled {
		sinks = append(sinks, metrics.NewCollector("meetingflow", logger))
		sampler := metrics.NewSampler("meetingflow", 0, logger)
		sampler.Start()
		defer sampler.Stop()
		if cfg.Metrics.Addr != "" {
			srv := metrics.NewServer(cfg.Metrics.Addr, logger)
			srv.Start()
			defer srv.Shutdown(context.Background())
		}
	}

	store, err := persistence.FromConfig(cfg.Persistence, logger)
	if err != nil {
		logger.Warn("meeting store unavailable", zap.Error(err))
	} else if store != nil {
		defer store.Close()
		sinks = append(sinks, store)
	}

	// Ctrl-C で有序収尾
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := meetingflow.Run(ctx, cfg, logger, meeting.WithSink(sinks))
	if err != nil {
		logger.Error("meeting failed", zap.Error(err))
		if result == nil {
			os.Exit(1)
		}
		// 部分結果は出力してから異常終了
		printResult(result, *jsonOut)
		os.Exit(1)
	}

	printResult(result, *jsonOut)
}

func printResult(result *types.MeetingResult, asJSON bool) {
	if asJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode result: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Meeting %s (%s)\n", result.ID, result.State)
	fmt.Printf("  Topic:  %s\n", result.Topic)
	fmt.Printf("  Turns:  %d across %d phases\n", len(result.Turns), len(result.Phases))
	fmt.Printf("  KPI:    diversity=%.2f decision=%.2f progress=%.2f coverage=%.2f\n",
		result.FinalKPI.Diversity, result.FinalKPI.DecisionDensity,
		result.FinalKPI.Progress, result.FinalKPI.SpecCoverage)
	if result.Agreement != "" {
		fmt.Printf("\nAgreed:\n%s\n", indent(result.Agreement))
	}
	if len(result.OpenIssues) > 0 {
		fmt.Println("\nOpen issues:")
		for _, issue := range result.OpenIssues {
			fmt.Printf("  - %s\n", issue)
		}
	}
	if result.NextActions != "" {
		fmt.Printf("\nNext actions:\n%s\n", indent(result.NextActions))
	}
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = "  " + line
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion() {
	fmt.Printf("MeetingFlow %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
}

func printUsage() {
	fmt.Println(`MeetingFlow - Multi-Agent Meeting Orchestrator

Usage:
  meetingflow <command> [options]

Commands:
  run       Run a meeting
  version   Show version information
  help      Show this help message

Options for 'run':
  --config <path>   Path to configuration file (YAML)
  --topic <text>    Override the meeting topic
  --json            Print the full result as JSON

Examples:
  meetingflow run --config meeting.yaml
  meetingflow run --topic "improve the onboarding flow"
  meetingflow version`)
}
