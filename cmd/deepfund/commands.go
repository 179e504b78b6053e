package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"deepfund/internal/app"
	"deepfund/internal/config"
	"deepfund/internal/logger"
	"deepfund/internal/report"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "configs/config.yaml"

type globalFlags struct {
	configPath string
	localStore bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "deepfund",
		Short:         "deepfund - LLM multi-agent portfolio backtester",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	defPath := os.Getenv("DEEPFUND_CONFIG")
	if defPath == "" {
		defPath = defaultConfigPath
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", defPath, "Configuration file path")
	root.PersistentFlags().BoolVar(&flags.localStore, "local-store", false, "Force the local sqlite ledger")

	root.AddCommand(newRunCmd(flags))
	root.AddCommand(newServeCmd(flags))
	root.AddCommand(newReportCmd(flags))
	return root
}

func newRunCmd(flags *globalFlags) *cobra.Command {
	var tradingDate string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Replay the configured trading dates through the agent pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var date time.Time
			if strings.TrimSpace(tradingDate) != "" {
				d, err := config.ParseTradingDate(tradingDate)
				if err != nil {
					return err
				}
				date = d
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withApp(ctx, flags, func(a *app.App) error {
				out, err := a.RunBacktest(ctx, date)
				if err != nil {
					return err
				}
				logger.Infof("✓ run %s finished: %d step(s), total value %s, cash %s",
					out.Identity.Name, len(out.Steps), out.Final.TotalValue().StringFixed(2), out.Final.Cashflow.StringFixed(2))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&tradingDate, "trading-date", "", "Run a single trading date (YYYY-MM-DD)")
	return cmd
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only ledger API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withApp(ctx, flags, func(a *app.App) error {
				return a.Serve(ctx)
			})
		},
	}
}

func newReportCmd(flags *globalFlags) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the portfolio summary and optionally write the equity curve",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), flags, func(a *app.App) error {
				rep, err := a.Report(cmd.Context(), out)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), report.RenderSummary(rep))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Write the equity curve HTML to this path")
	return cmd
}

// withApp 加载配置与日志输出，构建 App 并在 fn 返回后关闭。
func withApp(ctx context.Context, flags *globalFlags, fn func(*app.App) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := config.LoadDotEnv(); err != nil {
		return fmt.Errorf("读取 .env 失败: %w", err)
	}
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		return fmt.Errorf("初始化日志文件失败: %w", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	llmFile, err := setupLLMLogOutput(cfg.App)
	if err != nil {
		return fmt.Errorf("初始化 LLM 日志失败: %w", err)
	}
	if llmFile != nil {
		defer llmFile.Close()
	}
	logger.Infof("✓ 配置加载成功（run=%s，tickers=%s）", cfg.Run.Name, strings.Join(cfg.Run.Tickers, ","))

	a, err := app.NewApp(ctx, cfg, app.Options{LocalStore: flags.localStore})
	if err != nil {
		return fmt.Errorf("初始化应用失败: %w", err)
	}
	defer a.Close()
	return fn(a)
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}

// setupLLMLogOutput 只要配置了 llm_log_path 就记录提示词与回复；
// llm_dump_payload 额外附带请求的 schema。
func setupLLMLogOutput(cfg config.AppConfig) (*os.File, error) {
	logger.SetLLMWriter(nil)
	logger.EnableLLMPayloadDump(cfg.LLMDump)
	trimmed := strings.TrimSpace(cfg.LLMLog)
	if trimmed == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	logger.SetLLMWriter(f)
	return f, nil
}
