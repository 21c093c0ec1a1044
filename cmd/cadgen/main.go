package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/Zacy-Sokach/cadgen/internal/api"
	"github.com/Zacy-Sokach/cadgen/internal/config"
	"github.com/Zacy-Sokach/cadgen/internal/logging"
	"github.com/Zacy-Sokach/cadgen/internal/tui"
	"github.com/Zacy-Sokach/cadgen/internal/utils"
	"github.com/Zacy-Sokach/cadgen/internal/viewer"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var (
	Version = "dev"
)

func main() {
	// 处理命令行参数
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "-v", "--version":
			fmt.Printf("cadgen %s\n", Version)
			os.Exit(0)
		case "-h", "--help":
			fmt.Println("cadgen - AI-powered parametric CAD in your terminal")
			fmt.Println()
			fmt.Println("Usage:")
			fmt.Println("  cadgen                  Start the interactive TUI")
			fmt.Println("  cadgen init-config      Write the default config file")
			fmt.Println("  cadgen -v, --version    Show version information")
			fmt.Println("  cadgen -h, --help       Show help information")
			fmt.Println()
			fmt.Printf("Config file: %s\n", utils.GetConfigPathForDisplay())
			fmt.Println()
			fmt.Println("Environment:")
			fmt.Println("  CADGEN_BASE_URL         Backend API base URL")
			fmt.Println("  CADGEN_REQUEST_TIMEOUT  Generation request timeout, e.g. 5m")
			fmt.Println("  CADGEN_SKIP_LANDING     Skip the landing page")
			fmt.Println("  CADGEN_LOG_LEVEL        debug, info, warn, error or off")
			fmt.Println("  CADGEN_LOG_FILE         Log file path")
			fmt.Println()
			fmt.Println("Commands in TUI:")
			fmt.Println("  /new                    Start a new project")
			fmt.Println("  /stl /gltf /glb         Download the current model")
			fmt.Println("  /copy                   Copy the generated code")
			fmt.Println("  /sidebar                Toggle session history")
			os.Exit(0)
		case "init-config":
			if err := config.SaveConfig(config.DefaultConfig()); err != nil {
				fmt.Printf("保存配置失败: %v\n", err)
				os.Exit(1)
			}
			path, _ := config.ConfigPath()
			fmt.Printf("配置已写入 %s\n", path)
			os.Exit(0)
		}
	}

	// 添加panic恢复
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("程序发生panic: %v\n", r)
			fmt.Println("堆栈跟踪:")
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	// .env 不存在时忽略
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg)
	if err != nil {
		fmt.Printf("初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(finish(logger, run(cfg, logger)))
}

// run 创建客户端并运行 TUI，非交互式终端只打印摘要
func run(cfg *config.Config, logger *zap.Logger) error {
	client, err := api.NewClient(cfg.BaseURL,
		api.WithTimeout(cfg.RequestTimeout),
		api.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("创建API客户端失败: %w", err)
	}

	// 检查是否在交互式终端中
	if !isTerminal() {
		fmt.Println("cadgen 运行在非交互式模式")
		fmt.Println("请确保在交互式终端中运行以获得完整TUI体验")
		fmt.Printf("后端地址: %s\n", client.BaseURL())
		fmt.Println("程序将在非交互式环境中退出")
		return nil
	}

	tui.Version = Version
	logger.Info("cadgen 启动", zap.String("version", Version), zap.String("base_url", client.BaseURL()))

	model := tui.NewModel(tui.Options{
		Backend: client,
		Viewer: viewer.New(viewer.Options{
			SnapshotWidth:  cfg.Viewer.SnapshotWidth,
			SnapshotHeight: cfg.Viewer.SnapshotHeight,
			Quality:        cfg.Viewer.SnapshotQuality,
		}),
		Logger:      logger,
		DocsURL:     cfg.DocsURL,
		SkipLanding: cfg.SkipLanding,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("程序运行错误: %w", err)
	}
	return nil
}

// finish 记录错误并刷新日志，返回进程退出码
func finish(logger *zap.Logger, err error) int {
	code := 0
	if err != nil {
		logger.Error("程序异常退出", zap.Error(err))
		fmt.Println(err)
		code = 1
	}
	_ = logger.Sync()
	return code
}

func isTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
