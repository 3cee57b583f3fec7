// Package cli rosterctl 命令行：批量导入、人工覆盖、冲突扫描、换班执行与回滚、服务账号 Token
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions 全局参数
type RootOptions struct {
	ConfigPath string
	Format     string // text | json
	Actor      string
	Verbose    bool
}

// ValidFormats 支持的输出格式
var ValidFormats = []string{"text", "json"}

// DefaultActor 未指定 --actor 时写入审计字段的操作人
const DefaultActor = "cli:rosterctl"

// NewRootCommand 创建 rosterctl 根命令
// factory 为 nil 时使用 DefaultRuntime（测试注入 SQLite 运行时）
func NewRootCommand(factory RuntimeFactory) *cobra.Command {
	if factory == nil {
		factory = DefaultRuntime
	}
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "rosterctl",
		Short: "临床排班换班与一致性引擎运维工具",
		Long: `rosterctl 直接连接排班数据库执行运维操作。

所有写入与 HTTP 服务走同一套来源策略与换班校验链，命令行没有旁路。`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("无效的输出格式 %q，可选 %v", opts.Format, ValidFormats))
			}
			if opts.Actor == "" {
				return NewExitError(ExitCommandError, "--actor 不能为空")
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "配置文件路径（默认 ./config/config.yaml）")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "输出格式 (text|json)")
	cmd.PersistentFlags().StringVar(&opts.Actor, "actor", DefaultActor, "写入审计字段的操作人")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "输出诊断信息")

	cmd.AddCommand(NewIngestCommand(opts, factory))
	cmd.AddCommand(NewOverrideCommand(opts, factory))
	cmd.AddCommand(NewDetectCommand(opts, factory))
	cmd.AddCommand(NewSwapCommand(opts, factory))
	cmd.AddCommand(NewAbsencesCommand(opts, factory))
	cmd.AddCommand(NewTokenCommand(opts, factory))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
