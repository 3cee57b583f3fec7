package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/dto"
)

// NewIngestCommand 批量导入优化器 / 预加载输出
func NewIngestCommand(rootOpts *RootOptions, factory RuntimeFactory) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "ingest <batch.yaml>",
		Short: "批量导入时段（PRELOAD / SOLVER / TEMPLATE）",
		Long: `读取 YAML（或 JSON）批量文件并在单个事务内写入时段。

文件格式：
  source: SOLVER
  slots:
    - faculty_id: <uuid>
      date: 2026-11-02
      half_day: AM
      activity: FMIT

被来源策略拒绝的时段逐条报告，其余照常写入。`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd.Context(), rootOpts, factory, cmd, args[0], source)
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "覆盖文件中的 source 字段")
	return cmd
}

func runIngest(ctx context.Context, opts *RootOptions, factory RuntimeFactory, cmd *cobra.Command, path, source string) error {
	f := newFormatter(opts, cmd)

	req, err := loadBatchFile(path)
	if err != nil {
		return f.fail(WrapExitError(ExitCommandError, "读取批量文件失败", err), nil)
	}
	if source != "" {
		req.Source = source
	}
	if err := validateInput(f, fileValidate(), req); err != nil {
		return err
	}
	f.VerboseLog("批量文件 %s: source=%s, %d 个时段", path, req.Source, len(req.Slots))

	return withRuntime(opts, factory, true, func(rt *Runtime) error {
		resp, err := rt.Service.Slot.IngestBatch(ctx, req, opts.Actor)
		if err != nil {
			return f.fail(err, nil)
		}
		return f.Success(resp)
	})
}

func loadBatchFile(path string) (*dto.IngestBatchRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var req dto.IngestBatchRequest
	if err := yaml.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("解析 %s 失败: %w", path, err)
	}
	return &req, nil
}

// NewOverrideCommand 人工覆盖单个时段
func NewOverrideCommand(rootOpts *RootOptions, factory RuntimeFactory) *cobra.Command {
	var (
		req           dto.OverrideSlotRequest
		activity      string
		clearActivity bool
	)

	cmd := &cobra.Command{
		Use:   "override",
		Short: "人工覆盖单个时段（来源记为 MANUAL）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			if clearActivity && activity != "" {
				return f.fail(NewExitError(ExitCommandError, "--activity 与 --clear 不能同时使用"), nil)
			}
			if !clearActivity {
				if activity == "" {
					return f.fail(NewExitError(ExitCommandError, "必须指定 --activity 或 --clear"), nil)
				}
				req.Activity = &activity
			}
			if err := validateInput(f, fileValidate(), &req); err != nil {
				return err
			}
			return withRuntime(rootOpts, factory, true, func(rt *Runtime) error {
				resp, err := rt.Service.Slot.OverrideSlot(cmd.Context(), &req, rootOpts.Actor)
				if err != nil {
					return f.fail(err, nil)
				}
				return f.Success(resp)
			})
		},
	}

	cmd.Flags().StringVar(&req.FacultyID, "faculty", "", "教员 ID")
	cmd.Flags().StringVar(&req.Date, "date", "", "日期 YYYY-MM-DD")
	cmd.Flags().StringVar(&req.HalfDay, "half-day", "", "AM 或 PM")
	cmd.Flags().StringVar(&activity, "activity", "", "新活动")
	cmd.Flags().BoolVar(&clearActivity, "clear", false, "清空活动（时段保留，活动置空）")
	cmd.Flags().StringVar(&req.Reason, "reason", "", "覆盖原因")
	return cmd
}
