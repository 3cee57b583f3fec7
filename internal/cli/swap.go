package cli

import (
	"github.com/spf13/cobra"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/dto"
)

// NewSwapCommand 换班子命令组
func NewSwapCommand(rootOpts *RootOptions, factory RuntimeFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "换班申请：创建、校验、预览、执行与回滚",
	}
	cmd.AddCommand(newSwapCreateCommand(rootOpts, factory))
	cmd.AddCommand(newSwapShowCommand(rootOpts, factory))
	cmd.AddCommand(newSwapValidateCommand(rootOpts, factory))
	cmd.AddCommand(newSwapPlanCommand(rootOpts, factory))
	cmd.AddCommand(newSwapExecuteCommand(rootOpts, factory))
	cmd.AddCommand(newSwapRollbackCommand(rootOpts, factory))
	return cmd
}

func newSwapCreateCommand(rootOpts *RootOptions, factory RuntimeFactory) *cobra.Command {
	var (
		req        dto.CreateSwapRequest
		targetWeek string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "创建换班申请",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			if targetWeek != "" {
				req.TargetWeek = &targetWeek
			}
			if err := validateInput(f, flagValidate(), &req); err != nil {
				return err
			}
			return withRuntime(rootOpts, factory, true, func(rt *Runtime) error {
				resp, err := rt.Service.Swap.CreateSwapRequest(cmd.Context(), &req, rootOpts.Actor)
				if err != nil {
					return f.fail(err, nil)
				}
				return f.Success(resp)
			})
		},
	}

	cmd.Flags().StringVar(&req.SourceFacultyID, "source-faculty", "", "发起方教员 ID")
	cmd.Flags().StringVar(&req.SourceWeek, "source-week", "", "发起方让出的周（任意一天，按所在周计）")
	cmd.Flags().StringVar(&req.TargetFacultyID, "target-faculty", "", "接收方教员 ID")
	cmd.Flags().StringVar(&targetWeek, "target-week", "", "接收方让出的周（one_to_one 必填）")
	cmd.Flags().StringVar(&req.SwapType, "type", "one_to_one", "换班类型 (one_to_one|absorb)")
	cmd.Flags().StringVar(&req.Reason, "reason", "", "换班原因")
	cmd.Flags().BoolVar(&req.WaiveCriticalAlerts, "waive-critical-alerts", false, "豁免 critical 告警校验")
	return cmd
}

func newSwapShowCommand(rootOpts *RootOptions, factory RuntimeFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "show <swap-id>",
		Short: "查看换班申请（含执行步骤与审批）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			return withRuntime(rootOpts, factory, true, func(rt *Runtime) error {
				resp, err := rt.Service.Swap.GetSwap(cmd.Context(), args[0])
				if err != nil {
					return f.fail(err, nil)
				}
				return f.Success(resp)
			})
		},
	}
}

func newSwapValidateCommand(rootOpts *RootOptions, factory RuntimeFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <swap-id>",
		Short: "执行校验链（只读）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			return withRuntime(rootOpts, factory, true, func(rt *Runtime) error {
				result, err := rt.Service.Swap.ValidateSwap(cmd.Context(), args[0])
				if err != nil {
					return f.fail(err, nil)
				}
				if err := f.Success(result); err != nil {
					return err
				}
				if !result.Valid {
					return NewExitError(ExitFailure, "校验未通过")
				}
				return nil
			})
		},
	}
}

func newSwapPlanCommand(rootOpts *RootOptions, factory RuntimeFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <swap-id>",
		Short: "预览执行计划（只读）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			return withRuntime(rootOpts, factory, true, func(rt *Runtime) error {
				plan, err := rt.Service.Swap.CreateExecutionPlan(cmd.Context(), args[0], rootOpts.Actor)
				if err != nil {
					return f.fail(err, nil)
				}
				return f.Success(plan)
			})
		},
	}
}

func newSwapExecuteCommand(rootOpts *RootOptions, factory RuntimeFactory) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "execute <swap-id>",
		Short: "执行换班（--dry-run 只校验并返回计划）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			return withRuntime(rootOpts, factory, true, func(rt *Runtime) error {
				outcome, err := rt.Service.Swap.ExecuteSwap(cmd.Context(), args[0], rootOpts.Actor, dryRun)
				if err != nil {
					return failWithOutcome(f, err, outcome)
				}
				return f.Success(outcome)
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "只校验并生成计划，不写入")
	return cmd
}

func newSwapRollbackCommand(rootOpts *RootOptions, factory RuntimeFactory) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "rollback <swap-id>",
		Short: "在回滚窗口内撤销已执行的换班",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			req := dto.RollbackSwapRequest{Reason: reason}
			if err := validateInput(f, flagValidate(), &req); err != nil {
				return err
			}
			return withRuntime(rootOpts, factory, true, func(rt *Runtime) error {
				outcome, err := rt.Service.Swap.RollbackSwap(cmd.Context(), args[0], req.Reason, rootOpts.Actor)
				if err != nil {
					return failWithOutcome(f, err, outcome)
				}
				return f.Success(outcome)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "回滚原因")
	return cmd
}

// failWithOutcome 执行/回滚失败时一并输出结构化结果
func failWithOutcome(f *OutputFormatter, err error, outcome *dto.SwapOutcome) error {
	if outcome == nil {
		return f.fail(err, nil)
	}
	return f.fail(err, outcome)
}
