package cli

import (
	"github.com/spf13/cobra"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/dto"
)

// NewDetectCommand 冲突检测；--persist 时同时创建告警（重复告警自动跳过）
func NewDetectCommand(rootOpts *RootOptions, factory RuntimeFactory) *cobra.Command {
	var (
		req     dto.DetectConflictsRequest
		faculty string
	)

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "检测 [from, to) 范围内的排班冲突",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			if faculty != "" {
				req.FacultyID = &faculty
			}
			if err := validateInput(f, flagValidate(), &req); err != nil {
				return err
			}
			return withRuntime(rootOpts, factory, true, func(rt *Runtime) error {
				resp, err := rt.Service.Conflict.Detect(cmd.Context(), &req, rootOpts.Actor)
				if err != nil {
					return f.fail(err, nil)
				}
				f.VerboseLog("检测到 %d 个冲突", len(resp.Conflicts))
				return f.Success(resp)
			})
		},
	}

	cmd.Flags().StringVar(&req.From, "from", "", "起始日期 YYYY-MM-DD（含）")
	cmd.Flags().StringVar(&req.To, "to", "", "结束日期 YYYY-MM-DD（不含）")
	cmd.Flags().StringVar(&faculty, "faculty", "", "仅检测指定教员")
	cmd.Flags().BoolVar(&req.Persist, "persist", false, "为检测结果创建告警")
	return cmd
}
