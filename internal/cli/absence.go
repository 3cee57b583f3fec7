package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/dto"
)

// NewAbsencesCommand 缺勤子命令组
func NewAbsencesCommand(rootOpts *RootOptions, factory RuntimeFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "absences",
		Short: "缺勤数据维护",
	}
	cmd.AddCommand(newAbsencesImportCommand(rootOpts, factory))
	return cmd
}

func newAbsencesImportCommand(rootOpts *RootOptions, factory RuntimeFactory) *cobra.Command {
	var (
		facultyID string
		file      string
		url       string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "从 iCalendar 文件或订阅地址导入缺勤（按 UID 幂等）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			if (file == "") == (url == "") {
				return f.fail(NewExitError(ExitCommandError, "--file 与 --url 必须且只能指定一个"), nil)
			}

			if url != "" {
				req := dto.ImportAbsencesRequest{FacultyID: facultyID, URL: url}
				if err := validateInput(f, flagValidate(), &req); err != nil {
					return err
				}
				return withRuntime(rootOpts, factory, true, func(rt *Runtime) error {
					resp, err := rt.Service.Absence.ImportICSURL(cmd.Context(), req.URL, req.FacultyID, rootOpts.Actor)
					if err != nil {
						return f.fail(err, nil)
					}
					return f.Success(resp)
				})
			}

			if facultyID == "" {
				return f.fail(NewExitError(ExitCommandError, "必须指定 --faculty"), nil)
			}
			fh, err := os.Open(file)
			if err != nil {
				return f.fail(WrapExitError(ExitCommandError, "打开日历文件失败", err), nil)
			}
			defer fh.Close()

			return withRuntime(rootOpts, factory, true, func(rt *Runtime) error {
				resp, err := rt.Service.Absence.ImportICS(cmd.Context(), fh, facultyID, rootOpts.Actor)
				if err != nil {
					return f.fail(err, nil)
				}
				return f.Success(resp)
			})
		},
	}

	cmd.Flags().StringVar(&facultyID, "faculty", "", "教员 ID")
	cmd.Flags().StringVar(&file, "file", "", "本地 .ics 文件")
	cmd.Flags().StringVar(&url, "url", "", "日历订阅地址")
	return cmd
}
