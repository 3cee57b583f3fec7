package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	pkgerrors "github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/pkg/errors"
)

// 退出码
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // 业务失败：校验未通过、策略拒绝、回滚过期等
	ExitCommandError = 2 // 命令错误：参数非法、文件不存在、连接失败等
)

// ExitError 携带退出码的错误
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError 创建 ExitError
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError 包装已有错误
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode 提取退出码；非 ExitError 一律视为业务失败
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// ── 输出 ──

// OutputFormatter 统一 text / json 输出
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// CLIResponse json 模式下的统一结构
type CLIResponse struct {
	Status string      `json:"status"` // ok | error
	Data   interface{} `json:"data,omitempty"`
	Error  *CLIError   `json:"error,omitempty"`
}

// CLIError 错误详情
type CLIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// Success 输出成功结果
// text 模式按 json 字段名渲染为 YAML，便于人工阅读
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	return f.writeYAML(data)
}

// Error 输出错误
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}
	fmt.Fprintf(f.Writer, "错误 [%s]: %s\n", code, message)
	if details != nil {
		return f.writeYAML(details)
	}
	return nil
}

// VerboseLog 仅在 --verbose 时输出到 ErrWriter
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

func (f *OutputFormatter) writeYAML(data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(f.Writer)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

// CodeCommandError 非业务错误（参数、文件、连接）的输出码
const CodeCommandError = "COMMAND_ERROR"

// fail 输出错误并转换为 ExitError
// 业务错误退出码 1，其余退出码 2；details 非 nil 时随错误输出（如执行失败的 SwapOutcome）
func (f *OutputFormatter) fail(err error, details interface{}) error {
	code, exit := CodeCommandError, ExitCommandError
	var coded pkgerrors.Coded
	if errors.As(err, &coded) {
		code, exit = coded.Code(), ExitFailure
	}
	if outErr := f.Error(code, err.Error(), details); outErr != nil {
		return outErr
	}
	return &ExitError{Code: exit, Message: code, Err: err}
}
