package cli

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// FieldError 单个字段的校验错误
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Value string `json:"value,omitempty"`
}

var (
	fileValidatorOnce sync.Once
	fileValidator     *validator.Validate
	flagValidatorOnce sync.Once
	flagValidator     *validator.Validate
)

// fileValidate 批量文件使用 validate 标签
func fileValidate() *validator.Validate {
	fileValidatorOnce.Do(func() {
		fileValidator = validator.New(validator.WithRequiredStructEnabled())
	})
	return fileValidator
}

// flagValidate 命令行参数复用 REST 绑定的 binding 标签
func flagValidate() *validator.Validate {
	flagValidatorOnce.Do(func() {
		flagValidator = validator.New()
		flagValidator.SetTagName("binding")
	})
	return flagValidator
}

// checkStruct 校验失败时返回字段错误列表
func checkStruct(v *validator.Validate, s interface{}) ([]FieldError, error) {
	err := v.Struct(s)
	if err == nil {
		return nil, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field: fe.Namespace(),
			Rule:  fe.Tag(),
			Value: fmt.Sprint(fe.Value()),
		})
	}
	return out, nil
}

// validateInput 校验并在失败时输出字段错误
func validateInput(f *OutputFormatter, v *validator.Validate, s interface{}) error {
	fields, err := checkStruct(v, s)
	if err != nil {
		return WrapExitError(ExitCommandError, "参数校验异常", err)
	}
	if len(fields) == 0 {
		return nil
	}
	if outErr := f.Error(CodeInvalidInput, fmt.Sprintf("%d 个字段校验失败", len(fields)), fields); outErr != nil {
		return outErr
	}
	return NewExitError(ExitCommandError, CodeInvalidInput)
}

// CodeInvalidInput 参数校验失败的输出码
const CodeInvalidInput = "INVALID_INPUT"
