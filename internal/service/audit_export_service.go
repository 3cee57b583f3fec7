package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/model"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoSwaps      = errors.New("该时间范围内没有换班记录")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// AuditExportService 换班审计导出
//
// 设计说明：
//   - 按申请时间 [from, to) 导出换班记录为 Excel (.xlsx)
//   - Sheet "换班记录"：每条申请一行，含全部状态迁移的操作人与时间
//   - Sheet "执行步骤"：每个已持久化的时段变更一行（before / after）
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type AuditExportService interface {
	ExportSwaps(ctx context.Context, from, to time.Time) (*bytes.Buffer, string, error)
}

type auditExportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAuditExportService 创建 AuditExportService 实例
func NewAuditExportService(repo *repository.Repository, logger *zap.Logger) AuditExportService {
	return &auditExportService{repo: repo, logger: logger}
}

var swapSheetHeader = []string{
	"申请ID", "类型", "状态", "源教员", "源周", "目标教员", "目标周", "原因",
	"申请人", "申请时间", "执行人", "执行时间", "回滚期限",
	"回滚人", "回滚时间", "回滚原因", "驳回人", "失败原因", "豁免告警", "时段数",
}

var stepSheetHeader = []string{"申请ID", "序号", "教员", "日期", "半天", "原活动", "原来源", "新活动", "新来源"}

// ═══════════════════════════════════════════════════════════
// ExportSwaps：导出换班审计记录
// ═══════════════════════════════════════════════════════════

func (s *auditExportService) ExportSwaps(ctx context.Context, from, to time.Time) (*bytes.Buffer, string, error) {
	// 1. 查询记录
	records, _, err := s.repo.Swap.List(ctx, repository.SwapFilter{From: from, To: to}, 0, 0)
	if err != nil {
		s.logger.Error("查询换班记录失败", zap.Error(err))
		return nil, "", err
	}
	if len(records) == 0 {
		return nil, "", ErrExportNoSwaps
	}

	// 2. 教员姓名索引
	faculty, err := s.repo.Faculty.List(ctx, false)
	if err != nil {
		s.logger.Error("查询教员失败", zap.Error(err))
		return nil, "", err
	}
	names := make(map[string]string, len(faculty))
	for _, f := range faculty {
		names[f.FacultyID] = f.Name
	}
	nameOf := func(id string) string {
		if n, ok := names[id]; ok {
			return n
		}
		return id
	}

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	const swapSheet, stepSheet = "换班记录", "执行步骤"
	idx, _ := f.NewSheet(swapSheet)
	f.SetActiveSheet(idx)
	f.NewSheet(stepSheet)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	writeHeader(f, swapSheet, swapSheetHeader, headerStyle)
	writeHeader(f, stepSheet, stepSheetHeader, headerStyle)
	f.SetColWidth(swapSheet, "A", colName(len(swapSheetHeader)-1), 18)
	f.SetColWidth(stepSheet, "A", colName(len(stepSheetHeader)-1), 16)

	row, stepRow := 2, 2
	for i := range records {
		r := &records[i]
		targetWeek := ""
		if r.TargetWeek != nil {
			targetWeek = model.FormatDate(*r.TargetWeek)
		}
		steps := r.MutationSteps()
		values := []interface{}{
			r.SwapID, string(r.SwapType), string(r.Status),
			nameOf(r.SourceFacultyID), model.FormatDate(r.SourceWeek),
			nameOf(r.TargetFacultyID), targetWeek, r.Reason,
			r.RequestedBy, formatTime(r.RequestedAt),
			deref(r.ExecutedBy), derefTime(r.ExecutedAt), derefTime(r.RollbackDeadline),
			deref(r.RolledBackBy), derefTime(r.RolledBackAt), deref(r.RollbackReason),
			deref(r.RejectedBy), deref(r.FailureReason),
			r.CriticalAlertsWaived, len(steps),
		}
		for c, v := range values {
			f.SetCellValue(swapSheet, cell(colName(c), row), v)
		}
		row++

		for _, st := range steps {
			stepValues := []interface{}{
				r.SwapID, st.Seq, nameOf(st.Key.FacultyID), model.FormatDate(st.Key.Date), string(st.Key.HalfDay),
				st.Before.ActivityOrEmpty(), string(st.Before.Source),
				st.After.ActivityOrEmpty(), string(st.After.Source),
			}
			for c, v := range stepValues {
				f.SetCellValue(stepSheet, cell(colName(c), stepRow), v)
			}
			stepRow++
		}
	}

	// 4. 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("换班审计_%s_%s.xlsx", model.FormatDate(from), model.FormatDate(to))
	return buf, filename, nil
}

// ── 辅助函数 ──

func writeHeader(f *excelize.File, sheet string, header []string, style int) {
	for i, h := range header {
		f.SetCellValue(sheet, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheet, "A1", cell(colName(len(header)-1), 1), style)
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}
