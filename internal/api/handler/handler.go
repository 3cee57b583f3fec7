package handler

import "github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Swap     *SwapHandler
	Conflict *ConflictHandler
	Slot     *SlotHandler
	Absence  *AbsenceHandler
	Export   *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Swap:     NewSwapHandler(svc.Swap),
		Conflict: NewConflictHandler(svc.Conflict),
		Slot:     NewSlotHandler(svc.Slot),
		Absence:  NewAbsenceHandler(svc.Absence),
		Export:   NewExportHandler(svc.Export),
	}
}
