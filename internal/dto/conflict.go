package dto

// ── 冲突告警模块 DTO ──

// DetectConflictsRequest 冲突检测请求
type DetectConflictsRequest struct {
	From      string  `json:"from"       binding:"required,datetime=2006-01-02"`
	To        string  `json:"to"         binding:"required,datetime=2006-01-02"`
	FacultyID *string `json:"faculty_id" binding:"omitempty,uuid"`
	Persist   bool    `json:"persist"` // 为 true 时同时创建告警
}

// AlertListRequest 告警列表查询参数
type AlertListRequest struct {
	FacultyID    string `form:"faculty_id"    binding:"omitempty,uuid"`
	Status       string `form:"status"        binding:"omitempty,oneof=new acknowledged resolved ignored"`
	Severity     string `form:"severity"      binding:"omitempty,oneof=info warning critical"`
	ConflictType string `form:"conflict_type" binding:"omitempty,oneof=leave_fmit_overlap back_to_back call_cascade external_commitment"`
	OpenOnly     bool   `form:"open_only"`
	PaginationRequest
}

// AlertActionRequest 告警处理（确认/解决/忽略）
type AlertActionRequest struct {
	Notes string `json:"notes" binding:"omitempty,max=1000"`
}

// ── 响应 ──

// ConflictInfoResponse 检测到的冲突（未持久化）
type ConflictInfoResponse struct {
	FacultyID    string  `json:"faculty_id"`
	ConflictType string  `json:"conflict_type"`
	Severity     string  `json:"severity"`
	FmitWeek     string  `json:"fmit_week"`
	Description  string  `json:"description"`
	LeaveID      *string `json:"leave_id,omitempty"`
}

// DetectConflictsResponse 冲突检测结果
type DetectConflictsResponse struct {
	Conflicts []ConflictInfoResponse `json:"conflicts"`
	Created   int                    `json:"created"`
	Skipped   int                    `json:"skipped"`
}

// ConflictAlertResponse 冲突告警
type ConflictAlertResponse struct {
	ID              string  `json:"id"`
	FacultyID       string  `json:"faculty_id"`
	ConflictType    string  `json:"conflict_type"`
	Severity        string  `json:"severity"`
	FmitWeek        string  `json:"fmit_week"`
	Description     string  `json:"description"`
	LeaveID         *string `json:"leave_id,omitempty"`
	SwapID          *string `json:"swap_id,omitempty"`
	Status          string  `json:"status"`
	AcknowledgedBy  *string `json:"acknowledged_by,omitempty"`
	AcknowledgedAt  *string `json:"acknowledged_at,omitempty"`
	ResolvedBy      *string `json:"resolved_by,omitempty"`
	ResolvedAt      *string `json:"resolved_at,omitempty"`
	ResolutionNotes *string `json:"resolution_notes,omitempty"`
	CreatedAt       string  `json:"created_at"`
	Version         int     `json:"version"`
}
