package dto

// ── 换班模块 DTO ──

// CreateSwapRequest 创建换班申请
type CreateSwapRequest struct {
	SourceFacultyID     string  `json:"source_faculty_id"     binding:"required,uuid"`
	SourceWeek          string  `json:"source_week"           binding:"required,datetime=2006-01-02"`
	TargetFacultyID     string  `json:"target_faculty_id"     binding:"required,uuid,nefield=SourceFacultyID"`
	TargetWeek          *string `json:"target_week"           binding:"omitempty,datetime=2006-01-02"`
	SwapType            string  `json:"swap_type"             binding:"required,oneof=one_to_one absorb"`
	Reason              string  `json:"reason"                binding:"omitempty,max=500"`
	WaiveCriticalAlerts bool    `json:"waive_critical_alerts"`
}

// ExecuteSwapRequest 执行换班
type ExecuteSwapRequest struct {
	DryRun bool `json:"dry_run"`
}

// RollbackSwapRequest 回滚换班
type RollbackSwapRequest struct {
	Reason string `json:"reason" binding:"required,min=2,max=500"`
}

// RespondApprovalRequest 审批作答
type RespondApprovalRequest struct {
	Approve *bool  `json:"approve" binding:"required"`
	Role    string `json:"role"    binding:"omitempty,oneof=target_faculty coordinator"`
	Notes   string `json:"notes"   binding:"omitempty,max=500"`
}

// SwapListRequest 换班列表查询参数
type SwapListRequest struct {
	FacultyID string `form:"faculty_id" binding:"omitempty,uuid"`
	Status    string `form:"status"     binding:"omitempty,oneof=pending executed rolled_back rejected failed"`
	PaginationRequest
}

// SwapExportRequest 审计导出查询参数
type SwapExportRequest struct {
	From string `form:"from" binding:"required,datetime=2006-01-02"`
	To   string `form:"to"   binding:"required,datetime=2006-01-02"`
}

// ── 响应 ──

// SlotValueResponse 时段取值快照
type SlotValueResponse struct {
	Exists         bool    `json:"exists"`
	Activity       *string `json:"activity,omitempty"`
	Source         string  `json:"source,omitempty"`
	OverrideReason *string `json:"override_reason,omitempty"`
	OverrideBy     *string `json:"override_by,omitempty"`
	OverrideAt     *string `json:"override_at,omitempty"`
}

// SlotMutationResponse 执行计划中的一步
type SlotMutationResponse struct {
	Seq       int               `json:"seq"`
	SlotKey   string            `json:"slot_key"`
	FacultyID string            `json:"faculty_id"`
	Date      string            `json:"date"`
	HalfDay   string            `json:"half_day"`
	Before    SlotValueResponse `json:"before"`
	After     SlotValueResponse `json:"after"`
}

// SwapApprovalResponse 审批记录
type SwapApprovalResponse struct {
	ID          string  `json:"id"`
	FacultyID   string  `json:"faculty_id"`
	Role        string  `json:"role"`
	Status      string  `json:"status"`
	RespondedAt *string `json:"responded_at,omitempty"`
	Notes       string  `json:"notes,omitempty"`
}

// SwapResponse 换班申请（审计视图）
type SwapResponse struct {
	ID                   string                 `json:"id"`
	SourceFacultyID      string                 `json:"source_faculty_id"`
	SourceWeek           string                 `json:"source_week"`
	TargetFacultyID      string                 `json:"target_faculty_id"`
	TargetWeek           *string                `json:"target_week,omitempty"`
	SwapType             string                 `json:"swap_type"`
	Status               string                 `json:"status"`
	Reason               string                 `json:"reason,omitempty"`
	RequestedBy          string                 `json:"requested_by"`
	RequestedAt          string                 `json:"requested_at"`
	ApprovedBy           *string                `json:"approved_by,omitempty"`
	ApprovedAt           *string                `json:"approved_at,omitempty"`
	ExecutedBy           *string                `json:"executed_by,omitempty"`
	ExecutedAt           *string                `json:"executed_at,omitempty"`
	RollbackDeadline     *string                `json:"rollback_deadline,omitempty"`
	RolledBackBy         *string                `json:"rolled_back_by,omitempty"`
	RolledBackAt         *string                `json:"rolled_back_at,omitempty"`
	RollbackReason       *string                `json:"rollback_reason,omitempty"`
	RejectedBy           *string                `json:"rejected_by,omitempty"`
	RejectedAt           *string                `json:"rejected_at,omitempty"`
	FailureReason        *string                `json:"failure_reason,omitempty"`
	CriticalAlertsWaived bool                   `json:"critical_alerts_waived"`
	Steps                []SlotMutationResponse `json:"steps,omitempty"`
	Approvals            []SwapApprovalResponse `json:"approvals,omitempty"`
	Version              int                    `json:"version"`
}

// ValidatorFailure 单个校验器的失败说明
type ValidatorFailure struct {
	Validator string `json:"validator"`
	Message   string `json:"message"`
}

// ValidationResult 校验链结果
type ValidationResult struct {
	SwapID   string             `json:"swap_id"`
	Valid    bool               `json:"valid"`
	Failures []ValidatorFailure `json:"failures,omitempty"`
}

// ExecutionPlanResponse 执行计划预览
type ExecutionPlanResponse struct {
	SwapID            string                 `json:"swap_id"`
	AffectedSlotCount int                    `json:"affected_slot_count"`
	Steps             []SlotMutationResponse `json:"steps"`
}

// SwapOutcome 执行/回滚的结构化结果
type SwapOutcome struct {
	SwapID            string                 `json:"swap_id"`
	Success           bool                   `json:"success"`
	ErrorCode         string                 `json:"error_code,omitempty"`
	Message           string                 `json:"message"`
	AffectedSlotCount int                    `json:"affected_slot_count"`
	Status            string                 `json:"status"`
	DryRun            bool                   `json:"dry_run,omitempty"`
	Steps             []SlotMutationResponse `json:"steps,omitempty"`
}
