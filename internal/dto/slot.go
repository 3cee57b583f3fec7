package dto

// ── 时段模块 DTO ──
// 同一结构同时用于 REST 绑定 (binding) 与 CLI 批量文件校验 (validate)

// SlotWriteItem 批量导入中的一个时段
type SlotWriteItem struct {
	FacultyID string  `json:"faculty_id" yaml:"faculty_id" binding:"required,uuid"               validate:"required,uuid"`
	Date      string  `json:"date"       yaml:"date"       binding:"required,datetime=2006-01-02" validate:"required,datetime=2006-01-02"`
	HalfDay   string  `json:"half_day"   yaml:"half_day"   binding:"required,oneof=AM PM"        validate:"required,oneof=AM PM"`
	Activity  *string `json:"activity"   yaml:"activity"   binding:"omitempty,max=50"            validate:"omitempty,max=50"`
}

// IngestBatchRequest 优化器/预加载批量导入
type IngestBatchRequest struct {
	Source string          `json:"source" yaml:"source" binding:"required,oneof=PRELOAD SOLVER TEMPLATE" validate:"required,oneof=PRELOAD SOLVER TEMPLATE"`
	Slots  []SlotWriteItem `json:"slots"  yaml:"slots"  binding:"required,min=1,dive"                  validate:"required,min=1,dive"`
}

// OverrideSlotRequest 人工覆盖单个时段
type OverrideSlotRequest struct {
	FacultyID string  `json:"faculty_id" yaml:"faculty_id" binding:"required,uuid"               validate:"required,uuid"`
	Date      string  `json:"date"       yaml:"date"       binding:"required,datetime=2006-01-02" validate:"required,datetime=2006-01-02"`
	HalfDay   string  `json:"half_day"   yaml:"half_day"   binding:"required,oneof=AM PM"        validate:"required,oneof=AM PM"`
	Activity  *string `json:"activity"   yaml:"activity"   binding:"omitempty,max=50"            validate:"omitempty,max=50"`
	Reason    string  `json:"reason"     yaml:"reason"     binding:"required,min=2,max=500"      validate:"required,min=2,max=500"`
}

// SlotListRequest 时段查询参数
type SlotListRequest struct {
	FacultyID string `form:"faculty_id" binding:"omitempty,uuid"`
	From      string `form:"from"       binding:"omitempty,datetime=2006-01-02"`
	To        string `form:"to"         binding:"omitempty,datetime=2006-01-02"`
	Source    string `form:"source"     binding:"omitempty,oneof=PRELOAD MANUAL SOLVER TEMPLATE"`
	Activity  string `form:"activity"   binding:"omitempty,max=50"`
	PaginationRequest
}

// ── 响应 ──

// SlotResponse 时段
type SlotResponse struct {
	ID             string  `json:"id"`
	FacultyID      string  `json:"faculty_id"`
	Date           string  `json:"date"`
	HalfDay        string  `json:"half_day"`
	Activity       *string `json:"activity,omitempty"`
	Source         string  `json:"source"`
	OverrideReason *string `json:"override_reason,omitempty"`
	OverrideBy     *string `json:"override_by,omitempty"`
	OverrideAt     *string `json:"override_at,omitempty"`
	Version        int     `json:"version"`
}

// SlotRejection 被来源策略拒绝的写入
type SlotRejection struct {
	SlotKey         string `json:"slot_key"`
	CurrentSource   string `json:"current_source"`
	AttemptedSource string `json:"attempted_source"`
	Rule            string `json:"rule"`
}

// IngestBatchResponse 批量导入结果
type IngestBatchResponse struct {
	Source     string          `json:"source"`
	Total      int             `json:"total"`
	Written    int             `json:"written"`
	Unchanged  int             `json:"unchanged"`
	Rejected   int             `json:"rejected"`
	Rejections []SlotRejection `json:"rejections,omitempty"`
}

// ImportAbsencesRequest 按订阅地址导入缺勤日历
type ImportAbsencesRequest struct {
	FacultyID string `json:"faculty_id" form:"faculty_id" binding:"required,uuid"`
	URL       string `json:"url"        form:"url"        binding:"required,url"`
}

// AbsenceImportResponse 日历导入结果
type AbsenceImportResponse struct {
	FacultyID string `json:"faculty_id"`
	Parsed    int    `json:"parsed"`
	Skipped   int    `json:"skipped"`
	Upserted  int64  `json:"upserted"`
}
