package service

import (
	"time"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/dto"
	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/model"
)

// ── model → dto 转换 ──

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func toSlotValueResponse(v model.SlotValue) dto.SlotValueResponse {
	if !v.Exists {
		return dto.SlotValueResponse{}
	}
	return dto.SlotValueResponse{
		Exists:         true,
		Activity:       v.Activity,
		Source:         string(v.Source),
		OverrideReason: v.OverrideReason,
		OverrideBy:     v.OverrideBy,
		OverrideAt:     formatTimePtr(v.OverrideAt),
	}
}

func toMutationResponses(steps []model.SlotMutation) []dto.SlotMutationResponse {
	out := make([]dto.SlotMutationResponse, 0, len(steps))
	for _, m := range steps {
		out = append(out, dto.SlotMutationResponse{
			Seq:       m.Seq,
			SlotKey:   m.Key.String(),
			FacultyID: m.Key.FacultyID,
			Date:      model.FormatDate(m.Key.Date),
			HalfDay:   string(m.Key.HalfDay),
			Before:    toSlotValueResponse(m.Before),
			After:     toSlotValueResponse(m.After),
		})
	}
	return out
}

func toSwapResponse(r *model.SwapRecord) *dto.SwapResponse {
	resp := &dto.SwapResponse{
		ID:                   r.SwapID,
		SourceFacultyID:      r.SourceFacultyID,
		SourceWeek:           model.FormatDate(r.SourceWeek),
		TargetFacultyID:      r.TargetFacultyID,
		SwapType:             string(r.SwapType),
		Status:               string(r.Status),
		Reason:               r.Reason,
		RequestedBy:          r.RequestedBy,
		RequestedAt:          formatTime(r.RequestedAt),
		ApprovedBy:           r.ApprovedBy,
		ApprovedAt:           formatTimePtr(r.ApprovedAt),
		ExecutedBy:           r.ExecutedBy,
		ExecutedAt:           formatTimePtr(r.ExecutedAt),
		RollbackDeadline:     formatTimePtr(r.RollbackDeadline),
		RolledBackBy:         r.RolledBackBy,
		RolledBackAt:         formatTimePtr(r.RolledBackAt),
		RollbackReason:       r.RollbackReason,
		RejectedBy:           r.RejectedBy,
		RejectedAt:           formatTimePtr(r.RejectedAt),
		FailureReason:        r.FailureReason,
		CriticalAlertsWaived: r.CriticalAlertsWaived,
		Version:              r.Version,
	}
	if r.TargetWeek != nil {
		tw := model.FormatDate(*r.TargetWeek)
		resp.TargetWeek = &tw
	}
	if steps := r.MutationSteps(); len(steps) > 0 {
		resp.Steps = toMutationResponses(steps)
	}
	for _, a := range r.Approvals {
		resp.Approvals = append(resp.Approvals, dto.SwapApprovalResponse{
			ID:          a.ApprovalID,
			FacultyID:   a.FacultyID,
			Role:        string(a.Role),
			Status:      string(a.Status),
			RespondedAt: formatTimePtr(a.RespondedAt),
			Notes:       a.Notes,
		})
	}
	return resp
}

func toAlertResponse(a *model.ConflictAlert) dto.ConflictAlertResponse {
	return dto.ConflictAlertResponse{
		ID:              a.AlertID,
		FacultyID:       a.FacultyID,
		ConflictType:    string(a.ConflictType),
		Severity:        string(a.Severity),
		FmitWeek:        model.FormatDate(a.FmitWeek),
		Description:     a.Description,
		LeaveID:         a.LeaveID,
		SwapID:          a.SwapID,
		Status:          string(a.Status),
		AcknowledgedBy:  a.AcknowledgedBy,
		AcknowledgedAt:  formatTimePtr(a.AcknowledgedAt),
		ResolvedBy:      a.ResolvedBy,
		ResolvedAt:      formatTimePtr(a.ResolvedAt),
		ResolutionNotes: a.ResolutionNotes,
		CreatedAt:       formatTime(a.CreatedAt),
		Version:         a.Version,
	}
}

func toConflictInfoResponse(c ConflictInfo) dto.ConflictInfoResponse {
	return dto.ConflictInfoResponse{
		FacultyID:    c.FacultyID,
		ConflictType: string(c.ConflictType),
		Severity:     string(c.Severity),
		FmitWeek:     model.FormatDate(c.FmitWeek),
		Description:  c.Description,
		LeaveID:      c.LeaveID,
	}
}

func toSlotResponse(s *model.AssignmentSlot) dto.SlotResponse {
	return dto.SlotResponse{
		ID:             s.SlotID,
		FacultyID:      s.FacultyID,
		Date:           model.FormatDate(s.Date),
		HalfDay:        string(s.HalfDay),
		Activity:       s.Activity,
		Source:         string(s.Source),
		OverrideReason: s.OverrideReason,
		OverrideBy:     s.OverrideBy,
		OverrideAt:     formatTimePtr(s.OverrideAt),
		Version:        s.Version,
	}
}
