package service

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/model"
)

// ── ICS 缺勤解析器 ──────────────────────────────────────────
//
// 职责：将外部请假日历 (RFC 5545) 解析为 Absence 列表。
//
// 映射规则：
//   - UID → ExternalUID（重复导入按 UID 覆盖）
//   - DTSTART/DTEND → 起止日期；全天事件的 DTEND 为开区间，转换为含当天的结束日
//   - CATEGORIES 第一个可识别的值 → AbsenceType，缺省为 vacation
//   - TRANSP: OPAQUE（RFC 默认值）→ 阻断；TRANSPARENT → 不阻断
//   - SUMMARY / DESCRIPTION → Notes
// ─────────────────────────────────────────────────────────────

const (
	icsMaxFileSize  = 5 * 1024 * 1024 // 5MB
	icsFetchTimeout = 30 * time.Second
	icsNotesMaxLen  = 500
)

var (
	ErrICSFetch = errors.New("获取 ICS 失败")
	ErrICSParse = errors.New("ICS 格式解析失败")
)

// FetchICSContent 从 URL 获取 ICS 内容
func FetchICSContent(rawURL string) (io.ReadCloser, error) {
	// webcal:// → https://
	u := rawURL
	if strings.HasPrefix(u, "webcal://") {
		u = "https://" + strings.TrimPrefix(u, "webcal://")
	}

	client := &http.Client{Timeout: icsFetchTimeout}
	resp, err := client.Get(u)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrICSFetch, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: HTTP %d", ErrICSFetch, resp.StatusCode)
	}
	// 限制响应体大小
	return struct {
		io.Reader
		io.Closer
	}{
		Reader: io.LimitReader(resp.Body, icsMaxFileSize),
		Closer: resp.Body,
	}, nil
}

// ParseAbsenceICS 解析 ICS 内容为某教员的缺勤记录
// 无法解析日期的事件被跳过并计入 skipped
func ParseAbsenceICS(reader io.Reader, facultyID string) (absences []model.Absence, skipped int, err error) {
	cal, err := ics.ParseCalendar(reader)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrICSParse, err)
	}

	for _, evt := range cal.Events() {
		a, ok := parseAbsenceEvent(evt, facultyID)
		if !ok {
			skipped++
			continue
		}
		absences = append(absences, a)
	}
	return absences, skipped, nil
}

// parseAbsenceEvent 解析单个 VEVENT
func parseAbsenceEvent(evt *ics.VEvent, facultyID string) (model.Absence, bool) {
	start, allDay, err := parseICSDate(evt, ics.ComponentPropertyDtStart)
	if err != nil {
		return model.Absence{}, false
	}

	end := start
	if dtEnd, endAllDay, err := parseICSDate(evt, ics.ComponentPropertyDtEnd); err == nil {
		end = dtEnd
		// 全天事件 DTEND 为次日零点
		if endAllDay || allDay {
			end = end.AddDate(0, 0, -1)
		}
	}
	if end.Before(start) {
		end = start
	}

	a := model.Absence{
		FacultyID:   facultyID,
		StartDate:   start,
		EndDate:     end,
		AbsenceType: absenceTypeOf(evt),
		IsBlocking:  isOpaque(evt),
		Notes:       eventNotes(evt),
		Origin:      "ics",
	}
	if uid := propValue(evt, ics.ComponentPropertyUniqueId); uid != "" {
		a.ExternalUID = &uid
	}
	return a, true
}

var categoryAbsenceTypes = map[string]model.AbsenceType{
	"VACATION":          model.AbsenceVacation,
	"LEAVE":             model.AbsenceVacation,
	"CONFERENCE":        model.AbsenceConference,
	"MEDICAL":           model.AbsenceMedical,
	"SICK":              model.AbsenceMedical,
	"MEDICAL_EMERGENCY": model.AbsenceMedicalEmergency,
	"FAMILY_EMERGENCY":  model.AbsenceFamilyEmergency,
	"DEPLOYMENT":        model.AbsenceDeployment,
	"TDY":               model.AbsenceTDY,
	"TRAINING":          model.AbsenceTraining,
}

// absenceTypeOf CATEGORIES 可能为逗号分隔的多值
func absenceTypeOf(evt *ics.VEvent) model.AbsenceType {
	for _, prop := range evt.Properties {
		if prop.IANAToken != string(ics.ComponentPropertyCategories) {
			continue
		}
		for _, c := range strings.Split(prop.Value, ",") {
			key := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(c), " ", "_"))
			if t, ok := categoryAbsenceTypes[key]; ok {
				return t
			}
		}
	}
	return model.AbsenceVacation
}

func isOpaque(evt *ics.VEvent) bool {
	return !strings.EqualFold(propValue(evt, ics.ComponentPropertyTransp), "TRANSPARENT")
}

func eventNotes(evt *ics.VEvent) string {
	parts := make([]string, 0, 2)
	for _, p := range []ics.ComponentProperty{ics.ComponentPropertySummary, ics.ComponentPropertyDescription} {
		if v := propValue(evt, p); v != "" {
			parts = append(parts, v)
		}
	}
	notes := strings.Join(parts, " - ")
	if len(notes) > icsNotesMaxLen {
		notes = notes[:icsNotesMaxLen]
	}
	return notes
}

func propValue(evt *ics.VEvent, name ics.ComponentProperty) string {
	prop := evt.GetProperty(name)
	if prop == nil {
		return ""
	}
	return strings.TrimSpace(prop.Value)
}

// parseICSDate 解析日期属性，返回 UTC 零点的日期与是否为纯日期值
func parseICSDate(evt *ics.VEvent, propName ics.ComponentProperty) (time.Time, bool, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, false, fmt.Errorf("missing property %s", propName)
	}
	val := strings.TrimSpace(prop.Value)

	// 检查 TZID 参数
	loc := time.UTC
	for k, v := range prop.ICalParameters {
		if strings.EqualFold(k, "TZID") && len(v) > 0 {
			if tzLoc, err := time.LoadLocation(v[0]); err == nil {
				loc = tzLoc
			}
		}
	}

	if t, err := time.Parse("20060102", val); err == nil {
		return model.DateOf(t), true, nil
	}
	if t, err := time.Parse("20060102T150405Z", val); err == nil {
		return model.DateOf(t), false, nil
	}
	if t, err := time.ParseInLocation("20060102T150405", val, loc); err == nil {
		// 按事件所在时区的日历日取日期
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), false, nil
	}
	return time.Time{}, false, fmt.Errorf("无法解析日期: %s", val)
}
