// Package policy 时段来源优先级策略
//
// 优先级 PRELOAD > MANUAL > SOLVER > TEMPLATE。
// 全仓库只允许在本包内比较来源优先级，其余代码通过 MayWrite / Decide / IsProtected / Outranks 判断。
package policy

import "github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/model"

// Rule 决策命中的规则
type Rule string

const (
	RulePreloadRefresh   Rule = "preload_refresh"   // PRELOAD 由 PRELOAD 重新导入
	RulePreloadProtected Rule = "preload_protected" // PRELOAD 不可被其他来源覆盖
	RuleManualOverride   Rule = "manual_override"   // 人工覆盖优先
	RuleRankAllowed      Rule = "rank_allowed"      // 优先级相同或更高
	RuleRankRejected     Rule = "rank_rejected"     // 优先级更低
)

// Decision 结构化决策结果
type Decision struct {
	Allowed bool
	Rule    Rule
}

func rank(s model.AssignmentSource) int {
	switch s {
	case model.SourcePreload:
		return 4
	case model.SourceManual:
		return 3
	case model.SourceSolver:
		return 2
	case model.SourceTemplate:
		return 1
	}
	return 0
}

// Decide 对现有时段 current 发起的一次 incoming 写入做出决策
func Decide(current, incoming model.AssignmentSource, manualOverride bool) Decision {
	if current == model.SourcePreload {
		if incoming == model.SourcePreload && !manualOverride {
			return Decision{Allowed: true, Rule: RulePreloadRefresh}
		}
		return Decision{Allowed: false, Rule: RulePreloadProtected}
	}
	if manualOverride {
		return Decision{Allowed: true, Rule: RuleManualOverride}
	}
	if !Outranks(current, incoming) {
		return Decision{Allowed: true, Rule: RuleRankAllowed}
	}
	return Decision{Allowed: false, Rule: RuleRankRejected}
}

// MayWrite Decide 的布尔形式
func MayWrite(current, incoming model.AssignmentSource, manualOverride bool) bool {
	return Decide(current, incoming, manualOverride).Allowed
}

// IsProtected 时段来源是否高于求解器（PRELOAD / MANUAL），换班不得触碰
func IsProtected(s model.AssignmentSource) bool {
	return rank(s) > rank(model.SourceSolver)
}

// Outranks a 的优先级是否严格高于 b
func Outranks(a, b model.AssignmentSource) bool {
	return rank(a) > rank(b)
}
