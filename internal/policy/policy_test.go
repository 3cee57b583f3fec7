package policy

import (
	"testing"

	"github.com/Euda1mon1a/Autonomous-Assignment-Program-Manager-sub025/internal/model"
)

const (
	P = model.SourcePreload
	M = model.SourceManual
	S = model.SourceSolver
	T = model.SourceTemplate
)

// 16 组来源 × 是否人工覆盖
func TestMayWrite_Table(t *testing.T) {
	tests := []struct {
		current, incoming model.AssignmentSource
		plain, override   bool
	}{
		{P, P, true, false},
		{P, M, false, false},
		{P, S, false, false},
		{P, T, false, false},

		{M, P, true, true},
		{M, M, true, true},
		{M, S, false, true},
		{M, T, false, true},

		{S, P, true, true},
		{S, M, true, true},
		{S, S, true, true},
		{S, T, false, true},

		{T, P, true, true},
		{T, M, true, true},
		{T, S, true, true},
		{T, T, true, true},
	}
	if len(tests) != len(model.AllSources)*len(model.AllSources) {
		t.Fatalf("表格未覆盖全部来源组合")
	}

	for _, tt := range tests {
		name := string(tt.current) + "<-" + string(tt.incoming)
		t.Run(name, func(t *testing.T) {
			if got := MayWrite(tt.current, tt.incoming, false); got != tt.plain {
				t.Errorf("MayWrite(override=false) = %v, want %v", got, tt.plain)
			}
			if got := MayWrite(tt.current, tt.incoming, true); got != tt.override {
				t.Errorf("MayWrite(override=true) = %v, want %v", got, tt.override)
			}
		})
	}
}

func TestDecide_Rules(t *testing.T) {
	tests := []struct {
		name              string
		current, incoming model.AssignmentSource
		override          bool
		want              Rule
	}{
		{"预加载刷新", P, P, false, RulePreloadRefresh},
		{"预加载人工覆盖也不允许", P, M, true, RulePreloadProtected},
		{"预加载带覆盖标记的重新导入", P, P, true, RulePreloadProtected},
		{"人工覆盖求解器", S, M, true, RuleManualOverride},
		{"求解器覆盖模板", T, S, false, RuleRankAllowed},
		{"求解器不能覆盖人工", M, S, false, RuleRankRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.current, tt.incoming, tt.override)
			if d.Rule != tt.want {
				t.Errorf("Rule = %s, want %s", d.Rule, tt.want)
			}
		})
	}
}

func TestIsProtected(t *testing.T) {
	want := map[model.AssignmentSource]bool{P: true, M: true, S: false, T: false}
	for src, exp := range want {
		if got := IsProtected(src); got != exp {
			t.Errorf("IsProtected(%s) = %v, want %v", src, got, exp)
		}
	}
}

func TestOutranks(t *testing.T) {
	if !Outranks(P, M) || !Outranks(M, S) || !Outranks(S, T) {
		t.Error("优先级顺序错误")
	}
	if Outranks(S, S) || Outranks(T, P) {
		t.Error("Outranks 应为严格比较")
	}
}
