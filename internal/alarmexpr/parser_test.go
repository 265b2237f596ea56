package alarmexpr

import (
	"testing"

	"github.com/wardenhq/warden/internal/model"
)

func TestParse_RoundTrip(t *testing.T) {
	expr := "max(cpu{host=h1},60)>10 times 3 and (min(mem)<5 or count(err)>0)"
	stripped := stripWhitespace(expr)

	root, err := Parse(expr)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if root.CanonicalString() != stripped {
		t.Errorf("CanonicalString() = %q, want %q", root.CanonicalString(), stripped)
	}

	if root.Op != OpAnd {
		t.Fatalf("root.Op = %v, want AND", root.Op)
	}
	if len(root.Children) != 2 {
		t.Fatalf("root has %d children, want 2", len(root.Children))
	}

	left := root.Children[0]
	if left.Leaf == nil {
		t.Fatal("left child is not a leaf")
	}
	leaf := left.Leaf
	if leaf.Function != "MAX" || leaf.MetricName != "cpu" || leaf.Operator != "GT" ||
		leaf.Threshold != 10 || leaf.Period != 60 || leaf.Periods != 3 {
		t.Errorf("left leaf = %+v, unexpected", leaf)
	}
	if leaf.Dimensions["host"] != "h1" {
		t.Errorf("left leaf dimensions = %+v, want host=h1", leaf.Dimensions)
	}

	right := root.Children[1]
	if right.Op != OpOr {
		t.Fatalf("right.Op = %v, want OR", right.Op)
	}
	if len(right.Children) != 2 {
		t.Fatalf("right has %d children, want 2", len(right.Children))
	}
}

func TestParse_Defaults(t *testing.T) {
	root, err := Parse("max(foo)>10")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	leaf := root.Leaf
	if leaf == nil {
		t.Fatal("expected leaf node")
	}
	if leaf.Period != 60 {
		t.Errorf("Period = %d, want 60", leaf.Period)
	}
	if leaf.Periods != 1 {
		t.Errorf("Periods = %d, want 1", leaf.Periods)
	}
	if len(leaf.Dimensions) != 0 {
		t.Errorf("Dimensions = %+v, want empty", leaf.Dimensions)
	}
}

func TestParse_NormalizesCaseAndOperatorAliases(t *testing.T) {
	root, err := Parse("MAX(CPU)gte10")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if root.Leaf.Function != "MAX" {
		t.Errorf("Function = %q, want MAX", root.Leaf.Function)
	}
	if root.Leaf.MetricName != "cpu" {
		t.Errorf("MetricName = %q, want cpu", root.Leaf.MetricName)
	}
	if root.Leaf.Operator != "GTE" {
		t.Errorf("Operator = %q, want GTE", root.Leaf.Operator)
	}
}

func TestParse_InvalidExpressions(t *testing.T) {
	cases := []string{
		"max(foo>10",          // unmatched paren
		"max(foo)##10",        // unknown token / bad relop
		"bogus(foo)>10",       // unknown function
		"max(foo)>10 and",     // trailing dangling and
		"max(foo)>",           // missing threshold
	}
	for _, expr := range cases {
		if _, err := Parse(expr); err == nil {
			t.Errorf("Parse(%q) expected error, got nil", expr)
		}
	}
}

func TestParse_MatchByFanOutLeafOrder(t *testing.T) {
	root, err := Parse("max(a)>1 and max(b)>1")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	leaves := root.Leaves()
	if len(leaves) != 2 {
		t.Fatalf("len(leaves) = %d, want 2", len(leaves))
	}
	if leaves[0].MetricName != "a" || leaves[1].MetricName != "b" {
		t.Errorf("leaf order = [%s, %s], want [a, b]", leaves[0].MetricName, leaves[1].MetricName)
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name      string
		values    []float64
		op        string
		threshold float64
		want      model.State
	}{
		{"all satisfy GT", []float64{20, 30}, "GT", 10, model.StateAlarm},
		{"one fails GT", []float64{20, 5}, "GT", 10, model.StateOK},
		{"undefined only", []float64{Undefined}, "GT", 10, model.StateUndetermined},
		{"mixed satisfy+undefined", []float64{20, Undefined}, "GT", 10, model.StateUndetermined},
		{"mixed fail+undefined -> OK wins", []float64{5, Undefined}, "GT", 10, model.StateOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compare(tt.values, tt.op, tt.threshold)
			if got != tt.want {
				t.Errorf("Compare(%v, %s, %v) = %v, want %v", tt.values, tt.op, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestAggregate_EmptyValues(t *testing.T) {
	if got := Aggregate("COUNT", nil); got != 0 {
		t.Errorf("Aggregate(COUNT, []) = %v, want 0", got)
	}
	for _, fn := range []string{"SUM", "AVG", "MAX", "MIN"} {
		if got := Aggregate(fn, nil); !IsUndefined(got) {
			t.Errorf("Aggregate(%s, []) = %v, want UNDEFINED", fn, got)
		}
	}
}

func TestCombine_Identities(t *testing.T) {
	for _, s := range []model.State{model.StateOK, model.StateAlarm, model.StateUndetermined} {
		if got := Combine(OpAnd, []model.State{s}); got != s {
			t.Errorf("Combine(AND, [%v]) = %v, want %v", s, got, s)
		}
		if got := Combine(OpOr, []model.State{s}); got != s {
			t.Errorf("Combine(OR, [%v]) = %v, want %v", s, got, s)
		}
	}
	if got := Combine(OpAnd, []model.State{model.StateOK, model.StateAlarm, model.StateUndetermined}); got != model.StateOK {
		t.Errorf("Combine(AND, [OK,ALARM,UNDETERMINED]) = %v, want OK", got)
	}
	if got := Combine(OpOr, []model.State{model.StateAlarm, model.StateOK, model.StateUndetermined}); got != model.StateAlarm {
		t.Errorf("Combine(OR, [ALARM,OK,UNDETERMINED]) = %v, want ALARM", got)
	}
}

func TestThreeValuedLogicScenario(t *testing.T) {
	root, err := Parse("max(a)>1 and max(b)>1")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	leafStates := map[string]model.State{
		root.Children[0].CanonicalString(): model.StateAlarm,
		root.Children[1].CanonicalString(): model.StateUndetermined,
	}
	got := root.Evaluate(func(c string) model.State { return leafStates[c] })
	if got != model.StateUndetermined {
		t.Errorf("root.Evaluate() = %v, want UNDETERMINED", got)
	}
}
