package alarmexpr

import "testing"

func TestCompareBoundaries(t *testing.T) {
	if Compare([]float64{10}, "LT", 10) != "OK" {
		t.Error("10 LT 10 should fail -> OK")
	}
	if Compare([]float64{10}, "LTE", 10) != "ALARM" {
		t.Error("10 LTE 10 should satisfy -> ALARM")
	}
	if Compare([]float64{10}, "GTE", 10) != "ALARM" {
		t.Error("10 GTE 10 should satisfy -> ALARM")
	}
	if Compare([]float64{10}, "GT", 10) != "OK" {
		t.Error("10 GT 10 should fail -> OK")
	}
}

func TestAggregateSumAvgMaxMin(t *testing.T) {
	values := []float64{1, 2, 3, 4}
	if got := Aggregate("SUM", values); got != 10 {
		t.Errorf("SUM = %v, want 10", got)
	}
	if got := Aggregate("AVG", values); got != 2.5 {
		t.Errorf("AVG = %v, want 2.5", got)
	}
	if got := Aggregate("MAX", values); got != 4 {
		t.Errorf("MAX = %v, want 4", got)
	}
	if got := Aggregate("MIN", values); got != 1 {
		t.Errorf("MIN = %v, want 1", got)
	}
	if got := Aggregate("COUNT", values); got != 4 {
		t.Errorf("COUNT = %v, want 4", got)
	}
}
