package threshold

import (
	"context"
	"testing"

	"github.com/wardenhq/warden/internal/model"
)

type fakeSource struct {
	defs []model.AlarmDefinition
	err  error

	gotName string
	gotDims map[string]string
}

func (f *fakeSource) ListAlarmDefinitions(_ context.Context, name string, dims map[string]string) ([]model.AlarmDefinition, error) {
	f.gotName, f.gotDims = name, dims
	return f.defs, f.err
}

func TestCatalog_ReconcileAddUpdateDelete(t *testing.T) {
	c := NewCatalog()
	defA := model.AlarmDefinition{ID: "a", Name: "a", Expression: "max(x)>1"}
	defB := model.AlarmDefinition{ID: "b", Name: "b", Expression: "max(y)>1"}

	c.Reconcile([]model.AlarmDefinition{defA, defB})
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}

	// Update defA's expression, drop defB.
	defA.Expression = "max(x)>5"
	c.Reconcile([]model.AlarmDefinition{defA})
	if c.Len() != 1 {
		t.Fatalf("Len() after delete = %d, want 1", c.Len())
	}
	if c.entries["a"].proc.Definition().Expression != "max(x)>5" {
		t.Errorf("definition not updated: %+v", c.entries["a"].proc.Definition())
	}
}

func TestCatalog_ReconcileIdempotent(t *testing.T) {
	c := NewCatalog()
	def := model.AlarmDefinition{ID: "a", Name: "a", Expression: "max(x)>1"}

	c.Reconcile([]model.AlarmDefinition{def})
	firstProc := c.entries["a"].proc

	c.Reconcile([]model.AlarmDefinition{def})
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}
	if c.entries["a"].proc != firstProc {
		t.Error("identical reconcile replaced the processor instance, want same instance")
	}
}

func TestRefresher_FailedQueryLeavesCatalogUnchanged(t *testing.T) {
	c := NewCatalog()
	def := model.AlarmDefinition{ID: "a", Name: "a", Expression: "max(x)>1"}
	c.Reconcile([]model.AlarmDefinition{def})

	r := NewRefresher(c, &fakeSource{err: context.DeadlineExceeded}, 0, DefinitionFilter{})
	r.tick(context.Background())

	if c.Len() != 1 {
		t.Errorf("Len() after failed query = %d, want 1 (unchanged)", c.Len())
	}
}

func TestRefresher_ForwardsConfiguredFilter(t *testing.T) {
	c := NewCatalog()
	src := &fakeSource{}
	filter := DefinitionFilter{Name: "high-cpu", Dimensions: map[string]string{"region": "us-east"}}

	r := NewRefresher(c, src, 0, filter)
	r.tick(context.Background())

	if src.gotName != filter.Name {
		t.Errorf("name filter = %q, want %q", src.gotName, filter.Name)
	}
	if src.gotDims["region"] != "us-east" {
		t.Errorf("dimension filter = %+v, want region=us-east", src.gotDims)
	}
}
