package merge_test

import (
	"reflect"
	"testing"

	"github.com/tribly/growthqr-bff-go/internal/domain"
	"github.com/tribly/growthqr-bff-go/internal/merge"
)

func strPtr(s string) *string { return &s }

func TestMerge_OverrideWinsPerField(t *testing.T) {
	canonical := domain.BusinessRecord{
		ID:   "biz-123",
		Name: "Acme",
		City: "Pune",
	}
	override := &domain.OverrideRecord{City: strPtr("Mumbai")}

	got := merge.Merge(canonical, override)

	if got.Name != "Acme" {
		t.Errorf("expected name 'Acme', got '%s'", got.Name)
	}
	if got.City != "Mumbai" {
		t.Errorf("expected city 'Mumbai', got '%s'", got.City)
	}
	if got.ID != "biz-123" {
		t.Errorf("expected id to pass through, got '%s'", got.ID)
	}
}

func TestMerge_NilOverride(t *testing.T) {
	canonical := domain.BusinessRecord{ID: "biz-1", Name: "Acme", Website: "https://acme.example"}

	got := merge.Merge(canonical, nil)

	if !reflect.DeepEqual(got, canonical) {
		t.Errorf("expected merge with nil override to equal canonical, got %+v", got)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	canonical := domain.BusinessRecord{
		ID:       "biz-1",
		Name:     "Acme",
		City:     "Pune",
		Keywords: []string{"bakery", "cakes"},
	}
	override := &domain.OverrideRecord{
		City:    strPtr("Mumbai"),
		Website: strPtr("https://acme.example"),
	}

	once := merge.Merge(canonical, override)
	twice := merge.Merge(once, override)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("merge not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	canonical := domain.BusinessRecord{
		ID:       "biz-1",
		Name:     "Acme",
		Services: []string{"delivery"},
	}
	newServices := []string{"dine-in", "takeaway"}
	override := &domain.OverrideRecord{Services: &newServices}

	got := merge.Merge(canonical, override)
	got.Services[0] = "mutated"
	got.Name = "mutated"

	if canonical.Services[0] != "delivery" {
		t.Error("canonical services mutated by merge result")
	}
	if newServices[0] != "dine-in" {
		t.Error("override services mutated by merge result")
	}
	if canonical.Name != "Acme" {
		t.Error("canonical name mutated")
	}
}

func TestMerge_WebsiteIsFirstClassField(t *testing.T) {
	canonical := domain.BusinessRecord{ID: "biz-1", Website: "https://old.example"}
	override := &domain.OverrideRecord{Website: strPtr("https://new.example")}

	got := merge.Merge(canonical, override)

	if got.Website != "https://new.example" {
		t.Errorf("expected website override applied, got '%s'", got.Website)
	}
}

func TestApplyOverride_LaterWritesWinPerField(t *testing.T) {
	p1 := &domain.OverrideRecord{
		Name: strPtr("First"),
		City: strPtr("Pune"),
	}
	p2 := &domain.OverrideRecord{
		City:  strPtr("Mumbai"),
		Phone: strPtr("+91 98765 43210"),
	}

	got := merge.ApplyOverride(p1, p2)

	if got.Name == nil || *got.Name != "First" {
		t.Error("expected untouched field from p1 to survive")
	}
	if got.City == nil || *got.City != "Mumbai" {
		t.Error("expected p2 to win for city")
	}
	if got.Phone == nil || *got.Phone != "+91 98765 43210" {
		t.Error("expected new field from p2 present")
	}
}

func TestApplyOverride_NilPrev(t *testing.T) {
	next := &domain.OverrideRecord{Name: strPtr("Acme")}

	got := merge.ApplyOverride(nil, next)

	if got == nil || got.Name == nil || *got.Name != "Acme" {
		t.Fatalf("expected next fields applied onto empty override, got %+v", got)
	}
}
