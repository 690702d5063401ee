package model

import (
	"testing"
)

func TestDescriptionType_Valid(t *testing.T) {
	tests := []struct {
		name string
		typ  DescriptionType
		want bool
	}{
		{"Location", TypeLocation, true},
		{"Character", TypeCharacter, true},
		{"Atmosphere", TypeAtmosphere, true},
		{"Object", TypeObject, true},
		{"Action", TypeAction, true},
		{"Unknown", DescriptionType("scenery"), false},
		{"Empty", DescriptionType(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDescription_Validate(t *testing.T) {
	base := Description{
		Type:              TypeLocation,
		Content:           "a crumbling watchtower above the bay",
		PositionInChapter: 120,
		ConfidenceScore:   0.8,
		PriorityScore:     60,
	}

	tests := []struct {
		name   string
		mutate func(*Description)
		want   bool
	}{
		{"Valid", func(d *Description) {}, true},
		{"Empty content", func(d *Description) { d.Content = "" }, false},
		{"Bad type", func(d *Description) { d.Type = "weather" }, false},
		{"Confidence above 1", func(d *Description) { d.ConfidenceScore = 1.2 }, false},
		{"Confidence below 0", func(d *Description) { d.ConfidenceScore = -0.1 }, false},
		{"Priority above 100", func(d *Description) { d.PriorityScore = 101 }, false},
		{"Negative position", func(d *Description) { d.PositionInChapter = -1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := base
			tt.mutate(&d)
			if got := d.Validate(); got != tt.want {
				t.Errorf("Validate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSortDescriptions(t *testing.T) {
	descs := []Description{
		{Content: "c", PriorityScore: 40, PositionInChapter: 10},
		{Content: "a", PriorityScore: 90, PositionInChapter: 300},
		{Content: "d", PriorityScore: 40, PositionInChapter: 5},
		{Content: "b", PriorityScore: 90, PositionInChapter: 100},
	}

	SortDescriptions(descs)

	wantOrder := []string{"b", "a", "d", "c"}
	for i, w := range wantOrder {
		if descs[i].Content != w {
			t.Errorf("position %d: got %q, want %q", i, descs[i].Content, w)
		}
	}
}

func TestClamps(t *testing.T) {
	if got := ClampConfidence(1.5); got != 1 {
		t.Errorf("ClampConfidence(1.5) = %v, want 1", got)
	}
	if got := ClampConfidence(-0.2); got != 0 {
		t.Errorf("ClampConfidence(-0.2) = %v, want 0", got)
	}
	if got := ClampPriority(120); got != 100 {
		t.Errorf("ClampPriority(120) = %v, want 100", got)
	}
	if got := ClampPriority(-5); got != 0 {
		t.Errorf("ClampPriority(-5) = %v, want 0", got)
	}
}
