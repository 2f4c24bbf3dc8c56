package session

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/manash/designgen/pkg/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testDesign(id int64, category models.Category) *models.Design {
	return &models.Design{
		ID:         id,
		Prompt:     "a " + string(category),
		Type:       category,
		Style:      "modern",
		Material:   "wood",
		Dimensions: models.Dimensions{Width: 120, Height: 75, Depth: 80},
		Components: []models.Component{
			{Name: "top", Shape: "box", Position: models.Vec3{0, 72.5, 0}, Size: models.Vec3{120, 5, 80}},
			{Name: "leg_1", Shape: "cylinder", Position: models.Vec3{-55, 35, -35}, Size: models.Vec3{5, 70, 5}, Color: "#333333"},
		},
		Colors:    models.Colors{Primary: "#8B4513", Secondary: "#A0522D", Accent: "#CD853F"},
		Iteration: 1,
	}
}

func TestStore_KV(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Get() missing key error = %v, want ErrKeyNotFound", err)
	}

	if err := store.Set(ctx, "k", "v1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.Set(ctx, "k", "v2"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	got, err := store.Get(ctx, "k")
	if err != nil || got != "v2" {
		t.Errorf("Get() = %q, %v; want v2", got, err)
	}

	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrKeyNotFound) {
		t.Errorf("Get() after Delete error = %v", err)
	}
}

func TestStore_Memory(t *testing.T) {
	store, err := NewStore(":memory:")
	if err != nil {
		t.Fatalf("NewStore(:memory:) error = %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Set(ctx, KeyTheme, "light"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if theme, _ := store.Theme(ctx); theme != models.ThemeLight {
		t.Errorf("Theme() = %q, want light", theme)
	}
}

func TestStore_SavedDesigns_Empty(t *testing.T) {
	store := testStore(t)

	saved, err := store.SavedDesigns(context.Background())
	if err != nil {
		t.Fatalf("SavedDesigns() error = %v", err)
	}
	if saved == nil || len(saved) != 0 {
		t.Errorf("SavedDesigns() = %v, want empty non-nil list", saved)
	}
}

func TestStore_SaveDesign_RoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	design := testDesign(1700000000000, models.CategoryTable)

	record, err := store.SaveDesign(ctx, design)
	if err != nil {
		t.Fatalf("SaveDesign() error = %v", err)
	}
	if record.ID == "" {
		t.Error("SaveDesign() record has no id")
	}
	if record.Prompt != design.Prompt {
		t.Errorf("Prompt = %q, want %q", record.Prompt, design.Prompt)
	}

	design.Material = "changed after save"

	saved, err := store.SavedDesigns(ctx)
	if err != nil {
		t.Fatalf("SavedDesigns() error = %v", err)
	}
	if len(saved) != 1 {
		t.Fatalf("len(saved) = %d, want 1", len(saved))
	}
	if !reflect.DeepEqual(saved[0].Spec, testDesign(1700000000000, models.CategoryTable)) {
		t.Errorf("reloaded spec = %+v, want original design", saved[0].Spec)
	}
	if !saved[0].Timestamp.Equal(record.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", saved[0].Timestamp, record.Timestamp)
	}
}

func TestStore_SaveDesign_AppendsInOrder(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	for i, c := range []models.Category{models.CategoryChair, models.CategoryTable, models.CategoryLamp} {
		if _, err := store.SaveDesign(ctx, testDesign(int64(i+1), c)); err != nil {
			t.Fatalf("SaveDesign() error = %v", err)
		}
	}

	saved, _ := store.SavedDesigns(ctx)
	if len(saved) != 3 {
		t.Fatalf("len(saved) = %d, want 3", len(saved))
	}
	for i, want := range []models.Category{models.CategoryChair, models.CategoryTable, models.CategoryLamp} {
		if saved[i].Spec.Type != want {
			t.Errorf("saved[%d].Type = %q, want %q", i, saved[i].Spec.Type, want)
		}
	}
	if saved[0].ID == saved[1].ID {
		t.Error("saved records share an id")
	}

	if _, err := store.SaveDesign(ctx, nil); !errors.Is(err, ErrNoDesign) {
		t.Errorf("SaveDesign(nil) error = %v, want ErrNoDesign", err)
	}
}

func TestStore_SavedDesigns_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not json", "{not json"},
		{"wrong shape", `{"id":"x"}`},
		{"missing spec", `[{"id":"x","prompt":"p","timestamp":"2024-01-01T00:00:00Z"}]`},
		{"missing id", `[{"prompt":"p","spec":{"type":"chair"}}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testStore(t)
			ctx := context.Background()
			if err := store.Set(ctx, KeySavedDesigns, tt.value); err != nil {
				t.Fatalf("Set() error = %v", err)
			}

			saved, err := store.SavedDesigns(ctx)
			if err != nil {
				t.Fatalf("SavedDesigns() error = %v", err)
			}
			if len(saved) != 0 {
				t.Errorf("SavedDesigns() = %v, want empty", saved)
			}
			if _, err := store.Get(ctx, KeySavedDesigns); !errors.Is(err, ErrKeyNotFound) {
				t.Errorf("malformed value was not dropped: %v", err)
			}
		})
	}
}

func TestStore_GetAndDeleteSaved(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	first, _ := store.SaveDesign(ctx, testDesign(1, models.CategoryChair))
	second, _ := store.SaveDesign(ctx, testDesign(2, models.CategoryLamp))

	got, err := store.GetSaved(ctx, second.ID)
	if err != nil || got.Spec.Type != models.CategoryLamp {
		t.Errorf("GetSaved(id) = %+v, %v", got, err)
	}
	got, err = store.GetSaved(ctx, "1")
	if err != nil || got.ID != first.ID {
		t.Errorf("GetSaved(\"1\") = %+v, %v; want first record", got, err)
	}
	if _, err := store.GetSaved(ctx, "3"); !errors.Is(err, ErrSavedNotFound) {
		t.Errorf("GetSaved(out of range) error = %v", err)
	}
	if _, err := store.GetSaved(ctx, "nope"); !errors.Is(err, ErrSavedNotFound) {
		t.Errorf("GetSaved(unknown) error = %v", err)
	}

	if err := store.DeleteSaved(ctx, first.ID); err != nil {
		t.Fatalf("DeleteSaved() error = %v", err)
	}
	saved, _ := store.SavedDesigns(ctx)
	if len(saved) != 1 || saved[0].ID != second.ID {
		t.Errorf("after delete saved = %+v", saved)
	}
	if err := store.DeleteSaved(ctx, first.ID); !errors.Is(err, ErrSavedNotFound) {
		t.Errorf("DeleteSaved() twice error = %v", err)
	}
}

func TestStore_Theme(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	theme, err := store.Theme(ctx)
	if err != nil || theme != models.DefaultTheme {
		t.Errorf("Theme() = %q, %v; want default", theme, err)
	}

	if _, err := store.SetTheme(ctx, "Light"); err != nil {
		t.Fatalf("SetTheme() error = %v", err)
	}
	if theme, _ := store.Theme(ctx); theme != models.ThemeLight {
		t.Errorf("Theme() = %q, want light", theme)
	}

	if _, err := store.SetTheme(ctx, "solarized"); !errors.Is(err, models.ErrInvalidTheme) {
		t.Errorf("SetTheme(invalid) error = %v", err)
	}

	store.Set(ctx, KeyTheme, "garbage")
	if theme, _ := store.Theme(ctx); theme != models.DefaultTheme {
		t.Errorf("Theme() with garbage = %q, want default", theme)
	}
}

func TestStore_HasVisited(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	visited, err := store.HasVisited(ctx)
	if err != nil || visited {
		t.Errorf("HasVisited() = %v, %v; want false", visited, err)
	}
	if err := store.MarkVisited(ctx); err != nil {
		t.Fatalf("MarkVisited() error = %v", err)
	}
	if visited, _ := store.HasVisited(ctx); !visited {
		t.Error("HasVisited() = false after MarkVisited")
	}
}

func TestStore_History(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	root := &Entry{Operation: OpGenerate, Design: testDesign(1, models.CategoryTable)}
	if err := store.AddEntry(ctx, root); err != nil {
		t.Fatalf("AddEntry() error = %v", err)
	}
	child := &Entry{ParentID: root.ID, Operation: OpIterate, Design: testDesign(2, models.CategoryTable)}
	if err := store.AddEntry(ctx, child); err != nil {
		t.Fatalf("AddEntry() error = %v", err)
	}

	got, err := store.GetEntry(ctx, child.ID)
	if err != nil {
		t.Fatalf("GetEntry() error = %v", err)
	}
	if got.ParentID != root.ID || got.Operation != OpIterate {
		t.Errorf("GetEntry() = %+v", got)
	}
	if !reflect.DeepEqual(got.Design, child.Design) {
		t.Errorf("GetEntry() design = %+v", got.Design)
	}

	entries, err := store.ListEntries(ctx, 0)
	if err != nil {
		t.Fatalf("ListEntries() error = %v", err)
	}
	if len(entries) != 2 || entries[0].ID != child.ID {
		t.Errorf("ListEntries() not newest first: %+v", entries)
	}
	if entries, _ := store.ListEntries(ctx, 1); len(entries) != 1 {
		t.Errorf("ListEntries(1) len = %d", len(entries))
	}

	if err := store.ClearHistory(ctx); err != nil {
		t.Fatalf("ClearHistory() error = %v", err)
	}
	if entries, _ := store.ListEntries(ctx, 0); len(entries) != 0 {
		t.Errorf("ListEntries() after clear = %d", len(entries))
	}
}
