package place

import (
	"context"
	"reflect"
	"testing"
	"time"
)

func seed(t *testing.T, r *InMemoryRepository, places ...*Place) {
	t.Helper()
	for _, p := range places {
		if err := r.Create(context.Background(), p); err != nil {
			t.Fatalf("Create(%s): %v", p.ID, err)
		}
	}
}

func TestInMemoryRepository_GetByID(t *testing.T) {
	r := NewInMemoryRepository()
	seed(t, r, &Place{ID: "a", Name: "Alpha", Category: "amenity", Subcategory: "cafe"})

	p, err := r.GetByID(context.Background(), "a")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if p.Name != "Alpha" {
		t.Errorf("Name = %s", p.Name)
	}

	if _, err := r.GetByID(context.Background(), "missing"); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestInMemoryRepository_ReturnsCopies(t *testing.T) {
	r := NewInMemoryRepository()
	seed(t, r, &Place{
		ID: "a", Name: "Alpha", Category: "amenity",
		Coordinates: &Coordinates{Lat: 1, Lng: 2},
	})

	p, _ := r.GetByID(context.Background(), "a")
	p.Name = "Mutated"
	p.Coordinates.Lat = 99

	fresh, _ := r.GetByID(context.Background(), "a")
	if fresh.Name != "Alpha" || fresh.Coordinates.Lat != 1 {
		t.Error("mutation through returned pointer reached stored state")
	}
}

func TestInMemoryRepository_CreateDuplicate(t *testing.T) {
	r := NewInMemoryRepository()
	seed(t, r, &Place{ID: "a", Category: "amenity"})

	if err := r.Create(context.Background(), &Place{ID: "a", Category: "shop"}); err == nil {
		t.Error("expected error on duplicate ID")
	}
}

func TestInMemoryRepository_List(t *testing.T) {
	r := NewInMemoryRepository()
	seed(t, r,
		&Place{ID: "a", Category: "amenity", Subcategory: "cafe"},
		&Place{ID: "b", Category: "amenity", Subcategory: "pub"},
		&Place{ID: "c", Category: "shop", Subcategory: "bakery"},
		&Place{ID: "d", Category: "amenity", Subcategory: "cafe"},
	)

	tests := []struct {
		name string
		opts ListOptions
		want []string
	}{
		{"all", ListOptions{}, []string{"a", "b", "c", "d"}},
		{"by category", ListOptions{Category: "amenity"}, []string{"a", "b", "d"}},
		{"by subcategory", ListOptions{Category: "amenity", Subcategory: "cafe"}, []string{"a", "d"}},
		{"limit", ListOptions{Limit: 2}, []string{"a", "b"}},
		{"offset", ListOptions{Offset: 2}, []string{"c", "d"}},
		{"limit and offset", ListOptions{Limit: 1, Offset: 1}, []string{"b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.List(context.Background(), tt.opts)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			ids := make([]string, len(got))
			for i, p := range got {
				ids[i] = p.ID
			}
			if !reflect.DeepEqual(ids, tt.want) {
				t.Errorf("List(%+v) = %v, want %v", tt.opts, ids, tt.want)
			}
		})
	}
}

func TestInMemoryRepository_ScanAll_StableOrder(t *testing.T) {
	r := NewInMemoryRepository()
	seed(t, r,
		&Place{ID: "z", Category: "amenity"},
		&Place{ID: "a", Category: "amenity"},
		&Place{ID: "m", Category: "amenity"},
	)

	for i := 0; i < 5; i++ {
		got, err := r.ScanAll(context.Background())
		if err != nil {
			t.Fatalf("ScanAll: %v", err)
		}
		ids := []string{got[0].ID, got[1].ID, got[2].ID}
		if !reflect.DeepEqual(ids, []string{"z", "a", "m"}) {
			t.Fatalf("scan order not stable: %v", ids)
		}
	}
}

func TestInMemoryRepository_UpdateFields(t *testing.T) {
	r := NewInMemoryRepository()
	seed(t, r, &Place{ID: "a", Name: "Alpha", Category: "amenity", Phone: "111"})

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	err := r.UpdateFields(context.Background(), "a", map[string]string{"phone": "222", "website": "https://a.example"}, now)
	if err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	p, _ := r.GetByID(context.Background(), "a")
	if p.Phone != "222" || p.Website != "https://a.example" {
		t.Errorf("fields not applied: %+v", p)
	}
	if p.Name != "Alpha" {
		t.Errorf("untouched field changed: %s", p.Name)
	}
	if p.LastUpdated == nil || !p.LastUpdated.Equal(now) {
		t.Errorf("LastUpdated = %v, want %v", p.LastUpdated, now)
	}
}

func TestInMemoryRepository_UpdateFields_Validation(t *testing.T) {
	r := NewInMemoryRepository()
	seed(t, r, &Place{ID: "a", Category: "amenity"})
	now := time.Now()

	if err := r.UpdateFields(context.Background(), "a", map[string]string{"id": "b"}, now); err != ErrProtectedField {
		t.Errorf("protected: err = %v", err)
	}
	if err := r.UpdateFields(context.Background(), "a", map[string]string{"nope": "x"}, now); err != ErrUnknownField {
		t.Errorf("unknown: err = %v", err)
	}
	if err := r.UpdateFields(context.Background(), "missing", map[string]string{"name": "x"}, now); err != ErrNotFound {
		t.Errorf("missing: err = %v", err)
	}
}

func TestInMemoryRepository_Categories(t *testing.T) {
	r := NewInMemoryRepository()
	seed(t, r,
		&Place{ID: "a", Category: "amenity", Subcategory: "cafe"},
		&Place{ID: "b", Category: "amenity", Subcategory: "bar"},
		&Place{ID: "c", Category: "amenity", Subcategory: "cafe"},
		&Place{ID: "d", Category: "shop", Subcategory: "bakery"},
		&Place{ID: "e", Category: "other", Subcategory: "misc"},
	)

	got, err := r.Categories(context.Background())
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}

	want := map[string][]string{
		"amenity": {"bar", "cafe"},
		"shop":    {"bakery"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Categories = %v, want %v", got, want)
	}
	if _, ok := got["other"]; ok {
		t.Error("catch-all bucket leaked into categories")
	}
}

func TestValidateFields(t *testing.T) {
	tests := []struct {
		name    string
		fields  map[string]string
		wantErr error
	}{
		{"all editable", map[string]string{"name": "x", "phone": "y", "opening_hours": "z"}, nil},
		{"empty map ok here", map[string]string{}, nil},
		{"protected coordinates", map[string]string{"coordinates": "{}"}, ErrProtectedField},
		{"protected osm id", map[string]string{"osm_id": "1"}, ErrProtectedField},
		{"unknown", map[string]string{"color": "red"}, ErrUnknownField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateFields(tt.fields); err != tt.wantErr {
				t.Errorf("ValidateFields() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	named := &Place{Name: "Alpha", Subcategory: "cafe"}
	if got := named.DisplayName(); got != "Alpha" {
		t.Errorf("DisplayName = %s", got)
	}

	unnamed := &Place{Subcategory: "cafe"}
	if got := unnamed.DisplayName(); got != "Unnamed cafe" {
		t.Errorf("DisplayName = %s", got)
	}
}
