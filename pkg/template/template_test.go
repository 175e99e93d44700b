package template

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/templatestudio/pkg/errors"
	"github.com/matzehuels/templatestudio/pkg/scene"
)

var blank = scene.ComponentFunc(func(r *scene.Renderer) scene.Node {
	w, h := r.Size()
	return &scene.Box{Frame: scene.Rect{W: float64(w), H: float64(h)}}
})

func testDefinition(id string) *Definition {
	return &Definition{
		ID:        id,
		Name:      "Test " + id,
		Component: blank,
		Defaults:  Props{"title": "Hello", "size": 12.0, "photo": ""},
		Fields: []Field{
			{Key: "title", Label: "Title", Kind: KindText},
			{Key: "size", Label: "Size", Kind: KindNumber, Bounds: &Bounds{Min: 8, Max: 96, Step: 1}},
			{Key: "photo", Label: "Photo", Kind: KindImage},
		},
		Width:        100,
		Height:       200,
		GalleryScale: 0.5,
		PreviewScale: 1,
	}
}

func TestRegistryLookup(t *testing.T) {
	r, err := NewRegistry(testDefinition("a"), testDefinition("b"))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	if diff := cmp.Diff([]string{"a", "b"}, r.IDs()); diff != "" {
		t.Errorf("IDs mismatch (-want +got):\n%s", diff)
	}
	if d, ok := r.Lookup("b"); !ok || d.ID != "b" {
		t.Errorf("Lookup(b) = %v, %v", d, ok)
	}
	if _, ok := r.Lookup("c"); ok {
		t.Error("Lookup(c) should miss")
	}
	if _, err := r.Get("c"); !errors.Is(err, errors.ErrCodeTemplateNotFound) {
		t.Errorf("Get(c) err = %v, want TEMPLATE_NOT_FOUND", err)
	}

	list := r.List()
	list[0] = nil
	if r.List()[0] == nil {
		t.Error("List must return a copy")
	}
}

func TestRegistryHandsOutCopies(t *testing.T) {
	src := testDefinition("a")
	r, err := NewRegistry(src)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	want := testDefinition("a").DefaultProps()

	src.Defaults["title"] = "changed after registering"
	d, _ := r.Lookup("a")
	d.Defaults["title"] = "changed through Lookup"
	d.Fields[1].Bounds.Max = 1
	d.Fields = nil
	r.List()[0].Defaults["size"] = 99.0

	got, _ := r.Lookup("a")
	if diff := cmp.Diff(want, got.DefaultProps()); diff != "" {
		t.Errorf("registry defaults changed (-want +got):\n%s", diff)
	}
	f, ok := got.Field("size")
	if !ok {
		t.Fatal("size field lost")
	}
	if f.Bounds.Max != 96 {
		t.Errorf("size max = %v, want 96", f.Bounds.Max)
	}
}

func TestRegistryValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Definition)
	}{
		{"bad id", func(d *Definition) { d.ID = "Bad ID" }},
		{"no name", func(d *Definition) { d.Name = "" }},
		{"no component", func(d *Definition) { d.Component = nil }},
		{"zero width", func(d *Definition) { d.Width = 0 }},
		{"gallery scale", func(d *Definition) { d.GalleryScale = 1.5 }},
		{"preview scale", func(d *Definition) { d.PreviewScale = 0 }},
		{"missing default", func(d *Definition) { delete(d.Defaults, "size") }},
		{"duplicate field", func(d *Definition) { d.Fields = append(d.Fields, d.Fields[0]) }},
		{"unknown kind", func(d *Definition) { d.Fields[0].Kind = "color" }},
		{"inverted bounds", func(d *Definition) { d.Fields[1].Bounds = &Bounds{Min: 10, Max: 1} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testDefinition("x")
			tt.mutate(d)
			if _, err := NewRegistry(d); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	if _, err := NewRegistry(testDefinition("a"), testDefinition("a")); !errors.Is(err, errors.ErrCodeInvalidTemplate) {
		t.Errorf("duplicate ids: err = %v, want INVALID_TEMPLATE", err)
	}
}

func TestFieldParse(t *testing.T) {
	d := testDefinition("x")
	title, _ := d.Field("title")
	size, _ := d.Field("size")
	photo, _ := d.Field("photo")

	tests := []struct {
		name    string
		field   Field
		raw     string
		want    any
		wantErr bool
	}{
		{"text", title, "Angelica Bove", "Angelica Bove", false},
		{"empty text is valid", title, "", "", false},
		{"number", size, " 42 ", 42.0, false},
		{"number below min", size, "2", nil, true},
		{"number above max", size, "200", nil, true},
		{"not a number", size, "big", nil, true},
		{"image url", photo, "https://cdn.example.com/a.jpg", "https://cdn.example.com/a.jpg", false},
		{"empty image", photo, "", "", false},
		{"image not http", photo, "ftp://cdn.example.com/a.jpg", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.field.Parse(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("Parse = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestResolve(t *testing.T) {
	d := testDefinition("x")
	got := d.Resolve(Props{"title": "", "unknown": 1})
	want := Props{"title": "", "size": 12.0, "photo": ""}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve mismatch (-want +got):\n%s", diff)
	}

	got["title"] = "mutated"
	if d.Defaults["title"] != "Hello" {
		t.Error("Resolve must not alias the defaults")
	}
}

func TestDocumentUsesDeclaredSize(t *testing.T) {
	doc := testDefinition("x").Document(nil)
	if w, h := doc.Size(); w != 100 || h != 200 {
		t.Errorf("Size = %dx%d, want 100x200", w, h)
	}
	if doc.Name() != "x" {
		t.Errorf("Name = %q", doc.Name())
	}
}
