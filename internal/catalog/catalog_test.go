package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadCSV(t *testing.T) {
	in := `product_id,name,category,description,top_ingredients,tags,price (USD),margin (%)
P001,Hydra Cream,Moisturizer,Rich cream for dry skin,Hyaluronic Acid; Ceramides,hydrating|moisturizing,24.5,40
P002,Clear Gel,Cleanser,Foaming gel,Salicylic Acid,acne|oil-free,n/a,
,Orphan,Serum,,,,,
`
	got, err := ReadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d products, want 2", len(got))
	}
	if got[0].ID != "P001" || got[0].Category != "Moisturizer" {
		t.Errorf("first product = %+v", got[0])
	}
	if got[0].Price == nil || *got[0].Price != 24.5 {
		t.Errorf("Price = %v, want 24.5", got[0].Price)
	}
	if got[0].Margin == nil || *got[0].Margin != 40 {
		t.Errorf("Margin = %v, want 40", got[0].Margin)
	}
	if got[1].Price != nil {
		t.Errorf("unparseable price should be nil, got %v", *got[1].Price)
	}
	if got[1].Margin != nil {
		t.Errorf("empty margin should be nil, got %v", *got[1].Margin)
	}
}

func TestLoadFile_JSON(t *testing.T) {
	path := writeTemp(t, "catalog.json", `[
		{"product_id": 101, "name": "Sun Shield", "category": "Sunscreen", "tags": "spf|lightweight", "price (USD)": 18, "margin (%)": "35%"},
		{"name": "no id"}
	]`)
	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d products, want 1", len(got))
	}
	if got[0].ID != "101" {
		t.Errorf("ID = %q, want %q", got[0].ID, "101")
	}
	if got[0].Margin == nil || *got[0].Margin != 35 {
		t.Errorf("Margin = %v, want 35", got[0].Margin)
	}
}

func TestLoadFile_YAML(t *testing.T) {
	path := writeTemp(t, "catalog.yaml", `
- product_id: P9
  name: Night Serum
  category: Serum
  tags: retinol|anti-aging
  margin (%): 12.5
`)
	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(got) != 1 || got[0].ID != "P9" {
		t.Fatalf("got %+v", got)
	}
	if got[0].Margin == nil || *got[0].Margin != 12.5 {
		t.Errorf("Margin = %v, want 12.5", got[0].Margin)
	}
}

func TestLoadFile_UnsupportedFormat(t *testing.T) {
	path := writeTemp(t, "catalog.xlsx", "binary")
	_, err := LoadFile(path)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestProductLists(t *testing.T) {
	p := Product{Tags: "hydrating| gentle |", Ingredients: "Niacinamide; Zinc, Aloe|Water"}
	if got, want := p.TagList(), []string{"hydrating", "gentle"}; !reflect.DeepEqual(got, want) {
		t.Errorf("TagList() = %v, want %v", got, want)
	}
	if got, want := p.IngredientList(), []string{"Niacinamide", "Zinc", "Aloe", "Water"}; !reflect.DeepEqual(got, want) {
		t.Errorf("IngredientList() = %v, want %v", got, want)
	}
}

func TestParseVocabulary(t *testing.T) {
	if got := ParseSkinType(" Oily "); got != SkinOily {
		t.Errorf("ParseSkinType = %q, want oily", got)
	}
	if got := ParseSkinType("normal"); got != "" {
		t.Errorf("ParseSkinType(normal) = %q, want empty", got)
	}
	if got := ParseConcern("Dark_Spots"); got != ConcernDarkSpots {
		t.Errorf("ParseConcern = %q, want dark_spots", got)
	}
	if got := ParseConcern("redness"); got != "" {
		t.Errorf("ParseConcern(redness) = %q, want empty", got)
	}
}

func TestPreferences_WithConcerns(t *testing.T) {
	p := Preferences{Concerns: []Concern{ConcernAcne}}
	got := p.WithConcerns(ConcernHydration, ConcernAcne, Concern("redness"))

	want := []Concern{ConcernAcne, ConcernHydration}
	if !reflect.DeepEqual(got.Concerns, want) {
		t.Errorf("Concerns = %v, want %v", got.Concerns, want)
	}
	if len(p.Concerns) != 1 {
		t.Errorf("original preferences mutated: %v", p.Concerns)
	}
}

func TestPreferences_Summary(t *testing.T) {
	p := Preferences{SkinType: SkinDry, Concerns: []Concern{ConcernAcne, ConcernHydration}}
	want := "Skin type: dry | Concerns: acne, hydration"
	if got := p.Summary(); got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
	if got := (Preferences{}).Summary(); got != "" {
		t.Errorf("empty Summary() = %q, want empty", got)
	}
}
