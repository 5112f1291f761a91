package extract

import (
	"errors"
	"testing"
)

const productHTML = `<html><body>
	<h1 class="product-name">  Herbal Soap  </h1>
	<div class="details">
		<h2 class="product-description-header">About</h2>
		<p>Gentle cleansing for all skin types.</p>
	</div>
	<div class="product-subtitle">With aloe vera</div>
</body></html>`

func productSpec() Spec {
	return Spec{Fields: []FieldRule{
		{Name: "title", Selector: "h1.product-name", Required: true},
		{Name: "description", Selector: "h2.product-description-header", FromParent: true, Child: "p", Required: true},
		{Name: "subtitle", Selector: "div.product-subtitle", Required: true},
	}}
}

func TestExtractAllFields(t *testing.T) {
	doc, err := ParseDocument([]byte(productHTML))
	if err != nil {
		t.Fatalf("failed to parse document: %v", err)
	}

	values, err := Extract(doc, productSpec(), "https://example.com/product/soap")
	if err != nil {
		t.Fatalf("extraction failed: %v", err)
	}

	expected := map[string]string{
		"title":       "Herbal Soap",
		"description": "Gentle cleansing for all skin types.",
		"subtitle":    "With aloe vera",
	}
	for field, want := range expected {
		if values[field] != want {
			t.Fatalf("field %q = %q, expected %q", field, values[field], want)
		}
	}
}

func TestExtractMissingRequiredField(t *testing.T) {
	html := `<html><body><div class="product-subtitle">Only subtitle</div></body></html>`
	doc, err := ParseDocument([]byte(html))
	if err != nil {
		t.Fatalf("failed to parse document: %v", err)
	}

	_, err = Extract(doc, productSpec(), "https://example.com/product/soap")
	if err == nil {
		t.Fatal("expected extraction error for missing title")
	}

	var extErr *ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected *ExtractionError, got %T", err)
	}
	if extErr.Field != "title" {
		t.Fatalf("expected failure on field title, got %q", extErr.Field)
	}
}

func TestExtractEmptyTextIsFailure(t *testing.T) {
	html := `<html><body><h1 class="product-name">   </h1></body></html>`
	doc, err := ParseDocument([]byte(html))
	if err != nil {
		t.Fatalf("failed to parse document: %v", err)
	}

	spec := Spec{Fields: []FieldRule{
		{Name: "title", Selector: "h1.product-name", Required: true},
	}}
	if _, err := Extract(doc, spec, "https://example.com/p"); err == nil {
		t.Fatal("expected error for whitespace-only match")
	}
}

func TestExtractOptionalFieldOmitted(t *testing.T) {
	html := `<html><body><h1 class="product-name">Soap</h1></body></html>`
	doc, err := ParseDocument([]byte(html))
	if err != nil {
		t.Fatalf("failed to parse document: %v", err)
	}

	spec := Spec{Fields: []FieldRule{
		{Name: "title", Selector: "h1.product-name", Required: true},
		{Name: "rating", Selector: ".rating"},
	}}
	values, err := Extract(doc, spec, "https://example.com/p")
	if err != nil {
		t.Fatalf("extraction failed: %v", err)
	}
	if _, present := values["rating"]; present {
		t.Fatal("expected missing optional field to be omitted")
	}
	if values["title"] != "Soap" {
		t.Fatalf("unexpected title %q", values["title"])
	}
}

func TestExtractNestedLookupRelativeToFirstMatch(t *testing.T) {
	html := `<html><body>
		<div class="block"><h2 class="header">First</h2><p>first paragraph</p></div>
		<div class="block"><h2 class="header">Second</h2><p>second paragraph</p></div>
	</body></html>`
	doc, err := ParseDocument([]byte(html))
	if err != nil {
		t.Fatalf("failed to parse document: %v", err)
	}

	spec := Spec{Fields: []FieldRule{
		{Name: "body", Selector: "h2.header", FromParent: true, Child: "p", Required: true},
	}}
	values, err := Extract(doc, spec, "https://example.com/p")
	if err != nil {
		t.Fatalf("extraction failed: %v", err)
	}
	if values["body"] != "first paragraph" {
		t.Fatalf("expected nested lookup relative to first match, got %q", values["body"])
	}
}

func TestParseDocumentEmptyInput(t *testing.T) {
	if _, err := ParseDocument(nil); err == nil {
		t.Fatal("expected error for empty input")
	}
	if _, err := ParseDocument([]byte("   \n\t")); err == nil {
		t.Fatal("expected error for whitespace-only input")
	}
}

func TestSpecValidate(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spec
		wantErr bool
	}{
		{
			name:    "valid",
			spec:    productSpec(),
			wantErr: false,
		},
		{
			name:    "no fields",
			spec:    Spec{},
			wantErr: true,
		},
		{
			name: "empty name",
			spec: Spec{Fields: []FieldRule{{Selector: "h1"}}},
			wantErr: true,
		},
		{
			name: "empty selector",
			spec: Spec{Fields: []FieldRule{{Name: "title"}}},
			wantErr: true,
		},
		{
			name: "duplicate name",
			spec: Spec{Fields: []FieldRule{
				{Name: "title", Selector: "h1"},
				{Name: "title", Selector: "h2"},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSpecRequiredFields(t *testing.T) {
	got := productSpec().RequiredFields()
	expected := []string{"title", "description", "subtitle"}
	if len(got) != len(expected) {
		t.Fatalf("expected %d required fields, got %d", len(expected), len(got))
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Fatalf("required field %d = %q, expected %q", i, got[i], expected[i])
		}
	}
}
