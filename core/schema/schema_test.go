package schema_test

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/relabs-tech/drinks/core/schema"
)

const (
	refColor = `{ "type" : "string" ,
		      "$id" : "http://some_host.com/color.json"}`
	refShort = `{ "$id" : "http://some_host.com/maxlength.json",
	 		  "maxLength" : 5 }`

	topLevel1 = `
	{ "$id" : "http://some_host.com/top1.json",
	  "allOf" : [
		{ "$ref" : "http://some_host.com/color.json" },
		{ "$ref" : "http://some_host.com/maxlength.json" }
		]
	}`
	topLevel2 = `
	{ "$id" : "http://some_host.com/top2.json",
	  "allOf" : [
 		{ "$ref" : "http://some_host.com/color.json" },
 		{ "type": "string", "minLength": 3 }
	  ]
	}`
)

func TestValidateString(t *testing.T) {
	v, err := schema.NewValidator([]string{topLevel1, topLevel2}, []string{refColor, refShort})
	if err != nil {
		t.Fatalf("No error expected when creating validator, got %v", err)
	}

	schemaID1 := "http://some_host.com/top1.json"
	schemaID2 := "http://some_host.com/top2.json"
	jsonShortString := `"brown"`
	jsonLongString := `"a very dark brown"`

	// Valid json
	if err := v.ValidateString(jsonShortString, schemaID1); err != nil {
		t.Fatalf("%s is expected to be valid with schema %s. Reported error was: %v", jsonShortString, schemaID1, err)
	}

	// Invalid json
	err = v.ValidateString(jsonLongString, schemaID1)
	if err == nil {
		t.Fatalf("%s is expected to be invalid with schema %s", jsonLongString, schemaID1)
	}
	if !errors.Is(err, schema.ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}

	// Valid json
	if err := v.ValidateString(jsonLongString, schemaID2); err != nil {
		t.Fatalf("%s is expected to be valid with schema %s. Reported error was: %v", jsonLongString, schemaID2, err)
	}
	if err := v.ValidateBytes([]byte(jsonLongString), schemaID2); err != nil {
		t.Fatalf("%s is expected to be valid with schema %s. Reported error was: %v", jsonLongString, schemaID2, err)
	}

	// Broken json is an invalid document as well
	if err := v.ValidateString(`"unterminated`, schemaID2); !errors.Is(err, schema.ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument for broken json, got %v", err)
	}
}

func TestValidateStruct(t *testing.T) {
	schema1 := `{
		"$id": "https://drinks.relabs.tech/schemas/ingredient.json",
		"type": "object",
		"required": [
			"color"
		],
		"properties": {
			"color": {
				"type": "string"
			}
		}
	}`
	type Ingredient struct {
		Color string `json:"color"`
	}

	v, err := schema.NewValidator([]string{schema1}, []string{})
	if err != nil {
		t.Fatalf("No error expected when creating validator, got %v", err)
	}

	// Valid json
	if err := v.ValidateStruct(Ingredient{"brown"}, "https://drinks.relabs.tech/schemas/ingredient.json"); err != nil {
		t.Fatal(err)
	}

	// Invalid json
	type IngredientIncorrect struct {
		Color string `json:"colour"`
	}
	if err := v.ValidateStruct(IngredientIncorrect{"brown"}, "https://drinks.relabs.tech/schemas/ingredient.json"); err == nil {
		t.Fatal("expected missing color to be reported")
	}
}

func TestHasSchema(t *testing.T) {
	v, err := schema.NewValidator([]string{topLevel1, topLevel2}, []string{refColor, refShort})
	if err != nil {
		t.Fatalf("No error expected when creating validator, got %v", err)
	}

	schemaID := "http://some_host.com/top1.json"
	if !v.HasSchema(schemaID) {
		t.Fatalf("%s schemaID is expected to be available", schemaID)
	}
	schemaID = "http://some_host.com/top2.json"
	if !v.HasSchema(schemaID) {
		t.Fatalf("%s schemaID is expected to be available", schemaID)
	}

	schemaID = "http://some_host.com/unknownscehma.json"
	if v.HasSchema(schemaID) {
		t.Fatalf("%s schemaID is not expected to be available", schemaID)
	}
	if err := v.ValidateString(`"x"`, schemaID); err == nil || errors.Is(err, schema.ErrInvalidDocument) {
		t.Fatalf("unknown schema must be reported as such, got %v", err)
	}
}

func TestNewValidatorFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"top1.json":           {Data: []byte(topLevel1)},
		"README.md":           {Data: []byte("not a schema")},
		"refs/color.json":     {Data: []byte(refColor)},
		"refs/maxlength.json": {Data: []byte(refShort)},
	}
	v, err := schema.NewValidatorFromFS(fsys)
	if err != nil {
		t.Fatal(err)
	}
	if !v.HasSchema("http://some_host.com/top1.json") {
		t.Fatal("top1 expected")
	}
	if v.HasSchema("http://some_host.com/color.json") {
		t.Fatal("refs must not become top level schemas")
	}

	// refs are optional
	v, err = schema.NewValidatorFromFS(fstest.MapFS{
		"top.json": {Data: []byte(`{"$id":"http://some_host.com/top.json","type":"array"}`)},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := v.ValidateString(`[]`, "http://some_host.com/top.json"); err != nil {
		t.Fatal(err)
	}
}
