package drinks

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/goccy/go-json"

	"github.com/relabs-tech/drinks/core/schema"
)

// RecipeSchemaID is the $id of the recipe JSON schema
const RecipeSchemaID = "https://drinks.relabs.tech/recipe.json"

// ErrInvalidRecipe is wrapped by all errors about recipes which cannot be
// parsed or do not satisfy the recipe schema
var ErrInvalidRecipe = errors.New("invalid recipe")

//go:embed schemas
var schemaFS embed.FS

var validator = mustRecipeValidator()

func mustRecipeValidator() *schema.Validator {
	sub, err := fs.Sub(schemaFS, "schemas")
	if err != nil {
		panic(err)
	}
	v, err := schema.NewValidatorFromFS(sub)
	if err != nil {
		panic(fmt.Errorf("recipe schema: %w", err))
	}
	if !v.HasSchema(RecipeSchemaID) {
		panic("recipe schema is missing")
	}
	return v
}

// Ingredient is one entry of a recipe
type Ingredient struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Parts int    `json:"parts"`
}

// Recipe is the list of ingredients of a drink
type Recipe []Ingredient

// Serialize returns the text representation of the recipe, a JSON array.
// A nil recipe serializes to an empty array.
func (r Recipe) Serialize() string {
	if r == nil {
		return "[]"
	}
	data, err := json.Marshal(r)
	if err != nil {
		// a slice of flat structs always marshals
		panic(err)
	}
	return string(data)
}

// ParseRecipe parses a recipe from raw JSON. The raw value is either a JSON
// string holding the recipe text, or the structured recipe itself: a list of
// ingredients or a single ingredient. A single ingredient is normalized to a
// one element recipe.
func ParseRecipe(raw json.RawMessage) (Recipe, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRecipe, err)
		}
		return ParseRecipeText(text)
	}
	return parseStructured(raw)
}

// ParseRecipeText parses recipe text as it is stored and as it is accepted in
// form fields.
func ParseRecipeText(text string) (Recipe, error) {
	return parseStructured([]byte(text))
}

func parseStructured(data []byte) (Recipe, error) {
	if err := validator.ValidateBytes(data, RecipeSchemaID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecipe, err)
	}
	return decodeRecipe(data)
}

// decodeRecipe decodes a list of ingredients or a single ingredient without
// validation
func decodeRecipe(data []byte) (Recipe, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var single Ingredient
		if err := json.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRecipe, err)
		}
		return Recipe{single}, nil
	}
	recipe := Recipe{}
	if err := json.Unmarshal(data, &recipe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecipe, err)
	}
	return recipe, nil
}
