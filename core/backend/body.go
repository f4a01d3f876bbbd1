package backend

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/relabs-tech/drinks/core/drinks"
)

const maxBodySize = 1 << 20

// errBadRequest is wrapped by all errors about request bodies which cannot be parsed
var errBadRequest = errors.New("bad request")

// DrinkInput is the parsed body of a create or update request. Nil fields were
// not provided.
type DrinkInput struct {
	Title  *string
	Recipe *drinks.Recipe
}

// Changes returns the input as repository changes
func (in DrinkInput) Changes() drinks.Changes {
	return drinks.Changes{Title: in.Title, Recipe: in.Recipe}
}

// IsEmpty returns true if neither title nor recipe was provided
func (in DrinkInput) IsEmpty() bool {
	return in.Title == nil && in.Recipe == nil
}

// ParseDrinkInput parses title and recipe from the request body. Form encoded
// bodies carry the recipe as text, JSON bodies as text or structured value.
// Bodies without a known content type are parsed as JSON.
//
// Unparsable bodies return an error wrapping errBadRequest, invalid recipes an
// error wrapping drinks.ErrInvalidRecipe.
func ParseDrinkInput(r *http.Request) (DrinkInput, error) {
	mediaType := ""
	if contentType := r.Header.Get("Content-Type"); contentType != "" {
		var err error
		mediaType, _, err = mime.ParseMediaType(contentType)
		if err != nil {
			return DrinkInput{}, fmt.Errorf("%w: content type: %v", errBadRequest, err)
		}
	}

	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return DrinkInput{}, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		return parseForm(r.PostForm)
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodySize); err != nil {
			return DrinkInput{}, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		return parseForm(r.MultipartForm.Value)
	default:
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
		if err != nil {
			return DrinkInput{}, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		if len(body) > maxBodySize {
			return DrinkInput{}, fmt.Errorf("%w: body too large", errBadRequest)
		}
		return parseJSON(body)
	}
}

func parseForm(values map[string][]string) (DrinkInput, error) {
	var in DrinkInput
	if v, ok := values["title"]; ok && len(v) > 0 {
		title := v[0]
		in.Title = &title
	}
	if v, ok := values["recipe"]; ok && len(v) > 0 {
		recipe, err := drinks.ParseRecipeText(v[0])
		if err != nil {
			return DrinkInput{}, err
		}
		in.Recipe = &recipe
	}
	return in, nil
}

func parseJSON(body []byte) (DrinkInput, error) {
	var in DrinkInput
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return in, nil
	}

	var raw struct {
		Title  *string         `json:"title"`
		Recipe json.RawMessage `json:"recipe"`
	}
	if body[0] != '{' {
		return in, fmt.Errorf("%w: body is not a JSON object", errBadRequest)
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return in, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	in.Title = raw.Title
	if len(raw.Recipe) > 0 && string(raw.Recipe) != "null" {
		recipe, err := drinks.ParseRecipe(raw.Recipe)
		if err != nil {
			return DrinkInput{}, err
		}
		in.Recipe = &recipe
	}
	return in, nil
}
