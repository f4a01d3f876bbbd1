// Package drinks is the drink model of the service and its persistence.
package drinks

import "time"

// Drink is a single menu item
type Drink struct {
	ID        int64
	Title     string
	Recipe    Recipe
	CreatedAt time.Time
}

// ShortIngredient is an ingredient without its name
type ShortIngredient struct {
	Color string `json:"color"`
	Parts int    `json:"parts"`
}

// ShortDrink is the public projection of a drink. It does not reveal
// ingredient names.
type ShortDrink struct {
	ID     int64             `json:"id"`
	Title  string            `json:"title"`
	Recipe []ShortIngredient `json:"recipe"`
}

// LongDrink is the detailed projection of a drink
type LongDrink struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Recipe Recipe `json:"recipe"`
}

// Short returns the short form of d
func (d Drink) Short() ShortDrink {
	recipe := make([]ShortIngredient, 0, len(d.Recipe))
	for _, i := range d.Recipe {
		recipe = append(recipe, ShortIngredient{Color: i.Color, Parts: i.Parts})
	}
	return ShortDrink{ID: d.ID, Title: d.Title, Recipe: recipe}
}

// Long returns the long form of d
func (d Drink) Long() LongDrink {
	recipe := d.Recipe
	if recipe == nil {
		recipe = Recipe{}
	}
	return LongDrink{ID: d.ID, Title: d.Title, Recipe: recipe}
}

// ShortList returns the short forms of all drinks, never nil
func ShortList(all []Drink) []ShortDrink {
	result := make([]ShortDrink, 0, len(all))
	for _, d := range all {
		result = append(result, d.Short())
	}
	return result
}

// LongList returns the long forms of all drinks, never nil
func LongList(all []Drink) []LongDrink {
	result := make([]LongDrink, 0, len(all))
	for _, d := range all {
		result = append(result, d.Long())
	}
	return result
}
