package drinks

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Update and Delete if there is no drink with the given id
var ErrNotFound = errors.New("drink not found")

// Changes are the fields of an update. Nil fields are not changed.
type Changes struct {
	Title  *string
	Recipe *Recipe
}

// IsEmpty returns true if no field is supplied
func (c Changes) IsEmpty() bool {
	return c.Title == nil && c.Recipe == nil
}

// Repository is the persistent store of drinks. Every mutation is committed
// before the call returns.
type Repository interface {
	// List returns all drinks ordered by id, an empty slice if there are none
	List(ctx context.Context) ([]Drink, error)
	// FindByID returns the drink with id. found is false if there is none.
	FindByID(ctx context.Context, id int64) (drink Drink, found bool, err error)
	// Create stores a new drink and returns it with its assigned id
	Create(ctx context.Context, title string, recipe Recipe) (Drink, error)
	// Update applies changes to the drink with id and returns the result
	Update(ctx context.Context, id int64, changes Changes) (Drink, error)
	// Delete removes the drink with id
	Delete(ctx context.Context, id int64) error
}
