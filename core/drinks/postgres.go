package drinks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/relabs-tech/drinks/core/csql"
	"github.com/relabs-tech/drinks/core/logger"
)

// Postgres is the postgres implementation of Repository
type Postgres struct {
	db *csql.DB

	listQuery     string
	findQuery     string
	createQuery   string
	updateQuery   string
	deleteQuery   string
	migrateScript string
}

const drinkColumns = `id, title, recipe, created_at`

// NewPostgres returns a repository for the drink table in db's schema. Call
// Migrate to create the table.
func NewPostgres(db *csql.DB) *Postgres {
	if db == nil {
		panic("DB is missing")
	}
	table := db.Schema + `."drink"`
	return &Postgres{
		db: db,
		migrateScript: `CREATE table IF NOT EXISTS ` + table + `
(id SERIAL,
title VARCHAR NOT NULL DEFAULT '',
recipe TEXT NOT NULL,
created_at TIMESTAMP NOT NULL DEFAULT now(),
PRIMARY KEY(id)
);`,
		listQuery:   `SELECT ` + drinkColumns + ` FROM ` + table + ` ORDER BY id;`,
		findQuery:   `SELECT ` + drinkColumns + ` FROM ` + table + ` WHERE id = $1;`,
		createQuery: `INSERT INTO ` + table + ` (title, recipe) VALUES ($1, $2) RETURNING ` + drinkColumns + `;`,
		updateQuery: `UPDATE ` + table + ` SET title = COALESCE($2, title), recipe = COALESCE($3, recipe) WHERE id = $1 RETURNING ` + drinkColumns + `;`,
		deleteQuery: `DELETE FROM ` + table + ` WHERE id = $1;`,
	}
}

// Migrate creates the drink table if it does not exist
func (p *Postgres) Migrate(ctx context.Context) error {
	logger.FromContext(ctx).Infoln("create table", p.db.Schema+".drink")
	_, err := p.db.ExecContext(ctx, p.migrateScript)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDrink(row rowScanner) (Drink, error) {
	var d Drink
	var recipe string
	if err := row.Scan(&d.ID, &d.Title, &recipe, &d.CreatedAt); err != nil {
		return d, err
	}
	r, err := decodeRecipe([]byte(recipe))
	if err != nil {
		return d, fmt.Errorf("drink %d: %w", d.ID, err)
	}
	d.Recipe = r
	return d, nil
}

// List implements Repository
func (p *Postgres) List(ctx context.Context) ([]Drink, error) {
	rows, err := p.db.QueryContext(ctx, p.listQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	all := []Drink{}
	for rows.Next() {
		d, err := scanDrink(rows)
		if err != nil {
			return nil, err
		}
		all = append(all, d)
	}
	return all, rows.Err()
}

// FindByID implements Repository
func (p *Postgres) FindByID(ctx context.Context, id int64) (Drink, bool, error) {
	d, err := scanDrink(p.db.QueryRowContext(ctx, p.findQuery, id))
	if errors.Is(err, csql.ErrNoRows) {
		return Drink{}, false, nil
	}
	if err != nil {
		return Drink{}, false, err
	}
	return d, true, nil
}

// Create implements Repository
func (p *Postgres) Create(ctx context.Context, title string, recipe Recipe) (Drink, error) {
	return scanDrink(p.db.QueryRowContext(ctx, p.createQuery, title, recipe.Serialize()))
}

// Update implements Repository
func (p *Postgres) Update(ctx context.Context, id int64, changes Changes) (Drink, error) {
	var title, recipe sql.NullString
	if changes.Title != nil {
		title = sql.NullString{String: *changes.Title, Valid: true}
	}
	if changes.Recipe != nil {
		recipe = sql.NullString{String: changes.Recipe.Serialize(), Valid: true}
	}
	d, err := scanDrink(p.db.QueryRowContext(ctx, p.updateQuery, id, title, recipe))
	if errors.Is(err, csql.ErrNoRows) {
		return Drink{}, ErrNotFound
	}
	return d, err
}

// Delete implements Repository
func (p *Postgres) Delete(ctx context.Context, id int64) error {
	res, err := p.db.ExecContext(ctx, p.deleteQuery, id)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}
