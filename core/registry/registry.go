/*Package registry provides a persistent registry of JSON documents in the service schema

The drinks service keeps the signing keys of the identity provider here, so
that a restarted instance, or a second one, does not need to download them
again. Every document carries the time it was written, readers decide how old
a document may be.
*/
package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/relabs-tech/drinks/core/csql"
)

// New creates a new registry for the specified database. It panics if the
// registry table cannot be created.
func New(db *csql.DB) Registry {
	_, err := db.Exec(`CREATE table IF NOT EXISTS ` + db.Schema + `."_registry_"
(key varchar NOT NULL,
value json NOT NULL,
timestamp timestamp NOT NULL,
PRIMARY KEY(key)
);`)

	if err != nil {
		panic(err)
	}
	return Registry{
		db:          db,
		selectQuery: `SELECT value, timestamp FROM ` + db.Schema + `."_registry_" WHERE key=$1;`,
		upsertQuery: `INSERT INTO ` + db.Schema + `."_registry_"(key,value,timestamp) VALUES($1,$2,$3)
ON CONFLICT (key) DO UPDATE SET value=$2,timestamp=$3;`,
		deleteQuery: `DELETE FROM ` + db.Schema + `."_registry_" WHERE key=$1;`,
	}
}

// Registry is the registry table of one schema
type Registry struct {
	db          *csql.DB
	selectQuery string
	upsertQuery string
	deleteQuery string
}

// Accessor reads and writes the documents of one key namespace, for example
// "_jwks_" for the identity provider's key sets.
type Accessor struct {
	prefix   string
	registry Registry
}

// Accessor returns an accessor for prefix. Keys are stored as "{prefix}:{key}".
func (r Registry) Accessor(prefix string) Accessor {
	return Accessor{prefix: prefix, registry: r}
}

func (a Accessor) key(key string) string {
	if len(a.prefix) > 0 {
		return a.prefix + ":" + key
	}
	return key
}

// Read reads the document for key into value. It returns the time the document
// was written, or a zero time if there is none.
func (a Accessor) Read(ctx context.Context, key string, value interface{}) (time.Time, error) {
	var (
		raw       json.RawMessage
		timestamp time.Time
	)
	key = a.key(key)
	err := a.registry.db.QueryRowContext(ctx, a.registry.selectQuery, key).Scan(&raw, &timestamp)
	if err == csql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot read key '%s': %w", key, err)
	}
	if err = json.Unmarshal(raw, value); err != nil {
		return time.Time{}, fmt.Errorf("cannot decode key '%s': %w", key, err)
	}
	return timestamp, nil
}

// ReadRecent is like Read, but only accepts a document written within maxAge.
// fresh is false if there is no such document, value is left untouched then.
func (a Accessor) ReadRecent(ctx context.Context, key string, value interface{}, maxAge time.Duration) (timestamp time.Time, fresh bool, err error) {
	var raw json.RawMessage
	timestamp, err = a.Read(ctx, key, &raw)
	if err != nil || timestamp.IsZero() || time.Since(timestamp) > maxAge {
		return timestamp, false, err
	}
	if err = json.Unmarshal(raw, value); err != nil {
		return timestamp, false, fmt.Errorf("cannot decode key '%s': %w", a.key(key), err)
	}
	return timestamp, true, nil
}

// Write upserts the document for key and returns its timestamp
func (a Accessor) Write(ctx context.Context, key string, value interface{}) (time.Time, error) {
	body, err := json.Marshal(value)
	if err != nil {
		return time.Time{}, err
	}
	key = a.key(key)
	now := time.Now().UTC()
	res, err := a.registry.db.ExecContext(ctx, a.registry.upsertQuery, key, string(body), now)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot write key '%s': %w", key, err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return time.Time{}, err
	}
	if count == 0 {
		return time.Time{}, fmt.Errorf("could not write key %s", key)
	}
	return now, nil
}

// Delete deletes the document for key. Deleting a missing key is not an error.
func (a Accessor) Delete(ctx context.Context, key string) error {
	_, err := a.registry.db.ExecContext(ctx, a.registry.deleteQuery, a.key(key))
	return err
}
