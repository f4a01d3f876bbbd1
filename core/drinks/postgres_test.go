package drinks_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"github.com/relabs-tech/drinks/core/drinks"
	"github.com/relabs-tech/drinks/test/containers"
)

func TestPostgres(t *testing.T) {
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	pg, err := containers.StartPostgres(ctx, "")
	require.NoError(t, err)
	defer pg.Terminate(ctx)

	db := pg.Open("_drinks_unit_test_")
	defer db.Close()

	repo := drinks.NewPostgres(db)
	require.NoError(t, repo.Migrate(ctx))
	// migrating twice is fine
	require.NoError(t, repo.Migrate(ctx))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)

	mocha := drinks.Recipe{{Name: "coffee", Color: "brown", Parts: 1}}
	created, err := repo.Create(ctx, "Mocha", mocha)
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	t.Run("recipe round trip", func(t *testing.T) {
		found, ok, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "Mocha", found.Title)
		assert.Equal(t, mocha, found.Recipe)
	})

	t.Run("missing id", func(t *testing.T) {
		_, ok, err := repo.FindByID(ctx, created.ID+1000)
		require.NoError(t, err)
		assert.False(t, ok)

		title := "nothing"
		_, err = repo.Update(ctx, created.ID+1000, drinks.Changes{Title: &title})
		assert.ErrorIs(t, err, drinks.ErrNotFound)

		assert.ErrorIs(t, repo.Delete(ctx, created.ID+1000), drinks.ErrNotFound)
	})

	t.Run("update only title", func(t *testing.T) {
		title := "Caffe Mocha"
		updated, err := repo.Update(ctx, created.ID, drinks.Changes{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, "Caffe Mocha", updated.Title)
		assert.Equal(t, mocha, updated.Recipe)
	})

	t.Run("update only recipe", func(t *testing.T) {
		recipe := drinks.Recipe{
			{Name: "coffee", Color: "brown", Parts: 1},
			{Name: "chocolate", Color: "black", Parts: 1},
		}
		updated, err := repo.Update(ctx, created.ID, drinks.Changes{Recipe: &recipe})
		require.NoError(t, err)
		assert.Equal(t, "Caffe Mocha", updated.Title)
		assert.Equal(t, recipe, updated.Recipe)
	})

	t.Run("update to empty title", func(t *testing.T) {
		empty := ""
		updated, err := repo.Update(ctx, created.ID, drinks.Changes{Title: &empty})
		require.NoError(t, err)
		assert.Equal(t, "", updated.Title)
		assert.Len(t, updated.Recipe, 2)
	})

	t.Run("list is ordered by id", func(t *testing.T) {
		second, err := repo.Create(ctx, "Water", nil)
		require.NoError(t, err)
		assert.Equal(t, drinks.Recipe{}, second.Recipe)

		all, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, created.ID, all[0].ID)
		assert.Equal(t, second.ID, all[1].ID)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, created.ID))
		_, ok, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.ErrorIs(t, repo.Delete(ctx, created.ID), drinks.ErrNotFound)
	})
}
