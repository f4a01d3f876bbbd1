package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/drinks/core/access/tokentest"
	"github.com/relabs-tech/drinks/core/backend"
	"github.com/relabs-tech/drinks/core/client"
	"github.com/relabs-tech/drinks/core/drinks"
)

var authority = tokentest.NewAuthority()

type memoryRepository struct {
	mu     sync.Mutex
	drinks map[int64]drinks.Drink
	nextID int64
}

func (m *memoryRepository) List(ctx context.Context) ([]drinks.Drink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := []drinks.Drink{}
	for _, d := range m.drinks {
		all = append(all, d)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}

func (m *memoryRepository) FindByID(ctx context.Context, id int64) (drinks.Drink, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drinks[id]
	return d, ok, nil
}

func (m *memoryRepository) Create(ctx context.Context, title string, recipe drinks.Recipe) (drinks.Drink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	d := drinks.Drink{ID: m.nextID, Title: title, Recipe: recipe}
	m.drinks[d.ID] = d
	return d, nil
}

func (m *memoryRepository) Update(ctx context.Context, id int64, changes drinks.Changes) (drinks.Drink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drinks[id]
	if !ok {
		return drinks.Drink{}, drinks.ErrNotFound
	}
	if changes.Title != nil {
		d.Title = *changes.Title
	}
	if changes.Recipe != nil {
		d.Recipe = *changes.Recipe
	}
	m.drinks[id] = d
	return d, nil
}

func (m *memoryRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drinks[id]; !ok {
		return drinks.ErrNotFound
	}
	delete(m.drinks, id)
	return nil
}

func newBackend() *backend.Backend {
	return backend.New(&backend.Builder{
		Router:     mux.NewRouter(),
		Repository: &memoryRepository{drinks: map[int64]drinks.Drink{}},
		Verifier:   authority.Verifier(),
	})
}

var mocha = drinks.Recipe{
	{Name: "milk", Color: "grey", Parts: 1},
	{Name: "chocolate", Color: "brown", Parts: 1},
	{Name: "coffee", Color: "black", Parts: 3},
}

func exerciseClient(t *testing.T, c client.Client) {
	barista := c.WithToken(authority.Token("get:drinks-detail", "post:drinks", "patch:drinks", "delete:drinks"))

	var created drinks.LongDrink
	status, err := barista.CreateDrink("Mocha", mocha, &created)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Mocha", created.Title)
	assert.Equal(t, mocha, created.Recipe)

	var short []drinks.ShortDrink
	_, err = c.Drinks(&short)
	require.NoError(t, err)
	require.Len(t, short, 1)
	assert.Equal(t, []drinks.ShortIngredient{{Color: "grey", Parts: 1}, {Color: "brown", Parts: 1}, {Color: "black", Parts: 3}}, short[0].Recipe)

	var long []drinks.LongDrink
	_, err = barista.DrinksDetail(&long)
	require.NoError(t, err)
	assert.Equal(t, []drinks.LongDrink{created}, long)

	title := "Dark Mocha"
	var updated drinks.LongDrink
	_, err = barista.UpdateDrink(created.ID, drinks.Changes{Title: &title}, &updated)
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Equal(t, mocha, updated.Recipe)

	_, err = barista.DeleteDrink(created.ID)
	require.NoError(t, err)

	status, err = barista.DeleteDrink(created.ID)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	var clientErr *client.Error
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, "resource not found", clientErr.Message)
}

func TestClient_Router(t *testing.T) {
	exerciseClient(t, client.NewWithRouter(newBackend().Router()))
}

func TestClient_URL(t *testing.T) {
	server := httptest.NewServer(newBackend())
	defer server.Close()
	exerciseClient(t, client.NewWithURL(server.URL+"/"))
}

func TestClient_Unauthorized(t *testing.T) {
	c := client.NewWithRouter(newBackend().Router())

	status, err := c.DrinksDetail(nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	var clientErr *client.Error
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, "authorization_header_missing", clientErr.Message)

	status, _ = c.WithToken(authority.Token("get:drinks-detail")).CreateDrink("Latte", nil, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestClient_Raw(t *testing.T) {
	c := client.NewWithRouter(newBackend().Router()).WithToken(authority.Token("post:drinks"))

	var raw []byte
	status, err := c.RawPost("/drinks", []byte(`{"title":"Water"}`), &raw)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"success":true,"drinks":[{"id":1,"title":"Water","recipe":[]}]}`, string(raw))

	status, err = c.RawPost("/drinks", []byte(`{"recipe":"[{\"name\":\"x\"}]"}`), nil)
	assert.Error(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestClient_Headers(t *testing.T) {
	var seen http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
		w.Write([]byte(`{"version":"1.2.3"}`))
	}))
	defer server.Close()

	base := client.NewWithURL(server.URL)
	c := base.WithHeader("X-Request-ID", "abc").WithToken("t0ken")
	version, status, err := c.Version()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "1.2.3", version)
	assert.Equal(t, "abc", seen.Get("X-Request-ID"))
	assert.Equal(t, "Bearer t0ken", seen.Get("Authorization"))

	// the base client is not affected
	_, _, err = base.Version()
	require.NoError(t, err)
	assert.Empty(t, seen.Get("X-Request-ID"))
	assert.Empty(t, seen.Get("Authorization"))
}

func TestClient_Context(t *testing.T) {
	c := client.NewWithRouter(newBackend().Router())
	assert.NotNil(t, c.Context())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := client.NewWithURL("http://localhost:1").WithContext(ctx).Version()
	assert.Error(t, err)
}
