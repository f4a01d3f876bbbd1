package backend_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/drinks/core"
	"github.com/relabs-tech/drinks/core/access"
	"github.com/relabs-tech/drinks/core/access/tokentest"
	"github.com/relabs-tech/drinks/core/backend"
	"github.com/relabs-tech/drinks/core/drinks"
	"github.com/relabs-tech/drinks/core/logger"
)

var authority = tokentest.NewAuthority()

var errStoreDown = errors.New("store is down")

// memoryRepository is an in-memory drinks.Repository
type memoryRepository struct {
	mu     sync.Mutex
	drinks map[int64]drinks.Drink
	nextID int64
	writes int
	// err is returned by all operations if set
	err error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{drinks: map[int64]drinks.Drink{}}
}

func (m *memoryRepository) List(ctx context.Context) ([]drinks.Drink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
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
	if m.err != nil {
		return drinks.Drink{}, false, m.err
	}
	d, ok := m.drinks[id]
	return d, ok, nil
}

func (m *memoryRepository) Create(ctx context.Context, title string, recipe drinks.Recipe) (drinks.Drink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return drinks.Drink{}, m.err
	}
	// stored as text, like the real thing
	stored, err := drinks.ParseRecipeText(recipe.Serialize())
	if err != nil {
		return drinks.Drink{}, err
	}
	m.nextID++
	m.writes++
	d := drinks.Drink{ID: m.nextID, Title: title, Recipe: stored}
	m.drinks[d.ID] = d
	return d, nil
}

func (m *memoryRepository) Update(ctx context.Context, id int64, changes drinks.Changes) (drinks.Drink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return drinks.Drink{}, m.err
	}
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
	m.writes++
	m.drinks[id] = d
	return d, nil
}

func (m *memoryRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.drinks[id]; !ok {
		return drinks.ErrNotFound
	}
	m.writes++
	delete(m.drinks, id)
	return nil
}

type notification struct {
	Resource  string
	Operation core.Operation
	Payload   string
	RequestID string
}

type recordingNotifier struct {
	mu            sync.Mutex
	notifications []notification
}

func (n *recordingNotifier) Notify(ctx context.Context, resource string, operation core.Operation, payload []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, notification{
		Resource:  resource,
		Operation: operation,
		Payload:   string(payload),
		RequestID: logger.RequestIDFromContext(ctx),
	})
}

func (n *recordingNotifier) all() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification{}, n.notifications...)
}

type testService struct {
	backend    *backend.Backend
	repository *memoryRepository
	notifier   *recordingNotifier
}

func newTestService() *testService {
	router := mux.NewRouter()
	logger.AddRequestID(router)
	s := &testService{
		repository: newMemoryRepository(),
		notifier:   &recordingNotifier{},
	}
	s.backend = backend.New(&backend.Builder{
		Router:     router,
		Repository: s.repository,
		Verifier:   authority.Verifier(),
		Notifier:   s.notifier,
	})
	return s
}

type request struct {
	method      string
	path        string
	bearer      string
	contentType string
	body        string
	headers     map[string]string
}

func (s *testService) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if req.body != "" {
		body = strings.NewReader(req.body)
	}
	r := httptest.NewRequest(req.method, req.path, body)
	if req.bearer != "" {
		r.Header.Set("Authorization", req.bearer)
	}
	if req.contentType != "" {
		r.Header.Set("Content-Type", req.contentType)
	}
	for k, v := range req.headers {
		r.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.backend.ServeHTTP(w, r)
	return w
}

// generic response, covers all response shapes
type response struct {
	Success bool              `json:"success"`
	Drinks  []json.RawMessage `json:"drinks"`
	Delete  int64             `json:"delete"`
	Error   interface{}       `json:"error"`
	Message string            `json:"message"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response {
	t.Helper()
	require.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	var r response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r), w.Body.String())
	return r
}

func longDrinks(t *testing.T, r response) []drinks.LongDrink {
	t.Helper()
	var result []drinks.LongDrink
	for _, raw := range r.Drinks {
		var d drinks.LongDrink
		require.NoError(t, json.Unmarshal(raw, &d))
		result = append(result, d)
	}
	return result
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, "body: %s", w.Body.String())
}

func withoutPermissions() *access.Claims {
	claims := tokentest.Claims()
	claims.Permissions = nil
	return claims
}

const mochaJSON = `{"title":"Mocha","recipe":[{"name":"coffee","color":"brown","parts":1}]}`

func (s *testService) createMocha(t *testing.T) drinks.LongDrink {
	t.Helper()
	w := s.do(t, request{
		method:      http.MethodPost,
		path:        "/drinks",
		bearer:      authority.Bearer(backend.PermissionPostDrinks),
		contentType: "application/json",
		body:        mochaJSON,
	})
	requireStatus(t, w, http.StatusOK)
	created := longDrinks(t, decode(t, w))
	require.Len(t, created, 1)
	return created[0]
}
