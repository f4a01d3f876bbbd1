package backend_test

import (
	"net/http"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/drinks/core/backend"
)

// TestVersion verifies that the /version endpoint works
func TestVersion(t *testing.T) {
	s := newTestService()
	var version struct {
		Version string `json:"version"`
	}
	w := s.do(t, request{method: http.MethodGet, path: "/version"})
	requireStatus(t, w, http.StatusOK)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &version))
	assert.Equal(t, "unset", version.Version, "Expecting 'unset' version by default")

	backend.Version = "another version"
	defer func() { backend.Version = "unset" }()

	w = s.do(t, request{method: http.MethodGet, path: "/version"})
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &version))
	assert.Equal(t, "another version", version.Version)
}
