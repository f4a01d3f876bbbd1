package core

import (
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperations_JSON_Unmarshalling(t *testing.T) {

	type Object struct {
		Operations []Operation `json:"operations"`
	}
	var object Object
	jsonRead := `{"operations":["create","update","delete"]}`
	err := json.Unmarshal([]byte(jsonRead), &object)
	require.NoError(t, err)
	assert.Equal(t, []Operation{OperationCreate, OperationUpdate, OperationDelete}, object.Operations)

	jsonRead = `{"operations":["list"]}`
	err = json.Unmarshal([]byte(jsonRead), &object)
	assert.Error(t, err, "invalid operation accepted")
}

func TestNotifierFunc(t *testing.T) {
	var got []Operation
	var n Notifier = NotifierFunc(func(ctx context.Context, resource string, operation Operation, payload []byte) {
		assert.Equal(t, "drink", resource)
		got = append(got, operation)
	})
	n.Notify(context.Background(), "drink", OperationCreate, []byte(`{}`))
	n.Notify(context.Background(), "drink", OperationDelete, []byte(`{}`))
	assert.Equal(t, []Operation{OperationCreate, OperationDelete}, got)
}
