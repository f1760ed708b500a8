package inspect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usersJSON = `{"users":[{"name":"John","tags":["a","b"]},{"name":"Jane","email":null}],"count":2,"meta":{"next-page":"p2"}}`

func TestExtract(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"$.count", "2", false},
		{"$.users[0].name", "John", false},
		{"$.users[0].tags[1]", "b", false},
		{"$.users[1].email", "null", false},
		{"$['meta']['next-page']", "p2", false},
		{"users.1.name", "Jane", false},
		{"$.missing", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := Extract([]byte(usersJSON), tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := Extract(nil, "$.a")
	assert.Error(t, err)
	_, err = Extract([]byte("not json"), "$.a")
	assert.Error(t, err)
}

func TestExtractAll(t *testing.T) {
	got, err := ExtractAll([]byte(usersJSON), map[string]string{
		"first": "$.users[0].name",
		"gone":  "$.nope",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gone")
	assert.Equal(t, map[string]string{"first": "John"}, got)
}

func TestValidateSchema(t *testing.T) {
	schema := []byte(`{
		"type": "object",
		"required": ["count"],
		"properties": {"count": {"type": "integer", "minimum": 1}}
	}`)

	assert.NoError(t, ValidateSchema([]byte(usersJSON), schema))

	err := ValidateSchema([]byte(`{"count":0}`), schema)
	var violations SchemaErrors
	require.ErrorAs(t, err, &violations)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "/count")

	err = ValidateSchema([]byte(`{}`), schema)
	assert.ErrorAs(t, err, &violations)

	err = ValidateSchema([]byte(`{`), schema)
	assert.ErrorContains(t, err, "invalid JSON")

	err = ValidateSchema([]byte(`{}`), []byte(`{"type": 12}`))
	assert.ErrorContains(t, err, "invalid schema")
}
