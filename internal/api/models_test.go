package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeParsesNaiveAndZoned(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{`"2023-09-15T10:30:00Z"`, time.Date(2023, 9, 15, 10, 30, 0, 0, time.UTC)},
		{`"2023-09-15T10:30:00.5"`, time.Date(2023, 9, 15, 10, 30, 0, 500_000_000, time.UTC)},
		{`"2023-09-15 10:30:00"`, time.Date(2023, 9, 15, 10, 30, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		var got Time
		require.NoError(t, json.Unmarshal([]byte(tt.in), &got), tt.in)
		assert.True(t, got.Equal(tt.want), "%s: got %v", tt.in, got)
	}

	var zero Time
	require.NoError(t, json.Unmarshal([]byte(`null`), &zero))
	assert.True(t, zero.IsZero())

	var bad Time
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &bad))
}

func TestIDAliasAccepted(t *testing.T) {
	var d Diagram
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"abc","title":"x"}`), &d))
	assert.Equal(t, "abc", d.ID)

	var d2 Diagram
	require.NoError(t, json.Unmarshal([]byte(`{"id":"def","_id":"abc"}`), &d2))
	assert.Equal(t, "def", d2.ID, "explicit id wins")

	var u User
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"u1","email":"a@b.c"}`), &u))
	assert.Equal(t, "u1", u.ID)
}

func TestNodeAndEdgeAccessors(t *testing.T) {
	n := Node{ID: "n1", Data: map[string]any{DataLabel: "Web"}}
	assert.Equal(t, "Web", n.Label())
	assert.Equal(t, "n2", Node{ID: "n2"}.Label())

	e := Edge{Data: map[string]any{DataProtocol: "https", DataEncrypted: true}}
	assert.Equal(t, "https", e.Protocol())
	assert.True(t, e.Encrypted())
	assert.False(t, Edge{}.Encrypted())
}

func TestNodeTypeValid(t *testing.T) {
	assert.True(t, NodeLoadBalancer.Valid())
	assert.False(t, NodeType("mainframe").Valid())
	assert.Len(t, NodeTypes, 12)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", User{Profile: UserProfile{FirstName: "Ada", LastName: "Lovelace"}}.DisplayName())
	assert.Equal(t, "a@b.c", User{Email: "a@b.c"}.DisplayName())
}

func TestParseDetail(t *testing.T) {
	assert.Equal(t, "Diagram not found", parseDetail([]byte(`{"detail":"Diagram not found"}`)))
	assert.Equal(t, "time_spent: field required",
		parseDetail([]byte(`{"detail":[{"loc":["query","time_spent"],"msg":"field required"}]}`)))
	assert.Equal(t, "Internal Server Error", parseDetail([]byte("Internal Server Error\n")))
}
