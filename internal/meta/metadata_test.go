package meta

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneIsIndependent(t *testing.T) {
	orig := New(map[string]string{"a": "1"})
	cp := orig.Clone()
	cp["a"] = "2"
	assert.Equal(t, "1", orig["a"])

	var nilMeta Metadata
	assert.NotNil(t, nilMeta.Clone())
}

func TestValidateBounds(t *testing.T) {
	require.NoError(t, Metadata{"k": "v"}.Validate())
	require.NoError(t, Metadata(nil).Validate())

	big := Metadata{}
	for i := 0; i < MaxPairs+1; i++ {
		big[strings.Repeat("k", i+1)] = "v"
	}
	assert.Error(t, big.Validate())

	assert.Error(t, Metadata{"": "v"}.Validate())
	assert.Error(t, Metadata{strings.Repeat("k", MaxKeyLen+1): "v"}.Validate())
	assert.Error(t, Metadata{"k": strings.Repeat("v", MaxValLen+1)}.Validate())
}

func TestStableJSONRoundtrip(t *testing.T) {
	m := Metadata{"b": "2", "a": "1", "c": "3"}
	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"1","b":"2","c":"3"}`, string(b))

	var got Metadata
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, m, got)

	var fromNull Metadata
	require.NoError(t, json.Unmarshal([]byte("null"), &fromNull))
	assert.NotNil(t, fromNull)
	assert.Empty(t, fromNull)

	empty, err := json.Marshal(Metadata{})
	require.NoError(t, err)
	assert.Equal(t, "{}", string(empty))
}
