package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONBMerge(t *testing.T) {
	base := JSONB{"a": 1, "b": "keep"}

	merged := base.Merge(JSONB{"b": "win", "c": true})
	assert.Equal(t, 1, merged["a"])
	assert.Equal(t, "win", merged["b"], "incoming keys win")
	assert.Equal(t, true, merged["c"])
	assert.Equal(t, "keep", base["b"], "merge never mutates the receiver")

	assert.Equal(t, base, base.Merge(nil))
	assert.Equal(t, JSONB{"x": 1}, JSONB(nil).Merge(JSONB{"x": 1}))
}

func TestJSONBScanRoundTrip(t *testing.T) {
	src := JSONB{"retries": float64(3), "tag": "eu"}
	value, err := src.Value()
	require.NoError(t, err)

	var dst JSONB
	require.NoError(t, dst.Scan(value))
	assert.Equal(t, src, dst)

	var nilDst JSONB
	require.NoError(t, nilDst.Scan(nil))
	assert.Nil(t, nilDst)

	assert.Error(t, dst.Scan(42))
}
