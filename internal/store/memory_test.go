package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLoadMissingTable(t *testing.T) {
	m := NewMemory()
	var out []string
	found, err := m.Load(context.Background(), TableQueue, &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemorySaveIsJSONArray(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Save(context.Background(), TableRules, []string{"a", "b"}))
	assert.JSONEq(t, `["a","b"]`, string(m.Raw(TableRules)))
	assert.Equal(t, 1, m.Saves(TableRules))

	var out []string
	found, err := m.Load(context.Background(), TableRules, &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"a", "b"}, out)
}

func TestMemorySaveErr(t *testing.T) {
	m := NewMemory()
	m.SaveErr = errors.New("disk full")
	assert.Error(t, m.Save(context.Background(), TableHistory, []int{1}))
	assert.Equal(t, 0, m.Saves(TableHistory))
}
