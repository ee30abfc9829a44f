package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableAccessors(t *testing.T) {
	table := NewTable(
		[]string{"length", "weight", "length", "species"},
		[][]string{
			{"10.5", "3", "99", "Anabas"},
			{"", " ", ""},
			{"12", "abc"},
		},
	)

	assert.Equal(t, 2, table.Len())
	assert.True(t, table.Has("weight"))
	assert.False(t, table.Has("ratio"))

	v, err := table.Float(0, "length")
	require.NoError(t, err)
	assert.Equal(t, 10.5, v)

	_, err = table.Float(1, "weight")
	assert.Error(t, err)

	cell, ok := table.Value(1, "species")
	assert.True(t, ok)
	assert.Equal(t, "", cell)

	_, ok = table.Value(2, "length")
	assert.False(t, ok)
	_, err = table.Float(0, "ratio")
	var cellErr *CellError
	assert.ErrorAs(t, err, &cellErr)

	head := table.Head(10)
	require.Len(t, head, 2)
	assert.Equal(t, []string{"12", "abc", "", ""}, head[1])
	assert.Len(t, table.Head(1), 1)
}

func TestNilAndEmptyTable(t *testing.T) {
	var table *Table
	assert.Equal(t, 0, table.Len())
	assert.Nil(t, table.Columns())
	assert.False(t, table.Has("x"))
	_, ok := table.Value(0, "x")
	assert.False(t, ok)
	assert.Nil(t, table.Head(3))

	empty := Empty()
	assert.Equal(t, 0, empty.Len())
	assert.Empty(t, empty.Columns())
}
