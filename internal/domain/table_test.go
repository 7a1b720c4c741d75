package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTable_AppendExtendsHeader(t *testing.T) {
	tbl := NewTable("t", "b")
	tbl.Append(Record{"b": 1.0, "z": 2.0, "a": 3.0})

	assert.Equal(t, []string{"b", "a", "z"}, tbl.Columns)
	assert.Equal(t, 1, tbl.Len())
}

func TestTable_ValueAndSet(t *testing.T) {
	tbl := NewTable("t", "a")
	tbl.Append(Record{"a": "x"})

	assert.Equal(t, "x", tbl.Value(0, "a"))
	assert.Nil(t, tbl.Value(0, "missing"))
	assert.Nil(t, tbl.Value(5, "a"))
	assert.Nil(t, tbl.Value(0, ""))

	tbl.Set(0, "b", 4.0)
	assert.True(t, tbl.HasColumn("b"))
	assert.Equal(t, []any{4.0}, tbl.Column("b"))
}

func TestTable_CloneIsIndependent(t *testing.T) {
	tbl := NewTable("t", "a")
	tbl.Append(Record{"a": 1.0})

	c := tbl.Clone()
	c.Set(0, "a", 2.0)
	c.Set(0, "b", 3.0)

	assert.Equal(t, 1.0, tbl.Value(0, "a"))
	assert.False(t, tbl.HasColumn("b"))
}

func TestIsNull(t *testing.T) {
	assert.True(t, IsNull(nil))
	assert.True(t, IsNull(math.NaN()))
	assert.True(t, IsNull("  "))
	assert.False(t, IsNull(0.0))
	assert.False(t, IsNull("0"))
	assert.False(t, IsNull(false))
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "", FormatValue(math.NaN()))
	assert.Equal(t, "12.5", FormatValue(12.5))
	assert.Equal(t, "40", FormatValue(40.0))
	assert.Equal(t, "abc", FormatValue("abc"))
	assert.Equal(t, "7", FormatValue(7))
}
