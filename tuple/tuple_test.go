package tuple

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToStrings(t *testing.T) {
	tup := Tuple{Uint32(1), VarChar("hello"), Null{}}
	require.Equal(t, []string{"1", "hello", "NULL"}, tup.Strings())
}

func TestFromStrings(t *testing.T) {
	tup := FromStrings([]string{"1", "hello", "NULL"})

	require.Len(t, tup, 3)
	assert.Equal(t, VarChar("1"), tup[0])
	assert.Equal(t, VarChar("hello"), tup[1])
	assert.Equal(t, VarChar("NULL"), tup[2])
}

func TestFromStringsWithSchema(t *testing.T) {
	schema := Schema{TagInt32, TagVarChar, TagFloat64}
	tup, err := FromStringsWithSchema([]string{"1", "hello", "1.123"}, schema)
	require.NoError(t, err)

	require.Len(t, tup, 3)
	assert.Equal(t, Int32(1), tup[0])
	assert.Equal(t, VarChar("hello"), tup[1])
	assert.Equal(t, Float64(1.123), tup[2])
	require.NoError(t, schema.Check(tup))
}

func TestFromStringsWithSchemaAllTypes(t *testing.T) {
	schema := Schema{TagUint32, TagInt32, TagFloat32, TagFloat64, TagVarChar}
	tup, err := FromStringsWithSchema([]string{"4294967295", "-7", "0.5", "NULL", "x"}, schema)
	require.NoError(t, err)
	require.Equal(t, Tuple{Uint32(4294967295), Int32(-7), Float32(0.5), Null{}, VarChar("x")}, tup)
	require.Equal(t, []string{"4294967295", "-7", "0.5", "NULL", "x"}, tup.Strings())
}

func TestFromStringsWithSchemaErrors(t *testing.T) {
	_, err := FromStringsWithSchema([]string{"abc"}, Schema{TagInt32})
	require.ErrorIs(t, err, ErrConvert)

	_, err = FromStringsWithSchema([]string{"-1"}, Schema{TagUint32})
	require.ErrorIs(t, err, ErrConvert)

	_, err = FromStringsWithSchema([]string{"99999999999"}, Schema{TagInt32})
	require.ErrorIs(t, err, ErrConvert)

	_, err = FromStringsWithSchema([]string{"1", "2"}, Schema{TagInt32})
	require.ErrorIs(t, err, ErrArity)
}

func TestVarCharIsNFCNormalized(t *testing.T) {
	decomposed := "e\u0301" // e + combining acute
	composed := VarChar("\u00e9")

	tup, err := FromStringsWithSchema([]string{decomposed}, Schema{TagVarChar})
	require.NoError(t, err)
	require.Equal(t, composed, tup[0])
	require.Equal(t, composed, FromStrings([]string{decomposed})[0])
}

func TestParseSchema(t *testing.T) {
	schema, err := ParseSchema([]string{"int", "varchar", "UINT", "float", "double"})
	require.NoError(t, err)
	require.Equal(t, Schema{TagInt32, TagVarChar, TagUint32, TagFloat32, TagFloat64}, schema)
	require.Equal(t, "(int, varchar, uint, float, double)", schema.String())

	_, err = ParseSchema(nil)
	require.ErrorIs(t, err, ErrSchema)

	_, err = ParseSchema([]string{"int", "blob"})
	require.ErrorIs(t, err, ErrSchema)
}

func TestSchemaCheck(t *testing.T) {
	schema := Schema{TagUint32, TagVarChar}
	require.NoError(t, schema.Check(Tuple{Uint32(1), Null{}}))
	require.ErrorIs(t, schema.Check(Tuple{Int32(1), VarChar("x")}), ErrType)
	require.ErrorIs(t, schema.Check(Tuple{Uint32(1)}), ErrArity)
}
