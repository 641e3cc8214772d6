package payload

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeObject(t *testing.T, body string) map[string]interface{} {
	t.Helper()
	v, err := Decode([]byte(body))
	require.NoError(t, err)
	obj, ok := Object(v)
	require.True(t, ok)
	return obj
}

func TestLookupNested(t *testing.T) {
	obj := decodeObject(t, `{"scooter":{"id":"S-1"},"empty":null}`)

	v, ok := Lookup(obj, "scooter.id")
	require.True(t, ok)
	assert.Equal(t, "S-1", v)

	_, ok = Lookup(obj, "empty")
	assert.False(t, ok)
	_, ok = Lookup(obj, "scooter.id.deeper")
	assert.False(t, ok)
}

func TestFirstHonoursOrder(t *testing.T) {
	obj := decodeObject(t, `{"tripId":"t-1","_id":"mongo-1"}`)

	v, path, ok := First(obj, "id", "tripId", "_id")
	require.True(t, ok)
	assert.Equal(t, "t-1", v)
	assert.Equal(t, "tripId", path)
}

func TestStringCoercion(t *testing.T) {
	s, ok := String(json.Number("9007199254740993"))
	assert.True(t, ok)
	assert.Equal(t, "9007199254740993", s)

	_, ok = String("   ")
	assert.False(t, ok)

	s, ok = String(42.0)
	assert.True(t, ok)
	assert.Equal(t, "42", s)

	_, ok = String(true)
	assert.False(t, ok)
}

func TestFloatCoercion(t *testing.T) {
	f, ok := Float(json.Number("12.5"))
	assert.True(t, ok)
	assert.Equal(t, 12.5, f)

	f, ok = Float(" 7 ")
	assert.True(t, ok)
	assert.Equal(t, 7.0, f)

	_, ok = Float("45,50 kr")
	assert.False(t, ok)

	_, ok = Float("NaN")
	assert.False(t, ok)

	n, ok := Int(json.Number("64.6"))
	assert.True(t, ok)
	assert.Equal(t, 65, n)
}
