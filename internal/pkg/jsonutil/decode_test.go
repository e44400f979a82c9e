package jsonutil

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeObjectKeepsDecimals(t *testing.T) {
	obj, err := DecodeObject(`{"bid":1.23456,"volume":123,"note":"x","live":true,"gap":null}`)
	require.NoError(t, err)

	bid, ok := obj["bid"].(decimal.Decimal)
	require.True(t, ok)
	assert.Equal(t, "1.23456", bid.String())

	vol, ok := obj["volume"].(decimal.Decimal)
	require.True(t, ok)
	assert.True(t, vol.Equal(decimal.NewFromInt(123)))

	assert.Equal(t, "x", obj["note"])
	assert.Equal(t, true, obj["live"])
	assert.Nil(t, obj["gap"])
}

func TestDecodeNested(t *testing.T) {
	v, err := DecodeValue(`{"levels":[{"price":0.000001234},{"price":99999.00001}]}`)
	require.NoError(t, err)
	obj := v.(map[string]any)
	levels := obj["levels"].([]any)
	require.Len(t, levels, 2)
	price := levels[0].(map[string]any)["price"].(decimal.Decimal)
	assert.Equal(t, "0.000001234", price.String())
}

func TestDecodeObjectArray(t *testing.T) {
	recs, err := DecodeObjectArray(`[{"shift":0},{"shift":1}]`)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	_, err = DecodeObjectArray(`[1,2,3]`)
	assert.ErrorIs(t, err, ErrNotArray)

	_, err = DecodeObjectArray(`{"shift":0}`)
	assert.ErrorIs(t, err, ErrNotArray)
}

func TestDecodeInvalid(t *testing.T) {
	_, err := DecodeValue("INVALID_JSON")
	assert.ErrorIs(t, err, ErrInvalidJSON)
	_, err = DecodeValue("   ")
	assert.ErrorIs(t, err, ErrInvalidJSON)
	_, err = DecodeObject(`[1]`)
	assert.ErrorIs(t, err, ErrNotObject)
}

func TestDecodeExponentLiteral(t *testing.T) {
	obj, err := DecodeObject(`{"v":1.5e3}`)
	require.NoError(t, err)
	v := obj["v"].(decimal.Decimal)
	assert.True(t, v.Equal(decimal.NewFromInt(1500)))
}
