package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyJSON(t *testing.T) {
	var payload struct {
		Price Money `json:"price"`
		Fee   Money `json:"fee"`
		Empty Money `json:"empty"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"price":"12.345","fee":3.1,"empty":null}`), &payload))
	assert.Equal(t, "12.35", payload.Price.String())
	assert.Equal(t, "3.10", payload.Fee.String())
	assert.Equal(t, "0.00", payload.Empty.String())

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":"12.35","fee":"3.10","empty":"0.00"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"price":"abc"}`), &payload))
}

func TestMoneyScan(t *testing.T) {
	var m Money
	require.NoError(t, m.Scan("99.999"))
	assert.Equal(t, "100.00", m.String())
	require.NoError(t, m.Scan(int64(7)))
	assert.Equal(t, "7.00", m.String())

	v, err := MustMoney("1.5").Value()
	require.NoError(t, err)
	assert.Equal(t, "1.50", v)
}
