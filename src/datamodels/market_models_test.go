package datamodels

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortfolioStateValue(t *testing.T) {
	flat := PortfolioState{Cash: 10000}
	assert.Equal(t, 10000.0, flat.Value(123.4))
	assert.True(t, flat.IsFlat())

	holding := PortfolioState{Units: 50}
	assert.InDelta(t, 5500.0, holding.Value(110), 1e-9)
	assert.False(t, holding.IsFlat())
}

func TestTickIsValidPrice(t *testing.T) {
	assert.True(t, Tick{Price: 0.01}.IsValidPrice())
	assert.False(t, Tick{Price: 0}.IsValidPrice())
	assert.False(t, Tick{Price: -1}.IsValidPrice())
	assert.False(t, Tick{Price: math.NaN()}.IsValidPrice())
	assert.False(t, Tick{Price: math.Inf(1)}.IsValidPrice())
}

func TestStepRecordJSONUsesSignalNames(t *testing.T) {
	record := StepRecord{Index: 3, Price: 101.5, Signal: SignalSell, PortfolioValue: 9000}
	b, err := json.Marshal(record)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"signal":"sell"`)

	var decoded StepRecord
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, SignalSell, decoded.Signal)

	var bad SignalType
	assert.Error(t, bad.UnmarshalText([]byte("short")))
}

func TestOrderSideFromSignal(t *testing.T) {
	side, ok := OrderSideFromSignal(SignalBuy)
	assert.True(t, ok)
	assert.Equal(t, OrderSideBuy, side)

	side, ok = OrderSideFromSignal(SignalSell)
	assert.True(t, ok)
	assert.Equal(t, OrderSideSell, side)

	_, ok = OrderSideFromSignal(SignalHold)
	assert.False(t, ok)
}
