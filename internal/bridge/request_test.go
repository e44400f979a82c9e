package bridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestEncode(t *testing.T) {
	assert.Equal(t, "HIST:EURUSD:H1:100", HistRequest("EURUSD", "H1", 100).Encode())
	assert.Equal(t, "CURRENT:XAUUSD.a", CurrentRequest("XAUUSD.a").Encode())
	assert.Equal(t, "TIMEFRAMES:EURUSD.a", TimeframesRequest("EURUSD.a").Encode())
	assert.Equal(t, "INDICATOR:EURUSD.a:H1:MA:14,0,1,0:10",
		IndicatorRequest("EURUSD.a", "H1", "MA", "14,0,1,0", 10).Encode())
}

func TestRequestEncodeEmptyParams(t *testing.T) {
	// VWAP takes no parameters; the params slot stays empty on the wire.
	assert.Equal(t, "INDICATOR:EURUSD:H1:VWAP::10",
		IndicatorRequest("EURUSD", "H1", "VWAP", "", 10).Encode())
}
