package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimeLayout is the timestamp format the EA writes into reply records.
const TimeLayout = "2006.01.02 15:04"

type Candle struct {
	Timeframe string          `json:"tf,omitempty"`
	Time      string          `json:"time"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

type Tick struct {
	Symbol string          `json:"symbol"`
	Bid    decimal.Decimal `json:"bid"`
	Ask    decimal.Decimal `json:"ask"`
	Last   decimal.Decimal `json:"last"`
	Volume decimal.Decimal `json:"volume"`
	Time   string          `json:"time"`
}

// CandleFromRecord maps a HIST/TIMEFRAMES reply row into a Candle. Missing
// numeric fields stay zero; nothing is rejected here, the wire record is
// authoritative.
func CandleFromRecord(rec Record) Candle {
	c := Candle{
		Timeframe: rec.String("tf"),
		Time:      rec.String("time"),
	}
	c.Open, _ = rec.Decimal("open")
	c.High, _ = rec.Decimal("high")
	c.Low, _ = rec.Decimal("low")
	c.Close, _ = rec.Decimal("close")
	c.Volume, _ = rec.Decimal("volume")
	return c
}

// TickFromRecord maps a CURRENT reply row into a Tick.
func TickFromRecord(rec Record) Tick {
	t := Tick{
		Symbol: rec.String("symbol"),
		Time:   rec.String("time"),
	}
	t.Bid, _ = rec.Decimal("bid")
	t.Ask, _ = rec.Decimal("ask")
	t.Last, _ = rec.Decimal("last")
	t.Volume, _ = rec.Decimal("volume")
	return t
}

// IndicatorPoint is one row of an INDICATOR reply.
type IndicatorPoint struct {
	Time  string          `json:"time"`
	Value decimal.Decimal `json:"value"`
}

// IndicatorPointFromRecord maps an INDICATOR reply row.
func IndicatorPointFromRecord(rec Record) IndicatorPoint {
	p := IndicatorPoint{Time: rec.String("time")}
	p.Value, _ = rec.Decimal("value")
	return p
}

// IndicatorPointsFromRecords converts a decoded indicator sequence in wire order.
func IndicatorPointsFromRecords(recs []Record) []IndicatorPoint {
	if len(recs) == 0 {
		return nil
	}
	out := make([]IndicatorPoint, 0, len(recs))
	for _, rec := range recs {
		out = append(out, IndicatorPointFromRecord(rec))
	}
	return out
}

// CandlesFromRecords converts a decoded bar sequence in wire order.
func CandlesFromRecords(recs []Record) []Candle {
	if len(recs) == 0 {
		return nil
	}
	out := make([]Candle, 0, len(recs))
	for _, rec := range recs {
		out = append(out, CandleFromRecord(rec))
	}
	return out
}

// ParseTime parses an EA timestamp. Returns the zero time on failure.
func ParseTime(s string) time.Time {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// OpenTime returns the candle timestamp as unix seconds, 0 when unparsable.
func (c Candle) OpenTime() int64 {
	t := ParseTime(c.Time)
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
