package bridge

import "fmt"

// Kind selects one of the four EA operations.
type Kind string

const (
	KindHist       Kind = "HIST"
	KindCurrent    Kind = "CURRENT"
	KindTimeframes Kind = "TIMEFRAMES"
	KindIndicator  Kind = "INDICATOR"
)

// Request is one outbound call before serialization. Field values must not
// contain ':' because the wire grammar has no escaping. Legality of symbols,
// timeframes and indicator names is entirely the EA's concern.
type Request struct {
	Kind      Kind
	Symbol    string
	Timeframe string
	Indicator string
	Params    string
	Bars      int
}

func HistRequest(symbol, timeframe string, bars int) Request {
	return Request{Kind: KindHist, Symbol: symbol, Timeframe: timeframe, Bars: bars}
}

func CurrentRequest(symbol string) Request {
	return Request{Kind: KindCurrent, Symbol: symbol}
}

func TimeframesRequest(symbol string) Request {
	return Request{Kind: KindTimeframes, Symbol: symbol}
}

func IndicatorRequest(symbol, timeframe, indicator, params string, bars int) Request {
	return Request{
		Kind:      KindIndicator,
		Symbol:    symbol,
		Timeframe: timeframe,
		Indicator: indicator,
		Params:    params,
		Bars:      bars,
	}
}

// Encode renders the colon-delimited command string sent verbatim to the EA.
func (r Request) Encode() string {
	switch r.Kind {
	case KindCurrent:
		return fmt.Sprintf("CURRENT:%s", r.Symbol)
	case KindTimeframes:
		return fmt.Sprintf("TIMEFRAMES:%s", r.Symbol)
	case KindIndicator:
		return fmt.Sprintf("INDICATOR:%s:%s:%s:%s:%d", r.Symbol, r.Timeframe, r.Indicator, r.Params, r.Bars)
	default:
		return fmt.Sprintf("HIST:%s:%s:%d", r.Symbol, r.Timeframe, r.Bars)
	}
}
