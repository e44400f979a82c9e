// Package bridge talks to an MT4 Expert Advisor over a synchronous
// request/reply channel. One Bridge owns one channel: requests and replies
// strictly alternate, so calls must not overlap. Callers that need
// concurrency run one Bridge per worker or serialize externally.
package bridge

import (
	"fmt"

	"github.com/google/uuid"

	"mt4bridge/internal/logger"
	"mt4bridge/internal/market"
	"mt4bridge/internal/transport/zmqreq"
)

// DefaultAddress is the EA's conventional local REP endpoint.
const DefaultAddress = "tcp://localhost:5555"

// Transport is the synchronous point-to-point channel under a Bridge.
// Send and Recv block without deadline; the zmqreq dialer is the production
// implementation, tests substitute scripted fakes.
type Transport interface {
	Send(msg string) error
	Recv() (string, error)
	Close() error
}

type Bridge struct {
	address string
	tr      Transport
}

// New wraps an already established transport. Used by Dial and by tests.
func New(address string, tr Transport) *Bridge {
	return &Bridge{address: address, tr: tr}
}

// Dial connects a ZeroMQ REQ socket to the EA. A connect failure is fatal
// and returned to the caller; nothing is retried. Empty address means
// DefaultAddress.
func Dial(address string) (*Bridge, error) {
	if address == "" {
		address = DefaultAddress
	}
	tr, err := zmqreq.Dial(address)
	if err != nil {
		logger.Errorf("connect to EA at %s failed: %v", address, err)
		return nil, fmt.Errorf("bridge: connect %s: %w", address, err)
	}
	logger.Infof("connected to EA at %s", address)
	return New(address, tr), nil
}

func (b *Bridge) Address() string { return b.address }

// Close releases the channel. The Bridge must not be used afterwards;
// subsequent calls fail at the transport layer.
func (b *Bridge) Close() error {
	logger.Infof("closing EA connection at %s", b.address)
	return b.tr.Close()
}

// GetHistoricalData fetches the last bars candles for symbol/timeframe.
// A nil slice with a classified error means no result; the session stays
// usable.
func (b *Bridge) GetHistoricalData(symbol, timeframe string, bars int) ([]market.Record, error) {
	return b.fetchSequence(HistRequest(symbol, timeframe, bars))
}

// GetCurrentTick fetches the live quote for symbol.
func (b *Bridge) GetCurrentTick(symbol string) (market.Record, error) {
	raw, err := b.exchange(CurrentRequest(symbol))
	if err != nil {
		return nil, err
	}
	rec, err := decodeObject(raw)
	if err != nil {
		logger.Errorf("decode CURRENT reply failed: %v", err)
		return nil, err
	}
	return rec, nil
}

// GetAllTimeframes fetches the latest bar of every timeframe the EA serves.
func (b *Bridge) GetAllTimeframes(symbol string) ([]market.Record, error) {
	return b.fetchSequence(TimeframesRequest(symbol))
}

// GetIndicator fetches bars values of a server-side indicator. params is the
// comma-joined indicator parameter list, may be empty, and is passed through
// verbatim.
func (b *Bridge) GetIndicator(symbol, timeframe, indicator, params string, bars int) ([]market.Record, error) {
	return b.fetchSequence(IndicatorRequest(symbol, timeframe, indicator, params, bars))
}

func (b *Bridge) fetchSequence(req Request) ([]market.Record, error) {
	raw, err := b.exchange(req)
	if err != nil {
		return nil, err
	}
	recs, err := decodeArray(raw)
	if err != nil {
		logger.Errorf("decode %s reply failed: %v", req.Kind, err)
		return nil, err
	}
	return recs, nil
}

// exchange runs one strict request/reply round trip. A send failure returns
// immediately without attempting a receive.
func (b *Bridge) exchange(req Request) (string, error) {
	wire := req.Encode()
	id := uuid.NewString()[:8]
	logger.Debugf("[%s] %s -> %s", id, b.address, wire)
	if err := b.tr.Send(wire); err != nil {
		logger.Errorf("[%s] send %q failed: %v", id, wire, err)
		return "", fmt.Errorf("%w: %v", ErrSend, err)
	}
	reply, err := b.tr.Recv()
	if err != nil {
		logger.Errorf("[%s] receive after %q failed: %v", id, wire, err)
		return "", fmt.Errorf("%w: %v", ErrReceive, err)
	}
	logger.Debugf("[%s] %s <- %s", id, b.address, snippet(reply))
	return reply, nil
}
