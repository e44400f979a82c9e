package bridge

import (
	"errors"
	"fmt"

	"mt4bridge/internal/market"
	"mt4bridge/internal/pkg/jsonutil"
)

// decodeObject classifies a raw reply that must carry a single record.
func decodeObject(raw string) (market.Record, error) {
	if raw == "" {
		return nil, ErrEmptyReply
	}
	obj, err := jsonutil.DecodeObject(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedReply, snippet(raw))
	}
	rec := market.Record(obj)
	if remote := remoteError(rec); remote != nil {
		return nil, remote
	}
	return rec, nil
}

// decodeArray classifies a raw reply that must carry a record sequence. An
// object reply is only acceptable here when it is the EA's error envelope;
// any other shape mismatch counts as malformed.
func decodeArray(raw string) ([]market.Record, error) {
	if raw == "" {
		return nil, ErrEmptyReply
	}
	rows, err := jsonutil.DecodeObjectArray(raw)
	if err != nil {
		// valid JSON in the wrong shape may still be the error envelope
		if errors.Is(err, jsonutil.ErrNotArray) {
			if obj, objErr := jsonutil.DecodeObject(raw); objErr == nil {
				if remote := remoteError(market.Record(obj)); remote != nil {
					return nil, remote
				}
				return nil, fmt.Errorf("%w: object where sequence expected", ErrMalformedReply)
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrMalformedReply, snippet(raw))
	}
	out := make([]market.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, market.Record(row))
	}
	return out, nil
}

func remoteError(rec market.Record) error {
	v, ok := rec["error"]
	if !ok {
		return nil
	}
	msg, ok := v.(string)
	if !ok {
		msg = fmt.Sprintf("%v", v)
	}
	return &RemoteError{Message: msg}
}

func snippet(raw string) string {
	const max = 120
	if len(raw) <= max {
		return raw
	}
	return raw[:max] + "..."
}
