package model

import (
	"encoding/json"
	"fmt"
)

// Signals and events are interface-typed, so each record carries its kind
// (signals) or type (events) tag on the wire. Stored envelopes decode back
// into the concrete structs through the tag.

func (t Transaction) MarshalJSON() ([]byte, error) {
	type plain Transaction
	aux := struct {
		plain
		Signals []json.RawMessage `json:"signals,omitempty"`
		Events  []json.RawMessage `json:"events,omitempty"`
	}{plain: plain(t)}

	for _, sig := range t.Signals {
		raw, err := marshalSignal(sig)
		if err != nil {
			return nil, err
		}
		aux.Signals = append(aux.Signals, raw)
	}
	for _, event := range t.Events {
		raw, err := marshalEvent(event)
		if err != nil {
			return nil, err
		}
		aux.Events = append(aux.Events, raw)
	}
	return json.Marshal(aux)
}

func (t *Transaction) UnmarshalJSON(data []byte) error {
	type plain Transaction
	aux := struct {
		*plain
		Signals []json.RawMessage `json:"signals,omitempty"`
		Events  []json.RawMessage `json:"events,omitempty"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	t.Signals = nil
	for _, raw := range aux.Signals {
		sig, err := unmarshalSignal(raw)
		if err != nil {
			return err
		}
		t.Signals = append(t.Signals, sig)
	}
	t.Events = nil
	for _, raw := range aux.Events {
		event, err := unmarshalEvent(raw)
		if err != nil {
			return err
		}
		t.Events = append(t.Events, event)
	}
	return nil
}

func marshalSignal(sig Signal) (json.RawMessage, error) {
	raw, err := json.Marshal(sig)
	if err != nil {
		return nil, err
	}
	return tagRecord(raw, "kind", string(sig.Kind()))
}

func unmarshalSignal(raw json.RawMessage) (Signal, error) {
	var tag struct {
		Kind SignalKind `json:"kind"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, err
	}

	var sig Signal
	switch tag.Kind {
	case KindTransfer:
		sig = &TransferSignal{}
	case KindSwap:
		sig = &SwapSignal{}
	case KindLiquidity:
		sig = &LiquiditySignal{}
	case KindRoute:
		sig = &RouteSignal{}
	case KindReward:
		sig = &RewardSignal{}
	default:
		return nil, fmt.Errorf("unknown signal kind %q", tag.Kind)
	}
	if err := json.Unmarshal(raw, sig); err != nil {
		return nil, err
	}
	return sig, nil
}

func marshalEvent(event DomainEvent) (json.RawMessage, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return tagRecord(raw, "type", string(event.Type()))
}

func unmarshalEvent(raw json.RawMessage) (DomainEvent, error) {
	var tag struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, err
	}

	var event DomainEvent
	switch tag.Type {
	case EventTrade:
		event = &Trade{}
	case EventPoolSwap:
		event = &PoolSwap{}
	case EventLiquidity:
		event = &Liquidity{}
	case EventTransfer, EventUnknownTransfer:
		event = &Transfer{}
	case EventReward:
		event = &Reward{}
	default:
		return nil, fmt.Errorf("unknown event type %q", tag.Type)
	}
	if err := json.Unmarshal(raw, event); err != nil {
		return nil, err
	}
	return event, nil
}

// tagRecord splices a discriminator key into an already marshaled object.
func tagRecord(raw []byte, key, value string) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	tagged, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	fields[key] = tagged
	return json.Marshal(fields)
}
