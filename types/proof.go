package types

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// PaymentProof is the portable evidence of settlement attached to a retried
// request in the x-payment header. It is built fresh per retry and never
// reused across logical calls.
type PaymentProof struct {
	Scheme  string `json:"scheme"`
	Network string `json:"network"`
	Asset   string `json:"asset"`
	Amount  string `json:"amount"`
	PayTo   string `json:"payTo"`
	Tx      string `json:"tx"`
}

// Encode serializes the proof to the base64 JSON wire form.
func (p *PaymentProof) Encode() (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode payment proof: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeProof parses a base64 JSON payment proof.
func DecodeProof(encoded string) (*PaymentProof, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode payment proof: %w", err)
	}
	var p PaymentProof
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode payment proof: %w", err)
	}
	return &p, nil
}

// DecodeSettleResponse parses a base64 JSON settlement confirmation header
// value.
func DecodeSettleResponse(encoded string) (*SettleResponse, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode settle response: %w", err)
	}
	var r SettleResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode settle response: %w", err)
	}
	return &r, nil
}
