// Package v1 defines the attendance QR payload contract.
//
// This package is intentionally stable and dependency-light.
// It is shared between the issuing side and scanning clients to keep the
// encoded payload authoritative: a token carries exactly the token id and the
// session id, nothing else. Claimant identity and location are supplied
// separately at submission time.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Payload is the full content encoded into a scannable token.
type Payload struct {
	TokenID   string `json:"qrId"`
	SessionID string `json:"sessionId"`
}

// Validate performs strict structural validation for a Payload.
func (p Payload) Validate() error {
	if strings.TrimSpace(p.TokenID) == "" {
		return errors.New("missing field: qrId")
	}
	if strings.TrimSpace(p.SessionID) == "" {
		return errors.New("missing field: sessionId")
	}
	return nil
}

// Encode serializes the payload to its canonical wire form.
func Encode(p Payload) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode parses and validates a scanned payload string.
func Decode(s string) (Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return Payload{}, fmt.Errorf("malformed payload: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Payload{}, err
	}
	return p, nil
}
