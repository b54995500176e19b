package service

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// IPNSignatureService implements ports.SignatureService for processor
// notifications: HMAC-SHA512 over the canonical sorted-key JSON body.
type IPNSignatureService struct{}

// NewIPNSignatureService creates a new IPN signature service.
func NewIPNSignatureService() *IPNSignatureService {
	return &IPNSignatureService{}
}

// Sign computes the lowercase hex HMAC-SHA512 of rawBody's canonical form.
func (s *IPNSignatureService) Sign(secret string, rawBody []byte) (string, error) {
	canonical, err := canonicalize(rawBody)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(canonical)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify checks signature against rawBody using a constant-time comparison.
// An unparseable body or empty signature never verifies.
func (s *IPNSignatureService) Verify(secret string, rawBody []byte, signature string) bool {
	if signature == "" {
		return false
	}
	expected, err := s.Sign(secret, rawBody)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(signature))
}

// canonicalize re-serializes a JSON object with its top-level keys sorted
// lexicographically. Values are carried through byte-for-byte (RawMessage),
// so only key order changes; nested objects stay as delivered. HTML escaping
// is disabled to keep the output identical to a plain stringify of the
// sorted object, which is what the processor signs.
func canonicalize(rawBody []byte) ([]byte, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(rawBody, &fields); err != nil {
		return nil, fmt.Errorf("parse notification body: %w", err)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(k); err != nil {
			return nil, fmt.Errorf("encode key: %w", err)
		}
		buf.Truncate(buf.Len() - 1) // drop Encode's trailing newline
		buf.WriteByte(':')
		if err := json.Compact(&buf, fields[k]); err != nil {
			return nil, fmt.Errorf("compact value: %w", err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
