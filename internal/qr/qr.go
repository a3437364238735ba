// Package qr renders and reads the QR codes printed on student cards.
package qr

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

const (
	DefaultSize = 256
	MinSize     = 64
	MaxSize     = 1024
)

// Payload is the JSON encoded into a student's QR code.
type Payload struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name,omitempty"`
	NIC       string `json:"nic,omitempty"`
}

// Encode returns the text form of p.
func (p Payload) Encode() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// PNG renders p as a PNG image of size x size pixels. Out of range sizes
// are clamped.
func PNG(p Payload, size int) ([]byte, error) {
	if p.StudentID == "" {
		return nil, fmt.Errorf("qr: student id required")
	}
	text, err := p.Encode()
	if err != nil {
		return nil, fmt.Errorf("qr: encode payload: %w", err)
	}
	switch {
	case size == 0:
		size = DefaultSize
	case size < MinSize:
		size = MinSize
	case size > MaxSize:
		size = MaxSize
	}
	png, err := qrcode.Encode(text, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("qr: render: %w", err)
	}
	return png, nil
}

// Parse reads scanned text. JSON payloads are decoded; anything else is taken
// as a bare student id, nic or email. ok is false for blank input.
func Parse(text string) (p Payload, ok bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Payload{}, false
	}
	if strings.HasPrefix(text, "{") {
		var decoded Payload
		if err := json.Unmarshal([]byte(text), &decoded); err == nil && strings.TrimSpace(decoded.StudentID) != "" {
			decoded.StudentID = strings.TrimSpace(decoded.StudentID)
			return decoded, true
		}
	}
	return Payload{StudentID: text}, true
}
