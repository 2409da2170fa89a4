package view

import (
	"encoding/json"
	"fmt"
)

// Handle is the serializable identity of a typed view: enough to rebind an
// equivalent view in another process by attaching to the same segment. It
// never carries payload bytes; those live only in the shared region.
type Handle struct {
	Name   string `json:"name"`
	Length int    `json:"length"`
	// Format is the record format spec, or "" for raw single-byte
	// elements.
	Format string `json:"format,omitempty"`
}

// Encode renders the handle as its JSON wire form, suitable for a spawn
// argument or an inter-process message.
func (h Handle) Encode() (string, error) {
	b, err := json.Marshal(h)
	if err != nil {
		return "", fmt.Errorf("view: encode handle: %w", err)
	}
	return string(b), nil
}

// ParseHandle decodes the JSON wire form produced by Encode.
func ParseHandle(s string) (Handle, error) {
	var h Handle
	if err := json.Unmarshal([]byte(s), &h); err != nil {
		return Handle{}, fmt.Errorf("view: parse handle: %w", err)
	}
	if h.Name == "" {
		return Handle{}, fmt.Errorf("view: parse handle: missing name")
	}
	if h.Length <= 0 {
		return Handle{}, fmt.Errorf("view: parse handle: non-positive length %d", h.Length)
	}
	return h, nil
}

// Stride returns the element width in bytes implied by the format.
func (h Handle) Stride() (int, error) {
	if h.Format == "" {
		return 1, nil
	}
	f, err := ParseFormat(h.Format)
	if err != nil {
		return 0, err
	}
	return f.Stride(), nil
}
