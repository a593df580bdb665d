package types

import (
	"encoding/json"
	"fmt"
)

// Bytes is a uint64 wrapper representing a size in bytes. It marshals as a
// plain JSON number so usage/info records carry raw byte counts.
type Bytes uint64

// MarshalJSON implements json.Marshaler, encoding Bytes as a bare integer.
func (b Bytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint64(b))
}

// UnmarshalJSON implements json.Unmarshaler, decoding a bare integer.
func (b *Bytes) UnmarshalJSON(data []byte) error {
	var v uint64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*b = Bytes(v)
	return nil
}

// Humanized returns a human-readable string with automatic unit (B, KB, MB, GB, TB).
func (b Bytes) Humanized() string {
	const unit = 1024
	v := float64(b)
	switch {
	case b >= 1<<40:
		return fmt.Sprintf("%.2f TB", v/(1<<40))
	case b >= 1<<30:
		return fmt.Sprintf("%.2f GB", v/(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.2f MB", v/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.2f KB", v/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
