package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"modbusmgr/internal/domain"
)

// JSONCodec handles JSON export
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// Export writes the peripherals as an indented JSON document
func (c *JSONCodec) Export(obs *domain.Observation, w io.Writer) error {
	out := domain.Observation{Peripherals: sorted(obs)}
	if obs != nil {
		out.Dropped = obs.Dropped
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(out); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
