package codec

import (
	"fmt"
	"io"

	"modbusmgr/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// Export writes the peripherals as a YAML document
func (c *YAMLCodec) Export(obs *domain.Observation, w io.Writer) error {
	out := domain.Observation{Peripherals: sorted(obs)}
	if obs != nil {
		out.Dropped = obs.Dropped
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)

	if err := encoder.Encode(out); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}

	return encoder.Close()
}
