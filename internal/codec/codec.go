package codec

import (
	"fmt"
	"io"
	"sort"

	"modbusmgr/internal/domain"
)

// Exporter writes an observation in some output format
type Exporter interface {
	Export(obs *domain.Observation, w io.Writer) error
	Format() string
}

var exporters = map[string]func() Exporter{
	"json": func() Exporter { return NewJSONCodec() },
	"yaml": func() Exporter { return NewYAMLCodec() },
	"yml":  func() Exporter { return NewYAMLCodec() },
}

// ForFormat returns the exporter registered for format
func ForFormat(format string) (Exporter, error) {
	newExporter, ok := exporters[format]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (want one of %v)", format, Formats())
	}
	return newExporter(), nil
}

// Formats lists the supported output formats
func Formats() []string {
	formats := make([]string, 0, len(exporters))
	for f := range exporters {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}

// sorted returns the observation's peripherals ordered by identifier, then name
func sorted(obs *domain.Observation) []domain.Peripheral {
	if obs == nil {
		return []domain.Peripheral{}
	}
	out := append([]domain.Peripheral(nil), obs.Peripherals...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Identifier != out[j].Identifier {
			return out[i].Identifier < out[j].Identifier
		}
		return out[i].Name < out[j].Name
	})
	return out
}
