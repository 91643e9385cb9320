package discovery

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"modbusmgr/internal/domain"
)

// Normalize maps a finding to its canonical peripheral.
// It fails closed when the finding carries no slave id, or when the gateway
// answered for the slave with nothing but an error.
func Normalize(f domain.RawFinding) (domain.Peripheral, error) {
	if !f.HasSlaveID {
		return domain.Peripheral{}, ErrMissingSlaveID
	}
	if errorOnly(f) {
		reason, _ := f.Attribute(domain.AttrError)
		return domain.Peripheral{}, fmt.Errorf("%w: %s", ErrSlaveUnresponsive, reason)
	}

	p := domain.Peripheral{
		Interface: strings.ToUpper(f.Protocol),
		Available: f.PortOpen,
		SlaveID:   f.SlaveID,
	}
	if f.Port != nil {
		p.Port = domain.IntPtr(*f.Port)
	}

	if classes, ok := f.Attribute(domain.AttrSlaveIDData); ok {
		p.Classes = []string{classes}
	}
	if vendor, ok := f.Attribute(domain.AttrDeviceIdentification); ok {
		p.Vendor = vendor
	}

	p.Name = peripheralName(p, f.Protocol)

	return p, nil
}

func errorOnly(f domain.RawFinding) bool {
	if _, ok := f.Attribute(domain.AttrError); !ok {
		return false
	}
	_, hasClasses := f.Attribute(domain.AttrSlaveIDData)
	_, hasVendor := f.Attribute(domain.AttrDeviceIdentification)
	return !hasClasses && !hasVendor
}

// peripheralName builds "Modbus {port}/{protocol} {classes} - {slaveId}".
// The protocol is used as the scanner reported it.
func peripheralName(p domain.Peripheral, protocol string) string {
	if protocol == "" {
		protocol = domain.NullInterface
	}

	label := fmt.Sprintf("Modbus %s/%s", p.PortLabel(), protocol)
	if len(p.Classes) > 0 {
		label += " " + strings.Join(p.Classes, " ")
	}

	return fmt.Sprintf("%s - %d", label, p.SlaveID)
}

// Normalizer converts a batch of findings into an observation
type Normalizer struct {
	log zerolog.Logger
}

// NewNormalizer creates a normalizer
func NewNormalizer(log zerolog.Logger) *Normalizer {
	return &Normalizer{log: log}
}

// NormalizeAll normalizes every finding, skipping the ones that fail
func (n *Normalizer) NormalizeAll(findings []domain.RawFinding) *domain.Observation {
	obs := domain.NewObservation()

	for _, f := range findings {
		p, err := Normalize(f)
		if err != nil {
			obs.Dropped++
			n.log.Warn().Err(err).
				Str("host", f.Host).
				Str("protocol", f.Protocol).
				Msg("Skipping finding")
			continue
		}

		n.log.Info().
			Str("name", p.Name).
			Str("interface", p.Interface).
			Str("port", p.PortLabel()).
			Int("slave_id", p.SlaveID).
			Str("vendor", p.Vendor).
			Msg("Modbus device found")

		obs.AddPeripheral(p)
	}

	return obs
}
