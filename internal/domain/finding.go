package domain

// Attribute keys emitted by the modbus-discover script for each slave
const (
	AttrSlaveIDData          = "Slave ID data"
	AttrDeviceIdentification = "Device identification"
	AttrError                = "error"
)

// Attribute is a single key/text pair reported for a slave
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// RawFinding is one scanner-reported slave under a scanned port
type RawFinding struct {
	// Host is the scanned address the port belongs to
	Host string `json:"host,omitempty"`
	// Port is nil when the scanner did not report a port number
	Port *int `json:"port,omitempty"`
	// Protocol is the transport label as reported ("tcp", "udp")
	Protocol string `json:"protocol,omitempty"`
	// PortOpen is true when the scanner reported the port state as open
	PortOpen bool `json:"port_open"`
	// SlaveID is the Modbus unit identifier; HasSlaveID is false when none was extracted
	SlaveID    int  `json:"slave_id"`
	HasSlaveID bool `json:"-"`
	// Attributes in the order the script reported them
	Attributes []Attribute `json:"attributes,omitempty"`
}

// Attribute returns the first value reported under key.
// Duplicate keys are resolved first-match-wins.
func (f RawFinding) Attribute(key string) (string, bool) {
	for _, attr := range f.Attributes {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}

// UnknownAttributes returns attributes that are neither slave id data nor
// device identification
func (f RawFinding) UnknownAttributes() []Attribute {
	var unknown []Attribute
	for _, attr := range f.Attributes {
		switch attr.Key {
		case AttrSlaveIDData, AttrDeviceIdentification:
			continue
		}
		unknown = append(unknown, attr)
	}
	return unknown
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}
