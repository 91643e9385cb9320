package domain

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultNamespace scopes the identifiers this agent creates and deletes
	DefaultNamespace = "modbus"

	// NullPort stands in for a missing port number in identifiers
	NullPort = "nullport"
	// NullInterface stands in for a missing transport protocol in identifiers
	NullInterface = "nullinterface"
)

// Peripheral is the canonical, registry-ready record for one Modbus slave.
// Absent values are omitted from the serialized form.
type Peripheral struct {
	Identifier string   `json:"identifier,omitempty" yaml:"identifier,omitempty"`
	Interface  string   `json:"interface,omitempty" yaml:"interface,omitempty"`
	Port       *int     `json:"port,omitempty" yaml:"port,omitempty"`
	Available  bool     `json:"available" yaml:"available"`
	Classes    []string `json:"classes,omitempty" yaml:"classes,omitempty"`
	Vendor     string   `json:"vendor,omitempty" yaml:"vendor,omitempty"`
	Name       string   `json:"name,omitempty" yaml:"name,omitempty"`

	// SlaveID is kept for identifier minting and is not part of the record
	SlaveID int `json:"-" yaml:"-"`
}

// PortLabel returns the port number as text, or NullPort
func (p Peripheral) PortLabel() string {
	return portLabel(p.Port)
}

// MintIdentifier derives the registry identifier for this peripheral in ns
func (p Peripheral) MintIdentifier(ns string) string {
	return Identifier(ns, p.Port, p.Interface, p.SlaveID)
}

// Payload returns the record's present fields merged with the registry context.
// Keys with absent values never appear in the map.
func (p Peripheral) Payload(rc Context) map[string]any {
	payload := map[string]any{
		"available": p.Available,
	}
	if p.Identifier != "" {
		payload["identifier"] = p.Identifier
	}
	if p.Interface != "" {
		payload["interface"] = p.Interface
	}
	if p.Port != nil {
		payload["port"] = *p.Port
	}
	if len(p.Classes) > 0 {
		payload["classes"] = p.Classes
	}
	if p.Vendor != "" {
		payload["vendor"] = p.Vendor
	}
	if p.Name != "" {
		payload["name"] = p.Name
	}
	if rc.ParentID != "" {
		payload["parent"] = rc.ParentID
	}
	if rc.Version != 0 {
		payload["version"] = rc.Version
	}
	return payload
}

// Identifier mints "{ns}.{port}.{interface}.{slaveId}" with sentinels for
// missing port and interface. The same inputs always yield the same string.
func Identifier(ns string, port *int, iface string, slaveID int) string {
	if ns == "" {
		ns = DefaultNamespace
	}
	if iface == "" {
		iface = NullInterface
	}
	return fmt.Sprintf("%s.%s.%s.%d", ns, portLabel(port), iface, slaveID)
}

// NamespacePattern returns the registry filter matching every identifier in ns
func NamespacePattern(ns string) string {
	if ns == "" {
		ns = DefaultNamespace
	}
	return ns + ".*"
}

// InNamespace reports whether identifier was minted under ns
func InNamespace(identifier, ns string) bool {
	if ns == "" {
		ns = DefaultNamespace
	}
	return strings.HasPrefix(identifier, ns+".")
}

func portLabel(port *int) string {
	if port == nil {
		return NullPort
	}
	return strconv.Itoa(*port)
}
