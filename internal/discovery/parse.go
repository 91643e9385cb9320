package discovery

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	nmap "github.com/Ullaakut/nmap/v3"
	"github.com/rs/zerolog"

	"modbusmgr/internal/domain"
)

const (
	// DefaultService is the service name nmap reports for Modbus ports
	DefaultService = "modbus"
	// DefaultScript is the NSE script that enumerates Modbus slaves
	DefaultScript = "modbus-discover"
)

var (
	// ErrNoOpenPorts means the document has no host/ports/port entries at all.
	// This is an expected outcome, not a failure.
	ErrNoOpenPorts = errors.New("no open ports in scan result")
	// ErrMissingSlaveID means a slave table key carried no parsable hex id
	ErrMissingSlaveID = errors.New("missing slave id")
	// ErrSlaveUnresponsive means the gateway reported only an error for the slave
	ErrSlaveUnresponsive = errors.New("slave did not respond")
)

// ParseError reports a scan document that could not be interpreted
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse scan result: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Findings is the parser's output for one document
type Findings struct {
	Items []domain.RawFinding
	// Rejected counts slave tables dropped for lack of a slave id
	Rejected int
}

// Parser extracts per-slave findings from nmap results
type Parser struct {
	service string
	script  string
	log     zerolog.Logger
}

// ParserOption configures a Parser
type ParserOption func(*Parser)

// WithService sets the detected service name ports must match
func WithService(name string) ParserOption {
	return func(p *Parser) {
		p.service = name
	}
}

// WithScript sets the NSE script id whose tables hold the slaves.
// A trailing ".nse" is ignored.
func WithScript(id string) ParserOption {
	return func(p *Parser) {
		p.script = strings.TrimSuffix(id, ".nse")
	}
}

// NewParser creates a parser for Modbus discovery output
func NewParser(log zerolog.Logger, opts ...ParserOption) *Parser {
	p := &Parser{
		service: DefaultService,
		script:  DefaultScript,
		log:     log,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseXML decodes a raw nmap XML document and parses it
func (p *Parser) ParseXML(data []byte) (Findings, error) {
	run := &nmap.Run{}
	if err := nmap.Parse(data, run); err != nil {
		return Findings{}, &ParseError{Err: err}
	}
	return p.Parse(run)
}

// Parse extracts one finding per slave table under every matching port
func (p *Parser) Parse(run *nmap.Run) (Findings, error) {
	if run == nil {
		return Findings{}, &ParseError{Err: errors.New("nil scan result")}
	}

	if !hasPorts(run) {
		return Findings{}, ErrNoOpenPorts
	}

	var out Findings

	for _, host := range run.Hosts {
		addr := hostAddress(host)

		for _, port := range host.Ports {
			if port.Service.Name != p.service {
				continue
			}

			tables := p.slaveTables(port)
			if len(tables) == 0 {
				p.log.Debug().
					Str("host", addr).
					Uint16("port", port.ID).
					Msg("Modbus port reported no slaves")
				continue
			}

			for _, table := range tables {
				finding, err := p.parseSlave(addr, port, table)
				if err != nil {
					out.Rejected++
					p.log.Warn().Err(err).
						Str("host", addr).
						Uint16("port", port.ID).
						Str("key", table.Key).
						Msg("Dropping slave table")
					continue
				}
				out.Items = append(out.Items, finding)
			}
		}
	}

	return out, nil
}

// slaveTables returns the per-slave tables of the discovery script.
// One table and many tables decode to the same slice.
func (p *Parser) slaveTables(port nmap.Port) []nmap.Table {
	var tables []nmap.Table
	for _, script := range port.Scripts {
		if script.ID != p.script {
			continue
		}
		tables = append(tables, script.Tables...)
	}
	return tables
}

func (p *Parser) parseSlave(addr string, port nmap.Port, table nmap.Table) (domain.RawFinding, error) {
	slaveID, err := ParseSlaveKey(table.Key)
	if err != nil {
		return domain.RawFinding{}, err
	}

	finding := domain.RawFinding{
		Host:       addr,
		Port:       domain.IntPtr(int(port.ID)),
		Protocol:   port.Protocol,
		PortOpen:   port.State.State == "open",
		SlaveID:    slaveID,
		HasSlaveID: true,
	}

	for _, elem := range table.Elements {
		finding.Attributes = append(finding.Attributes, domain.Attribute{
			Key:   elem.Key,
			Value: strings.TrimSpace(html.UnescapeString(elem.Value)),
		})
	}

	for _, attr := range finding.UnknownAttributes() {
		p.log.Warn().
			Int("slave_id", slaveID).
			Str("key", attr.Key).
			Str("value", attr.Value).
			Msg("Modbus slave attribute cannot be categorized")
	}

	return finding, nil
}

// ParseSlaveKey extracts the slave id from a table key of the form
// "<label> <hex-value>", for example "sid 0x64".
func ParseSlaveKey(key string) (int, error) {
	fields := strings.Fields(key)
	if len(fields) != 2 {
		return 0, fmt.Errorf("%w: key %q", ErrMissingSlaveID, key)
	}

	hex := strings.TrimPrefix(strings.ToLower(fields[1]), "0x")
	id, err := strconv.ParseUint(hex, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: key %q: %v", ErrMissingSlaveID, key, err)
	}

	return int(id), nil
}

func hasPorts(run *nmap.Run) bool {
	for _, host := range run.Hosts {
		if len(host.Ports) > 0 {
			return true
		}
	}
	return false
}

// hostAddress prefers the IPv4 address and falls back to the first one
func hostAddress(host nmap.Host) string {
	for _, addr := range host.Addresses {
		if addr.AddrType == "ipv4" {
			return addr.Addr
		}
	}
	if len(host.Addresses) > 0 {
		return host.Addresses[0].Addr
	}
	return ""
}
