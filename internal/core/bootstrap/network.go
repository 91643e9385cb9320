package bootstrap

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

// DefaultRouteFile is the kernel routing table on Linux
const DefaultRouteFile = "/proc/net/route"

// rtfGateway is the RTF_GATEWAY route flag
const rtfGateway = 0x2

// ErrNoDefaultRoute means the routing table has no usable default gateway
var ErrNoDefaultRoute = errors.New("no default gateway route")

// DefaultGateway returns the IPv4 default gateway from a /proc/net/route
// style table. An empty routeFile reads DefaultRouteFile.
func DefaultGateway(routeFile string) (string, error) {
	if routeFile == "" {
		routeFile = DefaultRouteFile
	}

	data, err := os.ReadFile(routeFile)
	if err != nil {
		return "", fmt.Errorf("read routing table: %w", err)
	}

	return parseDefaultGateway(string(data))
}

func parseDefaultGateway(table string) (string, error) {
	lines := strings.Split(table, "\n")
	if len(lines) < 2 {
		return "", ErrNoDefaultRoute
	}

	// Skip header
	for _, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}

		// Default route has destination 00000000
		if fields[1] != "00000000" {
			continue
		}

		flags, err := strconv.ParseUint(fields[3], 16, 16)
		if err != nil || flags&rtfGateway == 0 {
			continue
		}

		// Gateway is in hex, little-endian
		raw, err := strconv.ParseUint(fields[2], 16, 32)
		if err != nil {
			continue
		}

		ip := net.IPv4(byte(raw), byte(raw>>8), byte(raw>>16), byte(raw>>24))
		return ip.String(), nil
	}

	return "", ErrNoDefaultRoute
}
