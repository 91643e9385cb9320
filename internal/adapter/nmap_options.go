package adapter

import (
	"strings"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"
)

// NmapOption is a functional option for configuring NmapScanner
type NmapOption func(*NmapScanner)

// WithScript sets the NSE script to run. A trailing ".nse" is dropped.
func WithScript(script string) NmapOption {
	return func(n *NmapScanner) {
		if script != "" {
			n.script = strings.TrimSuffix(script, ".nse")
		}
	}
}

// WithScriptArgs merges extra script arguments over the defaults
func WithScriptArgs(args map[string]string) NmapOption {
	return func(n *NmapScanner) {
		for k, v := range args {
			n.scriptArgs[k] = v
		}
	}
}

// WithAggressive toggles modbus-discover.aggressive, which probes every
// slave id instead of stopping at the first answer
func WithAggressive(enabled bool) NmapOption {
	return func(n *NmapScanner) {
		if enabled {
			n.scriptArgs["modbus-discover.aggressive"] = "true"
			return
		}
		delete(n.scriptArgs, "modbus-discover.aggressive")
	}
}

// WithPorts sets the ports to scan
// Format: "502" or "502,5020" or "1-65535"
func WithPorts(ports string) NmapOption {
	return func(n *NmapScanner) {
		if ports != "" {
			n.ports = ports
		}
	}
}

// WithTiming sets the timing template, 0 (paranoid) to 5 (insane)
func WithTiming(level int) NmapOption {
	return func(n *NmapScanner) {
		if level >= int(nmap.TimingSlowest) && level <= int(nmap.TimingFastest) {
			n.timing = nmap.Timing(level)
		}
	}
}

// WithBinaryPath sets an explicit nmap binary
func WithBinaryPath(path string) NmapOption {
	return func(n *NmapScanner) {
		n.binaryPath = path
	}
}

// WithSkipHostDiscovery sets whether to skip ping and treat the target as online (-Pn)
func WithSkipHostDiscovery(skip bool) NmapOption {
	return func(n *NmapScanner) {
		n.skipHostDiscovery = skip
	}
}

// WithTimeout bounds a single scan. Zero leaves it unbounded.
func WithTimeout(d time.Duration) NmapOption {
	return func(n *NmapScanner) {
		n.timeout = d
	}
}
