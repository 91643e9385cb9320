package config

// StateSource selects where the reconciler reads the currently registered
// peripherals from
type StateSource string

const (
	StateSourceRegistry StateSource = "registry" // query the registry every cycle
	StateSourceLedger   StateSource = "ledger"   // read the local SQLite ledger
)

// Valid reports whether s is a known state source
func (s StateSource) Valid() bool {
	return s == StateSourceRegistry || s == StateSourceLedger
}

// Posture defines how hard the scanner pushes the gateway
type Posture string

const (
	PostureStealth    Posture = "stealth"    // slow timing, first slave only
	PostureCautious   Posture = "cautious"   // normal timing, first slave only
	PostureBalanced   Posture = "balanced"   // default: T4, every slave id
	PostureAggressive Posture = "aggressive" // fastest timing, every slave id
)

// ScanProfile defines the scanner settings a posture implies
type ScanProfile struct {
	// Timing is the nmap timing template, 0 to 5
	Timing int `yaml:"timing"`
	// Aggressive enables modbus-discover.aggressive
	Aggressive bool `yaml:"aggressive"`
}

// PostureProfiles maps postures to their default scan profiles
var PostureProfiles = map[Posture]ScanProfile{
	PostureStealth:    {Timing: 1, Aggressive: false},
	PostureCautious:   {Timing: 3, Aggressive: false},
	PostureBalanced:   {Timing: 4, Aggressive: true},
	PostureAggressive: {Timing: 5, Aggressive: true},
}

// GetProfile returns the scan profile for a posture
func (p Posture) GetProfile() ScanProfile {
	if profile, ok := PostureProfiles[p]; ok {
		return profile
	}
	return PostureProfiles[PostureBalanced]
}
