package domain

// Observation is the set of peripherals seen during one discovery cycle
type Observation struct {
	Peripherals []Peripheral `json:"peripherals" yaml:"peripherals"`
	// Dropped counts findings rejected during normalization
	Dropped int `json:"dropped,omitempty" yaml:"dropped,omitempty"`
}

// NewObservation creates an empty observation
func NewObservation() *Observation {
	return &Observation{
		Peripherals: make([]Peripheral, 0),
	}
}

// AddPeripheral adds a peripheral to the observation
func (o *Observation) AddPeripheral(p Peripheral) {
	o.Peripherals = append(o.Peripherals, p)
}

// Len returns the number of peripherals observed
func (o *Observation) Len() int {
	if o == nil {
		return 0
	}
	return len(o.Peripherals)
}
