package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modbusmgr/internal/domain"
	"modbusmgr/internal/logger"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		finding domain.RawFinding
		want    domain.Peripheral
	}{
		{
			name: "full finding",
			finding: domain.RawFinding{
				Port:       domain.IntPtr(502),
				Protocol:   "tcp",
				PortOpen:   true,
				SlaveID:    100,
				HasSlaveID: true,
				Attributes: []domain.Attribute{
					{Key: domain.AttrSlaveIDData, Value: "PM710PowerMeter"},
					{Key: domain.AttrDeviceIdentification, Value: "Schneider Electric PM710 v03.110"},
				},
			},
			want: domain.Peripheral{
				Interface: "TCP",
				Port:      domain.IntPtr(502),
				Available: true,
				Classes:   []string{"PM710PowerMeter"},
				Vendor:    "Schneider Electric PM710 v03.110",
				Name:      "Modbus 502/tcp PM710PowerMeter - 100",
				SlaveID:   100,
			},
		},
		{
			name: "no attributes",
			finding: domain.RawFinding{
				Port:       domain.IntPtr(502),
				Protocol:   "udp",
				SlaveID:    7,
				HasSlaveID: true,
			},
			want: domain.Peripheral{
				Interface: "UDP",
				Port:      domain.IntPtr(502),
				Name:      "Modbus 502/udp - 7",
				SlaveID:   7,
			},
		},
		{
			name: "missing port and protocol",
			finding: domain.RawFinding{
				SlaveID:    3,
				HasSlaveID: true,
			},
			want: domain.Peripheral{
				Name:    "Modbus nullport/nullinterface - 3",
				SlaveID: 3,
			},
		},
		{
			name: "duplicate keys keep the first",
			finding: domain.RawFinding{
				Port:       domain.IntPtr(502),
				Protocol:   "tcp",
				PortOpen:   true,
				SlaveID:    1,
				HasSlaveID: true,
				Attributes: []domain.Attribute{
					{Key: domain.AttrSlaveIDData, Value: "first"},
					{Key: domain.AttrSlaveIDData, Value: "second"},
				},
			},
			want: domain.Peripheral{
				Interface: "TCP",
				Port:      domain.IntPtr(502),
				Available: true,
				Classes:   []string{"first"},
				Name:      "Modbus 502/tcp first - 1",
				SlaveID:   1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.finding)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_MissingSlaveID(t *testing.T) {
	_, err := Normalize(domain.RawFinding{Port: domain.IntPtr(502), Protocol: "tcp"})
	assert.ErrorIs(t, err, ErrMissingSlaveID)
}

func TestNormalize_UnresponsiveSlave(t *testing.T) {
	gatewayError := domain.Attribute{Key: domain.AttrError, Value: "GATEWAY TARGET DEVICE FAILED TO RESPONSE"}

	t.Run("error only is dropped", func(t *testing.T) {
		_, err := Normalize(domain.RawFinding{
			Port:       domain.IntPtr(502),
			Protocol:   "tcp",
			PortOpen:   true,
			SlaveID:    150,
			HasSlaveID: true,
			Attributes: []domain.Attribute{gatewayError},
		})
		assert.ErrorIs(t, err, ErrSlaveUnresponsive)
		assert.Contains(t, err.Error(), "GATEWAY TARGET DEVICE FAILED TO RESPONSE")
	})

	t.Run("error next to identification is kept", func(t *testing.T) {
		p, err := Normalize(domain.RawFinding{
			Port:       domain.IntPtr(502),
			Protocol:   "tcp",
			PortOpen:   true,
			SlaveID:    1,
			HasSlaveID: true,
			Attributes: []domain.Attribute{{Key: domain.AttrSlaveIDData, Value: "Gateway & Bridge"}, gatewayError},
		})
		require.NoError(t, err)
		assert.Equal(t, "Modbus 502/tcp Gateway & Bridge - 1", p.Name)
	})

	t.Run("no attributes is kept", func(t *testing.T) {
		p, err := Normalize(domain.RawFinding{Port: domain.IntPtr(5020), Protocol: "udp", SlaveID: 10, HasSlaveID: true})
		require.NoError(t, err)
		assert.Equal(t, "Modbus 5020/udp - 10", p.Name)
	})
}

func TestNormalize_Deterministic(t *testing.T) {
	f := domain.RawFinding{
		Port:       domain.IntPtr(502),
		Protocol:   "tcp",
		PortOpen:   true,
		SlaveID:    100,
		HasSlaveID: true,
		Attributes: []domain.Attribute{{Key: domain.AttrSlaveIDData, Value: "PM710PowerMeter"}},
	}

	first, err := Normalize(f)
	require.NoError(t, err)
	second, err := Normalize(f)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first.MintIdentifier(domain.DefaultNamespace), second.MintIdentifier(domain.DefaultNamespace))
}

func TestNormalizer_NormalizeAll(t *testing.T) {
	n := NewNormalizer(logger.NewTestLogger())

	obs := n.NormalizeAll([]domain.RawFinding{
		{Port: domain.IntPtr(502), Protocol: "tcp", SlaveID: 1, HasSlaveID: true},
		{Port: domain.IntPtr(502), Protocol: "tcp"},
		{Port: domain.IntPtr(502), Protocol: "tcp", SlaveID: 2, HasSlaveID: true},
		{
			Port: domain.IntPtr(502), Protocol: "tcp", SlaveID: 150, HasSlaveID: true,
			Attributes: []domain.Attribute{{Key: domain.AttrError, Value: "GATEWAY TARGET DEVICE FAILED TO RESPONSE"}},
		},
	})

	assert.Equal(t, 2, obs.Len())
	assert.Equal(t, 2, obs.Dropped)
}

func TestPipeline_Sample(t *testing.T) {
	parser := NewParser(logger.NewTestLogger())
	normalizer := NewNormalizer(logger.NewTestLogger())

	findings, err := parser.ParseXML(readFixture(t, "modbus_discover.xml"))
	require.NoError(t, err)

	obs := normalizer.NormalizeAll(findings.Items)
	require.Equal(t, 1, obs.Len())

	p := obs.Peripherals[0]
	assert.Equal(t, "modbus.502.TCP.100", p.MintIdentifier(domain.DefaultNamespace))
	assert.Equal(t, "Modbus 502/tcp PM710PowerMeter - 100", p.Name)
	assert.Equal(t, "Schneider Electric PM710 v03.110", p.Vendor)
	assert.Equal(t, []string{"PM710PowerMeter"}, p.Classes)
	assert.True(t, p.Available)
}
