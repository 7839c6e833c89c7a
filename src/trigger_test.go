package csi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Trigger_Decide(t *testing.T) {
	var tests = []struct {
		name    string
		streams int
		v       StabilityVector
		want    bool
	}{
		{"both stable", 2, StabilityVector{true, true}, true},
		{"second unstable", 2, StabilityVector{true, false}, false},
		{"first unstable", 2, StabilityVector{false, true}, false},
		{"extra streams ignored", 2, StabilityVector{true, true, false, false}, true},
		{"too few flags", 2, StabilityVector{true}, false},
		{"empty", 2, nil, false},
		{"all streams", 0, StabilityVector{true, true, true}, true},
		{"all streams, one bad", 0, StabilityVector{true, true, false}, false},
		{"all streams, empty", 0, nil, false},
		{"single", 1, StabilityVector{true, false}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Trigger{Streams: tt.streams}.Decide(tt.v))
		})
	}
}

func Test_Trigger_fromStability(t *testing.T) {
	var m = SampleMatrix{
		{complex(10, 0), complex(10, 0)},
		{complex(1, 0), complex(100, 0)}, // 40 dB spread
	}

	assert.False(t, Trigger{Streams: DefaultTriggerStreams}.Decide(Stability(m, DefaultDBThreshold)))
	assert.True(t, Trigger{Streams: 1}.Decide(Stability(m, DefaultDBThreshold)))
}
