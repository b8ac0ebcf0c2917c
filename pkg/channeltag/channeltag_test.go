package channeltag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "C0__FRAME", Format(0, "FRAME"))
	assert.Equal(t, "C1__FRAME", Format(1, "FRAME"))
	assert.Equal(t, "C12__SELECT", Format(12, "SELECT"))
}

func TestParse(t *testing.T) {
	tests := []struct {
		tag     string
		channel int
		base    string
		ok      bool
	}{
		{"C0__FRAME", 0, "FRAME", true},
		{"C7__A", 7, "A", true},
		{"C12__X__Y", 12, "X__Y", true},
		{"FRAME", 0, "", false},
		{"C__FRAME", 0, "", false},
		{"C-1__FRAME", 0, "", false},
		{"Cx__FRAME", 0, "", false},
		{"C1_FRAME", 0, "", false},
		{"", 0, "", false},
		{"C", 0, "", false},
	}

	for _, tt := range tests {
		channel, base, ok := Parse(tt.tag)
		assert.Equal(t, tt.ok, ok, "Parse(%q)", tt.tag)
		if tt.ok {
			assert.Equal(t, tt.channel, channel, "Parse(%q)", tt.tag)
			assert.Equal(t, tt.base, base, "Parse(%q)", tt.tag)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, base := range []string{"FRAME", "DETECTIONS", "A__B"} {
		for ch := 0; ch < 5; ch++ {
			n, b, ok := Parse(Format(ch, base))
			assert.True(t, ok)
			assert.Equal(t, ch, n)
			assert.Equal(t, base, b)
		}
	}
}

func TestCount(t *testing.T) {
	assert.Equal(t, 0, Count(nil))
	assert.Equal(t, 0, Count([]string{"FRAME", "SELECT"}))
	assert.Equal(t, 1, Count([]string{"C0__FRAME"}))
	assert.Equal(t, 3, Count([]string{"C0__FRAME", "C2__FRAME", "SELECT"}))
	assert.Equal(t, 2, Count([]string{"C1__FRAME", "C0__FRAME", "C1__MASK"}))
}
