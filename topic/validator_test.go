package topic

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		wantErr bool
	}{
		{"simple", "a/b/c", false},
		{"single level", "sensors", false},
		{"leading slash", "/a/b", false},
		{"empty level", "a//b", false},
		{"dollar topic", "$SYS/broker/load", false},
		{"empty", "", true},
		{"plus wildcard", "a/+/c", true},
		{"hash wildcard", "a/#", true},
		{"embedded null", "a/\x00b", true},
		{"invalid utf8", "a/\xff\xfe", true},
		{"too long", strings.Repeat("x", 65536), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.topic)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateFilter(t *testing.T) {
	tests := []struct {
		name    string
		filter  string
		wantErr bool
	}{
		{"exact", "a/b/c", false},
		{"single-level wildcard", "a/+/c", false},
		{"trailing multi-level", "a/b/#", false},
		{"lone hash", "#", false},
		{"lone plus", "+", false},
		{"plus then hash", "+/#", false},
		{"empty level", "a//+", false},
		{"empty", "", true},
		{"hash not last", "a/#/b", true},
		{"hash not alone", "a/b#", true},
		{"plus not alone", "a/b+/c", true},
		{"embedded null", "a/\x00", true},
		{"shared", "$share/group/a/+", false},
		{"shared missing filter", "$share/group", true},
		{"shared empty group", "$share//a", true},
		{"shared wildcard group", "$share/g+/a", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilter(tt.filter)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSplitShared(t *testing.T) {
	group, inner, err := SplitShared("$share/readers/sensors/+/temp")
	require.NoError(t, err)
	assert.Equal(t, "readers", group)
	assert.Equal(t, "sensors/+/temp", inner)

	_, _, err = SplitShared("not/shared")
	assert.Error(t, err)
}

func TestIsShared(t *testing.T) {
	assert.True(t, IsShared("$share/g/t"))
	assert.False(t, IsShared("$sys/broker"))
	assert.False(t, IsShared("a/b"))
}
