package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckConfigCompatibility(t *testing.T) {
	tests := []struct {
		name          string
		engineVersion string
		configVersion string
		wantErr       bool
	}{
		{"exact match", "1.2.0", "1.2.0", false},
		{"patch differs", "1.2.1", "1.2.0", false},
		{"config older minor", "1.3.0", "1.2.0", false},
		{"config newer minor", "1.2.0", "1.3.0", true},
		{"major mismatch", "2.0.0", "1.2.0", true},
		{"v prefix handled", "v1.2.0", "1.2.5", false},
		{"dev engine skips check", "main", "1.2.0", false},
		{"dev config skips check", "1.2.0", "main", false},
		{"garbage engine version", "not-a-version", "1.2.0", true},
		{"garbage config version", "1.2.0", "not-a-version", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckConfigCompatibility(tt.engineVersion, tt.configVersion)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGetVersion(t *testing.T) {
	assert.Equal(t, Version, GetVersion())
}
