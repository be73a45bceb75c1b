package database

import (
	"testing"

	"kinship/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestSchemaPolicy(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		mode    string
		wantSQL bool
		wantAut bool
		wantErr bool
	}{
		{"default is hybrid in dev", "development", "", true, true, false},
		{"hybrid in production skips auto", "production", "hybrid", true, false, false},
		{"sql only", "development", "sql", true, false, false},
		{"auto in dev", "development", "auto", false, true, false},
		{"auto refused in staging", "staging", "auto", false, false, true},
		{"unknown mode", "development", "yolo", false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runSQL, runAuto, err := schemaPolicy(&config.Config{Env: tt.env, DBSchemaMode: tt.mode})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantSQL, runSQL)
			assert.Equal(t, tt.wantAut, runAuto)
		})
	}
}
