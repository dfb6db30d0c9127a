package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestConfigureOutput(t *testing.T) {
	defer ConfigureOutput(&bytes.Buffer{}, "info", "console")

	testCases := []struct {
		name      string
		level     string
		format    string
		wantLevel zerolog.Level
		wantJSON  bool
	}{
		{"json debug", "debug", "json", zerolog.DebugLevel, true},
		{"console warn", "WARN", "console", zerolog.WarnLevel, false},
		{"invalid level", "loud", "json", zerolog.InfoLevel, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			ConfigureOutput(&buf, tc.level, tc.format)

			if got := zerolog.GlobalLevel(); got != tc.wantLevel {
				t.Errorf("Expected level %s, got %s", tc.wantLevel, got)
			}

			buf.Reset()
			log.Error().Str("stage", "plan").Msg("stage failed")
			line := strings.TrimSpace(buf.String())
			if line == "" {
				t.Fatalf("Expected package logger to write to the configured output")
			}

			var decoded map[string]interface{}
			isJSON := json.Unmarshal([]byte(line), &decoded) == nil
			if isJSON != tc.wantJSON {
				t.Errorf("Expected json=%v, got %q", tc.wantJSON, line)
			}
			if tc.wantJSON && decoded["stage"] != "plan" {
				t.Errorf("Expected stage field, got %v", decoded)
			}
		})
	}
}
