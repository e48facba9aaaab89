package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, false)
	log.Debug("hidden")
	log.Info("shown", "source", "obfs4")

	out := strings.TrimSpace(buf.String())
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line logged at info level: %s", out)
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatalf("not json: %v (%s)", err, out)
	}
	if rec["source"] != "obfs4" || rec["app"] != "bridgecheck-go" {
		t.Fatalf("missing attributes: %#v", rec)
	}

	buf.Reset()
	NewLogger(&buf, true).Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("verbose logger dropped debug line")
	}
}
