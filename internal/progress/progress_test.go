package progress

import (
	"io"
	"testing"

	"github.com/August26/bridgecheck-go/internal/model"
)

func TestBar_CountsVerdicts(t *testing.T) {
	b := NewBar(io.Discard)
	b.Start("obfs4", 3)
	b.Observe(model.Verdict{Alive: true})
	b.Observe(model.Verdict{})
	b.Observe(model.Verdict{Alive: true})

	if got := b.Current(); got != 3 {
		t.Fatalf("current=%d want 3", got)
	}
	if b.working != 2 {
		t.Fatalf("working=%d want 2", b.working)
	}
	b.Finish()

	// observing without a running bar is a no-op
	b.Observe(model.Verdict{Alive: true})
	if b.Current() != 0 {
		t.Fatalf("expected no bar after finish")
	}
}
