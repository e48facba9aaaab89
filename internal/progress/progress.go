package progress

import (
	"io"
	"strconv"
	"sync"

	"github.com/cheggaaa/pb/v3"

	"github.com/August26/bridgecheck-go/internal/model"
)

const barTemplate = `{{string . "prefix"}} {{counters . }} {{bar . }} {{percent . }} {{string . "working"}} {{etime . }}`

// Bar shows one progress bar per source batch.
type Bar struct {
	w       io.Writer
	mu      sync.Mutex
	bar     *pb.ProgressBar
	working int
}

func NewBar(w io.Writer) *Bar {
	return &Bar{w: w}
}

func (b *Bar) Start(name string, total int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.working = 0
	b.bar = pb.New(total)
	b.bar.SetWriter(b.w)
	b.bar.SetTemplateString(barTemplate)
	b.bar.Set("prefix", "Testing "+name)
	b.bar.Set("working", "ok=0")
	b.bar.Start()
}

func (b *Bar) Observe(v model.Verdict) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar == nil {
		return
	}
	if v.Alive {
		b.working++
		b.bar.Set("working", "ok="+strconv.Itoa(b.working))
	}
	b.bar.Increment()
}

func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bar != nil {
		b.bar.Finish()
		b.bar = nil
	}
}

func (b *Bar) Current() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar == nil {
		return 0
	}
	return b.bar.Current()
}
