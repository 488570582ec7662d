package cmd

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// scanProgress draws one bar step per finished lookup.
type scanProgress struct {
	bar     *progressbar.ProgressBar
	mu      sync.Mutex
	ok      int
	fail    int
	started time.Time
}

func newScanProgress(total int, out io.Writer) *scanProgress {
	if total <= 0 {
		total = 1
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("scanning"),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionThrottle(100*time.Millisecond),
	)
	return &scanProgress{bar: bar, started: time.Now()}
}

// Done matches scan.BundleOptions.OnDone and may be called concurrently.
func (p *scanProgress) Done(lookup string, err error) {
	p.mu.Lock()
	if err != nil {
		p.fail++
	} else {
		p.ok++
	}
	desc := fmt.Sprintf("%s done (ok:%d fail:%d)", lookup, p.ok, p.fail)
	p.mu.Unlock()

	p.bar.Describe(desc)
	_ = p.bar.Add(1)
}

func (p *scanProgress) Counts() (ok, fail int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ok, p.fail
}

func (p *scanProgress) Finish() time.Duration {
	_ = p.bar.Finish()
	return time.Since(p.started)
}
