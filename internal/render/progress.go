package render

import (
	"fmt"
	"io"
	"sync"

	"git.home.luguber.info/inful/sitegraph/internal/content"
)

// Progress writes one line per finished page. Writes from concurrent
// workers are serialized; a nil Progress discards everything.
type Progress struct {
	mu     sync.Mutex
	w      io.Writer
	total  int
	done   int
	failed int
}

// NewProgress writes progress lines to w.
func NewProgress(w io.Writer) *Progress {
	return &Progress{w: w}
}

// Start resets the counters for a run of total pages.
func (p *Progress) Start(total int) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total, p.done, p.failed = total, 0, 0
}

// Done records a finished page.
func (p *Progress) Done(page *content.Page, err error) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	if err != nil {
		p.failed++
		_, _ = fmt.Fprintf(p.w, "[%d/%d] FAIL %s: %v\n", p.done, p.total, page.RelPath, err)
		return
	}
	_, _ = fmt.Fprintf(p.w, "[%d/%d] %s\n", p.done, p.total, page.URL())
}

// Counts returns finished and failed page counts.
func (p *Progress) Counts() (done, failed int) {
	if p == nil {
		return 0, 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done, p.failed
}
