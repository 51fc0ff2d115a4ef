package commands

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/mberenty7/tripo-tools/core"
)

const barWidth = 30

// progressRenderer draws progress events on w: a redrawn bar on a terminal,
// one line per event otherwise. A nil renderer ignores everything.
type progressRenderer struct {
	w     io.Writer
	tty   bool
	label string

	// mu is shared by renderers writing to the same w.
	mu    *sync.Mutex
	drawn bool
}

// newProgress returns the renderer for the current flags. Quiet and JSON
// modes render nothing.
func (a *App) newProgress() *progressRenderer {
	if a.quiet || a.jsonOutput {
		return nil
	}
	return &progressRenderer{w: a.stderr, tty: a.isTerminal(a.stderr), mu: &sync.Mutex{}}
}

// Update renders one event. It matches core.ProgressFunc.
func (r *progressRenderer) Update(ev core.ProgressEvent) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	pct := min(max(ev.Percent, 0), 100)
	prefix := ""
	if r.label != "" {
		prefix = r.label + " "
	}

	if !r.tty {
		fmt.Fprintf(r.w, "%s%3d%% %s\n", prefix, pct, ev.Status)
		return
	}

	filled := barWidth * pct / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	// \x1b[K clears the rest of a longer previous line.
	fmt.Fprintf(r.w, "\r%s[%s] %3d%% %s\x1b[K", prefix, bar, pct, ev.Status)
	r.drawn = true
}

// Done ends a bar line so following output starts on a fresh line.
func (r *progressRenderer) Done() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.drawn {
		fmt.Fprintln(r.w)
		r.drawn = false
	}
}
