package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/invoiceclient/internal/client/client"
	"github.com/dmitrijs2005/invoiceclient/internal/client/services"
)

// syncWriter serializes writes from the REPL and from push handlers.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

// Navigator tracks the current route. Redirects are announced on out.
type Navigator struct {
	out io.Writer

	mu      sync.Mutex
	current string
}

var _ client.Navigator = (*Navigator)(nil)

func NewNavigator(out io.Writer) *Navigator {
	return &Navigator{out: out, current: "/"}
}

// Navigate is used for redirects: it announces and records path.
func (n *Navigator) Navigate(_ context.Context, path string) {
	n.enter(path)
	fmt.Fprintf(n.out, "-> redirected to %s\n", path)
}

func (n *Navigator) enter(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.current = path
}

func (n *Navigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Toaster prints toasts as single tagged lines.
type Toaster struct {
	out io.Writer
}

var _ services.Toaster = (*Toaster)(nil)

func NewToaster(out io.Writer) *Toaster {
	return &Toaster{out: out}
}

// Toast ignores timeout; a terminal line does not expire.
func (t *Toaster) Toast(level, title, message string, _ time.Duration) {
	if title == "" {
		fmt.Fprintf(t.out, "[%s] %s\n", strings.ToUpper(level), message)
		return
	}
	fmt.Fprintf(t.out, "[%s] %s: %s\n", strings.ToUpper(level), title, message)
}

// DocumentSink records the locale attributes of the active language.
type DocumentSink struct {
	mu   sync.Mutex
	lang string
	dir  string
}

var _ services.Document = (*DocumentSink)(nil)

func (d *DocumentSink) SetLocale(lang, dir string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lang, d.dir = lang, dir
}

func (d *DocumentSink) Locale() (lang, dir string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lang, d.dir
}
