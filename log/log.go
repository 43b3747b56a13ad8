package log

import (
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"

	"github.com/qolzam/telar-db/interfaces"
)

// Console writes colored, level-prefixed lines. It is the logger used when
// the caller does not supply one.
type Console struct {
	w io.Writer
}

// Default returns a console logger writing to standard output.
func Default() *Console {
	return &Console{w: color.Output}
}

// NewConsole returns a console logger writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Debugf(format string, a ...any) {
	debug := color.New(color.FgCyan).SprintFunc()
	fmt.Fprintf(c.w, "%s ", debug("[DEBUG]"))
	fmt.Fprintf(c.w, format, a...)
	fmt.Fprintln(c.w)
}

func (c *Console) Infof(format string, a ...any) {
	info := color.New(color.FgWhite, color.BgGreen).SprintFunc()
	fmt.Fprintf(c.w, "%s ", info("[INFO] "))
	fmt.Fprintf(c.w, format, a...)
	fmt.Fprintln(c.w)
}

func (c *Console) Warnf(format string, a ...any) {
	warn := color.New(color.FgWhite, color.BgYellow).SprintFunc()
	fmt.Fprintf(c.w, "%s ", warn("[WARN] "))
	fmt.Fprintf(c.w, format, a...)
	fmt.Fprintln(c.w)
}

func (c *Console) Errorf(format string, a ...any) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(c.w, "%s ", red("[Error]"))
	fmt.Fprintf(c.w, format, a...)
	fmt.Fprintln(c.w)
}

// Dump writes a spew dump of the given values, useful when a log line needs
// a full document or option struct.
func (c *Console) Dump(a ...any) {
	fmt.Fprint(c.w, spew.Sdump(a...))
}

// Nop discards everything. Handy in tests.
type Nop struct{}

func (Nop) Debugf(string, ...any) {}
func (Nop) Infof(string, ...any)  {}
func (Nop) Warnf(string, ...any)  {}
func (Nop) Errorf(string, ...any) {}

var (
	_ interfaces.Logger = (*Console)(nil)
	_ interfaces.Logger = Nop{}
)
