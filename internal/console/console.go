// Package console is the interactive terminal: one goroutine owns
// standard input and hands out whole lines, output is serialised so
// the chat loops and the menu never interleave mid-line.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/term"
)

const (
	// Title is printed at the top of every screen.
	Title = "Socket Programming Utility"

	// PressEnter is the prompt shown before returning to the menu.
	PressEnter = "Press Enter to return to main menu..."

	clearSeq     = "\033[H\033[2J"
	defaultWidth = 50
)

// Console reads lines from in and writes to out.  It is safe for
// concurrent use.
type Console struct {
	in  io.Reader
	out io.Writer
	mu  sync.Mutex
	tty bool

	once  sync.Once
	lines chan string
	err   error // set before lines is closed

	r      *lipgloss.Renderer
	title  lipgloss.Style
	good   lipgloss.Style
	warn   lipgloss.Style
	bad    lipgloss.Style
	dimmed lipgloss.Style
}

// New returns a console over in and out.
func New(in io.Reader, out io.Writer) *Console {
	c := &Console{in: in, out: out, lines: make(chan string)}
	if f, ok := out.(*os.File); ok {
		c.tty = term.IsTerminal(int(f.Fd()))
	}
	c.r = lipgloss.NewRenderer(out)
	c.title = c.r.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))
	c.good = c.r.NewStyle().Foreground(lipgloss.Color("2"))
	c.warn = c.r.NewStyle().Foreground(lipgloss.Color("3"))
	c.bad = c.r.NewStyle().Foreground(lipgloss.Color("1"))
	c.dimmed = c.r.NewStyle().Foreground(lipgloss.Color("245"))
	return c
}

// Std returns a console over the process's standard streams.
func Std() *Console { return New(os.Stdin, os.Stdout) }

// ── Input ────────────────────────────────────────────────────────────

// start launches the reader goroutine.  It lives until input ends and
// is never joined: a line nobody asked for yet stays queued for the
// next reader rather than being lost.
func (c *Console) start() {
	c.once.Do(func() {
		go func() {
			sc := bufio.NewScanner(c.in)
			for sc.Scan() {
				c.lines <- strings.TrimRight(sc.Text(), "\r")
			}
			c.err = sc.Err()
			if c.err == nil {
				c.err = io.EOF
			}
			close(c.lines)
		}()
	})
}

// Lines returns the shared stream of input lines.  The channel is
// closed at end of input.
func (c *Console) Lines() <-chan string {
	c.start()
	return c.lines
}

// ReadLine prints prompt and waits for the next line.  It returns
// io.EOF at end of input and ctx.Err() if ctx ends first.
func (c *Console) ReadLine(ctx context.Context, prompt string) (string, error) {
	c.start()
	if prompt != "" {
		c.Print(prompt)
	}
	select {
	case line, ok := <-c.lines:
		if !ok {
			return "", c.err
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Ask is ReadLine with surrounding whitespace removed and def
// substituted for an empty answer.
func (c *Console) Ask(ctx context.Context, prompt, def string) (string, error) {
	line, err := c.ReadLine(ctx, prompt)
	if err != nil {
		return "", err
	}
	if line = strings.TrimSpace(line); line == "" {
		return def, nil
	}
	return line, nil
}

// Pause waits for Enter.  End of input counts as Enter.
func (c *Console) Pause(ctx context.Context, prompt string) {
	c.Println()
	c.ReadLine(ctx, prompt) //nolint:errcheck
}

// ── Output ───────────────────────────────────────────────────────────

// Write implements io.Writer.
func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out.Write(p)
}

// Print writes its arguments like fmt.Print.
func (c *Console) Print(args ...any) { fmt.Fprint(c, args...) }

// Println writes its arguments like fmt.Println.
func (c *Console) Println(args ...any) { fmt.Fprintln(c, args...) }

// Printf writes a formatted string.
func (c *Console) Printf(format string, args ...any) { fmt.Fprintf(c, format, args...) }

// Success, Warning and Failure print one styled status line.
func (c *Console) Success(format string, args ...any) {
	c.Println(c.good.Render(fmt.Sprintf(format, args...)))
}

func (c *Console) Warning(format string, args ...any) {
	c.Println(c.warn.Render(fmt.Sprintf(format, args...)))
}

func (c *Console) Failure(format string, args ...any) {
	c.Println(c.bad.Render(fmt.Sprintf(format, args...)))
}

// Clear wipes the screen.  Non-terminal output is left alone.
func (c *Console) Clear() {
	if c.tty {
		c.Print(clearSeq)
	}
}

// Header clears the screen and prints the title banner.
func (c *Console) Header() {
	c.Clear()
	rule := strings.Repeat("=", c.width())
	c.Println(rule)
	c.Println(c.title.Render(center(Title, c.width())))
	c.Println(rule)
	c.Println()
}

// Section prints a sub-heading.
func (c *Console) Section(name string) {
	c.Println(c.title.Render("--- " + name + " ---"))
}

// Table prints rows as aligned columns with an optional dimmed header.
func (c *Console) Table(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		Rows(rows...)
	if len(headers) > 0 {
		t.Headers(headers...)
	}
	header := c.dimmed.PaddingRight(2)
	data := c.r.NewStyle().PaddingRight(2)
	t.StyleFunc(func(row, _ int) lipgloss.Style {
		if row == table.HeaderRow {
			return header
		}
		return data
	})
	c.Println(t)
}

func (c *Console) width() int {
	if !c.tty {
		return defaultWidth
	}
	w, _, err := term.GetSize(int(c.out.(*os.File).Fd()))
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return min(w, defaultWidth)
}

func center(s string, width int) string {
	if pad := (width - len(s)) / 2; pad > 0 {
		return strings.Repeat(" ", pad) + s
	}
	return s
}
