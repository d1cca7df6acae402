// Package handler implements the intake views as line-oriented terminal pages.
package handler

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"medai-intake/internal/render"
)

// Commands accepted at any prompt.
const (
	cmdBack = "/back"
	cmdQuit = "/quit"
)

// Terminal reads answers line by line and writes rendered output.
type Terminal struct {
	in     *bufio.Reader
	out    io.Writer
	styles render.Styles
}

func NewTerminal(in io.Reader, out io.Writer) (*Terminal, error) {
	if in == nil || out == nil {
		return nil, errors.New("handler: terminal needs both input and output")
	}
	return &Terminal{in: bufio.NewReader(in), out: out, styles: render.For(out)}, nil
}

// Ask prints label and returns the next trimmed line. ok is false once input
// is exhausted.
func (t *Terminal) Ask(label string) (answer string, ok bool) {
	if label != "" {
		fmt.Fprintf(t.out, "%s\n> ", label)
	}
	line, err := t.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", false
	}
	return strings.TrimSpace(line), true
}

func (t *Terminal) Println(s string) {
	fmt.Fprintln(t.out, s)
}

func (t *Terminal) Alert(msg string) {
	t.Println(t.styles.AlertBox(msg))
}

func (t *Terminal) Styles() render.Styles {
	return t.styles
}
