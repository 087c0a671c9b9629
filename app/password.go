package app

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// passwordReader reads passwords without echo from a terminal, or one per
// line from anything else.
type passwordReader struct {
	out  io.Writer
	fd   int
	tty  bool
	line *bufio.Reader
}

func newPasswordReader(in io.Reader, out io.Writer) *passwordReader {
	r := &passwordReader{out: out, line: bufio.NewReader(in)}

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		r.fd = int(f.Fd())
		r.tty = true
	}

	return r
}

func (r *passwordReader) read(prompt string) (string, error) {
	if !r.tty {
		s, err := r.line.ReadString('\n')
		if err != nil && (err != io.EOF || s == "") {
			return "", fmt.Errorf("could not read password: %w", err)
		}

		return strings.TrimRight(s, "\r\n"), nil
	}

	_, _ = fmt.Fprint(r.out, prompt)

	b, err := term.ReadPassword(r.fd)

	_, _ = fmt.Fprintln(r.out)

	if err != nil {
		return "", fmt.Errorf("could not read password: %w", err)
	}

	return string(b), nil
}

// readNew reads a password and its confirmation.
func (r *passwordReader) readNew() (string, error) {
	first, err := r.read("Password: ")
	if err != nil {
		return "", err
	}

	second, err := r.read("Repeat password: ")
	if err != nil {
		return "", err
	}

	if first != second {
		return "", ErrPasswordMismatch
	}

	return first, nil
}
