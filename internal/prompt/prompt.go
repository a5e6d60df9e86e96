// Package prompt asks single key yes/no questions on the terminal.
package prompt

import (
	"fmt"
	"io"
	"os"

	"github.com/eiannone/keyboard"
	"github.com/pkg/errors"
)

// getKey is overridden in tests
var getKey = func() (rune, keyboard.Key, error) {
	return keyboard.GetSingleKey()
}

// Keyboard confirms by reading a single key press. Only y or Y accepts.
type Keyboard struct {
	Out io.Writer
}

// NewKeyboard returns a prompt writing to out, or to stdout when out is nil
func NewKeyboard(out io.Writer) *Keyboard {
	if out == nil {
		out = os.Stdout
	}
	return &Keyboard{Out: out}
}

// Confirm prints the question and waits for a key
func (k *Keyboard) Confirm(question string) (bool, error) {
	fmt.Fprintf(k.Out, "%s [y/N] ", question)

	char, key, err := getKey()
	if err != nil {
		fmt.Fprintln(k.Out)
		return false, errors.Wrap(err, "read key")
	}

	accepted := key == 0 && (char == 'y' || char == 'Y')
	if accepted {
		fmt.Fprintln(k.Out, "y")
	} else {
		fmt.Fprintln(k.Out, "n")
	}
	return accepted, nil
}
