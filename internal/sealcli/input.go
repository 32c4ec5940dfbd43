package sealcli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var errPassphraseMismatch = errors.New("passphrases do not match")

// GetPassphrase prompts twice on the terminal without echo and returns the
// passphrase when both entries match.
func GetPassphrase(w io.Writer) ([]byte, error) {
	first, err := prompt(w, "Enter passphrase: ")
	if err != nil {
		return nil, err
	}
	second, err := prompt(w, "Repeat passphrase: ")
	if err != nil {
		return nil, err
	}
	if string(first) != string(second) {
		return nil, errPassphraseMismatch
	}
	if len(first) == 0 {
		return nil, errors.New("empty passphrase")
	}
	return first, nil
}

func prompt(w io.Writer, text string) ([]byte, error) {
	if _, err := fmt.Fprint(w, text); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}
