// Package prompt provides interactive terminal prompts for CLI commands.
package prompt

import (
	"errors"

	"github.com/manifoldco/promptui"
)

// ErrAborted is returned when the user cancels a prompt with Ctrl+C.
var ErrAborted = errors.New("aborted by user")

// TypedInput reads one line of free-form input under the given label.
// Destructive operations compare the result against their confirmation
// token themselves; this function never validates.
func TypedInput(label string) (string, error) {
	p := promptui.Prompt{Label: label}

	result, err := p.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) {
			return "", ErrAborted
		}
		return "", err
	}
	return result, nil
}
