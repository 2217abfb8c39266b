package util

import (
	"fmt"
	"os"

	"golang.org/x/crypto/ssh/terminal"
)

// PathExists reports whether anything exists at path, file or directory.
func PathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func StdinIsTerminal() bool {
	return terminal.IsTerminal(0)
}

// PromptPassword prompts for input on the console, hiding what is typed.
func PromptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	d, err := terminal.ReadPassword(0)
	fmt.Println()
	return string(d), err
}
