package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cast"
	"golang.org/x/term"
)

// prompt prints label and reads one trimmed line. ok is false once input is
// exhausted.
func prompt(sc *bufio.Scanner, label string) (string, bool) {
	fmt.Print(label)
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

func promptInt(sc *bufio.Scanner, label string) (int, bool) {
	s, ok := prompt(sc, label)
	if !ok {
		return 0, false
	}
	n, err := cast.ToIntE(s)
	if err != nil {
		fmt.Printf("Invalid number: %s\n", s)
		return 0, false
	}
	return n, true
}

func promptFloat(sc *bufio.Scanner, label string) (float64, bool) {
	s, ok := prompt(sc, label)
	if !ok {
		return 0, false
	}
	f, err := cast.ToFloat64E(s)
	if err != nil {
		fmt.Printf("Invalid amount: %s\n", s)
		return 0, false
	}
	return f, true
}

// promptIntDefault reads a number, keeping def when the line is blank.
func promptIntDefault(sc *bufio.Scanner, label string, def int) (int, bool) {
	s, ok := prompt(sc, fmt.Sprintf("%s [%d]: ", label, def))
	if !ok {
		return 0, false
	}
	if s == "" {
		return def, true
	}
	n, err := cast.ToIntE(s)
	if err != nil {
		fmt.Printf("Invalid number: %s\n", s)
		return 0, false
	}
	return n, true
}

func promptFloatDefault(sc *bufio.Scanner, label string, def float64) (float64, bool) {
	s, ok := prompt(sc, fmt.Sprintf("%s [%.2f]: ", label, def))
	if !ok {
		return 0, false
	}
	if s == "" {
		return def, true
	}
	f, err := cast.ToFloat64E(s)
	if err != nil {
		fmt.Printf("Invalid amount: %s\n", s)
		return 0, false
	}
	return f, true
}

func promptStringDefault(sc *bufio.Scanner, label, def string) (string, bool) {
	s, ok := prompt(sc, fmt.Sprintf("%s [%s]: ", label, def))
	if !ok {
		return "", false
	}
	if s == "" {
		return def, true
	}
	return s, true
}

// readPassword reads a password with masking when stdin is a terminal, and
// falls back to a plain line for piped input.
func readPassword(sc *bufio.Scanner, label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		s, ok := prompt(sc, label)
		if !ok {
			return "", fmt.Errorf("no input")
		}
		return s, nil
	}
	fmt.Print(label)
	bytePassword, err := term.ReadPassword(fd)
	if err != nil {
		return "", err
	}
	fmt.Println() // Add newline after password input
	return strings.TrimSpace(string(bytePassword)), nil
}

// truncateString truncates a string to maxLen characters, adding "..." if needed
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
