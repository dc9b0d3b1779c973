package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
// In tests you can replace it with a stub to avoid touching the terminal.
var readPassword = term.ReadPassword

// Keys returned by readKey.
const (
	keyEnter  = '\r'
	keyEscape = 0x1b
)

// readKey waits for a single key press. It is a test seam.
var readKey = readTerminalKey

// readTerminalKey puts stdin into raw mode for one key. When stdin is not a
// terminal it falls back to reading a line from reader; an empty line counts
// as Enter.
func readTerminalKey(reader *bufio.Reader) (byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
			return 0, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return keyEnter, nil
		}
		return line[0], nil
	}

	old, err := term.MakeRaw(fd)
	if err != nil {
		return 0, err
	}
	defer term.Restore(fd, old)

	var b [1]byte
	if _, err := os.Stdin.Read(b[:]); err != nil {
		return 0, err
	}
	if b[0] == '\n' {
		return keyEnter, nil
	}
	return b[0], nil
}

// GetSimpleText prints a prompt to w and reads a single line of input from reader.
// The trailing newline is trimmed. If EOF occurs after some input was read,
// the partial line is returned.
//
// Example prompt format:
//
//	Prompt text
//	> _
func GetSimpleText(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n> "); err != nil {
		return "", err
	}
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// GetToken reads an access token from the terminal without echo.
func GetToken(w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, "Access token: "); err != nil {
		return "", err
	}
	tok, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(tok)), nil
}

// GetMultiline prints a prompt to w and reads multiple lines until an empty
// line is entered. The collected text is joined with '\n'.
func GetMultiline(reader *bufio.Reader, prompt string, w io.Writer) (string, error) {
	if _, err := fmt.Fprint(w, prompt+"\n(press Enter on an empty line to finish)\n"); err != nil {
		return "", err
	}

	var lines []string
	for {
		line, err := reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		lines = append(lines, line)
		if err != nil {
			break
		}
	}

	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}
