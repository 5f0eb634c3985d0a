package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophfocus/internal/client/strategy"
	"github.com/dmitrijs2005/gophfocus/internal/common"
	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
// In tests you can replace it with a stub to avoid touching the terminal.
var readPassword = term.ReadPassword

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

// GetPassword prints a password prompt to w and reads a password
// from the user's terminal without echo. A newline is printed after
// the read to keep the UI tidy.
//
// The returned byte slice should be wiped by the caller when no longer needed.
func GetPassword(w io.Writer) ([]byte, error) {
	if _, err := fmt.Fprint(w, "Enter password: "); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

// GetList reads a comma separated line into trimmed, non-empty items.
func GetList(reader *bufio.Reader, prompt string, w io.Writer) ([]string, error) {
	line, err := GetSimpleText(reader, prompt+" (comma separated, empty for none)", w)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, item := range strings.Split(line, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out, nil
}

// Prompter is the terminal side of start/stop handshakes. The camera and
// NFC reader are stood in for by typing the token value.
type Prompter struct {
	reader *bufio.Reader
	w      io.Writer
}

var _ strategy.Handoff = (*Prompter)(nil)

func NewPrompter(reader *bufio.Reader, w io.Writer) *Prompter {
	return &Prompter{reader: reader, w: w}
}

// ScanToken asks for a tag or code value. An empty answer cancels.
func (p *Prompter) ScanToken(ctx context.Context, kind strategy.TokenKind, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	token, err := GetSimpleText(p.reader, fmt.Sprintf("[%s] %s (empty to cancel)", kind, prompt), p.w)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", common.ErrScanCancelled
	}
	return token, nil
}

// PickDuration asks for a session length. An empty answer cancels and "d"
// takes the default.
func (p *Prompter) PickDuration(ctx context.Context, def time.Duration) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	answer, err := GetSimpleText(p.reader, fmt.Sprintf("Session length, e.g. 45m ('d' for %s, empty to cancel)", def), p.w)
	if err != nil {
		return 0, err
	}
	switch answer {
	case "":
		return 0, common.ErrScanCancelled
	case "d":
		return def, nil
	}
	d, err := time.ParseDuration(answer)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: invalid duration %q", common.ErrValidation, answer)
	}
	return d, nil
}
