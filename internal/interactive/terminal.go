package interactive

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"fxseries/internal/domain"

	"cloud.google.com/go/civil"
	"github.com/fatih/color"
	"golang.org/x/term"
)

const maxAttempts = 3

// ErrInputClosed is returned when the input ends before an answer was given.
var ErrInputClosed = errors.New("input closed")

type RangeValidator func(start, end civil.Date) error

// Terminal prompts on out and reads answers line by line from in.
type Terminal struct {
	out           io.Writer
	validateRange RangeValidator
	prompt        *color.Color
	warn          *color.Color

	in        *bufio.Scanner
	startOnce sync.Once
	lines     chan string
}

var _ InputPort = (*Terminal)(nil)

func (t *Terminal) DateRange(ctx context.Context, defaultStart, defaultEnd civil.Date) (civil.Date, civil.Date, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		start, err := t.askDate(ctx, "Start date", defaultStart)
		if err != nil {
			if errors.Is(err, domain.ErrValidation) {
				t.warnf("%v\n", err)
				continue
			}
			return civil.Date{}, civil.Date{}, err
		}
		end, err := t.askDate(ctx, "End date", defaultEnd)
		if err != nil {
			if errors.Is(err, domain.ErrValidation) {
				t.warnf("%v\n", err)
				continue
			}
			return civil.Date{}, civil.Date{}, err
		}
		if t.validateRange != nil {
			if err = t.validateRange(start, end); err != nil {
				t.warnf("%v\n", err)
				continue
			}
		}
		return start, end, nil
	}
	return civil.Date{}, civil.Date{}, fmt.Errorf("%w: no valid date range after %d attempts", domain.ErrValidation, maxAttempts)
}

func (t *Terminal) SelectPairs(ctx context.Context, available []string) ([]string, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		answer, err := t.ask(ctx, "Enter the currency pairs you want to save (comma-separated): ")
		if err != nil {
			return nil, err
		}
		entries := strings.Split(answer, ",")
		for _, e := range entries {
			if _, ok := matchColumn(e, available); ok {
				return entries, nil
			}
		}
		t.warnf("None of %q is available. Choose from: %s\n", answer, strings.Join(available, ", "))
	}
	return nil, fmt.Errorf("%w: no valid currency pairs selected after %d attempts", domain.ErrValidation, maxAttempts)
}

func (t *Terminal) SelectColumn(ctx context.Context, available []string) (string, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		answer, err := t.ask(ctx, "Enter the currency pair you want to analyze: ")
		if err != nil {
			return "", err
		}
		if column, ok := matchColumn(answer, available); ok {
			return column, nil
		}
		t.warnf("%s is not available in the data.\n", strings.TrimSpace(answer))
	}
	return "", fmt.Errorf("%w: no valid currency pair chosen after %d attempts", domain.ErrValidation, maxAttempts)
}

func (t *Terminal) askDate(ctx context.Context, label string, def civil.Date) (civil.Date, error) {
	answer, err := t.ask(ctx, fmt.Sprintf("%s (YYYY-MM-DD) [%s]: ", label, def))
	if err != nil {
		return civil.Date{}, err
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return def, nil
	}
	d, err := civil.ParseDate(answer)
	if err != nil {
		return civil.Date{}, fmt.Errorf("%w: %q is not a date in YYYY-MM-DD format", domain.ErrValidation, answer)
	}
	return d, nil
}

func (t *Terminal) ask(ctx context.Context, question string) (string, error) {
	_, _ = t.prompt.Fprint(t.out, question)
	return t.readLine(ctx)
}

// readLine waits for the next input line or ctx, whichever comes first. Lines are read
// by one goroutine for the life of the Terminal so a canceled wait does not lose input.
func (t *Terminal) readLine(ctx context.Context) (string, error) {
	t.startOnce.Do(func() {
		go func() {
			defer close(t.lines)
			for t.in.Scan() {
				t.lines <- t.in.Text()
			}
		}()
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-t.lines:
		if !ok {
			return "", ErrInputClosed
		}
		return line, nil
	}
}

func (t *Terminal) warnf(format string, args ...any) {
	_, _ = t.warn.Fprintf(t.out, format, args...)
}

// matchColumn finds raw among available, ignoring case and surrounding blanks.
func matchColumn(raw string, available []string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	for _, c := range available {
		if strings.EqualFold(raw, c) {
			return c, true
		}
	}
	return "", false
}

// NewTerminal reads from in and prompts on out. Colors are used only when out is a terminal.
// validateRange may be nil.
func NewTerminal(in io.Reader, out io.Writer, validateRange RangeValidator) *Terminal {
	t := &Terminal{
		out:           out,
		validateRange: validateRange,
		prompt:        color.New(color.FgCyan, color.Bold),
		warn:          color.New(color.FgYellow),
		in:            bufio.NewScanner(in),
		lines:         make(chan string),
	}
	if !isTerminal(out) {
		t.prompt.DisableColor()
		t.warn.DisableColor()
	}
	return t
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
