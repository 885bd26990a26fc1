package batch

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// LineError reports an invalid asset id in a list.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: invalid asset id %q: %v", e.Line, e.Text, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

// ReadIDs parses one asset id per line. Blank lines and lines starting with
// '#' are skipped. Every valid id is returned; invalid lines are reported
// together as *LineError values joined into err.
func ReadIDs(r io.Reader) ([]uuid.UUID, error) {
	var (
		ids  []uuid.UUID
		errs []error
	)
	sc := bufio.NewScanner(r)
	for n := 1; sc.Scan(); n++ {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		id, err := uuid.Parse(line)
		if err != nil {
			errs = append(errs, &LineError{Line: n, Text: line, Err: err})
			continue
		}
		ids = append(ids, id)
	}
	if err := sc.Err(); err != nil {
		return ids, fmt.Errorf("batch: read id list: %w", err)
	}
	return ids, errors.Join(errs...)
}
