package poller

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/calebmd/radpace/internal/model"
)

// FileSource reads captures from a spool file the window-automation layer
// appends to, one capture per line in the form:
//
//	<accession text>\t<procedure text>
//
// It remembers how far it has read, so each line is delivered exactly once
// per process. Procedure text may embed newlines as "\n" escapes for
// multi-accession captures carrying per-accession lines.
type FileSource struct {
	path   string
	offset int64
	clock  func() time.Time
	mu     sync.Mutex
}

// NewFileSource creates a file-backed capture source. The file does not
// need to exist yet; a missing file is simply "nothing captured".
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path, clock: time.Now}
}

// Extract returns the next unread capture line, or (nil, nil) when the
// spool has nothing new.
func (f *FileSource) Extract(ctx context.Context) (*model.RawCapture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.Open(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open capture spool: %w", err)
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Seek(f.offset, 0); err != nil {
		return nil, fmt.Errorf("failed to seek capture spool: %w", err)
	}

	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadString('\n')
		if line == "" && err != nil {
			// Nothing new appended yet.
			return nil, nil
		}
		if !strings.HasSuffix(line, "\n") {
			// Partial line still being written; retry next tick.
			return nil, nil
		}
		f.offset += int64(len(line))

		cap, ok := f.parse(strings.TrimRight(line, "\r\n"))
		if !ok {
			continue
		}
		return cap, nil
	}
}

func (f *FileSource) parse(line string) (*model.RawCapture, bool) {
	if strings.TrimSpace(line) == "" {
		return nil, false
	}
	accession, procedure, found := strings.Cut(line, "\t")
	if !found {
		return nil, false
	}
	return &model.RawCapture{
		AccessionText: strings.TrimSpace(accession),
		ProcedureText: strings.ReplaceAll(procedure, `\n`, "\n"),
		CaptureTime:   f.clock(),
	}, true
}
