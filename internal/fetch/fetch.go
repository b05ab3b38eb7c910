// Package fetch downloads a remote resource to a local file, reporting
// progress after every chunk.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jbweber/vmtui/internal/logging"
)

var log = logging.ForComponent(logging.CompFetch)

// ChunkSize is the read size for each transfer step.
const ChunkSize = 8192

// ErrShortBody is returned when the connection closes before the declared
// size has been received.
var ErrShortBody = errors.New("transfer ended before declared size")

// Progress is the transfer state after a chunk.
type Progress struct {
	Written int64
	// Total is the declared size, or -1 when the server did not send one.
	Total int64
}

// Known reports whether the total size is known.
func (p Progress) Known() bool {
	return p.Total >= 0
}

// Fraction returns completion in [0,1] and whether it is determinate.
func (p Progress) Fraction() (float64, bool) {
	if !p.Known() {
		return 0, false
	}
	if p.Total == 0 {
		return 1, true
	}
	f := float64(p.Written) / float64(p.Total)
	if f > 1 {
		f = 1
	}
	return f, true
}

// Percent returns whole-number completion, or -1 when indeterminate.
func (p Progress) Percent() int {
	f, ok := p.Fraction()
	if !ok {
		return -1
	}
	return int(f * 100)
}

// String renders the progress for a status line.
func (p Progress) String() string {
	if !p.Known() {
		return humanize.IBytes(uint64(p.Written)) + " received"
	}
	return fmt.Sprintf("%s / %s (%d%%)",
		humanize.IBytes(uint64(p.Written)), humanize.IBytes(uint64(p.Total)), p.Percent())
}

// ProgressFunc is called after each chunk is written.
type ProgressFunc func(Progress)

// Fetcher downloads over HTTP.
type Fetcher struct {
	Client    *http.Client
	ChunkSize int
}

// New returns a Fetcher using client, or a default client when nil.
func New(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &Fetcher{Client: client, ChunkSize: ChunkSize}
}

// Fetch downloads url into dest, calling report after every chunk. On
// failure the partially written file is left in place.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string, report ProgressFunc) (Progress, error) {
	p := Progress{Total: -1}
	started := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return p, fmt.Errorf("failed to build request for %s: %w", url, err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return p, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return p, fmt.Errorf("failed to fetch %s: %s", url, resp.Status)
	}
	if resp.ContentLength >= 0 {
		p.Total = resp.ContentLength
	}

	out, err := os.Create(dest)
	if err != nil {
		return p, fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer out.Close()

	log.Info("fetch start", "url", url, "dest", dest, "total", p.Total)

	size := f.ChunkSize
	if size <= 0 {
		size = ChunkSize
	}
	buf := make([]byte, size)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return p, fmt.Errorf("failed to write %s: %w", dest, werr)
			}
			p.Written += int64(n)
			if report != nil {
				report(p)
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if errors.Is(rerr, io.ErrUnexpectedEOF) && p.Known() {
			break
		}
		if rerr != nil {
			return p, fmt.Errorf("failed reading %s after %d bytes: %w", url, p.Written, rerr)
		}
	}

	if err := out.Close(); err != nil {
		return p, fmt.Errorf("failed to close %s: %w", dest, err)
	}
	if p.Known() && p.Written != p.Total {
		return p, fmt.Errorf("%s: got %d of %d bytes: %w", url, p.Written, p.Total, ErrShortBody)
	}

	log.Info("fetch done", "url", url, "bytes", p.Written, "duration", time.Since(started))
	return p, nil
}
