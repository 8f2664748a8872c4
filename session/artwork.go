package session

import (
	"context"
	"fmt"
	"io"
	"time"
)

const maxArtworkBytes = 16 << 20

type artworkResult struct {
	data []byte
	err  error
}

// readArtwork reads the whole artwork stream into memory. It gives up once
// timeout elapses even if the underlying reader ignores the context.
func readArtwork(ctx context.Context, open ArtworkOpener, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rc, err := open(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open artwork: %w", err)
	}
	if rc == nil {
		return nil, nil
	}

	ch := make(chan artworkResult, 1)
	go func() {
		data, err := io.ReadAll(io.LimitReader(rc, maxArtworkBytes+1))
		ch <- artworkResult{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		rc.Close()
		return nil, fmt.Errorf("failed to read artwork: %w", ctx.Err())
	case res := <-ch:
		rc.Close()
		if res.err != nil {
			return nil, fmt.Errorf("failed to read artwork: %w", res.err)
		}
		if len(res.data) > maxArtworkBytes {
			return nil, fmt.Errorf("artwork exceeds %d bytes", maxArtworkBytes)
		}
		if len(res.data) == 0 {
			return nil, nil
		}
		return res.data, nil
	}
}
