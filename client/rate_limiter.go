package client

import (
	"context"
	"io"
	"math"
	"sync"

	"golang.org/x/time/rate"
)

var (
	globalDownloadLimiter *rate.Limiter
	rateLimiterMu         sync.RWMutex
)

// SetGlobalDownloadRateLimit caps archive downloads at bytesPerSecond. Zero or less removes the cap.
func SetGlobalDownloadRateLimit(bytesPerSecond int64) {
	rateLimiterMu.Lock()
	defer rateLimiterMu.Unlock()

	if bytesPerSecond <= 0 {
		globalDownloadLimiter = nil
		return
	}
	burst := int(min(bytesPerSecond, math.MaxInt32))
	if globalDownloadLimiter == nil {
		globalDownloadLimiter = rate.NewLimiter(rate.Limit(bytesPerSecond), burst)
		return
	}
	globalDownloadLimiter.SetLimit(rate.Limit(bytesPerSecond))
	globalDownloadLimiter.SetBurst(burst)
}

type limitedReader struct {
	ctx   context.Context
	under io.Reader
	lim   *rate.Limiter
}

func (lr *limitedReader) Read(p []byte) (int, error) {
	if burst := lr.lim.Burst(); len(p) > burst {
		p = p[:burst]
	}
	n, err := lr.under.Read(p)
	if n > 0 {
		if werr := lr.lim.WaitN(lr.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}

func wrapWithGlobalRateLimiter(ctx context.Context, r io.Reader) io.Reader {
	rateLimiterMu.RLock()
	lim := globalDownloadLimiter
	rateLimiterMu.RUnlock()

	if lim == nil {
		return r
	}
	return &limitedReader{ctx: ctx, under: r, lim: lim}
}
