// Package upload admits inbound video payloads onto the processing volume
// under quota, free-space, and size-limit constraints. An admitted upload
// becomes a TempAsset whose removal and ledger decrement are guaranteed to
// happen exactly once on every exit path.
package upload

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/visionsense/video-features-service/internal/domain/entity"
	"github.com/visionsense/video-features-service/internal/infra/metrics"
)

const minChunkBytes = 64 * 1024

// Config carries the resource limits enforced by the guard.
type Config struct {
	Dir            string
	MaxUploadBytes int64
	ChunkBytes     int64
	MinFreeBytes   int64
}

// TempAsset is an admitted upload held on the temp volume.
type TempAsset struct {
	Path      string
	Size      int64
	CreatedAt time.Time

	once    sync.Once
	release func()
}

// Release deletes the file and returns its bytes to the ledger. Safe to call
// more than once; only the first call takes effect.
func (a *TempAsset) Release() {
	a.once.Do(a.release)
}

// Guard streams inbound payloads to isolated temp files and enforces the
// admission checks before any byte is written.
type Guard struct {
	ledger *Ledger
	cfg    Config
	logger *zap.Logger

	// diskFree is swapped out in tests.
	diskFree func(path string) (int64, error)
}

func NewGuard(ledger *Ledger, cfg Config, logger *zap.Logger) (*Guard, error) {
	if cfg.ChunkBytes < minChunkBytes {
		cfg.ChunkBytes = minChunkBytes
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp volume dir: %w", err)
	}
	return &Guard{ledger: ledger, cfg: cfg, logger: logger, diskFree: diskFree}, nil
}

// Receive admits and streams one upload. declaredSize is the client-declared
// byte count, or negative when unknown; the worst case is then reserved and
// settled down at commit. suffix is appended to the temp file name so the
// decoder can sniff the container from the extension.
//
// On success the returned TempAsset is in the Admitted state and the ledger
// reflects its size. On any failure nothing is left on disk and the ledger
// is unchanged.
func (g *Guard) Receive(ctx context.Context, body io.Reader, declaredSize int64, suffix string) (*TempAsset, error) {
	if declaredSize > g.cfg.MaxUploadBytes {
		metrics.UploadRejectedTotal.WithLabelValues("too_large").Inc()
		return nil, fmt.Errorf("declared %d bytes: %w", declaredSize, entity.ErrUploadTooLarge)
	}

	estimate := declaredSize
	if estimate < 0 {
		estimate = g.cfg.MaxUploadBytes
	}

	if !g.ledger.Reserve(estimate) {
		metrics.UploadRejectedTotal.WithLabelValues("quota").Inc()
		return nil, entity.ErrQuotaExceeded
	}

	free, err := g.diskFree(g.cfg.Dir)
	if err != nil {
		g.ledger.Cancel(estimate)
		return nil, fmt.Errorf("probe free space: %w", err)
	}
	if free-estimate < g.cfg.MinFreeBytes {
		g.ledger.Cancel(estimate)
		metrics.UploadRejectedTotal.WithLabelValues("no_space").Inc()
		return nil, entity.ErrInsufficientSpace
	}

	path := filepath.Join(g.cfg.Dir, "vs_"+uuid.NewString()+suffix)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		g.ledger.Cancel(estimate)
		return nil, fmt.Errorf("create temp asset: %w", err)
	}

	written, reserved, err := g.stream(ctx, file, body, estimate)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err == nil && written == 0 {
		metrics.UploadRejectedTotal.WithLabelValues("empty").Inc()
		err = entity.ErrEmptyUpload
	}
	if err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			g.logger.Warn("failed to remove rejected upload", zap.String("path", path), zap.Error(rmErr))
		}
		g.ledger.Cancel(reserved)
		return nil, err
	}

	g.ledger.Commit(reserved, written)
	metrics.TempVolumeBytes.Set(float64(g.ledger.Used()))

	asset := &TempAsset{
		Path:      path,
		Size:      written,
		CreatedAt: time.Now().UTC(),
	}
	asset.release = func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			g.logger.Warn("failed to remove temp asset", zap.String("path", path), zap.Error(err))
		}
		g.ledger.Release(written)
		metrics.TempVolumeBytes.Set(float64(g.ledger.Used()))
	}
	return asset, nil
}

// stream copies body to dst in bounded chunks, enforcing the per-upload size
// cap on the running counter. Content-Length is not trusted: a stream that
// outruns its declared size must grow the ledger reservation, and pass the
// free-space floor again, before the overage lands on the volume. Returns
// the bytes written and the final reservation held, which the caller settles
// or cancels in full.
func (g *Guard) stream(ctx context.Context, dst io.Writer, src io.Reader, reserved int64) (int64, int64, error) {
	buf := make([]byte, g.cfg.ChunkBytes)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, reserved, err
		}
		n, readErr := src.Read(buf)
		if n > 0 {
			written += int64(n)
			if written > g.cfg.MaxUploadBytes {
				metrics.UploadRejectedTotal.WithLabelValues("too_large").Inc()
				return written, reserved, fmt.Errorf("received %d bytes: %w", written, entity.ErrUploadTooLarge)
			}
			if written > reserved {
				delta := written - reserved
				if !g.ledger.Reserve(delta) {
					metrics.UploadRejectedTotal.WithLabelValues("quota").Inc()
					return written, reserved, fmt.Errorf("received %d bytes against a %d-byte reservation: %w", written, reserved, entity.ErrQuotaExceeded)
				}
				reserved += delta
				free, err := g.diskFree(g.cfg.Dir)
				if err != nil {
					return written, reserved, fmt.Errorf("probe free space: %w", err)
				}
				if free-delta < g.cfg.MinFreeBytes {
					metrics.UploadRejectedTotal.WithLabelValues("no_space").Inc()
					return written, reserved, entity.ErrInsufficientSpace
				}
			}
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return written, reserved, fmt.Errorf("write chunk: %w", writeErr)
			}
		}
		if readErr == io.EOF {
			return written, reserved, nil
		}
		if readErr != nil {
			return written, reserved, fmt.Errorf("read chunk: %w", readErr)
		}
	}
}

func diskFree(path string) (int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return int64(st.Bavail) * int64(st.Bsize), nil
}
