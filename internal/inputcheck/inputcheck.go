// Package inputcheck verifies that the mezzanine a manifest references is the
// file actually on disk before any reservation or encoder work happens. A
// checksum or size mismatch here is terminal: the source is wrong, and no
// amount of retrying fixes wrong bytes.
package inputcheck

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"

	"mezzpress/internal/manifest"
	"mezzpress/internal/objectstore"
	"mezzpress/internal/services"
)

// Options bounds what the checker accepts.
type Options struct {
	// MaxSourceSizeBytes rejects pathologically large sources before the
	// checksum pass. Zero disables the gate.
	MaxSourceSizeBytes int64
}

// Checker validates mezzanine sources against their manifests.
type Checker struct {
	sources *objectstore.Store
	opts    Options
}

// New returns a checker reading sources from the given store.
func New(sources *objectstore.Store, opts Options) *Checker {
	return &Checker{sources: sources, opts: opts}
}

// Verify confirms the mezzanine exists with the declared size and MD5
// checksum. The checksum pass streams the file, so memory stays flat
// regardless of source size.
func (c *Checker) Verify(ctx context.Context, m *manifest.Manifest) error {
	rel := m.Mezzanine.FilePath

	info, err := c.sources.Stat(rel)
	if err != nil {
		return services.Wrap(services.ErrInput, "inputcheck", "stat", fmt.Sprintf("mezzanine %s", rel), err)
	}
	if info.Size != m.Mezzanine.FileSizeBytes {
		return services.Wrap(services.ErrInput, "inputcheck", "size",
			fmt.Sprintf("mezzanine %s is %d bytes, manifest declares %d", rel, info.Size, m.Mezzanine.FileSizeBytes), nil)
	}
	if c.opts.MaxSourceSizeBytes > 0 && info.Size > c.opts.MaxSourceSizeBytes {
		return services.Wrap(services.ErrInput, "inputcheck", "size",
			fmt.Sprintf("mezzanine %s is %d bytes, limit is %d", rel, info.Size, c.opts.MaxSourceSizeBytes), nil)
	}

	digest, err := c.checksum(ctx, rel)
	if err != nil {
		return err
	}
	if digest != m.Mezzanine.ChecksumMD5 {
		return services.Wrap(services.ErrInput, "inputcheck", "checksum",
			fmt.Sprintf("mezzanine %s digest %s does not match declared %s", rel, digest, m.Mezzanine.ChecksumMD5), nil)
	}
	return nil
}

func (c *Checker) checksum(ctx context.Context, rel string) (string, error) {
	r, err := c.sources.Open(rel)
	if err != nil {
		return "", services.Wrap(services.ErrInput, "inputcheck", "open", fmt.Sprintf("mezzanine %s", rel), err)
	}
	defer r.Close()

	hash := md5.New()
	buf := make([]byte, 1<<20)
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		n, readErr := r.Read(buf)
		if n > 0 {
			hash.Write(buf[:n])
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", services.Wrap(services.ErrTransient, "inputcheck", "read", fmt.Sprintf("mezzanine %s", rel), readErr)
		}
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
