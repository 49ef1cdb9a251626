// Package qr renders QR codes into the artifact store.
package qr

import (
	"context"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"

	"talkvid/internal/artifact"
)

// DefaultSize is the PNG edge length used when callers pass zero.
const DefaultSize = 512

// TextQR encodes text as a square PNG of size pixels and returns the cached
// artifact.
func TextQR(ctx context.Context, store *artifact.Store, text string, size int) (artifact.Ref, error) {
	if text == "" {
		return artifact.Ref{}, fmt.Errorf("qr: empty text")
	}
	if size <= 0 {
		size = DefaultSize
	}
	key := artifact.New("qr").String(text).Int(int64(size)).Sum()
	desc := artifact.Description{Key: key, Ext: ".png", Label: "qr " + text}
	path, err := store.GetOrBuildBytes(ctx, desc, func(context.Context) ([]byte, error) {
		return qrcode.Encode(text, qrcode.Medium, size)
	})
	if err != nil {
		return artifact.Ref{}, err
	}
	return artifact.Ref{Key: key, Path: path}, nil
}
