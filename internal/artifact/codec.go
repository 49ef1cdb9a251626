package artifact

import (
	"context"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// Structured artifacts (alignment paths, feature matrices) are stored as
// deterministic CBOR compressed with zstd.

var (
	encMode     cbor.EncMode
	decMode     cbor.DecMode
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("artifact: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("artifact: CBOR decoder initialization failed: " + err.Error())
	}
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("artifact: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("artifact: zstd decoder initialization failed: " + err.Error())
	}
}

// EncodeCBOR returns the compressed deterministic encoding of v.
func EncodeCBOR(v any) ([]byte, error) {
	raw, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cbor encode: %w", err)
	}
	return zstdEncoder.EncodeAll(raw, nil), nil
}

// DecodeCBOR reverses EncodeCBOR.
func DecodeCBOR(data []byte, v any) error {
	raw, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("zstd decompress: %w", err)
	}
	if err := decMode.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("cbor decode: %w", err)
	}
	return nil
}

// WriteCBOR encodes v into path.
func WriteCBOR(path string, v any) error {
	data, err := EncodeCBOR(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadCBOR decodes the file at path into v.
func ReadCBOR(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return DecodeCBOR(data, v)
}

// LoadOrBuildCBOR returns the cached value for desc, computing and storing it
// on a miss.
func LoadOrBuildCBOR[T any](ctx context.Context, s *Store, desc Description, compute func(context.Context) (T, error)) (T, error) {
	var value T
	computed := false
	path, err := s.GetOrBuild(ctx, desc, func(ctx context.Context, tmpPath string) error {
		v, err := compute(ctx)
		if err != nil {
			return err
		}
		value = v
		computed = true
		return WriteCBOR(tmpPath, v)
	})
	if err != nil {
		return value, err
	}
	if computed {
		return value, nil
	}
	if err := ReadCBOR(path, &value); err != nil {
		return value, fmt.Errorf("artifact: load %s: %w", path, err)
	}
	return value, nil
}
