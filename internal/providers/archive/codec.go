package archive

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/GriffinCanCode/telenode/internal/shared/types"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode

	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("archive: CBOR encoder initialization failed: " + err.Error())
	}
	// Row values decode into any; keep maps JSON-compatible.
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("archive: CBOR decoder initialization failed: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("archive: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("archive: zstd decoder initialization failed: " + err.Error())
	}
}

// segment is the on-disk unit of the archive.
type segment struct {
	ID      string         `cbor:"1,keyasint"`
	Created int64          `cbor:"2,keyasint"`
	Events  uint64         `cbor:"3,keyasint"`
	Batches []*types.Batch `cbor:"4,keyasint"`
}

func encodeSegment(s *segment) ([]byte, error) {
	raw, err := encMode.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode segment %s: %w", s.ID, err)
	}
	return zstdEncoder.EncodeAll(raw, nil), nil
}

func decodeSegment(data []byte) (*segment, error) {
	raw, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress segment: %w", err)
	}
	var s segment
	if err := decMode.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to decode segment: %w", err)
	}
	return &s, nil
}
