package capability

import (
	"encoding/binary"
	"fmt"

	"github.com/nerrad567/gea-bridge/internal/erd"
)

// Manifest header sizes in bytes.
const (
	commonHeaderSize  = 8
	featureHeaderSize = 8
)

// CommonHeader is the decoded common manifest payload.
type CommonHeader struct {
	Version  uint32
	Features uint32
}

// FeatureHeader is the decoded feature manifest payload.
type FeatureHeader struct {
	Type     uint16
	Version  uint16
	Features uint32
}

// DecodeCommonHeader decodes "version u32 | features u32", big-endian.
// Trailing bytes are ignored.
func DecodeCommonHeader(payload []byte) (CommonHeader, error) {
	if len(payload) < commonHeaderSize {
		return CommonHeader{}, fmt.Errorf("%w: common manifest needs %d bytes, got %d: %w",
			ErrMalformedManifest, commonHeaderSize, len(payload), erd.ErrMalformedPayload)
	}
	return CommonHeader{
		Version:  binary.BigEndian.Uint32(payload[0:4]),
		Features: binary.BigEndian.Uint32(payload[4:8]),
	}, nil
}

// DecodeFeatureHeader decodes "type u16 | version u16 | features u32", big-endian.
// Trailing bytes are ignored.
func DecodeFeatureHeader(payload []byte) (FeatureHeader, error) {
	if len(payload) < featureHeaderSize {
		return FeatureHeader{}, fmt.Errorf("%w: feature manifest needs %d bytes, got %d: %w",
			ErrMalformedManifest, featureHeaderSize, len(payload), erd.ErrMalformedPayload)
	}
	return FeatureHeader{
		Type:     binary.BigEndian.Uint16(payload[0:2]),
		Version:  binary.BigEndian.Uint16(payload[2:4]),
		Features: binary.BigEndian.Uint32(payload[4:8]),
	}, nil
}
