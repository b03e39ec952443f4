package payment

import (
	"github.com/pkg/errors"
	qrcode "github.com/skip2/go-qrcode"
)

// Encoder parameters are fixed so every rendered code looks the same.
// They are not caller-configurable.
const (
	qrRecoveryLevel = qrcode.Medium
	qrSizePx        = 256
)

// RenderQR encodes a payment URI into a PNG. Pure function of its
// input: identical URIs yield byte-identical images.
func RenderQR(uri string) ([]byte, error) {
	if uri == "" {
		return nil, errors.New("Failed encode QR: empty input")
	}
	png, err := qrcode.Encode(uri, qrRecoveryLevel, qrSizePx)
	if err != nil {
		return nil, errors.Wrap(err, "Failed encode QR")
	}
	return png, nil
}
