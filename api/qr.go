package api

import qrcode "github.com/skip2/go-qrcode"

// QRRenderer turns a join URL into a scannable PNG. It is a pure
// function; a failing renderer only degrades the QR endpoint to the
// raw join string.
type QRRenderer func(content string, size int) ([]byte, error)

// DefaultQRRenderer encodes with medium error correction, matching
// the level the original booth UI used.
func DefaultQRRenderer(content string, size int) ([]byte, error) {
	return qrcode.Encode(content, qrcode.Medium, size)
}
