//go:build !ocr

// Package ocr recognizes text in rasterized pages. This build was made
// without the "ocr" tag: New fails with ErrOCRNotEnabled. Rebuild with
//
//	go build -tags ocr
//
// and the Tesseract libraries installed to enable recognition.
package ocr

import "image"

// Client is the disabled OCR client.
type Client struct{}

// New returns ErrOCRNotEnabled.
func New(lang string) (*Client, error) {
	return nil, ErrOCRNotEnabled
}

// Close is a no-op. It is safe on a nil client.
func (c *Client) Close() error {
	return nil
}

// RecognizeImage returns ErrOCRNotEnabled.
func (c *Client) RecognizeImage(data []byte) (string, error) {
	return "", ErrOCRNotEnabled
}

// RecognizePage returns ErrOCRNotEnabled.
func (c *Client) RecognizePage(img image.Image) (string, error) {
	return "", ErrOCRNotEnabled
}

// SetPageSegMode returns ErrOCRNotEnabled.
func (c *Client) SetPageSegMode(mode PageSegMode) error {
	return ErrOCRNotEnabled
}
