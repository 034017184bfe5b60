//go:build ocr

// Package ocr recognizes text in rasterized pages with Tesseract through
// gosseract. This build requires the Tesseract libraries; on Ubuntu and
// Debian:
//
//	apt-get install libtesseract-dev tesseract-ocr-eng
package ocr

import (
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// Client wraps a Tesseract engine. It is safe for concurrent use; calls
// are serialized.
type Client struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// New creates a Client recognizing lang, a "+" separated list such as
// "eng+fra". An empty lang keeps the engine default. Close the client when
// done.
func New(lang string) (*Client, error) {
	c := &Client{client: gosseract.NewClient()}
	if lang != "" {
		if err := c.client.SetLanguage(strings.Split(lang, "+")...); err != nil {
			c.client.Close()
			return nil, fmt.Errorf("ocr language %q: %w", lang, err)
		}
	}
	return c, nil
}

// Close releases the engine. It is safe on a nil or closed client.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

// RecognizeImage returns the text of an encoded image (PNG, TIFF, JPEG)
// with surrounding white space trimmed.
func (c *Client) RecognizeImage(data []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return "", ErrClosed
	}
	if err := c.client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("ocr set image: %w", err)
	}
	text, err := c.client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// RecognizePage returns the text of a rendered page.
func (c *Client) RecognizePage(img image.Image) (string, error) {
	data, err := encodePNG(img)
	if err != nil {
		return "", err
	}
	return c.RecognizeImage(data)
}

// SetPageSegMode sets how Tesseract segments the page.
func (c *Client) SetPageSegMode(mode PageSegMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return ErrClosed
	}
	return c.client.SetPageSegMode(gosseract.PageSegMode(mode))
}
