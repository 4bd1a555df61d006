package scanning

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"net/http"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

const (
	mimePNG  = "image/png"
	mimeJPEG = "image/jpeg"
	mimeHEIC = "image/heic"
	mimePDF  = "application/pdf"
)

// ErrUnsupportedImage marks receipt files that could not be turned into an
// image. They fail before any model is called.
var ErrUnsupportedImage = errors.New("unsupported receipt image")

// imageError keeps the conversion message and matches ErrUnsupportedImage
type imageError struct {
	err error
}

func (e *imageError) Error() string { return e.err.Error() }

func (e *imageError) Unwrap() error { return e.err }

func (e *imageError) Is(target error) bool { return target == ErrUnsupportedImage }

// heicBrands are the ftyp brands phones write for HEIC/HEIF photos
var heicBrands = map[string]bool{"heic": true, "heix": true, "heif": true, "mif1": true, "msf1": true}

// isHEIC reports whether data starts with an ftyp box carrying a HEIC brand
func isHEIC(data []byte) bool {
	return len(data) >= 12 && string(data[4:8]) == "ftyp" && heicBrands[string(data[8:12])]
}

// mediaType resolves the MIME type of a receipt file. Object storage often
// reports nothing or application/octet-stream, in which case the bytes decide.
func mediaType(data []byte, contentType string) string {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif") || isHEIC(data) {
		return mimeHEIC
	}
	if mimeType != "" && mimeType != "application/octet-stream" {
		return mimeType
	}

	sniffed := http.DetectContentType(data)
	if i := strings.Index(sniffed, ";"); i >= 0 {
		sniffed = sniffed[:i]
	}
	if sniffed == mimePDF || strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	return mimeJPEG
}

// toPNG renders the receipt as PNG. PNG input is passed through untouched,
// PDFs are rasterized from their first page.
func toPNG(data []byte, mimeType string) ([]byte, error) {
	var (
		img image.Image
		err error
	)
	switch mimeType {
	case mimePNG:
		return data, nil
	case mimePDF:
		img, err = renderFirstPage(data)
	case mimeHEIC:
		img, err = heic.Decode(bytes.NewReader(data))
		if err != nil {
			err = fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
	default:
		img, _, err = image.Decode(bytes.NewReader(data))
		if err != nil {
			err = fmt.Errorf("unsupported receipt image %s (JPEG, PNG, GIF, HEIC, PDF are supported): %w", mimeType, err)
		}
	}
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

func renderFirstPage(pdfData []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return img, nil
}

// preparePNG converts a receipt file of any supported type to PNG
func preparePNG(data []byte, contentType string) ([]byte, error) {
	pngData, err := toPNG(data, mediaType(data, contentType))
	if err != nil {
		return nil, &imageError{err: err}
	}
	return pngData, nil
}

// dataURL converts the receipt to PNG and encodes it as a base64 data URL
func dataURL(data []byte, contentType string) (string, error) {
	pngData, err := preparePNG(data, contentType)
	if err != nil {
		return "", err
	}
	return "data:" + mimePNG + ";base64," + base64.StdEncoding.EncodeToString(pngData), nil
}
