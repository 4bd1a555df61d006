package scanning

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/jpeg"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("mediaType", func() {
	It("keeps an explicit content type", func() {
		Expect(mediaType([]byte("x"), "Image/JPEG; charset=binary")).To(Equal("image/jpeg"))
	})

	It("detects HEIC from the ftyp brand", func() {
		data := append([]byte{0, 0, 0, 24}, []byte("ftypheic0000")...)
		Expect(mediaType(data, "application/octet-stream")).To(Equal(mimeHEIC))
	})

	It("sniffs PNG and PDF when storage reports nothing", func() {
		Expect(mediaType(tinyPNG(), "")).To(Equal(mimePNG))
		Expect(mediaType([]byte("%PDF-1.4\n"), "")).To(Equal(mimePDF))
	})

	It("falls back to JPEG for unknown bytes", func() {
		Expect(mediaType([]byte{0x01, 0x02, 0x03}, "")).To(Equal(mimeJPEG))
	})
})

var _ = Describe("dataURL", func() {
	It("passes PNG through", func() {
		pngData := tinyPNG()
		url, err := dataURL(pngData, "image/png")
		Expect(err).NotTo(HaveOccurred())
		Expect(url).To(Equal("data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData)))
	})

	It("converts JPEG to PNG", func() {
		var buf bytes.Buffer
		Expect(jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4)), nil)).To(Succeed())

		url, err := dataURL(buf.Bytes(), "")
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.HasPrefix(url, "data:image/png;base64,")).To(BeTrue())

		decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, "data:image/png;base64,"))
		Expect(err).NotTo(HaveOccurred())
		_, format, err := image.Decode(bytes.NewReader(decoded))
		Expect(err).NotTo(HaveOccurred())
		Expect(format).To(Equal("png"))
	})

	It("rejects garbage", func() {
		_, err := dataURL([]byte("definitely not an image"), "image/jpeg")
		Expect(err).To(MatchError(ContainSubstring("unsupported receipt image")))
		Expect(errors.Is(err, ErrUnsupportedImage)).To(BeTrue())
	})
})
