package pipeline

import (
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParseEvent", func() {
	DescribeTable("empty or malformed payloads",
		func(payload any) {
			_, err := ParseEvent(payload)
			Expect(errors.Is(err, ErrEmptyPayload)).To(BeTrue())
		},
		Entry("nil", nil),
		Entry("empty string", ""),
		Entry("whitespace", "   "),
		Entry("null", "null"),
		Entry("empty object", "{}"),
		Entry("empty map", map[string]any{}),
		Entry("garbage", "not json"),
		Entry("wrong type", `{"bucketId": 5}`),
		Entry("nil event", (*UploadEvent)(nil)),
	)

	It("decodes a serialized event", func() {
		event, err := ParseEvent(`{"bucketId":"receipts","$id":"file-1","chunksUploaded":3,"chunksTotal":3,"mimeType":"image/jpeg"}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(*event).To(Equal(UploadEvent{
			BucketID:       "receipts",
			FileID:         "file-1",
			MimeType:       "image/jpeg",
			ChunksUploaded: 3,
			ChunksTotal:    3,
		}))
	})

	It("decodes an already parsed object", func() {
		event, err := ParseEvent(map[string]any{"bucketId": "receipts", "$id": "file-1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(event.HasFile()).To(BeTrue())
	})

	It("decodes raw JSON bytes", func() {
		event, err := ParseEvent(json.RawMessage(`{"bucketId":"receipts","$id":"file-1"}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(event.FileID).To(Equal("file-1"))
	})

	It("defaults the chunk counters to a complete upload", func() {
		event, err := ParseEvent([]byte(`{"bucketId":"receipts","$id":"file-1"}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(event.ChunksUploaded).To(Equal(1))
		Expect(event.ChunksTotal).To(Equal(1))
		Expect(event.Complete()).To(BeTrue())
	})

	It("flags partial uploads", func() {
		event, err := ParseEvent(`{"bucketId":"receipts","$id":"file-1","chunksUploaded":1,"chunksTotal":3}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(event.Complete()).To(BeFalse())
	})

	It("flags events without a file", func() {
		event, err := ParseEvent(`{"bucketId":"receipts"}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(event.HasFile()).To(BeFalse())
	})
})
