package scanning

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sony/gobreaker/v2"

	"github.com/zombor/fuel-tracker/internal/openai"
)

// mockScanner is a mock implementation of Scanner
type mockScanner struct {
	calls   int
	scanErr error
	result  *ExtractionResult
}

func (m *mockScanner) ScanReceipt(ctx context.Context, imageData []byte, contentType string) (*ExtractionResult, error) {
	m.calls++
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	return m.result, nil
}

func (m *mockScanner) Close() error {
	return nil
}

// countingResponder answers every request with the same output text
type countingResponder struct {
	calls int
	text  string
}

func (c *countingResponder) CreateResponse(ctx context.Context, req openai.Request) (*openai.Response, error) {
	c.calls++
	return &openai.Response{OutputText: &c.text}, nil
}

var _ = Describe("Breaker", func() {
	var (
		next    *mockScanner
		breaker *Breaker
		ctx     context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		next = &mockScanner{result: &ExtractionResult{}}
		breaker = NewBreaker("test", next, BreakerConfig{ConsecutiveFailures: 2, OpenTimeout: time.Minute})
	})

	It("passes results through", func() {
		data, err := breaker.ScanReceipt(ctx, nil, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(BeIdenticalTo(next.result))
	})

	It("does not retry a failed call", func() {
		next.scanErr = errors.New("upstream down")
		_, err := breaker.ScanReceipt(ctx, nil, "")
		Expect(err).To(MatchError("upstream down"))
		Expect(next.calls).To(Equal(1))
	})

	When("failures reach the threshold", func() {
		BeforeEach(func() {
			next.scanErr = errors.New("upstream down")
			breaker.ScanReceipt(ctx, nil, "")
			breaker.ScanReceipt(ctx, nil, "")
		})

		It("fails fast without calling the scanner", func() {
			_, err := breaker.ScanReceipt(ctx, nil, "")
			Expect(errors.Is(err, gobreaker.ErrOpenState)).To(BeTrue())
			Expect(next.calls).To(Equal(2))
		})
	})

	When("uploads cannot be read as images", func() {
		var (
			model   *countingResponder
			scanner *Breaker
		)

		BeforeEach(func() {
			model = &countingResponder{text: `{"station_name":"Aral","date_iso":"2024-01-15","liters":40,"price_total_eur":64,"price_per_liter_eur":1.6,"currency":"EUR"}`}
			scanner = NewBreaker("openai", NewOpenAIWithClient(model, "gpt-test"), BreakerConfig{ConsecutiveFailures: 2, OpenTimeout: time.Minute})
			for i := 0; i < 5; i++ {
				_, err := scanner.ScanReceipt(ctx, []byte("not an image at all"), "")
				Expect(errors.Is(err, ErrUnsupportedImage)).To(BeTrue())
			}
		})

		It("never called the model", func() {
			Expect(model.calls).To(BeZero())
		})

		It("keeps the breaker closed for the next receipt", func() {
			result, err := scanner.ScanReceipt(ctx, tinyPNG(), "image/png")
			Expect(err).NotTo(HaveOccurred())
			Expect(*result.StationName).To(Equal("Aral"))
			Expect(model.calls).To(Equal(1))
		})
	})

	When("the caller cancels", func() {
		BeforeEach(func() {
			next.scanErr = context.Canceled
			breaker.ScanReceipt(ctx, nil, "")
			breaker.ScanReceipt(ctx, nil, "")
		})

		It("does not open the breaker", func() {
			next.scanErr = nil
			_, err := breaker.ScanReceipt(ctx, nil, "")
			Expect(err).NotTo(HaveOccurred())
		})
	})
})
