package store_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/mural/pkg/message"
	"github.com/papercomputeco/mural/pkg/store"
)

var errFlaky = errors.New("connection reset")

// flakyDriver fails each read a configured number of times before
// succeeding, and counts every call.
type flakyDriver struct {
	failures  int
	calls     int
	insertErr error
}

func (d *flakyDriver) attempt() error {
	d.calls++
	if d.calls <= d.failures {
		return errFlaky
	}
	return nil
}

func (d *flakyDriver) FetchBatch(context.Context, int64, int, store.Direction, int64) ([]*message.Message, error) {
	if err := d.attempt(); err != nil {
		return nil, err
	}
	return []*message.Message{{ID: 1, Approved: true}}, nil
}

func (d *flakyDriver) FetchNewAbove(context.Context, int64) ([]*message.Message, error) {
	if err := d.attempt(); err != nil {
		return nil, err
	}
	return nil, nil
}

func (d *flakyDriver) MaxID(context.Context) (int64, error) {
	if err := d.attempt(); err != nil {
		return 0, err
	}
	return 42, nil
}

func (d *flakyDriver) Count(context.Context) (int, error) {
	if err := d.attempt(); err != nil {
		return 0, err
	}
	return 7, nil
}

func (d *flakyDriver) Insert(_ context.Context, m *message.Message) (*message.Message, error) {
	d.calls++
	if d.insertErr != nil {
		return nil, d.insertErr
	}
	return m, nil
}

func (d *flakyDriver) SoftDelete(context.Context, int64) error {
	d.calls++
	return nil
}

func (d *flakyDriver) Ping(context.Context) error { return nil }
func (d *flakyDriver) Close() error               { return nil }

func newRetrier(inner store.Driver) *store.Retrier {
	return store.WithRetry(inner, store.RetryConfig{
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		MaxElapsed:   200 * time.Millisecond,
	}, zap.NewNop())
}

var _ = Describe("Retrier", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("retries reads until they succeed", func() {
		inner := &flakyDriver{failures: 2}
		retrier := newRetrier(inner)

		maxID, err := retrier.MaxID(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(maxID).To(Equal(int64(42)))
		Expect(inner.calls).To(Equal(3))
	})

	It("surfaces the last error once the retry budget is exhausted", func() {
		inner := &flakyDriver{failures: 1 << 30}
		retrier := newRetrier(inner)

		_, err := retrier.Count(ctx)
		Expect(err).To(MatchError(errFlaky))
		Expect(inner.calls).To(BeNumerically(">", 1))
	})

	It("stops retrying when the context is cancelled", func() {
		inner := &flakyDriver{failures: 1 << 30}
		retrier := newRetrier(inner)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := retrier.FetchNewAbove(cancelled, 0)
		Expect(err).To(HaveOccurred())
	})

	It("does not retry writes", func() {
		inner := &flakyDriver{insertErr: errFlaky}
		retrier := newRetrier(inner)

		_, err := retrier.Insert(ctx, &message.Message{Content: "x"})
		Expect(err).To(MatchError(errFlaky))
		Expect(inner.calls).To(Equal(1))
	})

	It("passes successful reads through unchanged", func() {
		inner := &flakyDriver{}
		retrier := newRetrier(inner)

		msgs, err := retrier.FetchBatch(ctx, 5, 1, store.Descending, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(msgs).To(HaveLen(1))
		Expect(inner.calls).To(Equal(1))
	})
})
