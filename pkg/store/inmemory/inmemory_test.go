package inmemory_test

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mural/pkg/message"
	"github.com/papercomputeco/mural/pkg/store"
	"github.com/papercomputeco/mural/pkg/store/inmemory"
)

var _ = Describe("Driver", func() {
	var (
		ctx    context.Context
		driver *inmemory.Driver
	)

	seed := func(n int) {
		for i := 0; i < n; i++ {
			_, err := driver.Insert(ctx, &message.Message{
				Content:  fmt.Sprintf("note %d", i+1),
				Approved: true,
			})
			Expect(err).NotTo(HaveOccurred())
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
	})

	It("assigns monotonically increasing ids", func() {
		a, err := driver.Insert(ctx, &message.Message{Content: "a", Approved: true})
		Expect(err).NotTo(HaveOccurred())
		b, err := driver.Insert(ctx, &message.Message{Content: "b", Approved: true})
		Expect(err).NotTo(HaveOccurred())

		Expect(b.ID).To(Equal(a.ID + 1))

		maxID, err := driver.MaxID(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(maxID).To(Equal(b.ID))
	})

	It("rejects nil inserts", func() {
		_, err := driver.Insert(ctx, nil)
		Expect(err).To(HaveOccurred())
	})

	It("fetches descending from an inclusive cursor", func() {
		seed(10)

		msgs, err := driver.FetchBatch(ctx, 7, 3, store.Descending, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(message.IDs(msgs)).To(Equal([]int64{7, 6, 5}))
	})

	It("fetches ascending up to maxID", func() {
		seed(10)

		msgs, err := driver.FetchBatch(ctx, 3, 10, store.Ascending, 6)
		Expect(err).NotTo(HaveOccurred())
		Expect(message.IDs(msgs)).To(Equal([]int64{3, 4, 5, 6}))
	})

	It("returns only messages above the watermark", func() {
		seed(5)

		msgs, err := driver.FetchNewAbove(ctx, 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(message.IDs(msgs)).To(Equal([]int64{4, 5}))
	})

	It("hides unapproved messages from every fetch path", func() {
		_, err := driver.Insert(ctx, &message.Message{Content: "pending"})
		Expect(err).NotTo(HaveOccurred())
		seed(1)

		msgs, err := driver.FetchNewAbove(ctx, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].Content).To(Equal("note 1"))

		count, err := driver.Count(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(1))
	})

	It("soft deletes without reusing the id", func() {
		seed(3)

		Expect(driver.SoftDelete(ctx, 2)).To(Succeed())

		msgs, err := driver.FetchBatch(ctx, 3, 10, store.Descending, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(message.IDs(msgs)).To(Equal([]int64{3, 1}))

		maxID, err := driver.MaxID(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(maxID).To(Equal(int64(3)))
	})

	It("returns NotFoundError for deleting unknown ids", func() {
		err := driver.SoftDelete(ctx, 99)
		Expect(err).To(MatchError(store.NotFoundError{ID: 99}))
	})

	It("returns copies that do not alias internal state", func() {
		seed(1)

		msgs, err := driver.FetchNewAbove(ctx, 0)
		Expect(err).NotTo(HaveOccurred())
		msgs[0].Content = "mutated"

		again, err := driver.FetchNewAbove(ctx, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(again[0].Content).To(Equal("note 1"))
	})
})
