package similarity_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mural/pkg/message"
	"github.com/papercomputeco/mural/pkg/similarity"
)

func msg(id int64, content string, at time.Time) *message.Message {
	return &message.Message{ID: id, Content: content, CreatedAt: at, Approved: true}
}

var _ = Describe("Weights", func() {
	It("accepts the defaults", func() {
		Expect(similarity.DefaultWeights().Validate()).To(Succeed())
	})

	It("rejects negative weights", func() {
		w := similarity.Weights{Temporal: -0.1, Length: 0.5, Semantic: 0.5}
		Expect(w.Validate()).To(HaveOccurred())
	})

	It("rejects weights summing above one", func() {
		w := similarity.Weights{Temporal: 0.5, Length: 0.5, Semantic: 0.5}
		Expect(w.Validate()).To(HaveOccurred())
	})
})

var _ = Describe("Scorer", func() {
	var base time.Time

	BeforeEach(func() {
		base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	})

	It("rejects invalid weights at construction", func() {
		_, err := similarity.NewScorer(similarity.Weights{Temporal: 2})
		Expect(err).To(HaveOccurred())
	})

	It("scores identical messages at the weight ceiling", func() {
		scorer, err := similarity.NewScorer(similarity.Weights{Temporal: 0.5, Length: 0.5})
		Expect(err).NotTo(HaveOccurred())

		focus := msg(1, "hello wall", base)
		twin := msg(2, "hello wall", base)

		scored := scorer.Score(focus, []*message.Message{twin}, nil)
		Expect(scored).To(HaveLen(1))
		Expect(scored[0].Similarity).To(BeNumerically("~", 1.0, 1e-9))
	})

	It("ranks temporally closer candidates higher", func() {
		scorer, err := similarity.NewScorer(similarity.Weights{Temporal: 1})
		Expect(err).NotTo(HaveOccurred())

		focus := msg(1, "x", base)
		near := msg(2, "x", base.Add(-30*time.Minute))
		far := msg(3, "x", base.Add(-10*time.Hour))

		scored := scorer.Score(focus, []*message.Message{far, near}, nil)
		Expect(scored[0].Message.ID).To(Equal(int64(2)))
		Expect(scored[0].Similarity).To(BeNumerically(">", scored[1].Similarity))
	})

	It("ranks similar-length candidates higher", func() {
		scorer, err := similarity.NewScorer(similarity.Weights{Length: 1})
		Expect(err).NotTo(HaveOccurred())

		focus := msg(1, "aaaaaaaaaa", base)
		similar := msg(2, "bbbbbbbbb", base)
		distant := msg(3, "c", base)

		scored := scorer.Score(focus, []*message.Message{distant, similar}, nil)
		Expect(scored[0].Message.ID).To(Equal(int64(2)))
	})

	It("applies the semantic signal when present", func() {
		scorer, err := similarity.NewScorer(similarity.Weights{Semantic: 1})
		Expect(err).NotTo(HaveOccurred())

		focus := msg(1, "x", base)
		a := msg(2, "x", base)
		b := msg(3, "x", base)

		scored := scorer.Score(focus, []*message.Message{a, b}, map[int64]float64{2: 0.2, 3: 0.9})
		Expect(scored[0].Message.ID).To(Equal(int64(3)))
		Expect(scored[0].Similarity).To(BeNumerically("~", 0.9, 1e-9))
	})

	It("redistributes the semantic weight when the signal is absent", func() {
		scorer, err := similarity.NewScorer(similarity.DefaultWeights())
		Expect(err).NotTo(HaveOccurred())

		focus := msg(1, "hello wall", base)
		twin := msg(2, "hello wall", base)

		// Without redistribution a perfect temporal+length match would be
		// capped at 0.5.
		scored := scorer.Score(focus, []*message.Message{twin}, nil)
		Expect(scored[0].Similarity).To(BeNumerically("~", 1.0, 1e-9))
	})

	It("breaks score ties by ascending id", func() {
		scorer, err := similarity.NewScorer(similarity.Weights{Temporal: 1})
		Expect(err).NotTo(HaveOccurred())

		focus := msg(1, "x", base)
		a := msg(9, "x", base)
		b := msg(4, "x", base)

		scored := scorer.Score(focus, []*message.Message{a, b}, nil)
		Expect(scored[0].Message.ID).To(Equal(int64(4)))
		Expect(scored[1].Message.ID).To(Equal(int64(9)))
	})

	It("clamps out-of-range semantic scores", func() {
		scorer, err := similarity.NewScorer(similarity.Weights{Semantic: 1})
		Expect(err).NotTo(HaveOccurred())

		focus := msg(1, "x", base)
		a := msg(2, "x", base)

		scored := scorer.Score(focus, []*message.Message{a}, map[int64]float64{2: 7.5})
		Expect(scored[0].Similarity).To(BeNumerically("<=", 1.0))
	})
})
