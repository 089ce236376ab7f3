package nop_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mural/pkg/eventstream"
	"github.com/papercomputeco/mural/pkg/eventstream/nop"
)

var _ = Describe("Publisher", func() {
	It("creates a non-nil publisher", func() {
		p := nop.NewPublisher()
		Expect(p).NotTo(BeNil())
	})

	It("returns ErrNilEvent for nil events", func() {
		p := nop.NewPublisher()
		Expect(p.PublishCluster(context.Background(), nil)).To(MatchError(eventstream.ErrNilEvent))
		Expect(p.PublishWorkingSetChange(context.Background(), nil)).To(MatchError(eventstream.ErrNilEvent))
	})

	It("succeeds for non-nil events", func() {
		p := nop.NewPublisher()
		Expect(p.PublishCluster(context.Background(), &eventstream.ClusterSelectedEvent{})).To(Succeed())
		Expect(p.PublishWorkingSetChange(context.Background(), &eventstream.WorkingSetChangedEvent{})).To(Succeed())
	})

	It("closes successfully", func() {
		p := nop.NewPublisher()
		Expect(p.Close()).To(Succeed())
	})
})
