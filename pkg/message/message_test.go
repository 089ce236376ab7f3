package message_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mural/pkg/message"
)

var _ = Describe("Message", func() {
	It("is visible only when approved and not deleted", func() {
		m := &message.Message{ID: 1, Approved: true}
		Expect(m.Visible()).To(BeTrue())

		m.Approved = false
		Expect(m.Visible()).To(BeFalse())

		now := time.Now()
		m.Approved = true
		m.DeletedAt = &now
		Expect(m.Visible()).To(BeFalse())
	})

	It("extracts ids in order", func() {
		msgs := []*message.Message{{ID: 3}, {ID: 1}, {ID: 2}}
		Expect(message.IDs(msgs)).To(Equal([]int64{3, 1, 2}))
	})
})
