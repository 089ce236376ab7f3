package sse_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mural/pkg/sse"
)

var _ = Describe("Event", func() {
	It("encodes type, id, and data fields", func() {
		var buf bytes.Buffer
		event := sse.Event{Type: "cluster", ID: "42", Data: `{"cycle":1}`}

		Expect(event.Encode(&buf)).To(Succeed())
		Expect(buf.String()).To(Equal("event: cluster\nid: 42\ndata: {\"cycle\":1}\n\n"))
	})

	It("omits empty type and id", func() {
		var buf bytes.Buffer
		event := sse.Event{Data: "hello"}

		Expect(event.Encode(&buf)).To(Succeed())
		Expect(buf.String()).To(Equal("data: hello\n\n"))
	})

	It("splits multi-line data into multiple data fields", func() {
		var buf bytes.Buffer
		event := sse.Event{Data: "line one\nline two"}

		Expect(event.Encode(&buf)).To(Succeed())
		Expect(buf.String()).To(Equal("data: line one\ndata: line two\n\n"))
	})
})
