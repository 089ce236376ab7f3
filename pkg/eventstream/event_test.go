package eventstream_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mural/pkg/cluster"
	"github.com/papercomputeco/mural/pkg/eventstream"
	"github.com/papercomputeco/mural/pkg/message"
)

var _ = Describe("Event", func() {
	It("marshals ClusterSelectedEvent with expected top-level keys", func() {
		now := time.Unix(1735689600, 0).UTC()
		event := eventstream.NewClusterSelectedEvent(&cluster.Cluster{
			Focus: &message.Message{ID: 7, Content: "hello wall", CreatedAt: now},
			Related: []message.Scored{
				{Message: &message.Message{ID: 3, Content: "hi", CreatedAt: now}, Similarity: 0.8},
			},
			Duration:   8 * time.Second,
			Timestamp:  now,
			CycleIndex: 4,
		})

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("cluster"))
		Expect(got["event_type"]).To(Equal("mural.cluster.selected"))
	})

	It("marshals WorkingSetChangedEvent with reason and membership deltas", func() {
		event := eventstream.NewWorkingSetChangedEvent(
			"cluster_cycle",
			[]*message.Message{{ID: 12, Content: "new"}},
			[]int64{3, 5},
		)

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got["event_type"]).To(Equal("mural.workingset.changed"))
		Expect(got["reason"]).To(Equal("cluster_cycle"))
		Expect(got).To(HaveKey("added"))
		Expect(got).To(HaveKey("removed_ids"))
	})

	It("assigns a unique event id per envelope", func() {
		a := eventstream.NewWorkingSetChangedEvent("initialization", nil, nil)
		b := eventstream.NewWorkingSetChangedEvent("initialization", nil, nil)
		Expect(a.EventID).NotTo(BeEmpty())
		Expect(a.EventID).NotTo(Equal(b.EventID))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.SchemaVersionV1).To(BeNumerically(">", 0))
		Expect(eventstream.EventTypeClusterSelected).To(Equal("mural.cluster.selected"))
		Expect(eventstream.EventTypeWorkingSetChanged).To(Equal("mural.workingset.changed"))
	})
})
