package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/mural/api"
	"github.com/papercomputeco/mural/pkg/message"
	"github.com/papercomputeco/mural/pkg/pool"
	"github.com/papercomputeco/mural/pkg/store/inmemory"
	"github.com/papercomputeco/mural/pkg/traversal"
)

// fakeTraverser records submissions without running a real traversal.
type fakeTraverser struct {
	store     *inmemory.Driver
	addErr    error
	submitted []*message.Message
}

func (f *fakeTraverser) AddNewMessage(ctx context.Context, msg *message.Message) (*message.Message, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	stored, err := f.store.Insert(ctx, msg)
	if err != nil {
		return nil, err
	}
	f.submitted = append(f.submitted, stored)
	return stored, nil
}

func (f *fakeTraverser) Stats() traversal.Stats {
	return traversal.Stats{
		WorkingSetSize: 42,
		CycleIndex:     7,
		Pool:           pool.Stats{QueueDepth: 3},
	}
}

var _ = Describe("Server", func() {
	var (
		driver    *inmemory.Driver
		traverser *fakeTraverser
		server    *api.Server
	)

	newServer := func(autoApprove bool) *api.Server {
		return api.NewServer(api.Config{
			ListenAddr:  ":0",
			AutoApprove: autoApprove,
		}, traverser, driver, zap.NewNop())
	}

	BeforeEach(func() {
		driver = inmemory.NewDriver()
		traverser = &fakeTraverser{store: driver}
		server = newServer(true)
	})

	Describe("GET /ping", func() {
		It("responds with pong", func() {
			req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
			resp, err := server.App().Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			body, _ := io.ReadAll(resp.Body)
			Expect(strings.TrimSpace(string(body))).To(Equal(`"pong"`))
		})
	})

	Describe("GET /stats", func() {
		It("returns traversal statistics", func() {
			req, _ := http.NewRequest(http.MethodGet, "/stats", nil)
			resp, err := server.App().Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var stats traversal.Stats
			Expect(json.NewDecoder(resp.Body).Decode(&stats)).To(Succeed())
			Expect(stats.WorkingSetSize).To(Equal(42))
			Expect(stats.Pool.QueueDepth).To(Equal(3))
		})
	})

	Describe("POST /messages", func() {
		post := func(body string) *http.Response {
			req, _ := http.NewRequest(http.MethodPost, "/messages", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := server.App().Test(req)
			Expect(err).NotTo(HaveOccurred())
			return resp
		}

		It("stores an approved submission", func() {
			resp := post(`{"content":"hello wall"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var out api.SubmitResponse
			Expect(json.NewDecoder(resp.Body).Decode(&out)).To(Succeed())
			Expect(out.ID).To(Equal(int64(1)))
			Expect(out.Approved).To(BeTrue())
			Expect(out.Status).To(Equal("queued"))
			Expect(traverser.submitted).To(HaveLen(1))
		})

		It("marks submissions pending when auto-approve is off", func() {
			server = newServer(false)

			resp := post(`{"content":"needs review"}`)
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))

			var out api.SubmitResponse
			Expect(json.NewDecoder(resp.Body).Decode(&out)).To(Succeed())
			Expect(out.Approved).To(BeFalse())
			Expect(out.Status).To(Equal("pending"))
		})

		It("rejects empty content", func() {
			Expect(post(`{"content":"   "}`).StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects malformed bodies", func() {
			Expect(post(`{not json`).StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("rejects oversized content", func() {
			Expect(post(`{"content":"` + strings.Repeat("a", 3000) + `"}`).StatusCode).
				To(Equal(http.StatusBadRequest))
		})

		It("surfaces store failures as 500", func() {
			traverser.addErr = errors.New("store down")
			Expect(post(`{"content":"hello"}`).StatusCode).To(Equal(http.StatusInternalServerError))
		})

		It("invokes the submit hook", func() {
			var hooked []*message.Message
			server.OnSubmit(func(m *message.Message) { hooked = append(hooked, m) })

			post(`{"content":"hook me"}`)
			Expect(hooked).To(HaveLen(1))
			Expect(hooked[0].Content).To(Equal("hook me"))
		})
	})

	Describe("DELETE /messages/:id", func() {
		It("soft deletes an existing message", func() {
			stored, err := driver.Insert(context.Background(), &message.Message{Content: "bye", Approved: true})
			Expect(err).NotTo(HaveOccurred())

			req, _ := http.NewRequest(http.MethodDelete, "/messages/"+strconv.FormatInt(stored.ID, 10), nil)
			resp, err := server.App().Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

			msgs, err := driver.FetchNewAbove(context.Background(), 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(msgs).To(BeEmpty())
		})

		It("returns 404 for unknown ids", func() {
			req, _ := http.NewRequest(http.MethodDelete, "/messages/99", nil)
			resp, err := server.App().Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("rejects non-numeric ids", func() {
			req, _ := http.NewRequest(http.MethodDelete, "/messages/abc", nil)
			resp, err := server.App().Test(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})
})
