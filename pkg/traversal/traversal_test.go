package traversal_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/mural/pkg/cluster"
	"github.com/papercomputeco/mural/pkg/message"
	"github.com/papercomputeco/mural/pkg/pool"
	"github.com/papercomputeco/mural/pkg/similarity"
	"github.com/papercomputeco/mural/pkg/store/inmemory"
	"github.com/papercomputeco/mural/pkg/traversal"
)

const (
	workingSetSize = 100
	clusterSize    = 20
)

var _ = Describe("Coordinator", func() {
	var (
		ctx    context.Context
		driver *inmemory.Driver
		coord  *traversal.Coordinator
	)

	seed := func(n int) {
		base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < n; i++ {
			_, err := driver.Insert(ctx, &message.Message{
				Content:   fmt.Sprintf("wall note %d", i+1),
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
				Approved:  true,
			})
			Expect(err).NotTo(HaveOccurred())
		}
	}

	newCoordinator := func() *traversal.Coordinator {
		scorer, err := similarity.NewScorer(similarity.Weights{Temporal: 0.7, Length: 0.3})
		Expect(err).NotTo(HaveOccurred())

		manager := pool.NewManager(&pool.Config{
			Store:           driver,
			QueueMaxSize:    50,
			ClusterSize:     clusterSize,
			ClusterDuration: 8 * time.Second,
			Logger:          zap.NewNop(),
		})

		return traversal.NewCoordinator(&traversal.Config{
			Store:           driver,
			Pool:            manager,
			Selector:        cluster.NewSelector(scorer, clusterSize, zap.NewNop()),
			WorkingSetSize:  workingSetSize,
			ClusterSize:     clusterSize,
			ClusterDuration: 8 * time.Second,
			NormalSlots:     3,
			Logger:          zap.NewNop(),
		})
	}

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
	})

	AfterEach(func() {
		if coord != nil {
			coord.Cleanup()
			coord = nil
		}
	})

	Describe("Initialize", func() {
		It("loads a full working set from the backlog", func() {
			seed(200)
			coord = newCoordinator()

			Expect(coord.Initialize(ctx)).To(Succeed())
			Expect(coord.Stats().WorkingSetSize).To(Equal(workingSetSize))
		})

		It("emits an initialization change to the subscriber", func() {
			seed(200)
			coord = newCoordinator()

			changes, err := coord.Subscribe()
			Expect(err).NotTo(HaveOccurred())
			Expect(coord.Initialize(ctx)).To(Succeed())

			var change traversal.WorkingSetChange
			Eventually(changes).Should(Receive(&change))
			Expect(change.Reason).To(Equal(traversal.ReasonInitialization))
			Expect(change.Added).To(HaveLen(workingSetSize))
			Expect(change.Removed).To(BeEmpty())
		})

		It("is a no-op when called twice", func() {
			seed(50)
			coord = newCoordinator()

			Expect(coord.Initialize(ctx)).To(Succeed())
			Expect(coord.Initialize(ctx)).To(Succeed())
		})

		It("succeeds on an empty store", func() {
			coord = newCoordinator()
			Expect(coord.Initialize(ctx)).To(Succeed())
			Expect(coord.Stats().WorkingSetSize).To(BeZero())
		})
	})

	Describe("NextCluster", func() {
		It("fails before initialization", func() {
			coord = newCoordinator()
			_, err := coord.NextCluster(ctx)
			Expect(err).To(MatchError(traversal.ErrNotInitialized))
		})

		It("returns no cluster when the working set is empty", func() {
			coord = newCoordinator()
			Expect(coord.Initialize(ctx)).To(Succeed())

			clu, err := coord.NextCluster(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(clu).To(BeNil())
		})

		It("focuses the lowest-id member on the first cycle", func() {
			seed(200)
			coord = newCoordinator()
			Expect(coord.Initialize(ctx)).To(Succeed())

			clu, err := coord.NextCluster(ctx)
			Expect(err).NotTo(HaveOccurred())
			// The initial batch walks the backlog newest-first, so the
			// working set holds ids 101..200.
			Expect(clu.Focus.ID).To(Equal(int64(101)))
			Expect(clu.CycleIndex).To(Equal(uint64(0)))
		})

		It("builds clusters within the size cap and free of duplicates", func() {
			seed(200)
			coord = newCoordinator()
			Expect(coord.Initialize(ctx)).To(Succeed())

			for i := 0; i < 5; i++ {
				clu, err := coord.NextCluster(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(clu).NotTo(BeNil())

				ids := clu.IDs()
				Expect(len(ids)).To(BeNumerically("<=", clusterSize))
				seen := map[int64]struct{}{}
				for _, id := range ids {
					Expect(seen).NotTo(HaveKey(id))
					seen[id] = struct{}{}
				}
			}
		})

		It("hands focus to the announced next message", func() {
			seed(200)
			coord = newCoordinator()
			Expect(coord.Initialize(ctx)).To(Succeed())

			first, err := coord.NextCluster(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(first.Next).NotTo(BeNil())

			second, err := coord.NextCluster(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Focus.ID).To(Equal(first.Next.ID))
		})

		It("reserves the previous focus with similarity 1.0", func() {
			seed(200)
			coord = newCoordinator()
			Expect(coord.Initialize(ctx)).To(Succeed())

			first, err := coord.NextCluster(ctx)
			Expect(err).NotTo(HaveOccurred())

			second, err := coord.NextCluster(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Related).NotTo(BeEmpty())
			Expect(second.Related[0].Message.ID).To(Equal(first.Focus.ID))
			Expect(second.Related[0].Similarity).To(Equal(1.0))
		})

		It("keeps the working set within ten percent of the target", func() {
			seed(200)
			coord = newCoordinator()
			Expect(coord.Initialize(ctx)).To(Succeed())

			for i := 0; i < 15; i++ {
				_, err := coord.NextCluster(ctx)
				Expect(err).NotTo(HaveOccurred())

				size := coord.Stats().WorkingSetSize
				Expect(size).To(BeNumerically(">=", workingSetSize*9/10))
				Expect(size).To(BeNumerically("<=", workingSetSize*11/10))
			}
		})

		It("swaps displayed members out and replenishes on each cycle", func() {
			seed(200)
			coord = newCoordinator()

			changes, err := coord.Subscribe()
			Expect(err).NotTo(HaveOccurred())
			Expect(coord.Initialize(ctx)).To(Succeed())

			var init traversal.WorkingSetChange
			Eventually(changes).Should(Receive(&init))

			first, err := coord.NextCluster(ctx)
			Expect(err).NotTo(HaveOccurred())

			_, err = coord.NextCluster(ctx)
			Expect(err).NotTo(HaveOccurred())

			var change traversal.WorkingSetChange
			Eventually(changes).Should(Receive(&change))
			Expect(change.Reason).To(Equal(traversal.ReasonClusterCycle))
			Expect(change.Removed).NotTo(BeEmpty())
			Expect(len(change.Added)).To(Equal(len(change.Removed)))
			for _, id := range change.Removed {
				Expect(first.Contains(id)).To(BeTrue())
			}
		})

		It("keeps cycling once the backlog wraps around", func() {
			seed(120)
			coord = newCoordinator()
			Expect(coord.Initialize(ctx)).To(Succeed())

			// Enough cycles to exhaust the 120-message backlog and force
			// cursor recycling.
			for i := 0; i < 20; i++ {
				clu, err := coord.NextCluster(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(clu).NotTo(BeNil())
			}
		})

		It("serializes concurrent advancement", func() {
			seed(200)
			coord = newCoordinator()
			Expect(coord.Initialize(ctx)).To(Succeed())

			var wg sync.WaitGroup
			indexes := make(chan uint64, 10)
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					clu, err := coord.NextCluster(ctx)
					Expect(err).NotTo(HaveOccurred())
					Expect(clu).NotTo(BeNil())
					indexes <- clu.CycleIndex
				}()
			}
			wg.Wait()
			close(indexes)

			seen := map[uint64]struct{}{}
			for idx := range indexes {
				Expect(seen).NotTo(HaveKey(idx))
				seen[idx] = struct{}{}
			}
			Expect(seen).To(HaveLen(10))
		})
	})

	Describe("AddNewMessage", func() {
		It("persists and surfaces the submission in an upcoming cluster", func() {
			seed(200)
			coord = newCoordinator()
			Expect(coord.Initialize(ctx)).To(Succeed())

			stored, err := coord.AddNewMessage(ctx, &message.Message{
				Content:  "hot off the press",
				Approved: true,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.ID).To(Equal(int64(201)))

			// The submission enters the working set during the first
			// cycle's replenishment and is displayed on the next.
			_, err = coord.NextCluster(ctx)
			Expect(err).NotTo(HaveOccurred())

			clu, err := coord.NextCluster(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(clu.Contains(stored.ID)).To(BeTrue())
		})

		It("keeps unapproved submissions out of the traversal", func() {
			seed(50)
			coord = newCoordinator()
			Expect(coord.Initialize(ctx)).To(Succeed())

			stored, err := coord.AddNewMessage(ctx, &message.Message{Content: "pending"})
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Approved).To(BeFalse())

			for i := 0; i < 5; i++ {
				clu, err := coord.NextCluster(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(clu.Contains(stored.ID)).To(BeFalse())
			}
		})

		It("rejects nil messages", func() {
			coord = newCoordinator()
			_, err := coord.AddNewMessage(ctx, nil)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ResetTraversal", func() {
		It("restarts thread selection from the lowest id", func() {
			seed(200)
			coord = newCoordinator()
			Expect(coord.Initialize(ctx)).To(Succeed())

			_, err := coord.NextCluster(ctx)
			Expect(err).NotTo(HaveOccurred())

			coord.ResetTraversal()
			Expect(coord.Stats().CycleIndex).To(BeZero())

			clu, err := coord.NextCluster(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(clu.CycleIndex).To(Equal(uint64(0)))

			// No previous focus survives a reset.
			for _, r := range clu.Related {
				Expect(r.Similarity).To(BeNumerically("<", 1.0))
			}
		})
	})

	Describe("Subscribe", func() {
		It("allows only one subscriber at a time", func() {
			coord = newCoordinator()

			_, err := coord.Subscribe()
			Expect(err).NotTo(HaveOccurred())

			_, err = coord.Subscribe()
			Expect(err).To(MatchError(traversal.ErrAlreadySubscribed))

			coord.Unsubscribe()
			_, err = coord.Subscribe()
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("Cleanup", func() {
		It("is idempotent and closes the subscriber channel", func() {
			seed(50)
			coord = newCoordinator()

			changes, err := coord.Subscribe()
			Expect(err).NotTo(HaveOccurred())
			Expect(coord.Initialize(ctx)).To(Succeed())

			coord.Cleanup()
			coord.Cleanup()

			Eventually(changes).Should(BeClosed())

			_, err = coord.NextCluster(ctx)
			Expect(err).To(MatchError(traversal.ErrCleanedUp))
			Expect(coord.Initialize(ctx)).To(MatchError(traversal.ErrCleanedUp))
		})
	})
})
