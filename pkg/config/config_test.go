package config_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/mural/pkg/config"
)

var _ = Describe("Configer", func() {
	var (
		dir    string
		cfger  *config.Configer
		setErr error
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		cfger, setErr = config.NewConfiger(dir)
		Expect(setErr).NotTo(HaveOccurred())
	})

	It("returns defaults when no config file exists", func() {
		cfg, err := cfger.LoadConfig()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Traversal.WorkingSetSize).To(Equal(150))
		Expect(cfg.Storage.Backend).To(Equal("sqlite"))
	})

	It("round-trips values through set and get", func() {
		Expect(cfger.SetKey("traversal.working_set_size", "250")).To(Succeed())

		value, err := cfger.GetKey("traversal.working_set_size")
		Expect(err).NotTo(HaveOccurred())
		Expect(value).To(Equal("250"))

		// Untouched keys keep their defaults.
		backend, err := cfger.GetKey("storage.backend")
		Expect(err).NotTo(HaveOccurred())
		Expect(backend).To(Equal("sqlite"))
	})

	It("rejects values that fail validation without writing", func() {
		Expect(cfger.SetKey("traversal.working_set_size", "10")).To(HaveOccurred())

		value, err := cfger.GetKey("traversal.working_set_size")
		Expect(err).NotTo(HaveOccurred())
		Expect(value).To(Equal("150"))
	})

	It("rejects unknown keys", func() {
		Expect(cfger.SetKey("no.such.key", "1")).To(HaveOccurred())
		_, err := cfger.GetKey("no.such.key")
		Expect(err).To(HaveOccurred())
	})

	It("validates every advertised key", func() {
		for _, key := range config.ValidConfigKeys() {
			Expect(config.IsValidConfigKey(key)).To(BeTrue(), key)
		}
		Expect(config.IsValidConfigKey("bogus")).To(BeFalse())
	})
})
