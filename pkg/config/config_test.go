package config_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/askdocco/askdoc/pkg/config"
)

func TestConfig(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Config Suite")
}

var _ = Describe("Config", func() {
	It("loads defaults when no file or environment is present", func() {
		v, err := config.InitViper(GinkgoT().TempDir())
		Expect(err).NotTo(HaveOccurred())

		cfg, err := config.Load(v)
		Expect(err).NotTo(HaveOccurred())

		Expect(cfg.Storage.Driver).To(Equal("sqlite"))
		Expect(cfg.Vector.Provider).To(Equal("sqlitevec"))
		Expect(cfg.Embedding.Provider).To(Equal("ollama"))
		Expect(cfg.Ingest.ChunkSize).To(Equal(1000))
		Expect(cfg.Ingest.ChunkOverlap).To(Equal(200))
		Expect(cfg.Ingest.MaxFileBytes).To(Equal(int64(10 * 1024 * 1024)))
		Expect(cfg.Retrieval.TopK).To(Equal(3))
		Expect(cfg.Embedding.TimeoutSeconds).To(Equal(30))
		Expect(cfg.LLM.TimeoutSeconds).To(Equal(60))
		Expect(cfg.LLM.CallsPerMinute).To(Equal(30))
		Expect(cfg.API.Listen).To(Equal(":8080"))
		Expect(cfg.Events.Enabled).To(BeFalse())
	})

	It("reads values from a config file", func() {
		dir := GinkgoT().TempDir()
		content := []byte("api:\n  listen: \":9090\"\nretrieval:\n  top_k: 5\n")
		Expect(os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o644)).To(Succeed())

		v, err := config.InitViper(dir)
		Expect(err).NotTo(HaveOccurred())

		cfg, err := config.Load(v)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.API.Listen).To(Equal(":9090"))
		Expect(cfg.Retrieval.TopK).To(Equal(5))

		// Untouched sections keep their defaults.
		Expect(cfg.Ingest.ChunkSize).To(Equal(1000))
	})

	It("lets environment variables override the file", func() {
		dir := GinkgoT().TempDir()
		content := []byte("api:\n  listen: \":9090\"\n")
		Expect(os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o644)).To(Succeed())

		GinkgoT().Setenv("ASKDOC_API_LISTEN", ":7070")

		v, err := config.InitViper(dir)
		Expect(err).NotTo(HaveOccurred())

		cfg, err := config.Load(v)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.API.Listen).To(Equal(":7070"))
	})

	It("keeps defaults as the single source of truth", func() {
		d := config.NewDefaultConfig()
		Expect(d.LLM.Model).NotTo(BeEmpty())
		Expect(d.LLM.Temperature).To(BeNumerically(">", 0))
		Expect(d.LLM.MaxAttempts).To(BeNumerically(">=", 1))
		Expect(d.LLM.TimeoutSeconds).To(BeNumerically(">", 0))
		Expect(d.Embedding.TimeoutSeconds).To(BeNumerically(">", 0))
	})

	It("reads timeouts from the file", func() {
		dir := GinkgoT().TempDir()
		content := []byte("embedding:\n  timeout_seconds: 5\nllm:\n  timeout_seconds: 10\n")
		Expect(os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o644)).To(Succeed())

		v, err := config.InitViper(dir)
		Expect(err).NotTo(HaveOccurred())

		cfg, err := config.Load(v)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Embedding.TimeoutSeconds).To(Equal(5))
		Expect(cfg.LLM.TimeoutSeconds).To(Equal(10))
	})
})
