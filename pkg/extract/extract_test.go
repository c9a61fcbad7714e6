package extract_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/askdocco/askdoc/pkg/extract"
)

func TestExtract(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Extract Suite")
}

var _ = Describe("Registry", func() {
	var registry *extract.Registry

	BeforeEach(func() {
		registry = extract.DefaultRegistry()
	})

	It("supports txt and pdf", func() {
		Expect(registry.Supported("txt")).To(BeTrue())
		Expect(registry.Supported("pdf")).To(BeTrue())
	})

	It("rejects unknown types", func() {
		Expect(registry.Supported("docx")).To(BeFalse())

		_, err := registry.Extract("docx", []byte("data"))
		Expect(err).To(MatchError(extract.ErrUnsupportedType))
	})

	It("dispatches txt extraction by declared type", func() {
		text, err := registry.Extract("txt", []byte("hello world"))
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("hello world"))
	})
})

var _ = Describe("Plaintext", func() {
	var p *extract.Plaintext

	BeforeEach(func() {
		p = extract.NewPlaintext()
	})

	It("returns the text unchanged for valid UTF-8", func() {
		text, err := p.Extract([]byte("héllo wörld"))
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("héllo wörld"))
	})

	It("yields empty text for whitespace-only content", func() {
		text, err := p.Extract([]byte("   \n\t  "))
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(BeEmpty())
	})

	It("yields empty text for empty content", func() {
		text, err := p.Extract([]byte{})
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(BeEmpty())
	})

	It("sanitizes invalid UTF-8 instead of failing", func() {
		text, err := p.Extract([]byte{'o', 'k', 0xff, 0xfe, '!'})
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(ContainSubstring("ok"))
		Expect(text).To(ContainSubstring("!"))
	})
})

var _ = Describe("PDF", func() {
	It("fails with ErrNoText for bytes that are not a PDF", func() {
		_, err := extract.NewPDF().Extract([]byte("definitely not a pdf"))
		Expect(err).To(MatchError(extract.ErrNoText))
	})
})
