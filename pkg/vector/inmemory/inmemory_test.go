package inmemory_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/askdocco/askdoc/pkg/vector"
	"github.com/askdocco/askdoc/pkg/vector/inmemory"
)

func TestInMemory(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "InMemory Vector Index Suite")
}

func rec(chunkID, docID, userID string, ordinal int, embedding []float32) vector.Record {
	return vector.Record{
		ChunkID:    chunkID,
		DocumentID: docID,
		UserID:     userID,
		Ordinal:    ordinal,
		Text:       "text for " + chunkID,
		Embedding:  embedding,
	}
}

var _ = Describe("Index", func() {
	var (
		idx *inmemory.Index
		ctx context.Context
	)

	BeforeEach(func() {
		idx = inmemory.NewIndex()
		ctx = context.Background()
	})

	Describe("Insert", func() {
		It("rejects duplicate chunk ids", func() {
			Expect(idx.Insert(ctx, []vector.Record{
				rec("c1", "d1", "alice", 0, []float32{1, 0}),
			})).To(Succeed())

			err := idx.Insert(ctx, []vector.Record{
				rec("c1", "d1", "alice", 0, []float32{1, 0}),
			})
			Expect(err).To(MatchError(vector.ErrDuplicateRecord))
		})

		It("accepts the same chunk id in different partitions", func() {
			Expect(idx.Insert(ctx, []vector.Record{
				rec("c1", "d1", "alice", 0, []float32{1, 0}),
			})).To(Succeed())
			Expect(idx.Insert(ctx, []vector.Record{
				rec("c1", "d1", "bob", 0, []float32{1, 0}),
			})).To(Succeed())
		})
	})

	Describe("Query", func() {
		It("returns an empty result for an empty partition", func() {
			matches, err := idx.Query(ctx, "nobody", []float32{1, 0}, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(BeEmpty())
		})

		It("ranks records by descending similarity", func() {
			Expect(idx.Insert(ctx, []vector.Record{
				rec("far", "d1", "alice", 0, []float32{0, 1}),
				rec("near", "d1", "alice", 1, []float32{1, 0}),
				rec("mid", "d1", "alice", 2, []float32{1, 1}),
			})).To(Succeed())

			matches, err := idx.Query(ctx, "alice", []float32{1, 0}, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(3))
			Expect(matches[0].ChunkID).To(Equal("near"))
			Expect(matches[1].ChunkID).To(Equal("mid"))
			Expect(matches[2].ChunkID).To(Equal("far"))
		})

		It("limits results to topK", func() {
			Expect(idx.Insert(ctx, []vector.Record{
				rec("c1", "d1", "alice", 0, []float32{1, 0}),
				rec("c2", "d1", "alice", 1, []float32{1, 0.1}),
				rec("c3", "d1", "alice", 2, []float32{1, 0.2}),
			})).To(Succeed())

			matches, err := idx.Query(ctx, "alice", []float32{1, 0}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(2))
		})

		It("breaks score ties by ordinal then chunk id", func() {
			Expect(idx.Insert(ctx, []vector.Record{
				rec("z", "d1", "alice", 1, []float32{1, 0}),
				rec("b", "d1", "alice", 0, []float32{1, 0}),
				rec("a", "d1", "alice", 1, []float32{1, 0}),
			})).To(Succeed())

			matches, err := idx.Query(ctx, "alice", []float32{1, 0}, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches[0].ChunkID).To(Equal("b"))
			Expect(matches[1].ChunkID).To(Equal("a"))
			Expect(matches[2].ChunkID).To(Equal("z"))
		})

		It("never returns another user's records", func() {
			Expect(idx.Insert(ctx, []vector.Record{
				rec("alice-c1", "d1", "alice", 0, []float32{1, 0}),
				rec("bob-c1", "d2", "bob", 0, []float32{1, 0}),
			})).To(Succeed())

			matches, err := idx.Query(ctx, "alice", []float32{1, 0}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(1))
			Expect(matches[0].ChunkID).To(Equal("alice-c1"))
		})
	})

	Describe("DeleteByDocument", func() {
		BeforeEach(func() {
			Expect(idx.Insert(ctx, []vector.Record{
				rec("c1", "d1", "alice", 0, []float32{1, 0}),
				rec("c2", "d1", "alice", 1, []float32{0, 1}),
				rec("c3", "d2", "alice", 0, []float32{1, 1}),
			})).To(Succeed())
		})

		It("removes only the document's records and returns the count", func() {
			removed, err := idx.DeleteByDocument(ctx, "alice", "d1")
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(Equal(2))

			matches, err := idx.Query(ctx, "alice", []float32{1, 0}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(1))
			Expect(matches[0].DocumentID).To(Equal("d2"))
		})

		It("is idempotent", func() {
			_, err := idx.DeleteByDocument(ctx, "alice", "d1")
			Expect(err).NotTo(HaveOccurred())

			removed, err := idx.DeleteByDocument(ctx, "alice", "d1")
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(Equal(0))
		})

		It("does not cross partitions", func() {
			removed, err := idx.DeleteByDocument(ctx, "bob", "d1")
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(Equal(0))

			count, err := idx.CountByDocument(ctx, "alice", "d1")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(2))
		})
	})

	Describe("CountByDocument", func() {
		It("counts live records for the document", func() {
			Expect(idx.Insert(ctx, []vector.Record{
				rec("c1", "d1", "alice", 0, []float32{1, 0}),
				rec("c2", "d1", "alice", 1, []float32{0, 1}),
			})).To(Succeed())

			count, err := idx.CountByDocument(ctx, "alice", "d1")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(2))
		})
	})
})
