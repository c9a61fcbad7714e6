package sqlitevec_test

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/askdocco/askdoc/pkg/vector"
	"github.com/askdocco/askdoc/pkg/vector/sqlitevec"
)

func TestSQLiteVec(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "SQLiteVec Suite")
}

var _ = Describe("Index", func() {
	var logger *zap.Logger

	BeforeEach(func() {
		logger = zap.NewNop()
	})

	Describe("NewIndex", func() {
		It("should return an error when DBPath is empty", func() {
			_, err := sqlitevec.NewIndex(sqlitevec.Config{DBPath: ""}, logger)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("database path is required"))
		})

		It("should error when dimensions are not specified", func() {
			_, err := sqlitevec.NewIndex(sqlitevec.Config{DBPath: ":memory:"}, logger)
			Expect(err).To(HaveOccurred())
		})

		It("should create an index with an in-memory database", func() {
			idx, err := sqlitevec.NewIndex(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
			}, logger)
			Expect(err).NotTo(HaveOccurred())
			Expect(idx).NotTo(BeNil())
			Expect(idx.Close()).To(Succeed())
		})
	})

	Describe("operations", func() {
		var (
			idx *sqlitevec.Index
			ctx context.Context
		)

		record := func(chunkID, docID, userID string, ordinal int, emb []float32) vector.Record {
			return vector.Record{
				ChunkID:    chunkID,
				DocumentID: docID,
				UserID:     userID,
				Ordinal:    ordinal,
				Text:       "payload " + chunkID,
				Embedding:  emb,
			}
		}

		BeforeEach(func() {
			var err error
			idx, err = sqlitevec.NewIndex(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
			}, logger)
			Expect(err).NotTo(HaveOccurred())
			ctx = context.Background()
		})

		AfterEach(func() {
			Expect(idx.Close()).To(Succeed())
		})

		It("does nothing when inserting no records", func() {
			Expect(idx.Insert(ctx, nil)).To(Succeed())
		})

		It("round-trips records through insert and query", func() {
			Expect(idx.Insert(ctx, []vector.Record{
				record("c1", "d1", "alice", 0, []float32{1, 0, 0, 0}),
				record("c2", "d1", "alice", 1, []float32{0, 1, 0, 0}),
			})).To(Succeed())

			matches, err := idx.Query(ctx, "alice", []float32{1, 0, 0, 0}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(2))
			Expect(matches[0].ChunkID).To(Equal("c1"))
			Expect(matches[0].Text).To(Equal("payload c1"))
			Expect(matches[0].Score).To(BeNumerically(">", matches[1].Score))
		})

		It("rejects duplicate chunk ids", func() {
			Expect(idx.Insert(ctx, []vector.Record{
				record("c1", "d1", "alice", 0, []float32{1, 0, 0, 0}),
			})).To(Succeed())

			err := idx.Insert(ctx, []vector.Record{
				record("c1", "d1", "alice", 0, []float32{1, 0, 0, 0}),
			})
			Expect(err).To(MatchError(vector.ErrDuplicateRecord))
		})

		It("scopes queries to the user's partition", func() {
			Expect(idx.Insert(ctx, []vector.Record{
				record("alice-c", "d1", "alice", 0, []float32{1, 0, 0, 0}),
				record("bob-c", "d2", "bob", 0, []float32{1, 0, 0, 0}),
			})).To(Succeed())

			matches, err := idx.Query(ctx, "alice", []float32{1, 0, 0, 0}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(HaveLen(1))
			Expect(matches[0].ChunkID).To(Equal("alice-c"))
		})

		It("returns an empty result for an empty partition", func() {
			matches, err := idx.Query(ctx, "nobody", []float32{1, 0, 0, 0}, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(matches).To(BeEmpty())
		})

		It("deletes by document and reports the removed count", func() {
			Expect(idx.Insert(ctx, []vector.Record{
				record("c1", "d1", "alice", 0, []float32{1, 0, 0, 0}),
				record("c2", "d1", "alice", 1, []float32{0, 1, 0, 0}),
				record("c3", "d2", "alice", 0, []float32{0, 0, 1, 0}),
			})).To(Succeed())

			removed, err := idx.DeleteByDocument(ctx, "alice", "d1")
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(Equal(2))

			count, err := idx.CountByDocument(ctx, "alice", "d1")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(0))

			count, err = idx.CountByDocument(ctx, "alice", "d2")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))
		})

		It("is idempotent on repeated document deletes", func() {
			removed, err := idx.DeleteByDocument(ctx, "alice", "missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(Equal(0))
		})
	})

	Describe("Interface compliance", func() {
		It("should implement vector.Index", func() {
			var _ vector.Index = (*sqlitevec.Index)(nil)
		})
	})
})
