package inmemory_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/askdocco/askdoc/pkg/storage"
	"github.com/askdocco/askdoc/pkg/storage/inmemory"
)

func TestInMemoryStore(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "InMemory Store Suite")
}

var _ = Describe("Store", func() {
	var (
		store *inmemory.Store
		ctx   context.Context
	)

	BeforeEach(func() {
		store = inmemory.NewStore()
		ctx = context.Background()
	})

	It("round-trips a document", func() {
		Expect(store.CreateDocument(ctx, &storage.Document{
			ID: "d1", UserID: "alice", Filename: "notes.txt",
			ContentType: "txt", Status: storage.StatusProcessing,
		})).To(Succeed())

		got, err := store.GetDocument(ctx, "alice", "d1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Filename).To(Equal("notes.txt"))
	})

	It("returns ErrNotFound across users", func() {
		Expect(store.CreateDocument(ctx, &storage.Document{
			ID: "d1", UserID: "alice",
		})).To(Succeed())

		_, err := store.GetDocument(ctx, "bob", "d1")
		Expect(err).To(BeAssignableToTypeOf(storage.ErrNotFound{}))
	})

	It("returns copies that do not alias internal state", func() {
		Expect(store.CreateDocument(ctx, &storage.Document{
			ID: "d1", UserID: "alice", Status: storage.StatusProcessing,
		})).To(Succeed())

		got, err := store.GetDocument(ctx, "alice", "d1")
		Expect(err).NotTo(HaveOccurred())
		got.Status = storage.StatusFailed

		again, err := store.GetDocument(ctx, "alice", "d1")
		Expect(err).NotTo(HaveOccurred())
		Expect(again.Status).To(Equal(storage.StatusProcessing))
	})

	It("lists documents newest first", func() {
		base := time.Now().UTC()
		Expect(store.CreateDocument(ctx, &storage.Document{
			ID: "old", UserID: "alice", UploadedAt: base.Add(-time.Hour),
		})).To(Succeed())
		Expect(store.CreateDocument(ctx, &storage.Document{
			ID: "new", UserID: "alice", UploadedAt: base,
		})).To(Succeed())

		docs, err := store.ListDocuments(ctx, "alice")
		Expect(err).NotTo(HaveOccurred())
		Expect(docs[0].ID).To(Equal("new"))
		Expect(docs[1].ID).To(Equal("old"))
	})

	It("deletes and reports absence afterwards", func() {
		Expect(store.CreateDocument(ctx, &storage.Document{ID: "d1", UserID: "alice"})).To(Succeed())
		Expect(store.DeleteDocument(ctx, "alice", "d1")).To(Succeed())
		Expect(store.DeleteDocument(ctx, "alice", "d1")).To(BeAssignableToTypeOf(storage.ErrNotFound{}))
	})

	It("lists queries newest first with a limit", func() {
		Expect(store.LogQuery(ctx, &storage.AnswerRecord{ID: "q1", UserID: "alice", Question: "first"})).To(Succeed())
		Expect(store.LogQuery(ctx, &storage.AnswerRecord{ID: "q2", UserID: "alice", Question: "second"})).To(Succeed())

		records, err := store.ListQueries(ctx, "alice", 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(1))
		Expect(records[0].Question).To(Equal("second"))
	})

	It("aggregates stats per user", func() {
		Expect(store.CreateDocument(ctx, &storage.Document{ID: "d1", UserID: "alice"})).To(Succeed())
		Expect(store.SetDocumentStatus(ctx, "alice", "d1", storage.StatusIngested, 3)).To(Succeed())
		Expect(store.LogQuery(ctx, &storage.AnswerRecord{ID: "q1", UserID: "alice"})).To(Succeed())

		stats, err := store.Stats(ctx, "alice")
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.DocumentCount).To(Equal(1))
		Expect(stats.ChunkCount).To(Equal(3))
		Expect(stats.QueryCount).To(Equal(1))
	})
})
