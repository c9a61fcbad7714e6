package qa_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/askdocco/askdoc/pkg/answer"
	"github.com/askdocco/askdoc/pkg/llm"
	"github.com/askdocco/askdoc/pkg/qa"
	"github.com/askdocco/askdoc/pkg/retrieval"
	"github.com/askdocco/askdoc/pkg/storage"
	"github.com/askdocco/askdoc/pkg/storage/inmemory"
	testutils "github.com/askdocco/askdoc/pkg/utils/test"
	"github.com/askdocco/askdoc/pkg/vector"
)

func TestQA(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "QA Suite")
}

var _ = Describe("Service", func() {
	var (
		embedder *testutils.MockEmbedder
		index    *testutils.MockVectorIndex
		client   *testutils.MockChatClient
		store    *inmemory.Store
		service  *qa.Service
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		embedder = testutils.NewMockEmbedder()
		index = testutils.NewMockVectorIndex()
		client = testutils.NewMockChatClient("the answer")
		store = inmemory.NewStore()

		logger := zap.NewNop()
		retriever := retrieval.NewEngine(retrieval.Config{TopK: 3}, embedder, index, logger)
		synth := answer.NewSynthesizer(answer.Config{
			ContextBudget:  1000,
			CallsPerMinute: 600000,
			BaseBackoff:    time.Millisecond,
		}, client, logger)
		service = qa.NewService(retriever, synth, store, logger)
	})

	seedDoc := func(docID, filename string) {
		Expect(store.CreateDocument(ctx, &storage.Document{
			ID: docID, UserID: "alice", Filename: filename,
			Status: storage.StatusIngested,
		})).To(Succeed())
	}

	seedMatch := func(docID string, score float32) {
		index.Results = append(index.Results, vector.Match{
			Record: vector.Record{
				ChunkID:    docID + ":0",
				DocumentID: docID,
				UserID:     "alice",
				Text:       "chunk of " + docID,
			},
			Score: score,
		})
	}

	It("rejects blank questions without logging them", func() {
		_, err := service.Ask(ctx, "alice", "  ")
		Expect(err).To(MatchError(retrieval.ErrEmptyQuestion))

		history, err := service.History(ctx, "alice", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(history).To(BeEmpty())
	})

	It("answers with document id sources and resolved filenames", func() {
		seedDoc("d1", "notes.txt")
		seedMatch("d1", 0.8)

		resp, err := service.Ask(ctx, "alice", "what do my notes say?")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Answer).To(Equal("the answer"))
		Expect(resp.Sources).To(Equal([]string{"d1"}))
		Expect(resp.SourceFilenames).To(Equal([]string{"notes.txt"}))
		Expect(resp.Confidence).To(BeNumerically("~", 0.8, 0.001))
		Expect(resp.NoContext).To(BeFalse())
	})

	It("falls back to the document id when the source is gone", func() {
		seedMatch("vanished", 0.8)

		resp, err := service.Ask(ctx, "alice", "question")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Sources).To(Equal([]string{"vanished"}))
		Expect(resp.SourceFilenames).To(Equal([]string{"vanished"}))
	})

	It("answers without context when the corpus is empty", func() {
		resp, err := service.Ask(ctx, "alice", "anything?")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.NoContext).To(BeTrue())
		Expect(resp.Answer).To(Equal(answer.NoContextAnswer))
		Expect(resp.Confidence).To(BeZero())
		Expect(client.Requests).To(BeEmpty())
	})

	It("logs every answered question to the history", func() {
		seedDoc("d1", "notes.txt")
		seedMatch("d1", 0.8)

		resp, err := service.Ask(ctx, "alice", "question one")
		Expect(err).NotTo(HaveOccurred())

		history, err := service.History(ctx, "alice", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(history).To(HaveLen(1))
		Expect(history[0].ID).To(Equal(resp.ID))
		Expect(history[0].Question).To(Equal("question one"))
		Expect(history[0].Answer).To(Equal("the answer"))
		Expect(history[0].Sources).To(Equal([]string{"d1"}))
	})

	It("logs no-context answers too", func() {
		_, err := service.Ask(ctx, "alice", "anything?")
		Expect(err).NotTo(HaveOccurred())

		history, err := service.History(ctx, "alice", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(history).To(HaveLen(1))
		Expect(history[0].Answer).To(Equal(answer.NoContextAnswer))
		Expect(history[0].Confidence).To(BeZero())
	})

	It("logs failed generations with an empty answer", func() {
		seedMatch("d1", 0.8)
		client.Errs = []error{llm.ErrRejected}

		_, err := service.Ask(ctx, "alice", "doomed question")
		Expect(err).To(MatchError(answer.ErrGenerationFailed))

		history, err := service.History(ctx, "alice", 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(history).To(HaveLen(1))
		Expect(history[0].Question).To(Equal("doomed question"))
		Expect(history[0].Answer).To(BeEmpty())
	})

	It("reports stats through the store", func() {
		seedDoc("d1", "notes.txt")

		stats, err := service.Stats(ctx, "alice")
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.DocumentCount).To(Equal(1))
	})
})
