package answer_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/askdocco/askdoc/pkg/answer"
	"github.com/askdocco/askdoc/pkg/llm"
	testutils "github.com/askdocco/askdoc/pkg/utils/test"
	"github.com/askdocco/askdoc/pkg/vector"
)

func TestAnswer(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Answer Suite")
}

func match(docID, text string, score float32) vector.Match {
	return vector.Match{
		Record: vector.Record{
			ChunkID:    docID + ":" + text,
			DocumentID: docID,
			UserID:     "alice",
			Text:       text,
		},
		Score: score,
	}
}

var _ = Describe("Synthesizer", func() {
	var (
		client *testutils.MockChatClient
		synth  *answer.Synthesizer
		ctx    context.Context
	)

	newSynth := func(cfg answer.Config) *answer.Synthesizer {
		// High rate and tiny backoff keep the suite fast.
		if cfg.CallsPerMinute == 0 {
			cfg.CallsPerMinute = 600000
		}
		if cfg.BaseBackoff == 0 {
			cfg.BaseBackoff = time.Millisecond
		}
		return answer.NewSynthesizer(cfg, client, zap.NewNop())
	}

	BeforeEach(func() {
		client = testutils.NewMockChatClient("a grounded answer")
		synth = newSynth(answer.Config{ContextBudget: 100})
		ctx = context.Background()
	})

	It("answers without calling the model when there is no context", func() {
		result, err := synth.Synthesize(ctx, "anything?", nil)
		Expect(err).NotTo(HaveOccurred())

		Expect(result.NoContext).To(BeTrue())
		Expect(result.Answer).To(Equal(answer.NoContextAnswer))
		Expect(result.Confidence).To(BeZero())
		Expect(result.Sources).To(BeEmpty())
		Expect(client.Requests).To(BeEmpty())
	})

	It("includes the chunks and question in the prompt", func() {
		result, err := synth.Synthesize(ctx, "what color is the fox?", []vector.Match{
			match("d1", "the fox is brown", 0.8),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Answer).To(Equal("a grounded answer"))

		Expect(client.Requests).To(HaveLen(1))
		Expect(client.Requests[0].Prompt).To(ContainSubstring("the fox is brown"))
		Expect(client.Requests[0].Prompt).To(ContainSubstring("what color is the fox?"))
		Expect(client.Requests[0].System).NotTo(BeEmpty())
	})

	It("lists distinct sources by first appearance", func() {
		result, err := synth.Synthesize(ctx, "q", []vector.Match{
			match("d2", "aaa", 0.9),
			match("d1", "bbb", 0.8),
			match("d2", "ccc", 0.7),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Sources).To(Equal([]string{"d2", "d1"}))
	})

	It("drops whole chunks that exceed the budget but keeps smaller later ones", func() {
		s := newSynth(answer.Config{ContextBudget: 10})

		result, err := s.Synthesize(ctx, "q", []vector.Match{
			match("d1", "this chunk is far too long to fit", 0.9),
			match("d2", "tiny", 0.5),
		})
		Expect(err).NotTo(HaveOccurred())

		Expect(client.Requests[0].Prompt).NotTo(ContainSubstring("far too long"))
		Expect(client.Requests[0].Prompt).To(ContainSubstring("tiny"))
		Expect(result.Sources).To(Equal([]string{"d2"}))
	})

	It("falls back to the no-context answer when nothing fits the budget", func() {
		s := newSynth(answer.Config{ContextBudget: 3})

		result, err := s.Synthesize(ctx, "q", []vector.Match{
			match("d1", "too long either way", 0.9),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.NoContext).To(BeTrue())
		Expect(client.Requests).To(BeEmpty())
	})

	It("reports mean similarity of the chunks used as confidence", func() {
		result, err := synth.Synthesize(ctx, "q", []vector.Match{
			match("d1", "a", 0.4),
			match("d1", "b", 0.8),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Confidence).To(BeNumerically("~", 0.6, 0.001))
	})

	It("clamps confidence to one", func() {
		result, err := synth.Synthesize(ctx, "q", []vector.Match{
			match("d1", "a", 1.4),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Confidence).To(Equal(float32(1)))
	})

	It("retries rate-limited calls and succeeds", func() {
		client.Errs = []error{llm.ErrRateLimited, llm.ErrRateLimited}

		result, err := synth.Synthesize(ctx, "q", []vector.Match{
			match("d1", "context", 0.8),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Answer).To(Equal("a grounded answer"))
		Expect(client.Requests).To(HaveLen(3))
	})

	It("does not retry rejected calls", func() {
		client.Errs = []error{llm.ErrRejected}

		_, err := synth.Synthesize(ctx, "q", []vector.Match{
			match("d1", "context", 0.8),
		})
		Expect(err).To(MatchError(answer.ErrGenerationFailed))
		Expect(client.Requests).To(HaveLen(1))
	})

	It("gives up after the attempt ceiling", func() {
		client.Errs = []error{
			llm.ErrUnavailable, llm.ErrUnavailable, llm.ErrUnavailable, llm.ErrUnavailable,
		}

		s := newSynth(answer.Config{ContextBudget: 100, MaxAttempts: 3})
		_, err := s.Synthesize(ctx, "q", []vector.Match{
			match("d1", "context", 0.8),
		})
		Expect(err).To(MatchError(answer.ErrGenerationFailed))
		Expect(client.Requests).To(HaveLen(3))
	})
})
