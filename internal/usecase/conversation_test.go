package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"medai-intake/internal/domain"
	"medai-intake/internal/integrations/analysis"
	"medai-intake/internal/navigation"
	"medai-intake/internal/steps"
)

type extractCall struct {
	endpoint    string
	req         analysis.KeywordRequest
	hasDeadline bool
}

type fakeExtractor struct {
	mu        sync.Mutex
	calls     []extractCall
	responses [][]string
	err       error
	started   chan struct{}
	release   chan struct{}
}

func (f *fakeExtractor) ExtractKeywords(ctx context.Context, endpoint string, in analysis.KeywordRequest) ([]string, error) {
	_, hasDeadline := ctx.Deadline()
	f.mu.Lock()
	n := len(f.calls)
	f.calls = append(f.calls, extractCall{endpoint: endpoint, req: in, hasDeadline: hasDeadline})
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	if n < len(f.responses) {
		return f.responses[n], nil
	}
	return nil, nil
}

func (f *fakeExtractor) snapshot() []extractCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]extractCall(nil), f.calls...)
}

type fakeConversationRecorder struct {
	mu          sync.Mutex
	keywords    map[string]int
	completions int
}

func (r *fakeConversationRecorder) ObserveKeywords(endpoint string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.keywords == nil {
		r.keywords = map[string]int{}
	}
	r.keywords[endpoint] += n
}

func (r *fakeConversationRecorder) ObserveCompletion() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completions++
}

func noSleep(context.Context, time.Duration) {}

func newTestConversation(t *testing.T, ext KeywordExtractor, h navigation.Handoff, opts ...ConversationOption) *Conversation {
	t.Helper()
	opts = append([]ConversationOption{WithSleeper(noSleep)}, opts...)
	c, err := NewConversation(ext, h, opts...)
	require.NoError(t, err)
	return c
}

func submitAll(t *testing.T, c *Conversation, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.True(t, c.Submit(context.Background(), fmt.Sprintf("answer %d", i)), "submission %d", i)
	}
}

func TestNewConversation_Validation(t *testing.T) {
	_, err := NewConversation(nil, navigation.Handoff{})
	require.Error(t, err)

	_, err = NewConversation(&fakeExtractor{}, navigation.Handoff{}, WithTable(steps.Table{}))
	require.Error(t, err)
}

func TestConversation_SeedsStepZeroPrompt(t *testing.T) {
	c := newTestConversation(t, &fakeExtractor{}, navigation.Handoff{})
	snap := c.Snapshot()
	require.NotEmpty(t, snap.ConversationID)
	require.Equal(t, []domain.TranscriptEntry{{Role: domain.RoleAssistant, Text: steps.DefaultPrompt}}, snap.Transcript)
	require.Equal(t, 0, snap.Step)
	require.True(t, snap.Awaiting)

	c = newTestConversation(t, &fakeExtractor{}, navigation.Handoff{FollowUpQuestion: "  언제부터 아팠나요?  "})
	require.Equal(t, "언제부터 아팠나요?", c.Snapshot().Transcript[0].Text)
}

func TestConversation_EachStepCallsItsEndpoint(t *testing.T) {
	ext := &fakeExtractor{}
	c := newTestConversation(t, ext, navigation.Handoff{FollowUpQuestion: "Q"})
	submitAll(t, c, steps.Default.Len())

	calls := ext.snapshot()
	require.Len(t, calls, steps.Default.Len())
	for i, call := range calls {
		def := steps.Default[i]
		require.Equal(t, def.Endpoint, call.endpoint, "step %d", i)
		require.Equal(t, def.QuestionIndex, call.req.QuestionIndex, "step %d", i)
		require.Equal(t, fmt.Sprintf("answer %d", i), call.req.Answer)
		if i == 0 {
			require.Equal(t, "Q", call.req.Question)
		} else {
			require.Equal(t, def.Prompt, call.req.Question)
		}
		require.True(t, call.hasDeadline)
	}
}

func TestConversation_TranscriptAlternates(t *testing.T) {
	c := newTestConversation(t, &fakeExtractor{}, navigation.Handoff{})
	require.True(t, c.Submit(context.Background(), "  가슴이 조여요 "))

	snap := c.Snapshot()
	require.Equal(t, 1, snap.Step)
	require.Len(t, snap.Transcript, 3)
	require.Equal(t, domain.TranscriptEntry{Role: domain.RoleUser, Text: "가슴이 조여요"}, snap.Transcript[1])
	require.Equal(t, domain.TranscriptEntry{Role: domain.RoleAssistant, Text: steps.Default[1].Prompt}, snap.Transcript[2])
}

func TestConversation_BlankSubmitIsNoop(t *testing.T) {
	ext := &fakeExtractor{}
	c := newTestConversation(t, ext, navigation.Handoff{})
	before := c.Snapshot()

	require.False(t, c.Submit(context.Background(), ""))
	require.False(t, c.Submit(context.Background(), " \t\n "))

	require.Equal(t, before, c.Snapshot())
	require.Empty(t, ext.snapshot())
}

func TestConversation_FinishesOnce(t *testing.T) {
	ext := &fakeExtractor{}
	rec := &fakeConversationRecorder{}
	var completions int
	var final domain.ConversationState
	c := newTestConversation(t, ext, navigation.Handoff{},
		WithConversationRecorder(rec),
		WithOnComplete(func(s domain.ConversationState) {
			completions++
			final = s
		}),
	)

	submitAll(t, c, steps.Default.Len()-1)
	select {
	case <-c.Done():
		t.Fatal("done before the last step")
	default:
	}

	require.True(t, c.Submit(context.Background(), "마지막"))
	<-c.Done()
	require.False(t, c.Submit(context.Background(), "more"))

	require.Equal(t, 1, completions)
	require.Equal(t, 1, rec.completions)
	require.True(t, final.Finished)
	require.Equal(t, steps.Default.Len()-1, final.Step)
	require.Len(t, ext.snapshot(), steps.Default.Len())

	// Ten user entries interleaved with ten prompts.
	require.Len(t, final.Transcript, 2*steps.Default.Len())
	last, ok := final.LastEntry()
	require.True(t, ok)
	require.Equal(t, domain.RoleUser, last.Role)
}

func TestConversation_MergesKeywordsWithoutDuplicates(t *testing.T) {
	ext := &fakeExtractor{responses: [][]string{{"a", "b"}, {"b", "c"}}}
	rec := &fakeConversationRecorder{}
	c := newTestConversation(t, ext, navigation.Handoff{}, WithConversationRecorder(rec))

	submitAll(t, c, 2)
	require.Equal(t, []string{"a", "b", "c"}, c.Snapshot().Keywords)
	require.Equal(t, 4, rec.keywords[steps.EndpointSymptoms])
}

func TestConversation_ExtractionFailureStillAdvances(t *testing.T) {
	ext := &fakeExtractor{err: &analysis.NetworkError{URL: "http://x", Err: errors.New("connection refused")}}
	c := newTestConversation(t, ext, navigation.Handoff{})

	require.NotPanics(t, func() {
		submitAll(t, c, steps.Default.Len())
	})
	snap := c.Snapshot()
	require.True(t, snap.Finished)
	require.Empty(t, snap.Keywords)
	<-c.Done()
}

func TestConversation_StartHarvestsInitialInput(t *testing.T) {
	ext := &fakeExtractor{responses: [][]string{{"흉통"}}}
	c := newTestConversation(t, ext, navigation.Handoff{FollowUpQuestion: "Q", InitialUserInput: "가슴이 답답해요"})

	c.Start(context.Background())
	c.Start(context.Background())

	calls := ext.snapshot()
	require.Len(t, calls, 1)
	require.Equal(t, steps.EndpointSymptoms, calls[0].endpoint)
	require.Equal(t, analysis.KeywordRequest{Question: "가슴이 답답해요", Answer: "네", QuestionIndex: 0}, calls[0].req)

	snap := c.Snapshot()
	require.Equal(t, 0, snap.Step)
	require.Len(t, snap.Transcript, 1)
	require.Equal(t, []string{"흉통"}, snap.Keywords)
}

func TestConversation_StartWithoutInitialInputDoesNothing(t *testing.T) {
	ext := &fakeExtractor{}
	c := newTestConversation(t, ext, navigation.Handoff{InitialUserInput: "   "})
	c.Start(context.Background())
	require.Empty(t, ext.snapshot())
	require.False(t, c.Busy())
}

func TestConversation_RejectsWhileInFlight(t *testing.T) {
	ext := &fakeExtractor{started: make(chan struct{}), release: make(chan struct{})}
	c := newTestConversation(t, ext, navigation.Handoff{})

	result := make(chan bool)
	go func() {
		result <- c.Submit(context.Background(), "first")
	}()
	<-ext.started

	require.True(t, c.Busy())
	require.False(t, c.Submit(context.Background(), "second"))

	close(ext.release)
	require.True(t, <-result)
	require.False(t, c.Busy())
	require.Len(t, ext.snapshot(), 1)
	require.Equal(t, 1, c.Snapshot().Step)
}

func TestConversation_StartHoldsInFlightFlag(t *testing.T) {
	ext := &fakeExtractor{started: make(chan struct{}), release: make(chan struct{})}
	c := newTestConversation(t, ext, navigation.Handoff{InitialUserInput: "가슴이 아파요"})

	done := make(chan struct{})
	go func() {
		c.Start(context.Background())
		close(done)
	}()
	<-ext.started
	require.False(t, c.Submit(context.Background(), "answer"))

	close(ext.release)
	<-done
	require.False(t, c.Busy())
}

func TestConversation_PacingDelays(t *testing.T) {
	var mu sync.Mutex
	var slept []time.Duration
	sleeper := func(_ context.Context, d time.Duration) {
		mu.Lock()
		slept = append(slept, d)
		mu.Unlock()
	}
	c, err := NewConversation(&fakeExtractor{}, navigation.Handoff{},
		WithSleeper(sleeper),
		WithPacing(7*time.Millisecond, 3*time.Millisecond),
	)
	require.NoError(t, err)

	submitAll(t, c, steps.Default.Len())

	require.Len(t, slept, steps.Default.Len()+1)
	for _, d := range slept[:steps.Default.Len()] {
		require.Equal(t, 7*time.Millisecond, d)
	}
	require.Equal(t, 3*time.Millisecond, slept[len(slept)-1])
}

func TestConversation_DefaultPacing(t *testing.T) {
	c, err := NewConversation(&fakeExtractor{}, navigation.Handoff{})
	require.NoError(t, err)
	require.Equal(t, time.Second, c.turnDelay)
	require.Equal(t, 500*time.Millisecond, c.finishDelay)
	require.Equal(t, 15*time.Second, c.keywordTimeout)
}

func TestConversation_SnapshotIsACopy(t *testing.T) {
	c := newTestConversation(t, &fakeExtractor{responses: [][]string{{"a"}}}, navigation.Handoff{})
	require.True(t, c.Submit(context.Background(), "x"))

	snap := c.Snapshot()
	snap.Transcript[0].Text = "mutated"
	snap.Keywords[0] = "mutated"

	again := c.Snapshot()
	require.Equal(t, steps.DefaultPrompt, again.Transcript[0].Text)
	require.Equal(t, "a", again.Keywords[0])
}

func TestSleepContext_ReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	sleepContext(ctx, time.Hour)
	require.Less(t, time.Since(start), time.Second)
}

func TestMergeKeywords(t *testing.T) {
	got := mergeKeywords(nil, []string{"a", "b"})
	got = mergeKeywords(got, []string{"b", "c", "c"})
	require.Equal(t, []string{"a", "b", "c"}, got)
	require.Equal(t, []string{"a"}, mergeKeywords([]string{"a"}, nil))
}
