package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"medai-intake/internal/domain"
	"medai-intake/internal/integrations/analysis"
	"medai-intake/internal/navigation"
	"medai-intake/internal/steps"
)

const (
	DefaultTurnDelay      = 1000 * time.Millisecond
	DefaultFinishDelay    = 500 * time.Millisecond
	DefaultKeywordTimeout = 15 * time.Second

	// autoSubmitAnswer is sent with the carried-over symptom text.
	autoSubmitAnswer = "네"
)

type KeywordExtractor interface {
	ExtractKeywords(ctx context.Context, endpoint string, in analysis.KeywordRequest) ([]string, error)
}

type ConversationRecorder interface {
	ObserveKeywords(endpoint string, n int)
	ObserveCompletion()
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration)

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Conversation drives the scripted intake chat. Submissions are serialized by
// a busy flag: while one is in flight every other submission is rejected.
type Conversation struct {
	extractor KeywordExtractor
	table     steps.Table
	handoff   navigation.Handoff

	turnDelay      time.Duration
	finishDelay    time.Duration
	keywordTimeout time.Duration
	sleep          Sleeper
	onComplete     func(domain.ConversationState)
	recorder       ConversationRecorder
	logger         *slog.Logger

	mu      sync.Mutex
	state   domain.ConversationState
	busy    bool
	started bool

	done     chan struct{}
	doneOnce sync.Once
}

type ConversationOption func(*Conversation)

func WithTable(t steps.Table) ConversationOption {
	return func(c *Conversation) {
		c.table = t
	}
}

// WithPacing overrides the delays between turns and before completion.
func WithPacing(turn, finish time.Duration) ConversationOption {
	return func(c *Conversation) {
		c.turnDelay = turn
		c.finishDelay = finish
	}
}

func WithSleeper(s Sleeper) ConversationOption {
	return func(c *Conversation) {
		if s != nil {
			c.sleep = s
		}
	}
}

func WithKeywordTimeout(d time.Duration) ConversationOption {
	return func(c *Conversation) {
		if d > 0 {
			c.keywordTimeout = d
		}
	}
}

// WithOnComplete registers fn to run once, after the last answer is scored.
func WithOnComplete(fn func(domain.ConversationState)) ConversationOption {
	return func(c *Conversation) {
		c.onComplete = fn
	}
}

func WithConversationRecorder(r ConversationRecorder) ConversationOption {
	return func(c *Conversation) {
		c.recorder = r
	}
}

func WithConversationLogger(l *slog.Logger) ConversationOption {
	return func(c *Conversation) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewConversation seeds the transcript with the step-0 prompt taken from h.
func NewConversation(extractor KeywordExtractor, h navigation.Handoff, opts ...ConversationOption) (*Conversation, error) {
	if extractor == nil {
		return nil, errors.New("usecase: keyword extractor must not be nil")
	}
	c := &Conversation{
		extractor:      extractor,
		table:          steps.Default,
		handoff:        h.WithDefaults(),
		turnDelay:      DefaultTurnDelay,
		finishDelay:    DefaultFinishDelay,
		keywordTimeout: DefaultKeywordTimeout,
		sleep:          sleepContext,
		logger:         slog.Default(),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.table.Validate(); err != nil {
		return nil, err
	}
	c.state = domain.ConversationState{
		ConversationID: newUUID(),
		Transcript: []domain.TranscriptEntry{
			{Role: domain.RoleAssistant, Text: c.questionFor(0)},
		},
		Awaiting: true,
	}
	return c, nil
}

// Start harvests keywords from the symptom text carried over from the
// symptom check. Nothing is added to the transcript and the step does not
// move. It runs at most once; later calls are no-ops.
func (c *Conversation) Start(ctx context.Context) {
	initial := strings.TrimSpace(c.handoff.InitialUserInput)

	c.mu.Lock()
	if c.started || c.busy {
		c.mu.Unlock()
		return
	}
	c.started = true
	if initial == "" {
		c.mu.Unlock()
		return
	}
	c.busy = true
	def := c.table[0]
	c.mu.Unlock()

	keywords := c.extract(ctx, def.Endpoint, analysis.KeywordRequest{
		Question:      initial,
		Answer:        autoSubmitAnswer,
		QuestionIndex: def.QuestionIndex,
	})

	c.mu.Lock()
	c.state.Keywords = mergeKeywords(c.state.Keywords, keywords)
	c.busy = false
	c.mu.Unlock()
}

// Submit scores one answer and advances the script. It reports false when the
// input was rejected: blank text, a submission already in flight, or a
// finished conversation.
func (c *Conversation) Submit(ctx context.Context, input string) bool {
	answer := strings.TrimSpace(input)
	if answer == "" {
		return false
	}

	c.mu.Lock()
	if c.busy || c.state.Finished {
		c.mu.Unlock()
		return false
	}
	step := c.state.Step
	def, ok := c.table.At(step)
	if !ok {
		c.mu.Unlock()
		return false
	}
	if last, ok := c.state.LastEntry(); !ok || last.Role != domain.RoleUser || last.Text != answer {
		c.state.Transcript = append(c.state.Transcript, domain.TranscriptEntry{Role: domain.RoleUser, Text: answer})
	}
	c.busy = true
	c.state.Awaiting = false
	question := c.questionFor(step)
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}()

	keywords := c.extract(ctx, def.Endpoint, analysis.KeywordRequest{
		Question:      question,
		Answer:        answer,
		QuestionIndex: def.QuestionIndex,
	})

	c.mu.Lock()
	c.state.Keywords = mergeKeywords(c.state.Keywords, keywords)
	c.mu.Unlock()

	c.sleep(ctx, c.turnDelay)

	c.mu.Lock()
	if !c.table.Last(step) {
		next := step + 1
		c.state.Step = next
		c.state.Transcript = append(c.state.Transcript, domain.TranscriptEntry{Role: domain.RoleAssistant, Text: c.questionFor(next)})
		c.state.Awaiting = true
		c.mu.Unlock()
		return true
	}
	c.state.Finished = true
	c.mu.Unlock()

	c.sleep(ctx, c.finishDelay)
	c.complete()
	return true
}

// Snapshot returns a copy of the current state.
func (c *Conversation) Snapshot() domain.ConversationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Busy reports whether a submission is in flight.
func (c *Conversation) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Done is closed once the last answer has been scored.
func (c *Conversation) Done() <-chan struct{} {
	return c.done
}

func (c *Conversation) complete() {
	c.doneOnce.Do(func() {
		snap := c.Snapshot()
		c.logger.Info("intake conversation finished", "conversation_id", snap.ConversationID, "keywords", len(snap.Keywords))
		if c.recorder != nil {
			c.recorder.ObserveCompletion()
		}
		close(c.done)
		if c.onComplete != nil {
			c.onComplete(snap)
		}
	})
}

func (c *Conversation) questionFor(step int) string {
	def, ok := c.table.At(step)
	if !ok {
		return ""
	}
	if def.Dynamic() {
		return c.handoff.Prompt()
	}
	return def.Prompt
}

// extract never fails: errors are logged and count as zero keywords.
func (c *Conversation) extract(ctx context.Context, endpoint string, req analysis.KeywordRequest) []string {
	callCtx, cancel := context.WithTimeout(ctx, c.keywordTimeout)
	defer cancel()

	keywords, err := c.extractor.ExtractKeywords(callCtx, endpoint, req)
	if err != nil {
		c.logger.Warn("keyword extraction failed", "endpoint", endpoint, "question_index", req.QuestionIndex, "err", err)
		keywords = nil
	}
	if c.recorder != nil {
		c.recorder.ObserveKeywords(endpoint, len(keywords))
	}
	return keywords
}

// mergeKeywords appends unseen keywords in first-seen order.
func mergeKeywords(existing, incoming []string) []string {
	if len(incoming) == 0 {
		return existing
	}
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, k := range existing {
		seen[k] = struct{}{}
	}
	for _, k := range incoming {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		existing = append(existing, k)
	}
	return existing
}

var newUUID = func() string {
	return uuid.NewString()
}
