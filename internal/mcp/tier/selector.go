// Package tier picks a tool budget tier per task for agents configured with
// budget_tier: auto.
//
// The [Selector] looks at the task text and the conversation state. It makes
// no model calls, so it can run inline before every completion.
//
// Priority (highest first):
//
//  1. DEEP keyword match, demoted to STANDARD within the anti-spam window
//  2. Three or more tasks queued on the agent → FAST
//  3. STANDARD keyword match
//  4. First task of a conversation → STANDARD
//  5. Default → FAST
package tier

import (
	"strings"
	"sync"
	"time"

	"github.com/ltejedor/building-ai-agents/internal/mcp"
)

// defaultMinDeepInterval is the minimum time between two DEEP selections.
const defaultMinDeepInterval = 30 * time.Second

// busyQueueDepth is the number of waiting tasks at which FAST wins over
// STANDARD keywords.
const busyQueueDepth = 3

var defaultDeepKeywords = []string{
	"think carefully", "take your time", "in detail", "step by step",
	"research", "deep dive", "search the web", "browse",
	"compare", "investigate",
}

var defaultStandardKeywords = []string{
	"look up", "search", "find", "read", "open", "file",
	"notion", "page", "summarize", "summary", "list",
	"what is", "who is", "when did",
}

// Option configures a [Selector].
type Option func(*Selector)

// WithDeepKeywords replaces the DEEP trigger keywords. Matching is a
// case-insensitive substring test.
func WithDeepKeywords(keywords ...string) Option {
	return func(s *Selector) { s.deepKeywords = lowered(keywords) }
}

// WithStandardKeywords replaces the STANDARD trigger keywords.
func WithStandardKeywords(keywords ...string) Option {
	return func(s *Selector) { s.standardKeywords = lowered(keywords) }
}

// WithMinDeepInterval sets the window after a DEEP selection during which
// further DEEP matches are demoted to STANDARD. Default 30s.
func WithMinDeepInterval(d time.Duration) Option {
	return func(s *Selector) { s.minDeepInterval = d }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Selector) { s.now = now }
}

// Selector chooses a [mcp.BudgetTier] for each task. It is safe for
// concurrent use.
type Selector struct {
	deepKeywords     []string
	standardKeywords []string
	minDeepInterval  time.Duration
	now              func() time.Time

	mu           sync.Mutex
	turnCount    int
	lastDeepTime time.Time
	queueDepth   int
}

// NewSelector returns a Selector with opts applied over the defaults.
func NewSelector(opts ...Option) *Selector {
	s := &Selector{
		deepKeywords:     append([]string(nil), defaultDeepKeywords...),
		standardKeywords: append([]string(nil), defaultStandardKeywords...),
		minDeepInterval:  defaultMinDeepInterval,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select returns the tier for task.
func (s *Selector) Select(task string) mcp.BudgetTier {
	lower := strings.ToLower(task)

	s.mu.Lock()
	defer s.mu.Unlock()

	if containsAny(lower, s.deepKeywords) {
		now := s.now()
		if !s.lastDeepTime.IsZero() && now.Sub(s.lastDeepTime) < s.minDeepInterval {
			return mcp.BudgetStandard
		}
		s.lastDeepTime = now
		return mcp.BudgetDeep
	}

	if s.queueDepth >= busyQueueDepth {
		return mcp.BudgetFast
	}

	if containsAny(lower, s.standardKeywords) {
		return mcp.BudgetStandard
	}

	if s.turnCount == 0 {
		return mcp.BudgetStandard
	}

	return mcp.BudgetFast
}

// RecordTurn advances the conversation after a completed task.
func (s *Selector) RecordTurn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turnCount++
}

// SetQueueDepth records how many tasks are waiting for the agent.
func (s *Selector) SetQueueDepth(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queueDepth = n
}

// Reset starts a new conversation: turn count, DEEP window and queue depth
// are cleared.
func (s *Selector) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turnCount = 0
	s.lastDeepTime = time.Time{}
	s.queueDepth = 0
}

// containsAny reports whether lower contains any keyword. Keywords must
// already be lowercase.
func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func lowered(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
