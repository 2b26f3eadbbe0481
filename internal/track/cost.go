package track

import (
	"sync"
	"time"
)

// Pricing holds the provider rates used to estimate per-turn spend, in USD.
// Rates apply linearly with no floor or minimum charge.
type Pricing struct {
	// STTPerMinute is charged per minute of transcribed audio.
	STTPerMinute float64 `yaml:"stt_per_minute"`
	// LLMInputPerMTok / LLMOutputPerMTok are charged per million tokens.
	LLMInputPerMTok  float64 `yaml:"llm_input_per_mtok"`
	LLMOutputPerMTok float64 `yaml:"llm_output_per_mtok"`
	// TTSPer1KChars is charged per thousand synthesized characters.
	TTSPer1KChars float64 `yaml:"tts_per_1k_chars"`
}

// DefaultPricing matches the launch providers: Soniox STT (~$0.002/min),
// Groq llama-3.3-70b-versatile, ElevenLabs Pro tier TTS.
var DefaultPricing = Pricing{
	STTPerMinute:     0.002,
	LLMInputPerMTok:  0.59,
	LLMOutputPerMTok: 0.79,
	TTSPer1KChars:    0.24,
}

// TurnCost is the cost breakdown for a single turn. Components only grow
// while the turn is open; a finished turn is never touched again.
type TurnCost struct {
	TurnID        int
	STTCost       float64
	LLMInputCost  float64
	LLMOutputCost float64
	TTSCost       float64
	CreatedAt     time.Time
}

// LLMCost is the combined prompt and completion spend.
func (t *TurnCost) LLMCost() float64 {
	return t.LLMInputCost + t.LLMOutputCost
}

// Total is the full spend for the turn.
func (t *TurnCost) Total() float64 {
	return t.STTCost + t.LLMCost() + t.TTSCost
}

// CostTracker accumulates estimated spend per turn for one session. Exactly
// one turn is open at a time; FinishTurn freezes it into history and opens
// the next. Safe for concurrent use.
type CostTracker struct {
	sessionID string
	pricing   Pricing

	mu      sync.Mutex
	turns   []*TurnCost
	current *TurnCost
	counter int
	now     func() time.Time
}

// NewCostTracker creates a tracker with turn 0 open.
func NewCostTracker(sessionID string, pricing Pricing) *CostTracker {
	c := &CostTracker{sessionID: sessionID, pricing: pricing, now: time.Now}
	c.current = &TurnCost{TurnID: 0, CreatedAt: c.now()}
	return c
}

// AddSTTCost charges the open turn for transcribed audio by duration.
func (c *CostTracker) AddSTTCost(audioDurationSeconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current.STTCost += audioDurationSeconds / 60 * c.pricing.STTPerMinute
}

// AddLLMCost charges the open turn for prompt and completion tokens
// independently. Call it once per model invocation; contributions accumulate.
func (c *CostTracker) AddLLMCost(inputTokens, outputTokens int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current.LLMInputCost += float64(inputTokens) / 1e6 * c.pricing.LLMInputPerMTok
	c.current.LLMOutputCost += float64(outputTokens) / 1e6 * c.pricing.LLMOutputPerMTok
}

// AddTTSCost charges the open turn for synthesized characters.
func (c *CostTracker) AddTTSCost(characters int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current.TTSCost += float64(characters) / 1000 * c.pricing.TTSPer1KChars
}

// FinishTurn freezes the open turn into history and opens a fresh turn with
// the next sequential id. The returned turn is never mutated again.
func (c *CostTracker) FinishTurn() *TurnCost {
	c.mu.Lock()
	defer c.mu.Unlock()

	done := c.current
	c.turns = append(c.turns, done)
	c.counter++
	c.current = &TurnCost{TurnID: c.counter, CreatedAt: c.now()}
	return done
}

// TotalSTTCost sums recognition spend over history plus the open turn, so
// in-flight spend is visible before the turn is finalized.
func (c *CostTracker) TotalSTTCost() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	sum := c.current.STTCost
	for _, t := range c.turns {
		sum += t.STTCost
	}
	return sum
}

// TotalLLMCost sums model spend over history plus the open turn.
func (c *CostTracker) TotalLLMCost() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	sum := c.current.LLMCost()
	for _, t := range c.turns {
		sum += t.LLMCost()
	}
	return sum
}

// TotalTTSCost sums synthesis spend over history plus the open turn.
func (c *CostTracker) TotalTTSCost() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	sum := c.current.TTSCost
	for _, t := range c.turns {
		sum += t.TTSCost
	}
	return sum
}

// TotalCost is the full session spend including the open turn.
func (c *CostTracker) TotalCost() float64 {
	return c.TotalSTTCost() + c.TotalLLMCost() + c.TotalTTSCost()
}

// AverageCostPerTurn averages finished turns only; zero with no history.
func (c *CostTracker) AverageCostPerTurn() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.turns) == 0 {
		return 0
	}
	var sum float64
	for _, t := range c.turns {
		sum += t.Total()
	}
	return sum / float64(len(c.turns))
}

// TurnCount is the number of finished turns.
func (c *CostTracker) TurnCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

// CurrentTurnID is the id of the open turn.
func (c *CostTracker) CurrentTurnID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current.TurnID
}
