package track

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestTurnCostAccumulatesIndependentOfCallOrder(t *testing.T) {
	c := NewCostTracker("s1", DefaultPricing)
	c.AddTTSCost(200)
	c.AddLLMCost(100, 50)
	c.AddSTTCost(30)
	c.AddLLMCost(40, 10)

	want := 200.0/1000*0.24 +
		140.0/1e6*0.59 +
		60.0/1e6*0.79 +
		30.0/60*0.002
	if got := c.TotalCost(); !almostEqual(got, want, 1e-12) {
		t.Fatalf("TotalCost = %.12f, want %.12f", got, want)
	}
}

func TestFinishTurnAssignsSequentialIDs(t *testing.T) {
	c := NewCostTracker("s1", DefaultPricing)
	for i := 0; i < 5; i++ {
		done := c.FinishTurn()
		if done.TurnID != i {
			t.Fatalf("finished turn id = %d, want %d", done.TurnID, i)
		}
	}
	if got := c.TurnCount(); got != 5 {
		t.Fatalf("TurnCount = %d, want 5", got)
	}
	if got := c.CurrentTurnID(); got != 5 {
		t.Fatalf("CurrentTurnID = %d, want 5", got)
	}
}

func TestAverageCostPerTurnEmptyHistoryIsZero(t *testing.T) {
	c := NewCostTracker("s1", DefaultPricing)
	c.AddTTSCost(100) // open-turn spend does not count toward the average
	if got := c.AverageCostPerTurn(); got != 0 {
		t.Fatalf("AverageCostPerTurn = %f, want 0", got)
	}
}

func TestTotalsIncludeOpenTurn(t *testing.T) {
	c := NewCostTracker("s1", DefaultPricing)
	c.AddTTSCost(500)
	if c.TurnCount() != 0 {
		t.Fatal("turn finished unexpectedly")
	}
	if got := c.TotalTTSCost(); !almostEqual(got, 0.12, 1e-12) {
		t.Fatalf("TotalTTSCost = %f, want 0.12 from the open turn", got)
	}
}

func TestConversationTurnScenario(t *testing.T) {
	c := NewCostTracker("s1", DefaultPricing)

	c.AddSTTCost(30)
	if got := c.TotalSTTCost(); !almostEqual(got, 0.001, 1e-9) {
		t.Fatalf("TotalSTTCost = %.9f, want 0.001", got)
	}

	c.AddLLMCost(100, 50)
	if got := c.TotalLLMCost(); !almostEqual(got, 0.0000985, 1e-9) {
		t.Fatalf("TotalLLMCost = %.9f, want 0.0000985", got)
	}

	c.AddTTSCost(200)
	if got := c.TotalTTSCost(); !almostEqual(got, 0.048, 1e-9) {
		t.Fatalf("TotalTTSCost = %.9f, want 0.048", got)
	}

	done := c.FinishTurn()
	if !almostEqual(done.Total(), 0.0490985, 1e-9) {
		t.Fatalf("finished turn total = %.9f, want 0.0490985", done.Total())
	}
	if c.TurnCount() != 1 {
		t.Fatalf("TurnCount = %d, want 1", c.TurnCount())
	}
	if c.CurrentTurnID() != 1 {
		t.Fatalf("CurrentTurnID = %d, want 1", c.CurrentTurnID())
	}

	snap := done.Snapshot()
	if snap.TurnID != 0 {
		t.Fatalf("snapshot turn_id = %d, want 0", snap.TurnID)
	}
	if !almostEqual(snap.Total, 0.0490985, 1e-6) {
		t.Fatalf("snapshot total = %f, want ~0.0490985", snap.Total)
	}
	if !almostEqual(snap.LLMCost, 0.000099, 1e-6) {
		t.Fatalf("snapshot llm_cost = %f, want ~0.0000985 rounded to 6 places", snap.LLMCost)
	}
}

func TestFinishedTurnNeverMutatedAgain(t *testing.T) {
	c := NewCostTracker("s1", DefaultPricing)
	c.AddTTSCost(100)
	done := c.FinishTurn()
	before := done.Total()

	c.AddTTSCost(1000)
	if done.Total() != before {
		t.Fatalf("finished turn total changed from %f to %f", before, done.Total())
	}
	if got, want := c.TotalTTSCost(), before+0.24; !almostEqual(got, want, 1e-12) {
		t.Fatalf("TotalTTSCost = %f, want %f", got, want)
	}
}

func TestPricingOverridesApply(t *testing.T) {
	pricing := Pricing{
		STTPerMinute:     0.6,
		LLMInputPerMTok:  2,
		LLMOutputPerMTok: 4,
		TTSPer1KChars:    1,
	}
	c := NewCostTracker("s1", pricing)
	c.AddSTTCost(60)
	c.AddLLMCost(1_000_000, 500_000)
	c.AddTTSCost(2000)

	if got := c.TotalSTTCost(); !almostEqual(got, 0.6, 1e-12) {
		t.Fatalf("TotalSTTCost = %f, want 0.6", got)
	}
	if got := c.TotalLLMCost(); !almostEqual(got, 4, 1e-12) {
		t.Fatalf("TotalLLMCost = %f, want 4", got)
	}
	if got := c.TotalTTSCost(); !almostEqual(got, 2, 1e-12) {
		t.Fatalf("TotalTTSCost = %f, want 2", got)
	}
}

func TestCostSummaryShape(t *testing.T) {
	c := NewCostTracker("s1", DefaultPricing)
	c.AddTTSCost(1000)
	c.FinishTurn()

	summary := c.Summary()
	if summary.SessionID != "s1" {
		t.Fatalf("summary session_id = %q, want s1", summary.SessionID)
	}
	if summary.TurnCount != 1 {
		t.Fatalf("summary turn_count = %d, want 1", summary.TurnCount)
	}
	if !almostEqual(summary.Costs.TTS, 0.24, 1e-12) {
		t.Fatalf("summary tts = %f, want 0.24", summary.Costs.TTS)
	}
	if !almostEqual(summary.Costs.Total, 0.24, 1e-12) {
		t.Fatalf("summary total = %f, want 0.24", summary.Costs.Total)
	}
	if !almostEqual(summary.AveragePerTurn, 0.24, 1e-12) {
		t.Fatalf("summary average_per_turn = %f, want 0.24", summary.AveragePerTurn)
	}
}

func TestLastTurnAbsentWithoutHistory(t *testing.T) {
	c := NewCostTracker("s1", DefaultPricing)
	if _, ok := c.LastTurn(); ok {
		t.Fatal("LastTurn defined before any turn finished")
	}
	c.AddTTSCost(100)
	c.FinishTurn()
	snap, ok := c.LastTurn()
	if !ok || snap.TurnID != 0 {
		t.Fatalf("LastTurn = (%+v, %v), want turn 0", snap, ok)
	}
}
