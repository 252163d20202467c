package coach

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"titan/internal/model"
	"titan/pkg/metrics"
)

// Fallback texts returned whenever generation is unavailable or fails.
const (
	InsightFallback = "Discipline is the only way. Execute your mission without excuses."
	ReviewFallback  = "Consistency is your only objective. Eliminate the excuses."
)

// Generator produces text for a prompt. Gemini implements it.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

type GenerateOptions struct {
	Temperature float32
	TopP        float32
}

// Cache stores generated insights. RedisCache implements it.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

// Advisor reads stats and habits and returns short advisory text. It never
// fails: every error path yields the fixed fallback.
type Advisor struct {
	gen     Generator
	cache   Cache
	timeout time.Duration
	logger  *zap.Logger
}

// NewAdvisor wires the collaborators. gen and cache may be nil.
func NewAdvisor(gen Generator, cache Cache, timeout time.Duration, logger *zap.Logger) *Advisor {
	return &Advisor{gen: gen, cache: cache, timeout: timeout, logger: logger}
}

// InsightKey is the cache key of an insight. The insight is refreshed when
// the level changes.
func InsightKey(identity string, level int) string {
	if identity == "" {
		identity = "local"
	}
	return fmt.Sprintf("titan:insight:%s:%d", identity, level)
}

// Insight returns a short motivational order based on the current state.
func (a *Advisor) Insight(ctx context.Context, identity string, stats model.UserStats, habits []model.Habit) string {
	key := InsightKey(identity, stats.Level)
	if a.cache != nil {
		if text, ok := a.cache.Get(ctx, key); ok {
			return text
		}
	}

	text, ok := a.generate(ctx, "insight", insightPrompt(stats, habits), GenerateOptions{Temperature: 0.9, TopP: 0.95})
	if !ok {
		return InsightFallback
	}
	if a.cache != nil {
		a.cache.Set(ctx, key, text)
	}
	return text
}

// DayHistory lists the habits completed on one day.
type DayHistory struct {
	Day       string   `json:"day"`
	Completed []string `json:"completed"`
}

// History builds the per-day completion history of days from habits.
func History(habits []model.Habit, days []string) []DayHistory {
	out := make([]DayHistory, 0, len(days))
	for _, d := range days {
		entry := DayHistory{Day: d, Completed: []string{}}
		for _, h := range habits {
			if h.CompletedOn(d) {
				entry.Completed = append(entry.Completed, h.Name)
			}
		}
		out = append(out, entry)
	}
	return out
}

// WeeklyReview returns a three-point review of history.
func (a *Advisor) WeeklyReview(ctx context.Context, history []DayHistory) string {
	data, err := json.Marshal(history)
	if err != nil {
		return ReviewFallback
	}
	text, ok := a.generate(ctx, "review", reviewPrompt(string(data)), GenerateOptions{})
	if !ok {
		return ReviewFallback
	}
	return text
}

func (a *Advisor) generate(ctx context.Context, kind, prompt string, opts GenerateOptions) (string, bool) {
	if a.gen == nil {
		metrics.IncrementCoachFallback(kind)
		return "", false
	}
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	text, err := a.gen.Generate(ctx, prompt, opts)
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		metrics.IncrementCoachFallback(kind)
		a.logger.Warn("Coach generation failed, using fallback", zap.String("kind", kind), zap.Error(err))
		return "", false
	}
	return text, true
}

func insightPrompt(stats model.UserStats, habits []model.Habit) string {
	names := make([]string, 0, len(habits))
	for _, h := range habits {
		names = append(names, h.Name)
	}
	return fmt.Sprintf(`Context: a high-performance habit tracking app called TITAN.
User stats: XP %d, Level %d, Rank %s.
Active habits: %s.

Instructions: act as the "AI Commander", a special forces instructor focused on extreme productivity.
Task: give the user a short motivational order (2 sentences at most).
Tone: firm, authoritative, direct, tactical.
Rules:
- Use military/tactical vocabulary (objective, mission, deployment, discipline).
- Do not be generic. Mention their habits or rank where possible.
- No "you can do it"; say "do it".`,
		stats.XP, stats.Level, stats.Rank, strings.Join(names, ", "))
}

func reviewPrompt(history string) string {
	return fmt.Sprintf(`Analyze this weekly habit history: %s.
Give a damage and improvement report in 3 short points.
Tone: elite instructor. Be hard but strategic.`, history)
}
