package advice

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"google.golang.org/genai"

	"budgetwise/internal/cache"
	"budgetwise/internal/core"
	"budgetwise/internal/log"
	"budgetwise/internal/ports"
)

const systemInstruction = `You are a friendly personal-finance assistant.
Given a user's spending broken down by category, give three short, concrete
suggestions to improve their budget. Refer to categories by name and use the
amounts provided. Answer in plain text, no markdown, under 120 words.`

// recentLimit caps how many individual records go into the prompt.
const recentLimit = 20

// contentGenerator is the part of genai.Models the generator calls.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini generates advice with a Gemini model. Answers are cached per owner
// and expense set; concurrent identical requests share one model call.
type Gemini struct {
	models contentGenerator
	model  string
	cache  cache.Cache[string]
	group  singleflight.Group
	logger *log.Logger
}

var _ ports.AdviceGenerator = (*Gemini)(nil)

// NewGemini creates a generator using the Gemini API.
func NewGemini(ctx context.Context, apiKey, model string, answers cache.Cache[string], logger *log.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGemini(client.Models, model, answers, logger), nil
}

func newGemini(models contentGenerator, model string, answers cache.Cache[string], logger *log.Logger) *Gemini {
	if logger == nil {
		logger = log.Discard()
	}
	if answers == nil {
		answers = cache.NewLRUCache[string](256, time.Hour)
	}
	return &Gemini{
		models: models,
		model:  model,
		cache:  answers,
		logger: logger.WithComponent(log.ComponentAdvice),
	}
}

// Generate returns advice for ownerID's records.
func (g *Gemini) Generate(ctx context.Context, ownerID string, records []core.ExpenseRecord) (string, error) {
	if len(records) == 0 {
		return NoExpensesMessage, nil
	}
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return "", fmt.Errorf("record %s: %w", r.ID, err)
		}
	}
	fp, err := fingerprint(records)
	if err != nil {
		return "", err
	}
	key := ownerID + ":" + fp
	if advice, ok := g.cache.Get(key); ok {
		return advice, nil
	}

	v, err, shared := g.group.Do(key, func() (any, error) {
		advice, err := g.ask(ctx, records)
		if err != nil {
			return "", err
		}
		g.cache.Set(key, advice)
		return advice, nil
	})
	if err != nil {
		g.logger.ErrorContext(ctx, "Advice generation failed",
			log.FieldOwnerID, ownerID,
			log.FieldError, err)
		return "", err
	}
	g.logger.DebugContext(ctx, "Advice generated", log.FieldOwnerID, ownerID, "shared", shared, "cached", g.cache.Size())
	return v.(string), nil
}

func (g *Gemini) ask(ctx context.Context, records []core.ExpenseRecord) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}},
	}
	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(BuildPrompt(records)), cfg)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no candidates in model response")
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			b.WriteString(p.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", errors.New("empty model response")
	}
	return text, nil
}

// BuildPrompt renders the category breakdown and the most recent records.
func BuildPrompt(records []core.ExpenseRecord) string {
	summaries := core.Aggregate(records)
	var b strings.Builder
	fmt.Fprintf(&b, "Total spent: %s across %d expenses.\n", core.FormatAmount(core.GrandTotal(summaries)), len(records))
	b.WriteString("Spending by category:\n")
	for _, s := range summaries {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", s.Category, core.FormatAmount(s.Total), core.FormatPercent(s.PercentageOfTotal))
	}

	recent := append([]core.ExpenseRecord(nil), records...)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].Date.After(recent[j].Date.Time) })
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}
	b.WriteString("Most recent expenses:\n")
	for _, r := range recent {
		fmt.Fprintf(&b, "- %s %s %s\n", r.Date.String(), r.Category, core.FormatAmount(r.Amount))
	}
	return b.String()
}

// fingerprint identifies a set of records independent of their order.
func fingerprint(records []core.ExpenseRecord) (string, error) {
	type row struct {
		Amount   float64 `json:"a"`
		Category string  `json:"c"`
		Date     string  `json:"d"`
	}
	rows := make([]row, len(records))
	for i, r := range records {
		rows[i] = row{Amount: r.Amount, Category: string(r.Category), Date: r.Date.String()}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		if rows[i].Category != rows[j].Category {
			return rows[i].Category < rows[j].Category
		}
		return rows[i].Amount < rows[j].Amount
	})
	b, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("fingerprint records: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
