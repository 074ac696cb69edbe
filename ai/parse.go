package ai

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

var (
	// ErrUpstream wraps failures of the language model call.
	ErrUpstream = errors.New("ai upstream failure")
	// ErrDisabled is returned by operations that need a configured model.
	ErrDisabled = errors.New("ai is not configured")
)

const (
	ModeAI       = "ai"
	ModeFallback = "fallback"

	parseSystemPrompt = "You convert a user input into a JSON array of tasks. Each task is an object with: title (string) and date (YYYY-MM-DD or empty string). Use today's date for relative dates. Respond with only JSON. Today is %s."
	suggestPrompt     = "You turn a user note into a JSON array of task titles. Respond with only JSON."
)

var (
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	bulletLead  = regexp.MustCompile(`^[-*\d.\s]+`)
)

// Item is one parsed task.
type Item struct {
	Title string `json:"title"`
	Date  string `json:"date"`
}

// ParseResult is the outcome of turning free text into tasks. Todo carries
// the item titles.
type ParseResult struct {
	Mode    string   `json:"mode"`
	Items   []Item   `json:"items"`
	Todo    []string `json:"todo"`
	Message string   `json:"message,omitempty"`
}

func newResult(mode string, items []Item) ParseResult {
	todo := make([]string, 0, len(items))
	for _, it := range items {
		todo = append(todo, it.Title)
	}
	if items == nil {
		items = []Item{}
	}
	return ParseResult{Mode: mode, Items: items, Todo: todo}
}

// Parser turns free text into tasks. A nil completer disables the model and
// every call falls back to literal text.
type Parser struct {
	completer Completer
	now       func() time.Time
}

func NewParser(c Completer) *Parser {
	return &Parser{completer: c, now: time.Now}
}

// Enabled reports whether a model is configured.
func (p *Parser) Enabled() bool { return p.completer != nil }

// Parse breaks text into dated tasks.
func (p *Parser) Parse(ctx context.Context, text string) (ParseResult, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return newResult(ModeFallback, nil), nil
	}
	if p.completer == nil {
		res := newResult(ModeFallback, []Item{{Title: trimmed}})
		res.Message = "AI disabled"
		return res, nil
	}
	today := p.now().UTC().Format(time.DateOnly)
	content, err := p.completer.Complete(ctx, fmt.Sprintf(parseSystemPrompt, today), trimmed)
	if err != nil {
		return ParseResult{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return newResult(ModeAI, NormalizeItems(content)), nil
}

// Suggest proposes task titles for a note.
func (p *Parser) Suggest(ctx context.Context, text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return []string{}, nil
	}
	if p.completer == nil {
		return nil, ErrDisabled
	}
	content, err := p.completer.Complete(ctx, suggestPrompt, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return ExtractTitles(content), nil
}

// NormalizeItems reads model output as a JSON array, or an object with an
// "items" array, of strings or {title, date} objects. Dates that are not
// YYYY-MM-DD are dropped. Output that is not JSON is read as one task per
// line with bullets and numbering stripped.
func NormalizeItems(content string) []Item {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return []Item{}
	}
	var parsed any
	if err := sonic.UnmarshalString(trimmed, &parsed); err != nil {
		items := []Item{}
		for _, title := range splitLines(trimmed) {
			items = append(items, Item{Title: title})
		}
		return items
	}
	var raw []any
	switch v := parsed.(type) {
	case []any:
		raw = v
	case map[string]any:
		raw, _ = v["items"].([]any)
	}
	items := []Item{}
	for _, r := range raw {
		var it Item
		switch v := r.(type) {
		case string:
			it.Title = strings.TrimSpace(v)
		case map[string]any:
			if title, ok := v["title"].(string); ok {
				it.Title = strings.TrimSpace(title)
			}
			if date, ok := v["date"].(string); ok && datePattern.MatchString(date) {
				it.Date = date
			}
		}
		if it.Title != "" {
			items = append(items, it)
		}
	}
	return items
}

// ExtractTitles reads model output as a JSON array of strings, an object with
// a "tasks" array, or bullet lines.
func ExtractTitles(content string) []string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return []string{}
	}
	var parsed any
	if err := sonic.UnmarshalString(trimmed, &parsed); err != nil {
		return splitLines(trimmed)
	}
	var raw []any
	switch v := parsed.(type) {
	case []any:
		raw = v
	case map[string]any:
		raw, _ = v["tasks"].([]any)
	}
	out := []string{}
	for _, r := range raw {
		if s, ok := r.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func splitLines(s string) []string {
	out := []string{}
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(bulletLead.ReplaceAllString(line, ""))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
