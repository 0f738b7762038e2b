package services

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"neuroTrackAPI/internal/tracker"
	"neuroTrackAPI/internal/types/appdata"
	"neuroTrackAPI/internal/types/chat"
	"neuroTrackAPI/internal/types/goal"
	"strings"
	"text/template"
	"time"

	"google.golang.org/genai"
	"gopkg.in/yaml.v3"
)

// ErrAIUnavailable means no report could be produced, either because no API
// key is configured or because the provider failed.
var ErrAIUnavailable = errors.New("ai provider unavailable")

const (
	DefaultFastModel = "gemini-2.5-flash"
	DefaultDeepModel = "gemini-3-pro-preview"

	chatHistoryLimit = 5
	weeklyWindowDays = 7
	minMilestones    = 4
	maxMilestones    = 6
)

//go:embed prompts.yaml
var promptsYAML []byte

type promptSpec struct {
	Tier     string `yaml:"tier"`
	Template string `yaml:"template"`
}

type promptFallbacks struct {
	ChatUnavailable       string   `yaml:"chat_unavailable"`
	ChatError             string   `yaml:"chat_error"`
	ChatEmpty             string   `yaml:"chat_empty"`
	ReportError           string   `yaml:"report_error"`
	MilestonesUnavailable []string `yaml:"milestones_unavailable"`
	MilestonesError       []string `yaml:"milestones_error"`
}

type promptCatalogue struct {
	Prompts   map[string]promptSpec `yaml:"prompts"`
	Fallbacks promptFallbacks       `yaml:"fallbacks"`

	templates map[string]*template.Template
}

func loadPromptCatalogue(raw []byte) (*promptCatalogue, error) {
	var c promptCatalogue
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("failed to parse prompt catalogue: %w", err)
	}

	c.templates = make(map[string]*template.Template, len(c.Prompts))
	for name, p := range c.Prompts {
		tmpl, err := template.New(name).Option("missingkey=error").Parse(p.Template)
		if err != nil {
			return nil, fmt.Errorf("failed to parse prompt %s: %w", name, err)
		}
		c.templates[name] = tmpl
	}

	for _, name := range []string{"weekly_report", "monthly_report", "chat", "milestones"} {
		if _, ok := c.templates[name]; !ok {
			return nil, fmt.Errorf("prompt catalogue is missing %s", name)
		}
	}
	return &c, nil
}

func (c *promptCatalogue) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := c.templates[name].Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s: %w", name, err)
	}
	return buf.String(), nil
}

// textGenerator is the one provider call the service needs.
type textGenerator interface {
	GenerateText(ctx context.Context, model, prompt string) (string, error)
}

type geminiGenerator struct {
	client *genai.Client
}

func (g *geminiGenerator) GenerateText(ctx context.Context, model, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// AIService talks to Gemini for reports, chat and goal planning.
type AIService struct {
	generator textGenerator
	models    map[string]string
	prompts   *promptCatalogue
}

// NewAIService builds the service. An empty apiKey is allowed: every call then
// answers with its fallback instead of contacting the provider.
func NewAIService(ctx context.Context, apiKey, fastModel, deepModel string) (*AIService, error) {
	var generator textGenerator
	if apiKey == "" {
		log.Println("AIService: Warning: GEMINI_API_KEY not set, AI features will use fallbacks")
	} else {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		generator = &geminiGenerator{client: client}
	}
	return newAIService(generator, fastModel, deepModel)
}

func newAIService(generator textGenerator, fastModel, deepModel string) (*AIService, error) {
	prompts, err := loadPromptCatalogue(promptsYAML)
	if err != nil {
		return nil, err
	}
	if fastModel == "" {
		fastModel = DefaultFastModel
	}
	if deepModel == "" {
		deepModel = DefaultDeepModel
	}
	return &AIService{
		generator: generator,
		models:    map[string]string{"fast": fastModel, "deep": deepModel},
		prompts:   prompts,
	}, nil
}

func (s *AIService) Enabled() bool {
	return s != nil && s.generator != nil
}

// run renders the named prompt and sends it to the model of the prompt's tier.
func (s *AIService) run(ctx context.Context, name string, data any) (string, error) {
	if !s.Enabled() {
		aiRequestsTotal.WithLabelValues(name, "disabled").Inc()
		return "", ErrAIUnavailable
	}

	prompt, err := s.prompts.render(name, data)
	if err != nil {
		return "", err
	}

	model := s.models[s.prompts.Prompts[name].Tier]
	if model == "" {
		model = s.models["fast"]
	}

	text, err := s.generator.GenerateText(ctx, model, prompt)
	if err != nil {
		aiRequestsTotal.WithLabelValues(name, "error").Inc()
		log.Printf("AIService: %s request to %s failed: %v", name, model, err)
		return "", fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		aiRequestsTotal.WithLabelValues(name, "empty").Inc()
		return "", nil
	}
	aiRequestsTotal.WithLabelValues(name, "ok").Inc()
	return text, nil
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// GenerateWeeklyReport audits the last seven days against the user's goals.
func (s *AIService) GenerateWeeklyReport(ctx context.Context, data *appdata.AppData, now time.Time) (string, error) {
	recent, missed := tracker.WindowEntries(data.History, now, weeklyWindowDays)

	text, err := s.run(ctx, "weekly_report", map[string]any{
		"WindowDays": weeklyWindowDays,
		"Profile":    mustJSON(data.Profile),
		"Goals":      mustJSON(data.Goals),
		"History":    mustJSON(recent),
		"MissedDays": missed,
	})
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("%w: empty weekly report", ErrAIUnavailable)
	}
	return text, nil
}

// GenerateMonthlyReport reviews the whole data set on the deep model.
func (s *AIService) GenerateMonthlyReport(ctx context.Context, data *appdata.AppData, now time.Time) (string, error) {
	text, err := s.run(ctx, "monthly_report", map[string]any{
		"Data": mustJSON(data),
	})
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("%w: empty monthly report", ErrAIUnavailable)
	}
	return text, nil
}

// ReportErrorText is what a manual report request shows when generation fails.
func (s *AIService) ReportErrorText() string {
	return s.prompts.Fallbacks.ReportError
}

type chatLine struct {
	Role string
	Text string
}

// Chat answers one message with the user's data and the last few turns as
// context. It never fails: provider problems come back as a canned reply.
func (s *AIService) Chat(ctx context.Context, message string, data *appdata.AppData, history []chat.Message) string {
	if !s.Enabled() {
		return s.prompts.Fallbacks.ChatUnavailable
	}

	if len(history) > chatHistoryLimit {
		history = history[len(history)-chatHistoryLimit:]
	}
	lines := make([]chatLine, 0, len(history))
	for _, m := range history {
		lines = append(lines, chatLine{Role: strings.ToUpper(string(m.Role)), Text: m.Text})
	}

	text, err := s.run(ctx, "chat", map[string]any{
		"Data":    mustJSON(data),
		"History": lines,
		"Message": message,
	})
	if err != nil {
		return s.prompts.Fallbacks.ChatError
	}
	if text == "" {
		return s.prompts.Fallbacks.ChatEmpty
	}
	return text
}

// SuggestMilestones asks for four to six milestones for a goal. It always
// returns a usable list, falling back to a generic plan.
func (s *AIService) SuggestMilestones(ctx context.Context, title string, goalType goal.GoalType) []string {
	if !s.Enabled() {
		return append([]string(nil), s.prompts.Fallbacks.MilestonesUnavailable...)
	}

	text, err := s.run(ctx, "milestones", map[string]any{
		"Title": title,
		"Type":  string(goalType),
	})
	if err != nil {
		return append([]string(nil), s.prompts.Fallbacks.MilestonesError...)
	}

	milestones, err := parseMilestones(text)
	if err != nil {
		log.Printf("AIService: Warning: unusable milestone response: %v", err)
		return append([]string(nil), s.prompts.Fallbacks.MilestonesError...)
	}
	return milestones
}

// parseMilestones reads a JSON array of strings, tolerating a markdown code fence.
func parseMilestones(text string) ([]string, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}

	var raw []string
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse milestones: %w", err)
	}

	milestones := make([]string, 0, len(raw))
	for _, m := range raw {
		if m = strings.TrimSpace(m); m != "" {
			milestones = append(milestones, m)
		}
	}
	if len(milestones) < minMilestones {
		return nil, fmt.Errorf("got %d milestones, need at least %d", len(milestones), minMilestones)
	}
	if len(milestones) > maxMilestones {
		milestones = milestones[:maxMilestones]
	}
	return milestones, nil
}
