package messaging

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Daskott/rightguard/server/models"
	"github.com/Daskott/rightguard/shared"
	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultModel = openai.GPT3Dot5Turbo

	MaxAlertLength = 160

	alertSystemPrompt = "You are an emergency communication assistant. Generate a brief, clear, and calm emergency alert message for a family member or friend. The message should be under 160 characters, informative, and not cause panic. Include key details about the police interaction."

	summarySystemPrompt = "You summarise police interaction reports. Write a short factual summary in plain language, listing what happened, where, and any officer details. Do not speculate."
)

// Generator produces the text of alerts and incident summaries
type Generator interface {
	AlertMessage(ctx context.Context, incident models.Incident, contactName string) (string, error)
	IncidentSummary(ctx context.Context, incident models.Incident) (string, error)
}

// ChatCompleter is the part of the openai client the generator uses
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type OpenAIGenerator struct {
	client ChatCompleter
	model  string
}

func NewOpenAIGenerator(config shared.OpenAIConfig) (*OpenAIGenerator, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("missing openai configuration: apiKey is empty")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return NewGeneratorWithClient(openai.NewClientWithConfig(clientConfig), config.Model), nil
}

func NewGeneratorWithClient(client ChatCompleter, model string) *OpenAIGenerator {
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIGenerator{client: client, model: model}
}

func (g *OpenAIGenerator) AlertMessage(ctx context.Context, incident models.Incident, contactName string) (string, error) {
	prompt := fmt.Sprintf(
		"Generate an emergency alert message for %s about a police interaction. Location: %s. Details: %s. Time: %s.",
		contactName,
		incident.Location,
		incident.InteractionSummary,
		incident.Timestamp.Format("Jan 2, 2006 3:04 PM"),
	)

	message, err := g.complete(ctx, alertSystemPrompt, prompt, 100, 0.1)
	if err != nil {
		return "", errors.Wrap(err, "generate alert message")
	}

	return truncate(message, MaxAlertLength), nil
}

func (g *OpenAIGenerator) IncidentSummary(ctx context.Context, incident models.Incident) (string, error) {
	prompt := fmt.Sprintf("Location: %s\nTime: %s\nOfficer details: %s\nReport: %s",
		incident.Location,
		incident.Timestamp.Format("Jan 2, 2006 3:04 PM"),
		officerDetails(incident.OfficerDetails),
		incident.InteractionSummary,
	)

	summary, err := g.complete(ctx, summarySystemPrompt, prompt, 300, 0.3)
	if err != nil {
		return "", errors.Wrap(err, "generate incident summary")
	}
	return summary, nil
}

func (g *OpenAIGenerator) complete(ctx context.Context, system, prompt string, maxTokens int, temperature float32) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no completion returned")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty completion returned")
	}
	return text, nil
}

// TemplateGenerator renders fixed templates. Selected explicitly by config in
// dev mode, it is never used as a fallback for a failing OpenAIGenerator.
type TemplateGenerator struct{}

func (TemplateGenerator) AlertMessage(ctx context.Context, incident models.Incident, contactName string) (string, error) {
	message := fmt.Sprintf("%s, I'm in a police interaction at %s. I'm okay, please stay reachable.", contactName, incident.Location)
	return truncate(message, MaxAlertLength), ctx.Err()
}

func (TemplateGenerator) IncidentSummary(ctx context.Context, incident models.Incident) (string, error) {
	return fmt.Sprintf("Police interaction at %s on %s. %s",
		incident.Location,
		incident.Timestamp.Format("Jan 2, 2006 3:04 PM"),
		incident.InteractionSummary,
	), ctx.Err()
}

func officerDetails(details map[string]interface{}) string {
	if len(details) == 0 {
		return "none recorded"
	}

	keys := make([]string, 0, len(details))
	for key := range details {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", key, details[key]))
	}
	return strings.Join(parts, ", ")
}

func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max-1]) + "…"
}
