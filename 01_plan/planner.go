package plan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"devotional-pipeline/config"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const systemPrompt = "You are a human-flourishing assistant."

// IntentFileName is the file the API app writes the user's request into.
const IntentFileName = "user_intent.json"

// Planner asks the language model for a structured video plan.
type Planner struct {
	cfg        *config.Config
	httpClient *http.Client
}

// New creates a Planner. The returned client performs the client-credentials
// token exchange transparently and refreshes the token as it expires.
func New(cfg *config.Config) (*Planner, error) {
	clientID := os.Getenv("GLOO_CLIENT_ID")
	clientSecret := os.Getenv("GLOO_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("GLOO_CLIENT_ID / GLOO_CLIENT_SECRET not set")
	}

	cc := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     cfg.Plan.TokenURL,
		Scopes:       []string{"api/access"},
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	base := context.WithValue(context.Background(), oauth2.HTTPClient, &http.Client{Timeout: 60 * time.Second})
	return &Planner{cfg: cfg, httpClient: cc.Client(base)}, nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Run resolves the user's request, fills the prompt template and returns the
// model's raw plan text. Parsing and validation happen downstream.
func (p *Planner) Run(ctx context.Context, userPrompt string) (string, error) {
	log.Printf("[plan] Requesting plan from %s...", p.cfg.Plan.Model)

	prompt, err := p.resolvePrompt(userPrompt)
	if err != nil {
		return "", err
	}

	template, err := os.ReadFile(p.cfg.Plan.PromptTemplate)
	if err != nil {
		return "", fmt.Errorf("read prompt template: %w", err)
	}
	userMessage := BuildUserMessage(string(template), prompt)

	reqBody := chatRequest{
		Model: p.cfg.Plan.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal plan request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.cfg.Plan.APIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("plan request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("plan API returned HTTP %d: %s", resp.StatusCode, truncate(string(respBytes), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", fmt.Errorf("parse plan response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("plan API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("plan API returned no choices")
	}

	content := parsed.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("plan API returned empty content")
	}
	log.Printf("[plan] ✅ Received plan draft (%d bytes)", len(content))
	return content, nil
}

// BuildUserMessage injects the user's request into the prompt template.
func BuildUserMessage(template, userPrompt string) string {
	return strings.ReplaceAll(template, "{{USER_PROMPT}}", userPrompt)
}

// resolvePrompt prefers the explicit argument; otherwise the intent file
// written by the API app supplies the request.
func (p *Planner) resolvePrompt(override string) (string, error) {
	if strings.TrimSpace(override) != "" {
		return strings.TrimSpace(override), nil
	}
	return LoadIntent(filepath.Join(p.cfg.Paths.Inputs, IntentFileName))
}

// LoadIntent reads the persisted user request.
func LoadIntent(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("no prompt given and intent file unavailable: %w", err)
	}
	var intent struct {
		UserPrompt string `json:"user_prompt"`
	}
	if err := json.Unmarshal(data, &intent); err != nil {
		return "", fmt.Errorf("parse intent file: %w", err)
	}
	if strings.TrimSpace(intent.UserPrompt) == "" {
		return "", fmt.Errorf("intent file %s has an empty user_prompt", path)
	}
	return strings.TrimSpace(intent.UserPrompt), nil
}

// SaveIntent persists the user request so later runs can reuse it.
func SaveIntent(path, prompt string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(map[string]string{"user_prompt": prompt}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
