package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"text/template"
	"time"
)

const (
	DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel    = "gemini-1.5-flash-latest"
)

var prompts = map[string]*template.Template{
	"en": template.Must(template.New("en").Parse(`You are a chess analyst. Analyse the following chess position given in FEN.
Do not write a long explanation. Answer ONLY with a valid JSON object with the keys "evaluation" (a short textual evaluation such as "+0.5, white is slightly better"), "bestMove" (the best move for the side to move in SAN, e.g. "Nf3") and "commentary" (one short sentence about the idea behind the move).
FEN: {{.FEN}}`)),
	"nb": template.Must(template.New("nb").Parse(`Du er en sjakkanalytiker. Analyser følgende sjakkstilling i FEN-format.
Ikke skriv en lang forklaring. Svar KUN med et gyldig JSON-objekt med nøklene "evaluation" (en kort tekstlig evaluering som "+0.5, hvit er litt bedre"), "bestMove" (det beste trekket for siden som skal trekke i SAN-format, f.eks. "Nf3") og "commentary" (én kort setning om ideen bak trekket).
FEN: {{.FEN}}`)),
}

// Prompt renders the analysis request text for fen. Unknown languages fall
// back to English.
func Prompt(lang, fen string) string {
	t, ok := prompts[strings.ToLower(lang)]
	if !ok {
		t = prompts["en"]
	}
	var buf bytes.Buffer
	_ = t.Execute(&buf, struct{ FEN string }{fen})
	return buf.String()
}

type GeminiConfig struct {
	Endpoint string
	Model    string
	APIKey   string
	Language string
	Timeout  time.Duration
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

// GeminiClient asks the generateContent endpoint for a move.
type GeminiClient struct {
	cfg  GeminiConfig
	post *poster
}

func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultGeminiEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")
	return &GeminiClient{cfg: cfg, post: newPoster(cfg.Timeout)}
}

func (c *GeminiClient) Name() string {
	return "gemini"
}

func (c *GeminiClient) url() string {
	return fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.cfg.Endpoint, url.PathEscape(c.cfg.Model), url.QueryEscape(c.cfg.APIKey))
}

func (c *GeminiClient) Analyze(ctx context.Context, fen string) (Result, error) {
	if c.cfg.APIKey == "" {
		return Result{}, ErrMissingKey
	}
	req := geminiRequest{Contents: []geminiContent{{
		Parts: []geminiPart{{Text: Prompt(c.cfg.Language, fen)}},
	}}}
	body, err := c.post.postJSON(ctx, c.url(), req)
	if err != nil {
		return Result{}, fmt.Errorf("gemini: %w", err)
	}

	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Result{}, fmt.Errorf("gemini: %w: %v", ErrMalformed, err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return Result{}, fmt.Errorf("gemini: %w: no candidates", ErrMalformed)
	}
	res, err := ParseResult(resp.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		return Result{}, fmt.Errorf("gemini: %w", err)
	}
	return res, nil
}
