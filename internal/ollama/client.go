package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/zombar/stylecheck/internal/models"
	"github.com/zombar/stylecheck/internal/nlp"
)

const (
	DefaultModel   = "gpt-oss:20b"
	DefaultTimeout = 60 * time.Second
	DefaultURL     = "http://localhost:11434"
	MaxSynonyms    = 10
)

// Client wraps the Ollama API client and serves as an LLM-backed thesaurus
type Client struct {
	client  *api.Client
	model   string
	timeout time.Duration
}

// New creates a new Ollama client
func New(ollamaURL, model string) (*Client, error) {
	if ollamaURL == "" {
		ollamaURL = DefaultURL
	}
	if model == "" {
		model = DefaultModel
	}

	baseURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	return &Client{
		client:  api.NewClient(baseURL, http.DefaultClient),
		model:   model,
		timeout: DefaultTimeout,
	}, nil
}

// GenerateResponse generates a response from the LLM
func (c *Client) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	log.Printf("Ollama: Sending request to model %s (timeout: %v)", c.model, c.timeout)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := &api.GenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: new(bool), // false
	}

	var response strings.Builder
	err := c.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		response.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		log.Printf("Ollama: Generation failed: %v", err)
		return "", fmt.Errorf("generation failed: %w", err)
	}

	result := strings.TrimSpace(response.String())
	log.Printf("Ollama: Response received (%d chars)", len(result))
	return result, nil
}

// Lookup returns a thesaurus entry for a Slovak lemma
func (c *Client) Lookup(ctx context.Context, lemma string) (*models.ThesaurusEntry, error) {
	lemma = strings.TrimSpace(lemma)
	if lemma == "" {
		return nil, fmt.Errorf("empty lemma")
	}

	prompt := fmt.Sprintf(`Si slovník synoným slovenského jazyka. Pre zadané slovo v základnom tvare uveď jeho synonymá.

Pravidlá:
- Uveď najviac %d synoným, od najbežnejšieho
- Iba spisovné slovenské slová v základnom tvare
- "heading" je zadané slovo, prípadne s krátkym spresnením významu v zátvorke
- Ak synonymá nepoznáš, vráť prázdne pole

Vráť IBA JSON objekt s poľami heading (reťazec) a synonyms (pole reťazcov), nič iné.

Slovo: %s

JSON:`, MaxSynonyms, lemma)

	response, err := c.GenerateResponse(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return parseThesaurusEntry(response, lemma)
}

// parseThesaurusEntry extracts the JSON object from an LLM response and
// cleans up the synonym list.
func parseThesaurusEntry(response, lemma string) (*models.ThesaurusEntry, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	var entry models.ThesaurusEntry
	if err := json.Unmarshal([]byte(response[start:end+1]), &entry); err != nil {
		return nil, fmt.Errorf("failed to parse thesaurus JSON: %w", err)
	}

	if strings.TrimSpace(entry.Heading) == "" {
		entry.Heading = lemma
	}

	self := nlp.Lower(lemma)
	seen := map[string]bool{self: true}
	synonyms := make([]string, 0, len(entry.Synonyms))
	for _, s := range entry.Synonyms {
		s = normalizeSynonym(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		synonyms = append(synonyms, s)
	}
	if len(synonyms) > MaxSynonyms {
		synonyms = synonyms[:MaxSynonyms]
	}
	entry.Synonyms = synonyms

	return &entry, nil
}

// normalizeSynonym lowercases a synonym, collapses inner whitespace and
// trims punctuation the model tends to add.
func normalizeSynonym(s string) string {
	s = nlp.Lower(s)
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " .,;:-\"'")
}
