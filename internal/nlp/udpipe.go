package nlp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/zombar/stylecheck/internal/models"
)

const (
	DefaultUDPipeModel   = "slovak"
	DefaultUDPipeTimeout = 60 * time.Second
)

// UDPipe is a Tokenizer backed by a UDPipe 2 REST service. It requests
// tokenization, tagging and dependency parsing in one call and maps the
// CoNLL-U result onto the document model.
type UDPipe struct {
	endpoint string
	model    string
	client   *http.Client
}

// NewUDPipe creates a UDPipe client for the service at baseURL
func NewUDPipe(baseURL, model string) (*UDPipe, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("UDPipe URL is required")
	}
	if model == "" {
		model = DefaultUDPipeModel
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid UDPipe URL: %w", err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/process"

	return &UDPipe{
		endpoint: u.String(),
		model:    model,
		client:   &http.Client{Timeout: DefaultUDPipeTimeout},
	}, nil
}

type udpipeResponse struct {
	Model  string `json:"model"`
	Result string `json:"result"`
}

// Tokenize implements Tokenizer
func (u *UDPipe) Tokenize(ctx context.Context, text string) (*models.Document, error) {
	if strings.TrimSpace(text) == "" {
		return assemble(text, nil)
	}

	form := url.Values{
		"data":      {text},
		"model":     {u.model},
		"tokenizer": {""},
		"tagger":    {""},
		"parser":    {""},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build UDPipe request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("UDPipe request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("UDPipe returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload udpipeResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode UDPipe response: %w", err)
	}
	log.Printf("UDPipe: tagged %d bytes with model %s in %v", len(text), payload.Model, time.Since(start))

	raws, err := parseCoNLLU(payload.Result)
	if err != nil {
		return nil, err
	}
	return assemble(text, raws)
}

// parseCoNLLU converts CoNLL-U rows into raw tokens with document-wide head
// indices. Empty nodes are dropped. A multi-word token keeps its surface form
// and the annotation of its first syntactic word; heads that point at any of
// its words point at the merged token.
func parseCoNLLU(data string) ([]rawToken, error) {
	var out []rawToken

	// per-sentence state
	idToRaw := map[int]int{}
	var pendingHeads []int // raw indices whose Head still holds a sentence-local id
	newSentence := true
	rangeEnd := 0
	rangeForm := ""

	flush := func() {
		for _, ri := range pendingHeads {
			local := out[ri].Head
			if local == 0 {
				out[ri].Head = -1
				continue
			}
			if target, ok := idToRaw[local]; ok {
				out[ri].Head = target
			} else {
				out[ri].Head = -1
			}
		}
		idToRaw = map[int]int{}
		pendingHeads = nil
		newSentence = true
		rangeEnd = 0
	}

	sc := bufio.NewScanner(strings.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		row := sc.Text()
		if strings.TrimSpace(row) == "" {
			flush()
			continue
		}
		if strings.HasPrefix(row, "#") {
			continue
		}

		cols := strings.Split(row, "\t")
		if len(cols) != 10 {
			return nil, fmt.Errorf("CoNLL-U line %d: expected 10 columns, got %d", line, len(cols))
		}
		id := cols[0]

		if strings.Contains(id, ".") {
			continue
		}
		if dash := strings.IndexByte(id, '-'); dash > 0 {
			end, err := strconv.Atoi(id[dash+1:])
			if err != nil {
				return nil, fmt.Errorf("CoNLL-U line %d: bad range %q", line, id)
			}
			rangeEnd = end
			rangeForm = cols[1]
			continue
		}

		n, err := strconv.Atoi(id)
		if err != nil {
			return nil, fmt.Errorf("CoNLL-U line %d: bad id %q", line, id)
		}

		if rangeEnd > 0 && n <= rangeEnd && rangeForm == "" {
			// continuation word of a multi-word token
			idToRaw[n] = len(out) - 1
			if n == rangeEnd {
				rangeEnd = 0
			}
			continue
		}

		head := 0
		if cols[6] != "_" {
			head, err = strconv.Atoi(cols[6])
			if err != nil {
				return nil, fmt.Errorf("CoNLL-U line %d: bad head %q", line, cols[6])
			}
		}

		form := cols[1]
		if rangeEnd > 0 && rangeForm != "" {
			form = rangeForm
			rangeForm = ""
			if n == rangeEnd {
				rangeEnd = 0
			}
		}

		idToRaw[n] = len(out)
		pendingHeads = append(pendingHeads, len(out))
		out = append(out, rawToken{
			Form:          form,
			Lemma:         cols[2],
			POS:           cols[3],
			Dep:           cols[7],
			Head:          head,
			Morph:         parseFeats(cols[5]),
			SentenceStart: newSentence,
		})
		newSentence = false
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read CoNLL-U: %w", err)
	}
	flush()

	return out, nil
}

// parseFeats parses "Case=Nom|Number=Sing" keeping the order of the features.
func parseFeats(s string) []models.Feature {
	if s == "" || s == "_" {
		return nil
	}
	parts := strings.Split(s, "|")
	feats := make([]models.Feature, 0, len(parts))
	for _, p := range parts {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			continue
		}
		feats = append(feats, models.Feature{Key: k, Value: v})
	}
	return feats
}
