package textcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zombar/stylecheck/internal/config"
	"github.com/zombar/stylecheck/internal/models"
)

func TestMultipleSpaces(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []models.TextIssue
	}{
		{"none", "Jedna medzera.", nil},
		{"between words", "Dve  medzery a   tri.", []models.TextIssue{
			{Kind: models.IssueMultipleSpaces, Offset: 3, Length: 2, Replacement: " "},
			{Kind: models.IssueMultipleSpaces, Offset: 14, Length: 3, Replacement: " "},
		}},
		{"indentation ignored", "  Odsadené.\n    Tiež.", nil},
		{"line end ignored", "Koniec  \nďalší", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MultipleSpaces(tt.input))
		})
	}
}

func TestMultiplePunctuation(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []models.TextIssue
	}{
		{"none", "Áno, nie. Čo?", nil},
		{"ellipsis accepted", "A potom...", nil},
		{"double comma", "Áno,, nie", []models.TextIssue{
			{Kind: models.IssueMultiplePunctuation, Offset: 4, Length: 2, Replacement: ","},
		}},
		{"two dots", "Koniec..", []models.TextIssue{
			{Kind: models.IssueMultiplePunctuation, Offset: 6, Length: 2, Replacement: "."},
		}},
		{"long dot run", "Hmm.....", []models.TextIssue{
			{Kind: models.IssueMultiplePunctuation, Offset: 3, Length: 5, Replacement: "..."},
		}},
		{"mixed marks are not a run", "Čo?!", nil},
		{"exclamations", "Pozor!!!", []models.TextIssue{
			{Kind: models.IssueMultiplePunctuation, Offset: 5, Length: 3, Replacement: "!"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MultiplePunctuation(tt.input))
		})
	}
}

func TestTrailingSpaces(t *testing.T) {
	text := "Riadok \nďalší\t \nposledný  "
	assert.Equal(t, []models.TextIssue{
		{Kind: models.IssueTrailingSpaces, Offset: 6, Length: 1},
		{Kind: models.IssueTrailingSpaces, Offset: 16, Length: 2},
		{Kind: models.IssueTrailingSpaces, Offset: 28, Length: 2},
	}, TrailingSpaces(text))

	assert.Empty(t, TrailingSpaces("Bez medzier.\nNič."))
}

func TestQuotes(t *testing.T) {
	assert.Empty(t, Quotes("Povedal: „Ahoj.“"))

	issues := Quotes(`Povedal: "Ahoj."`)
	assert.Equal(t, []models.TextIssue{
		{Kind: models.IssueQuotes, Offset: 9, Length: 1, Replacement: "„"},
		{Kind: models.IssueQuotes, Offset: 15, Length: 1, Replacement: "“"},
	}, issues)

	issues = Quotes("“Hi”")
	assert.Equal(t, []models.TextIssue{
		{Kind: models.IssueQuotes, Offset: 0, Length: 3, Replacement: "„"},
		{Kind: models.IssueQuotes, Offset: 5, Length: 3, Replacement: "“"},
	}, issues)

	issues = Quotes(`("citát")`)
	assert.Len(t, issues, 2)
	assert.Equal(t, "„", issues[0].Replacement)
}

func TestRun(t *testing.T) {
	text := "Dve  medzery,, \"úvodzovky\" "

	all := Run(text, config.Default().Features)
	kinds := make([]models.TextIssueKind, len(all))
	for i, issue := range all {
		kinds[i] = issue.Kind
		if i > 0 {
			assert.LessOrEqual(t, all[i-1].Offset, issue.Offset)
		}
	}
	assert.Equal(t, []models.TextIssueKind{
		models.IssueMultipleSpaces,
		models.IssueMultiplePunctuation,
		models.IssueQuotes,
		models.IssueQuotes,
		models.IssueTrailingSpaces,
	}, kinds)

	assert.Empty(t, Run(text, config.Features{}))

	only := Run(text, config.Features{TrailingSpaces: true})
	assert.Len(t, only, 1)
}
