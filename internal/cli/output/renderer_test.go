package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderer_EffectiveMode(t *testing.T) {
	tests := []struct {
		mode Mode
		want Mode
	}{
		{ModeAuto, ModeMarkdown},
		{"", ModeMarkdown},
		{ModeText, ModeText},
		{ModeJSON, ModeJSON},
		{ModeMarkdown, ModeMarkdown},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, tt.mode)
			assert.False(t, r.IsTTY())
			assert.Equal(t, tt.want, r.EffectiveMode())
		})
	}
}

func TestMode_IsValid(t *testing.T) {
	assert.True(t, Mode("").IsValid())
	assert.True(t, ModeJSON.IsValid())
	assert.False(t, Mode("yaml").IsValid())
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "## Cards", FormatHeader(2, "Cards"))
	assert.Equal(t, "# Title", FormatHeader(0, "Title"))
	assert.Equal(t, "- **Rule**: UserTable", FormatKeyValue("Rule", "UserTable"))
	assert.Equal(t, "```json\n{}\n```", FormatCodeBlock("json", "{}\n"))
}

func TestRenderer_TableMarkdown(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, &bytes.Buffer{}, ModeMarkdown)

	r.Table([]string{"ID", "Name"}, [][]string{{"1", "orders"}})

	assert.Contains(t, out.String(), "| ID | Name |")
	assert.Contains(t, out.String(), "| 1 | orders |")
}

func TestRenderer_JSON(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, &bytes.Buffer{}, ModeJSON)

	assert.NoError(t, r.JSON(map[string]int{"tables": 2}))
	assert.JSONEq(t, `{"tables": 2}`, out.String())

	out.Reset()
	assert.NoError(t, r.JSON([]any{"fk->", 3, 7}))
	assert.Contains(t, out.String(), `"fk->"`)
}

func TestRenderer_HeaderMarkdown(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, &bytes.Buffer{}, ModeMarkdown)

	r.Header(1, "Dashboards")
	assert.Equal(t, "# Dashboards\n", out.String())
}
