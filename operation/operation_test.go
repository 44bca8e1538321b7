package operation

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/textpipe/errors"
)

func TestFixLayout(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"hebrew typed on english layout", "susu", "דודו"},
		{"correct english untouched", "hello", "hello"},
		{"correct hebrew untouched", "שלום", "שלום"},
		{"mixed content untouched", "hello שלום", "hello שלום"},
		{"single character untouched", "a", "a"},
		{"digits untouched", "123", "123"},
		{"empty", "", ""},
		{"whitespace only", "   ", "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fixLayout(tt.input))
		})
	}
}

func TestFixLayoutHebrewToEnglish(t *testing.T) {
	// "שלום" typed with the layout stuck on Hebrew while intending English
	// keys maps to "akuo", which fails the plausibility check, so typing
	// real Hebrew is never mangled.
	assert.Equal(t, "שלום", fixLayout("שלום"))

	// "יקךךם" is "hello" typed with the Hebrew layout active.
	assert.Equal(t, "hello", fixLayout("יקךךם"))
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"multiple spaces", "a    b", "a b"},
		{"underline filler", "a __ b", "a  b"},
		{"long underline removed", "a____b", "ab"},
		{"excessive dots", "wait.....", "wait..."},
		{"excessive bangs", "stop!!!", "stop!"},
		{"excessive questions", "why???", "why?"},
		{"trimmed", "  hi  ", "hi"},
		{"blank preserved", "   ", "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanText(tt.input))
		})
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", normalizeWhitespace("  a\t b \n c "))
	assert.Equal(t, "", normalizeWhitespace("   "))
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "hebrew", LanguageOf("שלום עולם"))
	assert.Equal(t, "english", LanguageOf("hello world"))
	assert.Equal(t, "english", LanguageOf("123"))
	assert.Equal(t, "hebrew", LanguageOf("hi שלום עולם"))
}

func TestDetectLanguageLeavesTextUntouched(t *testing.T) {
	r := NewRegistry()

	out, applied, err := r.Apply(context.Background(), "hello world",
		[]string{DetectLanguage})
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)
	assert.Equal(t, []string{DetectLanguage}, applied)
}

func TestApplyChainsOperations(t *testing.T) {
	r := NewRegistry()

	out, applied, err := r.Apply(context.Background(), "  susu  !!",
		[]string{NormalizeWhitespace, CleanText})
	require.NoError(t, err)
	assert.Equal(t, "susu !", out)
	assert.Equal(t, []string{NormalizeWhitespace, CleanText}, applied)
}

func TestApplyUnknownOperationFails(t *testing.T) {
	r := NewRegistry()

	_, _, err := r.Apply(context.Background(), "hi", []string{FixLayout, "translate_klingon"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnknownOperation)
	assert.Contains(t, err.Error(), "translate_klingon")
}

func TestApplyHandlerErrorDegrades(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("flaky", func(context.Context, string) (string, error) {
		return "", stderrors.New("transform crashed")
	}))

	out, applied, err := r.Apply(context.Background(), "susu", []string{"flaky", FixLayout})
	require.NoError(t, err)
	assert.Equal(t, "דודו", out)
	assert.Equal(t, []string{FixLayout}, applied)
}

func TestApplyCanceledContext(t *testing.T) {
	r := NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := r.Apply(ctx, "hi", []string{CleanText})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegisterValidation(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Register("", nil))
	assert.Error(t, r.Register(FixLayout, func(_ context.Context, s string) (string, error) {
		return s, nil
	}))
	assert.Contains(t, r.Names(), FixLayout)
}
