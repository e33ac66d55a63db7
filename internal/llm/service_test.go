package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChat returns scripted responses, one per call.
type fakeChat struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return openai.ChatCompletionResponse{}, f.errs[i]
	}
	content := ""
	if i < len(f.responses) {
		content = f.responses[i]
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}, nil
}

func TestTranslatePageHappyPath(t *testing.T) {
	fake := &fakeChat{responses: []string{
		`[{"original":"你好。","translated":"안녕하세요.","pinyin":"nǐ hǎo."},
		  {"original":"再见。","translated":"안녕히 가세요.","pinyin":"zài jiàn."}]`,
	}}
	svc := NewServiceWithClient(fake, Config{MaxRetries: 3})

	got, err := svc.TranslatePage(context.Background(), "n1", "p1", []string{"你好。", "再见。"})
	require.NoError(t, err)
	assert.True(t, got.Aligned())
	assert.Equal(t, []string{"你好。", "再见。"}, got.Segments)
	assert.Equal(t, "안녕하세요.", got.Translations[0])
	assert.Equal(t, "nǐ hǎo.", got.Pinyin[0])
	assert.Equal(t, "llm", got.Source)
	assert.Equal(t, 1, fake.calls)
}

func TestTranslatePageStripsCodeFences(t *testing.T) {
	fake := &fakeChat{responses: []string{
		"```json\n[{\"original\":\"你好。\",\"translated\":\"hi.\",\"pinyin\":\"nǐ hǎo.\"}]\n```",
	}}
	svc := NewServiceWithClient(fake, Config{TargetLang: "en"})

	got, err := svc.TranslatePage(context.Background(), "n1", "p1", []string{"你好。"})
	require.NoError(t, err)
	assert.Equal(t, "hi.", got.Translations[0])
}

func TestTranslatePageRetriesOnMisalignment(t *testing.T) {
	fake := &fakeChat{responses: []string{
		`[{"original":"你好。","translated":"hi.","pinyin":"nǐ hǎo."}]`, // one row for two segments
		`[{"original":"你好。","translated":"hi.","pinyin":"nǐ hǎo."},
		  {"original":"再见。","translated":"bye.","pinyin":"zài jiàn."}]`,
	}}
	svc := NewServiceWithClient(fake, Config{MaxRetries: 3})

	got, err := svc.TranslatePage(context.Background(), "n1", "p1", []string{"你好。", "再见。"})
	require.NoError(t, err)
	assert.Equal(t, 2, fake.calls)
	assert.Len(t, got.Translations, 2)
}

func TestTranslatePageExhaustsRetries(t *testing.T) {
	boom := errors.New("rate limited")
	fake := &fakeChat{errs: []error{boom, boom}}
	svc := NewServiceWithClient(fake, Config{MaxRetries: 2})

	_, err := svc.TranslatePage(context.Background(), "n1", "p1", []string{"你好。"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, fake.calls)
}

func TestTranslatePageRejectsEmptyInput(t *testing.T) {
	svc := NewServiceWithClient(&fakeChat{}, Config{})
	_, err := svc.TranslatePage(context.Background(), "n1", "p1", nil)
	assert.ErrorIs(t, err, ErrNoSegments)
}

func TestDefineWord(t *testing.T) {
	fake := &fakeChat{responses: []string{`{"pinyin":"nǐ hǎo","meaning":"hello"}`}}
	svc := NewServiceWithClient(fake, Config{TargetLang: "en"})

	entry, err := svc.DefineWord(context.Background(), "你好")
	require.NoError(t, err)
	assert.Equal(t, "你好", entry.Word)
	assert.Equal(t, "hello", entry.Meaning)
	assert.Equal(t, "llm", entry.Source)
}

func TestDefineWordRejectsEmptyMeaning(t *testing.T) {
	fake := &fakeChat{responses: []string{`{"pinyin":"x","meaning":""}`, `{"pinyin":"x","meaning":""}`}}
	svc := NewServiceWithClient(fake, Config{MaxRetries: 2})

	_, err := svc.DefineWord(context.Background(), "你好")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
