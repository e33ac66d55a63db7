package tts

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pikabook/internal/cache"
)

type fakeSpeech struct {
	calls int
	audio []byte
	err   error
}

func (f *fakeSpeech) CreateSpeech(context.Context, openai.CreateSpeechRequest) (openai.RawResponse, error) {
	f.calls++
	if f.err != nil {
		return openai.RawResponse{}, f.err
	}
	return openai.RawResponse{ReadCloser: io.NopCloser(bytes.NewReader(f.audio))}, nil
}

func newTestService(t *testing.T, client *fakeSpeech) *Service {
	t.Helper()
	mgr := cache.NewManager(cache.NewMemory(cache.Options{TTL: time.Hour}), nil)
	svc, err := NewServiceWithClient(client, mgr, Config{
		Voice:    "alloy",
		Model:    "tts-1",
		AudioDir: t.TempDir(),
	})
	require.NoError(t, err)
	return svc
}

func TestSpeakSynthesizesAndWritesClip(t *testing.T) {
	client := &fakeSpeech{audio: []byte("mp3-bytes")}
	svc := newTestService(t, client)

	path, err := svc.Speak(context.Background(), "u1", "你好")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3-bytes"), data)
	assert.Equal(t, 1, client.calls)
}

func TestSpeakReusesExistingClip(t *testing.T) {
	client := &fakeSpeech{audio: []byte("mp3-bytes")}
	svc := newTestService(t, client)
	ctx := context.Background()

	first, err := svc.Speak(ctx, "u1", "你好")
	require.NoError(t, err)
	second, err := svc.Speak(ctx, "u1", "你好")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, client.calls, "same text must not be synthesized twice")
}

func TestSpeakDistinguishesTexts(t *testing.T) {
	client := &fakeSpeech{audio: []byte("mp3-bytes")}
	svc := newTestService(t, client)
	ctx := context.Background()

	first, err := svc.Speak(ctx, "u1", "你好")
	require.NoError(t, err)
	second, err := svc.Speak(ctx, "u1", "再见")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, client.calls)
}

func TestSpeakResynthesizesWhenClipPruned(t *testing.T) {
	client := &fakeSpeech{audio: []byte("mp3-bytes")}
	svc := newTestService(t, client)
	ctx := context.Background()

	path, err := svc.Speak(ctx, "u1", "你好")
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	again, err := svc.Speak(ctx, "u1", "你好")
	require.NoError(t, err)
	assert.Equal(t, path, again)
	assert.Equal(t, 2, client.calls)
}

func TestSpeakRejectsEmptyText(t *testing.T) {
	svc := newTestService(t, &fakeSpeech{audio: []byte("x")})

	_, err := svc.Speak(context.Background(), "u1", "   ")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestSpeakWrapsAPIFailure(t *testing.T) {
	svc := newTestService(t, &fakeSpeech{err: errors.New("rate limited")})

	_, err := svc.Speak(context.Background(), "u1", "你好")
	assert.ErrorIs(t, err, ErrSynthesisFailed)
}
