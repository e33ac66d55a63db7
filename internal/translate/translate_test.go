package translate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTranslator is a scriptable provider for chain tests.
type stubTranslator struct {
	name   string
	out    []string
	err    error
	called bool
}

func (s *stubTranslator) Name() string { return s.name }

func (s *stubTranslator) Translate(_ context.Context, segments []string) ([]string, error) {
	s.called = true
	if s.err != nil {
		return nil, s.err
	}
	return s.out, nil
}

func TestChainFirstProviderWins(t *testing.T) {
	first := &stubTranslator{name: "first", out: []string{"a"}}
	second := &stubTranslator{name: "second", out: []string{"b"}}
	chain := NewChain(first, second)

	got, source, err := chain.Translate(context.Background(), []string{"你好"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got)
	assert.Equal(t, "first", source)
	assert.False(t, second.called)
}

func TestChainFallsThroughOnFailure(t *testing.T) {
	first := &stubTranslator{name: "first", err: errors.New("quota")}
	second := &stubTranslator{name: "second", out: []string{"b"}}
	chain := NewChain(first, second)

	got, source, err := chain.Translate(context.Background(), []string{"你好"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, got)
	assert.Equal(t, "second", source)
}

func TestChainRejectsMisalignedProvider(t *testing.T) {
	bad := &stubTranslator{name: "bad", out: []string{"only one"}}
	good := &stubTranslator{name: "good", out: []string{"one", "two"}}
	chain := NewChain(bad, good)

	got, source, err := chain.Translate(context.Background(), []string{"一", "二"})
	require.NoError(t, err)
	assert.Equal(t, "good", source)
	assert.Len(t, got, 2)
}

func TestChainAllFailed(t *testing.T) {
	chain := NewChain(&stubTranslator{name: "only", err: errors.New("down")})
	_, _, err := chain.Translate(context.Background(), []string{"你好"})
	assert.ErrorIs(t, err, ErrAllProvidersFailed)
}

func TestChainSkipsNilProviders(t *testing.T) {
	absent := NewPapagoTranslator("", "", "ko")
	good := &stubTranslator{name: "good", out: []string{"x"}}
	chain := NewChain(absent, good)

	_, source, err := chain.Translate(context.Background(), []string{"你好"})
	require.NoError(t, err)
	assert.Equal(t, "good", source)
}

func TestPapagoTranslate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "id", r.Header.Get("X-NCP-APIGW-API-KEY-ID"))
		assert.Equal(t, "secret", r.Header.Get("X-NCP-APIGW-API-KEY"))
		w.Write([]byte(`{"message":{"result":{"translatedText":"안녕\n잘 가"}}}`))
	}))
	defer server.Close()

	p := NewPapagoTranslatorWithEndpoint("id", "secret", "ko", server.URL)
	got, err := p.Translate(context.Background(), []string{"你好", "再见"})
	require.NoError(t, err)
	assert.Equal(t, []string{"안녕", "잘 가"}, got)
}

func TestPapagoRejectsLineCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":{"result":{"translatedText":"한 줄"}}}`))
	}))
	defer server.Close()

	p := NewPapagoTranslatorWithEndpoint("id", "secret", "ko", server.URL)
	_, err := p.Translate(context.Background(), []string{"你好", "再见"})
	assert.ErrorIs(t, err, ErrMisaligned)
}

func TestPapagoErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := NewPapagoTranslatorWithEndpoint("id", "secret", "ko", server.URL)
	_, err := p.Translate(context.Background(), []string{"你好"})
	assert.ErrorIs(t, err, ErrTranslationFailed)
}

func TestPapagoWithoutCredsIsNil(t *testing.T) {
	assert.Nil(t, NewPapagoTranslator("", "", "ko"))
}
