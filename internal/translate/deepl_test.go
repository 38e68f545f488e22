package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDeepL(t *testing.T, handler http.HandlerFunc) (*DeepL, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	d, err := NewDeepL(DeepLConfig{APIKey: "test-key"})
	require.NoError(t, err)
	d.baseURL = server.URL
	d.retryConfig.MaxAttempts = 1
	return d, server
}

func TestDeepL_Translate(t *testing.T) {
	var gotTarget string
	d, _ := newTestDeepL(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/translate", r.URL.Path)
		assert.Equal(t, "DeepL-Auth-Key test-key", r.Header.Get("Authorization"))

		var req struct {
			Text       []string `json:"text"`
			TargetLang string   `json:"target_lang"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Text, 1)
		gotTarget = req.TargetLang

		_ = json.NewEncoder(w).Encode(map[string]any{
			"translations": []map[string]any{
				{"detected_source_language": "EN", "text": "こんにちは"},
			},
		})
	})

	out, err := d.Translate(context.Background(), "hello", "ja")
	require.NoError(t, err)
	assert.Equal(t, "こんにちは", out)
	assert.Equal(t, "JA", gotTarget)
}

func TestDeepL_Translate_APIError(t *testing.T) {
	d, _ := newTestDeepL(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"invalid auth key"}`))
	})

	_, err := d.Translate(context.Background(), "hello", "ja")
	assert.Error(t, err)
}

func TestDeepL_Translate_EmptyTranslations(t *testing.T) {
	d, _ := newTestDeepL(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"translations": []any{}})
	})

	_, err := d.Translate(context.Background(), "hello", "ja")
	assert.Error(t, err)
}

func TestDeepL_Normalize(t *testing.T) {
	d := &DeepL{}
	tests := []struct {
		code string
		want string
	}{
		{"ja", "JA"},
		{"zh-CN", "ZH"},
		{"zh-Hans", "ZH"},
		{"pt-BR", "PT-BR"},
		{"en-US", "EN-US"},
		{"xx", "XX"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, d.Normalize(tt.code), tt.code)
	}
}

func TestDeepL_Supports(t *testing.T) {
	d := &DeepL{}
	assert.True(t, d.Supports("ja"))
	assert.True(t, d.Supports("zh-CN"))
	assert.True(t, d.Supports("pt-br"))
	assert.False(t, d.Supports("zh-TW"), "DeepL has no Traditional Chinese target")
	assert.False(t, d.Supports("xx"))
}

func TestNewDeepL_RequiresAPIKey(t *testing.T) {
	_, err := NewDeepL(DeepLConfig{})
	assert.Error(t, err)
}
