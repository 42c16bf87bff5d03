package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtychat/app/agent"
	"realtychat/config"
	"realtychat/ingest"
	"realtychat/model"
	"realtychat/session"
	"realtychat/store"
	"realtychat/types"
)

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text)), 1, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

type fakeLLM struct {
	replies []string
	calls   int
}

func (f *fakeLLM) Complete(context.Context, []model.Message, float64) (string, error) {
	if f.calls >= len(f.replies) {
		return "", errors.New("no scripted reply left")
	}
	reply := f.replies[f.calls]
	f.calls++
	return reply, nil
}

type fakeSpeaker struct {
	audio []byte
	err   error
}

func (f *fakeSpeaker) Speak(context.Context, string) ([]byte, error) {
	return f.audio, f.err
}

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
}

func decodeError(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Error
}

func multipartFile(t *testing.T, field, name, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = io.WriteString(part, content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestHandleUploadNoFile(t *testing.T) {
	app := newTestApp()
	h := NewUploadHandler(ingest.NewPipeline(&fakeEmbedder{}, store.NewMemoryStore(), 500, zerolog.Nop()), zerolog.Nop())
	app.Post("/api/v1/upload", h.HandleUpload)

	buf, contentType := multipartFile(t, "document", "a.txt", "text")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", buf)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No file uploaded", decodeError(t, resp))
}

func TestHandleUploadEmptyDocument(t *testing.T) {
	app := newTestApp()
	h := NewUploadHandler(ingest.NewPipeline(&fakeEmbedder{}, store.NewMemoryStore(), 500, zerolog.Nop()), zerolog.Nop())
	app.Post("/api/v1/upload", h.HandleUpload)

	buf, contentType := multipartFile(t, "file", "empty.txt", "\n\n  \n")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", buf)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No text content", decodeError(t, resp))
}

func TestHandleUploadUnsupportedFormat(t *testing.T) {
	app := newTestApp()
	h := NewUploadHandler(ingest.NewPipeline(&fakeEmbedder{}, store.NewMemoryStore(), 500, zerolog.Nop()), zerolog.Nop())
	app.Post("/api/v1/upload", h.HandleUpload)

	buf, contentType := multipartFile(t, "file", "listing.xlsx", "binary")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", buf)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Text extraction failed", decodeError(t, resp))
}

func TestHandleUploadIndexesDocument(t *testing.T) {
	index := store.NewMemoryStore()
	app := newTestApp()
	h := NewUploadHandler(ingest.NewPipeline(&fakeEmbedder{}, index, 500, zerolog.Nop()), zerolog.Nop())
	app.Post("/api/v1/upload", h.HandleUpload)

	content := strings.Repeat("a", 600) + "\n\n" + "villa with pool"
	buf, contentType := multipartFile(t, "file", "listings.txt", content)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", buf)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body types.UploadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Indexed successfully", body.Message)
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, 2, index.Len())
}

func TestHandleUploadEmbeddingFailure(t *testing.T) {
	app := newTestApp()
	pipeline := ingest.NewPipeline(&fakeEmbedder{err: errors.New("quota exceeded")}, store.NewMemoryStore(), 500, zerolog.Nop())
	h := NewUploadHandler(pipeline, zerolog.Nop())
	app.Post("/api/v1/upload", h.HandleUpload)

	buf, contentType := multipartFile(t, "file", "listings.txt", "villa with pool")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/upload", buf)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Embedding failed", decodeError(t, resp))
}

func newSearchApp(t *testing.T, llm *fakeLLM) (*fiber.App, *session.Store) {
	t.Helper()
	index := store.NewMemoryStore()
	embedder := &fakeEmbedder{}
	require.NoError(t, index.EnsureCollection(context.Background(), 3))
	require.NoError(t, index.Upsert(context.Background(), []store.Point{
		{ID: "p1", Vector: []float32{10, 1, 0}, Payload: "Villa in Alicante, 450k"},
	}))

	a := agent.New(llm, embedder, index, agent.Config{TopK: 5, RewriteTemp: 0.2, ReplyTemp: 0.7}, zerolog.Nop())
	sessions := session.NewStore()

	app := newTestApp()
	h := NewSearchHandler(a, sessions, zerolog.Nop())
	app.Post("/api/v1/search", h.HandleSearch)
	return app, sessions
}

func TestHandleSearchMissingUserText(t *testing.T) {
	app, _ := newSearchApp(t, &fakeLLM{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(`{"history":[]}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Missing userText", decodeError(t, resp))
}

func TestHandleSearchMethodNotAllowed(t *testing.T) {
	app, _ := newSearchApp(t, &fakeLLM{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search", nil)

	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHandleSearchReturnsReplyAndImages(t *testing.T) {
	llm := &fakeLLM{replies: []string{
		"villa alicante budget 450k",
		"Found one: https://cdn.example.com/villa.jpg take a look.",
	}}
	app, sessions := newSearchApp(t, llm)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search",
		strings.NewReader(`{"userText":"got a villa in Alicante?","sessionId":"s-1"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)

	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body types.SearchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Found one:  take a look.", body.Reply)
	assert.Equal(t, []string{"https://cdn.example.com/villa.jpg"}, body.Images)
	assert.Equal(t, []string{"Villa in Alicante, 450k"}, body.Matches)

	// both turns of the exchange land in the session transcript
	history := sessions.History("s-1")
	require.Len(t, history, 2)
	assert.Equal(t, "got a villa in Alicante?", history[0].User)
	assert.Equal(t, "Found one:  take a look.", history[1].Bot)
	assert.Equal(t, []string{"https://cdn.example.com/villa.jpg"}, history[1].Images)
}

func TestHandleSearchPipelineFailureIsGeneric(t *testing.T) {
	app, _ := newSearchApp(t, &fakeLLM{}) // no scripted replies: rewrite fails

	req := httptest.NewRequest(http.MethodPost, "/api/v1/search",
		strings.NewReader(`{"userText":"anything"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Internal error", decodeError(t, resp))
}

func TestHandleSynthesize(t *testing.T) {
	app := newTestApp()
	h := NewSpeechHandler(&fakeSpeaker{audio: []byte("ID3mp3bytes")}, session.NewStore(), zerolog.Nop())
	app.Post("/api/v1/tts", h.HandleSynthesize)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tts", strings.NewReader(`{"text":"welcome home"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "audio/mpeg", resp.Header.Get("Content-Type"))

	audio, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3mp3bytes"), audio)
}

func TestHandleSynthesizeMissingText(t *testing.T) {
	app := newTestApp()
	h := NewSpeechHandler(&fakeSpeaker{}, session.NewStore(), zerolog.Nop())
	app.Post("/api/v1/tts", h.HandleSynthesize)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tts", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Missing text field", decodeError(t, resp))
}

func TestHandleSynthesizeFailure(t *testing.T) {
	app := newTestApp()
	h := NewSpeechHandler(&fakeSpeaker{err: errors.New("api down")}, session.NewStore(), zerolog.Nop())
	app.Post("/api/v1/tts", h.HandleSynthesize)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tts", strings.NewReader(`{"text":"hi"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "TTS synthesis failed", decodeError(t, resp))
}

func TestHandleEvent(t *testing.T) {
	app := newTestApp()
	h := NewSpeechHandler(&fakeSpeaker{}, session.NewStore(), zerolog.Nop())
	app.Post("/api/v1/speech/state", h.HandleEvent)

	post := func(body string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/speech/state", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp
	}

	resp := post(`{"sessionId":"s-1","event":"start-listening"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var state types.SpeechStateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.Equal(t, "listening", state.State)

	// pausing is only legal while speaking
	resp = post(`{"sessionId":"s-1","event":"pause"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = post(`{"sessionId":"s-1","event":"nonsense"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = post(`{"event":"pause"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Missing sessionId or event", decodeError(t, resp))
}

func TestHandleHealthy(t *testing.T) {
	app := newTestApp()
	app.Get("/check/healthy", NewCheckHandler().HandleHealthy)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/check/healthy", nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["result"])
}

func TestHandleGetConfig(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	app := newTestApp()
	app.Get("/api/v1/config", NewConfigHandler(cfg).HandleGetConfig)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/config", nil))

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "gpt-4o", body["chatModel"])
	assert.Equal(t, "nova", body["ttsVoice"])
	assert.NotContains(t, fmt.Sprint(body), "apiKey")
}
