package server_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/m-mizutani/cygnet/pkg/adapter"
	"github.com/m-mizutani/cygnet/pkg/controller/server"
	"github.com/m-mizutani/cygnet/pkg/model"
	"github.com/m-mizutani/cygnet/pkg/repository"
	"github.com/m-mizutani/cygnet/pkg/service/history"
	chatuc "github.com/m-mizutani/cygnet/pkg/usecase/chat"
	documentuc "github.com/m-mizutani/cygnet/pkg/usecase/document"
	"github.com/m-mizutani/gt"
)

func newTestServer(responses ...string) *server.Server {
	gemini := adapter.NewMockGemini(responses...)
	repo := repository.NewMemory()
	storage := adapter.NewMemoryStorage()

	return server.New(server.Config{
		Chat:           chatuc.New(gemini, repo, history.New()),
		Documents:      documentuc.New(gemini, repo, storage),
		LLMName:        "mock",
		EmbeddingName:  "mock",
		VectorStoreTag: "memory",
	})
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer()

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	gt.V(t, rec.Code).Equal(http.StatusOK)

	var body map[string]any
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	gt.V(t, body["status"]).Equal("UP")
	gt.V(t, body["service"]).Equal("cygnet")
}

func TestChatEndpoint(t *testing.T) {
	t.Run("valid request", func(t *testing.T) {
		srv := newTestServer("Sounds like a solid plan.")

		payload := `{"message": "What should the agenda look like?"}`
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(payload)))

		gt.V(t, rec.Code).Equal(http.StatusOK)

		var resp model.ChatResponse
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		gt.V(t, resp.Response).Equal("Sounds like a solid plan.")
		gt.V(t, string(resp.ConversationID)).NotEqual("")
		gt.A(t, resp.Suggestions).Length(3)
		gt.A(t, resp.FollowUpQuestions).Length(3)
	})

	t.Run("empty message", func(t *testing.T) {
		srv := newTestServer()

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"message": ""}`)))

		gt.V(t, rec.Code).Equal(http.StatusBadRequest)
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := newTestServer()

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader("{not json")))

		gt.V(t, rec.Code).Equal(http.StatusBadRequest)
	})
}

func TestInitChatEndpoint(t *testing.T) {
	t.Run("valid request", func(t *testing.T) {
		srv := newTestServer("Welcome! Let's plan your summit.")

		payload := `{"userId": "u1", "conceptTitle": "Tech Summit"}`
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat/init", strings.NewReader(payload)))

		gt.V(t, rec.Code).Equal(http.StatusOK)

		var result chatuc.InitResult
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		gt.V(t, result.Message).Equal("Welcome! Let's plan your summit.")
		gt.V(t, string(result.ConversationID)).NotEqual("")
		gt.A(t, result.Suggestions).Length(3)
	})

	t.Run("missing user ID", func(t *testing.T) {
		srv := newTestServer()

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat/init", strings.NewReader(`{"conceptTitle": "Tech Summit"}`)))

		gt.V(t, rec.Code).Equal(http.StatusBadRequest)
	})
}

func TestClearConversationEndpoint(t *testing.T) {
	srv := newTestServer("An answer.")

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"message": "Hello"}`)))
	gt.V(t, rec.Code).Equal(http.StatusOK)

	var resp model.ChatResponse
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/conversations/"+string(resp.ConversationID), nil))
	gt.V(t, rec.Code).Equal(http.StatusOK)

	var cleared map[string]bool
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cleared))
	gt.V(t, cleared["cleared"]).Equal(true)

	// a second delete finds nothing
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/conversations/"+string(resp.ConversationID), nil))
	gt.V(t, rec.Code).Equal(http.StatusNotFound)
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("files", filename)
	gt.NoError(t, err)
	_, err = fw.Write([]byte(content))
	gt.NoError(t, err)
	gt.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func TestDocumentEndpoints(t *testing.T) {
	srv := newTestServer()
	conceptID := model.NewConceptID()

	body, contentType := multipartUpload(t, "venue.txt", "The venue holds 500 attendees.")
	req := httptest.NewRequest(http.MethodPost, "/v1/concepts/"+string(conceptID)+"/documents", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	gt.V(t, rec.Code).Equal(http.StatusOK)

	var uploaded struct {
		ProcessedDocuments []*model.Document `json:"processedDocuments"`
	}
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &uploaded))
	gt.A(t, uploaded.ProcessedDocuments).Length(1)
	gt.V(t, uploaded.ProcessedDocuments[0].Filename).Equal("venue.txt")
	gt.V(t, uploaded.ProcessedDocuments[0].Status).Equal(model.DocumentStatusProcessed)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/concepts/"+string(conceptID)+"/documents", nil))
	gt.V(t, rec.Code).Equal(http.StatusOK)

	var listed struct {
		Documents  []*model.Document `json:"documents"`
		TotalCount int               `json:"totalCount"`
	}
	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	gt.A(t, listed.Documents).Length(1)
	gt.V(t, listed.TotalCount).Equal(1)

	documentID := listed.Documents[0].ID
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/documents/"+string(documentID), nil))
	gt.V(t, rec.Code).Equal(http.StatusNoContent)

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/concepts/"+string(conceptID)+"/documents", nil))
	gt.V(t, rec.Code).Equal(http.StatusOK)

	gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	gt.A(t, listed.Documents).Length(0)
	gt.V(t, listed.TotalCount).Equal(0)
}

func TestUploadWithoutFiles(t *testing.T) {
	srv := newTestServer()
	conceptID := model.NewConceptID()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	gt.NoError(t, mw.WriteField("note", "no file here"))
	gt.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/concepts/"+string(conceptID)+"/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	gt.V(t, rec.Code).Equal(http.StatusBadRequest)
}

func TestUploadUnsupportedFormat(t *testing.T) {
	srv := newTestServer()
	conceptID := model.NewConceptID()

	body, contentType := multipartUpload(t, "image.png", "not really an image")
	req := httptest.NewRequest(http.MethodPost, "/v1/concepts/"+string(conceptID)+"/documents", body)
	req.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	gt.V(t, rec.Code).Equal(http.StatusInternalServerError)
}
