package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lotta-llamas/api/internal/assets"
	"github.com/lotta-llamas/api/internal/domain/post"
	"github.com/lotta-llamas/api/internal/logging"
	"github.com/lotta-llamas/api/internal/middleware"
	"github.com/lotta-llamas/api/internal/storage/memory"
	"github.com/lotta-llamas/api/internal/token"
)

const (
	fixtureAddress   = "1FBuCHMw5e5yTNKbf1eJq1bXZjoGaXeqwV"
	fixtureMessage   = "The man who stole the world"
	fixtureSignature = "IHcdszz688dGiPOP82v3nMQ3UQu6pdMPOV4tQV9Ok3jcaQo5e49rkUtxcd51SY7opxjawcI955FmoPajtnCTDpQ="
)

// fakeObjectStore keeps uploads in a map for assertions.
type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeObjectStore) Put(_ context.Context, key string, content io.Reader, contentType string) error {
	data, err := io.ReadAll(content)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakeObjectStore) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, "", fmt.Errorf("no such key %s", key)
	}
	return io.NopCloser(bytes.NewReader(data)), f.types[key], nil
}

func (f *fakeObjectStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeObjectStore) HealthCheck(context.Context) error { return nil }

type testEnv struct {
	router  http.Handler
	api     *API
	store   *memory.Store
	issuer  *token.Issuer
	objects *fakeObjectStore
}

func newTestEnv(t *testing.T, held []string) *testEnv {
	t.Helper()

	issuer, err := token.NewIssuer([]byte("test-secret"), time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	store := memory.New()
	objects := newFakeObjectStore()
	log := logging.New("gateway-test", "error", "json")
	denylist := token.NewMemoryDenylist()

	resolver := assets.ResolverFunc(func(_ context.Context, _ string) ([]string, error) {
		return held, nil
	})

	api := New(Options{
		Store:    store,
		Resolver: resolver,
		Issuer:   issuer,
		Denylist: denylist,
		Objects:  objects,
		Log:      log,
		TokenTTL: time.Hour,
	})
	gate := middleware.NewGate(issuer, denylist, log)

	return &testEnv{
		router:  api.Router(gate),
		api:     api,
		store:   store,
		issuer:  issuer,
		objects: objects,
	}
}

func (e *testEnv) login(t *testing.T, address string, held []string) string {
	t.Helper()
	signed, err := e.issuer.Issue(address, held)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return signed
}

func (e *testEnv) do(t *testing.T, method, target, authToken, address string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if authToken != "" {
		req.Header.Set("Authorization", authToken)
		req.Header.Set("Address", address)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

// ===== Login =====

func TestValidateWallet(t *testing.T) {
	env := newTestEnv(t, []string{"LLAMAS.test1", "PEPECASH"})

	t.Run("missing params", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/validate-wallet", "", "", map[string]string{
			"address": fixtureAddress, "signature": fixtureSignature,
		})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		if body := decodeBody(t, rec); body["error"] != "Missing params" {
			t.Fatalf("error = %v", body["error"])
		}
	})

	t.Run("invalid address", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/validate-wallet", "", "", map[string]string{
			"address": "Fake123", "signature": fixtureSignature, "message": fixtureMessage,
		})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		if body := decodeBody(t, rec); body["error"] != "Invalid address" {
			t.Fatalf("error = %v", body["error"])
		}
	})

	t.Run("malformed signature is a server error", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/validate-wallet", "", "", map[string]string{
			"address": fixtureAddress, "signature": "Fake123", "message": fixtureMessage,
		})
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", rec.Code)
		}
	})

	t.Run("wrong message", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/validate-wallet", "", "", map[string]string{
			"address": fixtureAddress, "signature": fixtureSignature, "message": "Incorrect Message",
		})
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
		if body := decodeBody(t, rec); body["error"] != "Invalid Message" {
			t.Fatalf("error = %v", body["error"])
		}
	})

	t.Run("success mints a token for the address", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/validate-wallet", "", "", map[string]string{
			"address": fixtureAddress, "signature": fixtureSignature, "message": fixtureMessage,
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		if body["address"] != fixtureAddress {
			t.Fatalf("address = %v", body["address"])
		}
		claims, err := env.issuer.Validate(body["token"].(string))
		if err != nil {
			t.Fatalf("issued token does not validate: %v", err)
		}
		if claims.Address != fixtureAddress || len(claims.Assets) != 2 {
			t.Fatalf("claims = %+v", claims)
		}
		// Login records the wallet.
		if _, err := env.store.GetWallet(context.Background(), fixtureAddress); err != nil {
			t.Fatalf("wallet not persisted: %v", err)
		}
	})
}

func TestValidateWalletResolverFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	env.api.resolver = assets.ResolverFunc(func(context.Context, string) ([]string, error) {
		return nil, fmt.Errorf("balance service down")
	})

	rec := env.do(t, http.MethodPost, "/api/auth/validate-wallet", "", "", map[string]string{
		"address": fixtureAddress, "signature": fixtureSignature, "message": fixtureMessage,
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

// ===== Logout =====

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t, nil)
	signed := env.login(t, fixtureAddress, []string{"LLAMAS.test1"})

	rec := env.do(t, http.MethodPost, "/api/auth/logout", signed, fixtureAddress, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/api/auth/content", signed, fixtureAddress, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token status = %d, want 401", rec.Code)
	}
}

// ===== Content =====

func TestContentLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	signed := env.login(t, fixtureAddress, []string{"LLAMAS.test1", "PEPECASH"})

	create := map[string]interface{}{"content": map[string]interface{}{
		"title": "Llama lore", "description": "stories", "isPublic": true, "token": "LLAMAS.test1",
	}}
	rec := env.do(t, http.MethodPost, "/api/auth/content", signed, fixtureAddress, create)
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decodeBody(t, rec)["content"].(map[string]interface{})
	contentID := created["id"].(string)

	t.Run("same wallet cannot reclaim the asset", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/content", signed, fixtureAddress, create)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		if body := decodeBody(t, rec); body["error"] != "Token not available in wallet" {
			t.Fatalf("error = %v", body["error"])
		}
	})

	t.Run("another wallet holding the asset gets a conflict", func(t *testing.T) {
		other := env.login(t, "1BoatSLRHtKNngkdXEeobR76b53LETtpyT", []string{"LLAMAS.test1"})
		rec := env.do(t, http.MethodPost, "/api/auth/content", other, "1BoatSLRHtKNngkdXEeobR76b53LETtpyT", create)
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", rec.Code)
		}
		if body := decodeBody(t, rec); body["error"] != "Token must be unique" {
			t.Fatalf("error = %v", body["error"])
		}
	})

	t.Run("asset not held", func(t *testing.T) {
		body := map[string]interface{}{"content": map[string]interface{}{
			"title": "nope", "token": "NOTMINE",
		}}
		rec := env.do(t, http.MethodPost, "/api/auth/content", signed, fixtureAddress, body)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("list is scoped to held assets", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/auth/content", signed, fixtureAddress, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		list := decodeBody(t, rec)["content"].([]interface{})
		if len(list) != 1 {
			t.Fatalf("content count = %d, want 1", len(list))
		}
	})

	t.Run("get requires entitlement", func(t *testing.T) {
		stranger := env.login(t, "1BoatSLRHtKNngkdXEeobR76b53LETtpyT", []string{"OTHER"})
		rec := env.do(t, http.MethodGet, "/api/auth/content/"+contentID, stranger, "1BoatSLRHtKNngkdXEeobR76b53LETtpyT", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		if body := decodeBody(t, rec); body["error"] != "Token not available in wallet" {
			t.Fatalf("error = %v", body["error"])
		}
	})

	t.Run("malformed id", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/auth/content/not-a-uuid", signed, fixtureAddress, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("update requires title", func(t *testing.T) {
		body := map[string]interface{}{"content": map[string]interface{}{"description": "x"}}
		rec := env.do(t, http.MethodPut, "/api/auth/content/"+contentID, signed, fixtureAddress, body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if b := decodeBody(t, rec); b["error"] != "Missing title" {
			t.Fatalf("error = %v", b["error"])
		}
	})

	t.Run("update own content", func(t *testing.T) {
		body := map[string]interface{}{"content": map[string]interface{}{"title": "Updated lore"}}
		rec := env.do(t, http.MethodPut, "/api/auth/content/"+contentID, signed, fixtureAddress, body)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
		updated := decodeBody(t, rec)["content"].(map[string]interface{})
		if updated["title"] != "Updated lore" {
			t.Fatalf("title = %v", updated["title"])
		}
	})
}

// ===== Posts and comments =====

func createContentAndPost(t *testing.T, env *testEnv, signed string) (string, string) {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/auth/content", signed, fixtureAddress, map[string]interface{}{
		"content": map[string]interface{}{"title": "Llama lore", "token": "LLAMAS.test1"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create content: %d %s", rec.Code, rec.Body.String())
	}
	contentID := decodeBody(t, rec)["content"].(map[string]interface{})["id"].(string)

	rec = env.do(t, http.MethodPost, "/api/auth/posts", signed, fixtureAddress, map[string]interface{}{
		"post": map[string]interface{}{"title": "First", "text": "hello", "contentId": contentID},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create post: %d %s", rec.Code, rec.Body.String())
	}
	postID := decodeBody(t, rec)["post"].(map[string]interface{})["id"].(string)
	return contentID, postID
}

func TestPostLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)
	signed := env.login(t, fixtureAddress, []string{"LLAMAS.test1"})
	contentID, postID := createContentAndPost(t, env, signed)

	t.Run("list requires contentId", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/auth/posts", signed, fixtureAddress, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		if b := decodeBody(t, rec); b["error"] != "Missing contentId or malformed" {
			t.Fatalf("error = %v", b["error"])
		}
	})

	t.Run("create validates fields", func(t *testing.T) {
		cases := []struct {
			name string
			post map[string]interface{}
			want string
		}{
			{"missing contentId", map[string]interface{}{"title": "t", "text": "x"}, "Missing contentId or malformed"},
			{"missing text", map[string]interface{}{"title": "t", "contentId": contentID}, "Missing content"},
			{"missing title", map[string]interface{}{"text": "x", "contentId": contentID}, "Missing title"},
		}
		for _, tc := range cases {
			rec := env.do(t, http.MethodPost, "/api/auth/posts", signed, fixtureAddress, map[string]interface{}{"post": tc.post})
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("%s: status = %d, want 401", tc.name, rec.Code)
			}
			if b := decodeBody(t, rec); b["error"] != tc.want {
				t.Fatalf("%s: error = %v", tc.name, b["error"])
			}
		}
	})

	t.Run("get includes comments", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/comments", signed, fixtureAddress, map[string]interface{}{
			"comment": map[string]interface{}{"postId": postID, "comment": "nice"},
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("create comment: %d %s", rec.Code, rec.Body.String())
		}

		rec = env.do(t, http.MethodGet, "/api/auth/posts/"+postID, signed, fixtureAddress, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("get post: %d", rec.Code)
		}
		got := decodeBody(t, rec)["post"].(map[string]interface{})
		comments := got["comments"].([]interface{})
		if len(comments) != 1 {
			t.Fatalf("comments = %d, want 1", len(comments))
		}
	})

	t.Run("update own post", func(t *testing.T) {
		rec := env.do(t, http.MethodPut, "/api/auth/posts/"+postID, signed, fixtureAddress, map[string]interface{}{
			"post": map[string]interface{}{"title": "Edited", "text": "new text"},
		})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("soft delete hides the post", func(t *testing.T) {
		rec := env.do(t, http.MethodDelete, "/api/auth/posts/"+postID, signed, fixtureAddress, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("delete status = %d", rec.Code)
		}
		rec = env.do(t, http.MethodGet, "/api/auth/posts/"+postID, signed, fixtureAddress, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("deleted post status = %d, want 404", rec.Code)
		}
	})
}

func TestCommentValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	signed := env.login(t, fixtureAddress, []string{"LLAMAS.test1"})
	_, postID := createContentAndPost(t, env, signed)

	t.Run("malformed post id", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/comments", signed, fixtureAddress, map[string]interface{}{
			"comment": map[string]interface{}{"postId": "nope", "comment": "hi"},
		})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("post absent", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/comments", signed, fixtureAddress, map[string]interface{}{
			"comment": map[string]interface{}{"postId": "2f8a4b6e-0000-4000-8000-000000000001", "comment": "hi"},
		})
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
		if b := decodeBody(t, rec); b["error"] != "Post not found" {
			t.Fatalf("error = %v", b["error"])
		}
	})

	t.Run("empty comment", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/auth/comments", signed, fixtureAddress, map[string]interface{}{
			"comment": map[string]interface{}{"postId": postID},
		})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		if b := decodeBody(t, rec); b["error"] != "No comment present" {
			t.Fatalf("error = %v", b["error"])
		}
	})
}

// ===== Public feed =====

func TestPublicFeed(t *testing.T) {
	env := newTestEnv(t, nil)

	seedPost := func(isPublic, isDeleted bool) {
		p, err := env.store.CreatePost(context.Background(), post.Post{
			ContentID: "2f8a4b6e-0000-4000-8000-000000000001",
			WalletID:  fixtureAddress,
			Title:     "t",
			Text:      "x",
			IsPublic:  isPublic,
		})
		if err != nil {
			t.Fatalf("seed post: %v", err)
		}
		if isDeleted {
			if err := env.store.SoftDeletePost(context.Background(), p.ID, fixtureAddress); err != nil {
				t.Fatalf("soft delete: %v", err)
			}
		}
	}
	seedPost(true, false)
	seedPost(false, false)
	seedPost(true, true)

	rec := env.do(t, http.MethodGet, "/api/public", "", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	posts := decodeBody(t, rec)["posts"].([]interface{})
	if len(posts) != 1 {
		t.Fatalf("public posts = %d, want 1", len(posts))
	}
}

// ===== Media =====

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestMediaUploadAndFetch(t *testing.T) {
	env := newTestEnv(t, nil)
	signed := env.login(t, fixtureAddress, []string{"LLAMAS.test1"})

	payload := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	body, contentType := multipartBody(t, "llama.png", payload)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/media", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", signed)
	req.Header.Set("Address", fixtureAddress)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body.String())
	}
	record := decodeBody(t, rec)["media"].(map[string]interface{})
	mediaID := record["id"].(string)

	if _, ok := env.objects.objects["images/"+mediaID]; !ok {
		t.Fatal("object not stored under images/{id}")
	}

	t.Run("list", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/auth/media", signed, fixtureAddress, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		list := decodeBody(t, rec)["media"].([]interface{})
		if len(list) != 1 {
			t.Fatalf("media count = %d", len(list))
		}
	})

	t.Run("stream back", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/auth/media/"+mediaID, signed, fixtureAddress, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !bytes.Equal(rec.Body.Bytes(), payload) {
			t.Fatal("streamed bytes differ from upload")
		}
		if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
			t.Fatalf("content type = %q", ct)
		}
	})

	t.Run("rejects non-image extension", func(t *testing.T) {
		body, contentType := multipartBody(t, "malware.exe", []byte("nope"))
		req := httptest.NewRequest(http.MethodPost, "/api/auth/media", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Authorization", signed)
		req.Header.Set("Address", fixtureAddress)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

// ===== Health =====

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/health", "", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}
