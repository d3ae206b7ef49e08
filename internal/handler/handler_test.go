package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"lobbychat/internal/app/chat"
	"lobbychat/internal/app/storage"
	"lobbychat/internal/app/user"
	"lobbychat/internal/configs"
	"lobbychat/internal/pkg/pow"
)

type envelope[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type authData struct {
	Token string        `json:"token"`
	User  user.Identity `json:"user"`
}

type userData struct {
	User user.Identity `json:"user"`
}

func newTestDeps(t *testing.T) (*AppDeps, *user.MemoryStore) {
	t.Helper()

	store := user.NewMemoryStore()
	cfg := &configs.AppConfig{
		Environment:      "development",
		JWTSecret:        "handler-test-secret",
		JWTExpiresIn:     time.Hour,
		MaxMessageBytes:  5000,
		PersistQueueSize: 16,
	}

	hub := chat.NewHub(store, chat.HubConfig{
		MaxMessageBytes:  cfg.MaxMessageBytes,
		PersistQueueSize: cfg.PersistQueueSize,
	})
	t.Cleanup(hub.Shutdown)

	pm := pow.NewManager(0)
	t.Cleanup(pm.Close)

	return &AppDeps{
		Config: cfg,
		Hub:    hub,
		Users:  store,
		Gate:   user.NewGate(store, cfg.JWTSecret),
		Pow:    pm,
	}, store
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	r := httptest.NewRequest(method, path, reader)
	r.RemoteAddr = "203.0.113.10:5000"
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		r.Header[k] = v
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": {"Bearer " + token}}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()

	var env envelope[T]
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return env
}

func signup(t *testing.T, h http.Handler, username string) authData {
	t.Helper()

	w := doJSON(t, h, http.MethodPost, "/api/auth/signup", SignupInput{
		Username:        username,
		Email:           username + "@example.com",
		Password:        "secret123",
		ConfirmPassword: "secret123",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("signup %s: status %d, body %s", username, w.Code, w.Body.String())
	}
	return decode[authData](t, w).Data
}

func TestSignupLoginAndVerify(t *testing.T) {
	deps, _ := newTestDeps(t)
	h := Router(deps)

	created := signup(t, h, "alice")
	if created.Token == "" || created.User.ID == "" {
		t.Fatalf("signup returned %+v", created)
	}
	if created.User.Profile.DisplayName != "alice" {
		t.Fatalf("default display name = %q", created.User.Profile.DisplayName)
	}
	if !strings.HasPrefix(created.User.Profile.Avatar, "https://") {
		t.Fatalf("default avatar = %q", created.User.Profile.Avatar)
	}

	w := doJSON(t, h, http.MethodPost, "/api/auth/login", LoginInput{
		Identifier: "ALICE@example.com",
		Password:   "secret123",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login: status %d, body %s", w.Code, w.Body.String())
	}
	loggedIn := decode[authData](t, w).Data
	if loggedIn.User.ID != created.User.ID || loggedIn.User.LastLogin == nil {
		t.Fatalf("login returned %+v", loggedIn.User)
	}

	w = doJSON(t, h, http.MethodPost, "/api/auth/verify", VerifyTokenInput{Token: loggedIn.Token}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("verify: status %d, body %s", w.Code, w.Body.String())
	}
	if got := decode[userData](t, w).Data.User.Username; got != "alice" {
		t.Fatalf("verify returned %q", got)
	}

	w = doJSON(t, h, http.MethodPost, "/api/auth/verify", VerifyTokenInput{Token: "garbage"}, nil)
	if w.Code != http.StatusUnauthorized || decode[any](t, w).Code != 3103 {
		t.Fatalf("verify garbage: status %d, body %s", w.Code, w.Body.String())
	}
}

func TestSignupRejections(t *testing.T) {
	deps, _ := newTestDeps(t)
	h := Router(deps)

	signup(t, h, "alice")

	tests := []struct {
		name   string
		input  SignupInput
		status int
		code   int
	}{
		{
			name:   "password mismatch",
			input:  SignupInput{Username: "bob", Email: "bob@example.com", Password: "secret123", ConfirmPassword: "secret124"},
			status: http.StatusBadRequest,
			code:   3204,
		},
		{
			name:   "username taken",
			input:  SignupInput{Username: "alice", Email: "other@example.com", Password: "secret123", ConfirmPassword: "secret123"},
			status: http.StatusConflict,
			code:   3205,
		},
		{
			name:   "email taken",
			input:  SignupInput{Username: "carol", Email: "Alice@Example.com", Password: "secret123", ConfirmPassword: "secret123"},
			status: http.StatusConflict,
			code:   3206,
		},
		{
			name:   "bad username",
			input:  SignupInput{Username: "a!", Email: "dave@example.com", Password: "secret123", ConfirmPassword: "secret123"},
			status: http.StatusBadRequest,
			code:   3201,
		},
	}

	// The signup limiter allows a burst of five per address, so each case gets its own router.
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, Router(deps), http.MethodPost, "/api/auth/signup", tt.input, nil)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.status, w.Body.String())
			}
			if got := decode[any](t, w).Code; got != tt.code {
				t.Fatalf("code = %d, want %d", got, tt.code)
			}
		})
	}
}

func TestLoginRejections(t *testing.T) {
	deps, store := newTestDeps(t)
	h := Router(deps)

	created := signup(t, h, "alice")

	w := doJSON(t, h, http.MethodPost, "/api/auth/login", LoginInput{Identifier: "alice", Password: "wrong-password"}, nil)
	if w.Code != http.StatusUnauthorized || decode[any](t, w).Code != 3106 {
		t.Fatalf("wrong password: status %d, body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodPost, "/api/auth/login", LoginInput{Identifier: "nobody", Password: "secret123"}, nil)
	if w.Code != http.StatusUnauthorized || decode[any](t, w).Code != 3106 {
		t.Fatalf("unknown user: status %d, body %s", w.Code, w.Body.String())
	}

	disabled, err := store.GetByID(context.Background(), created.User.ID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	disabled.IsActive = false
	store.Put(disabled)

	w = doJSON(t, h, http.MethodPost, "/api/auth/login", LoginInput{Identifier: "alice", Password: "secret123"}, nil)
	if w.Code != http.StatusUnauthorized || decode[any](t, w).Code != 3105 {
		t.Fatalf("disabled account: status %d, body %s", w.Code, w.Body.String())
	}
}

func TestSignupRequiresProofOfWork(t *testing.T) {
	deps, _ := newTestDeps(t)
	deps.Pow = pow.NewManager(1)
	t.Cleanup(deps.Pow.Close)
	h := Router(deps)

	input := SignupInput{Username: "alice", Email: "alice@example.com", Password: "secret123", ConfirmPassword: "secret123"}

	w := doJSON(t, h, http.MethodPost, "/api/auth/signup", input, nil)
	if w.Code != http.StatusForbidden || decode[any](t, w).Code != 3001 {
		t.Fatalf("signup without proof: status %d, body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodGet, "/api/pow/challenge", nil, nil)
	challenge := decode[pow.Challenge](t, w).Data
	if challenge.Nonce == "" || challenge.Difficulty != 1 {
		t.Fatalf("challenge = %+v", challenge)
	}

	counter := ""
	for i := 0; i < 100000; i++ {
		c := strconv.Itoa(i)
		if pow.Satisfies(challenge.Nonce, c, 1) {
			counter = c
			break
		}
	}
	if counter == "" {
		t.Fatal("no counter satisfies difficulty 1")
	}

	w = doJSON(t, h, http.MethodPost, "/api/pow/verify", PowVerifyInput{Nonce: challenge.Nonce, Counter: counter}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("pow verify: status %d, body %s", w.Code, w.Body.String())
	}
	proof := decode[map[string]string](t, w).Data["token"]

	w = doJSON(t, h, http.MethodPost, "/api/auth/signup", input, http.Header{pow.TokenHeaderKey: {proof}})
	if w.Code != http.StatusCreated {
		t.Fatalf("signup with proof: status %d, body %s", w.Code, w.Body.String())
	}

	input.Username, input.Email = "bob", "bob@example.com"
	w = doJSON(t, h, http.MethodPost, "/api/auth/signup", input, http.Header{pow.TokenHeaderKey: {proof}})
	if w.Code != http.StatusForbidden {
		t.Fatalf("reused proof: status %d, body %s", w.Code, w.Body.String())
	}
}

func TestProfileUpdate(t *testing.T) {
	deps, _ := newTestDeps(t)
	h := Router(deps)

	w := doJSON(t, h, http.MethodGet, "/api/user/profile", nil, nil)
	if w.Code != http.StatusUnauthorized || decode[any](t, w).Code != 3104 {
		t.Fatalf("anonymous profile: status %d, body %s", w.Code, w.Body.String())
	}

	alice := signup(t, h, "alice")

	name, bio := "  Alice A. ", "hello there"
	w = doJSON(t, h, http.MethodPost, "/api/user/profile", UpdateProfileInput{DisplayName: &name, Bio: &bio}, bearer(alice.Token))
	if w.Code != http.StatusOK {
		t.Fatalf("update: status %d, body %s", w.Code, w.Body.String())
	}
	got := decode[userData](t, w).Data.User
	if got.Profile.DisplayName != "Alice A." || got.Profile.Bio != "hello there" {
		t.Fatalf("profile = %+v", got.Profile)
	}

	long := strings.Repeat("b", 151)
	w = doJSON(t, h, http.MethodPost, "/api/user/profile", UpdateProfileInput{Bio: &long}, bearer(alice.Token))
	if w.Code != http.StatusBadRequest || decode[any](t, w).Code != 3208 {
		t.Fatalf("long bio: status %d, body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodGet, "/api/user/alice", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("public profile: status %d, body %s", w.Code, w.Body.String())
	}
	var public envelope[map[string]map[string]any]
	if err := json.Unmarshal(w.Body.Bytes(), &public); err != nil {
		t.Fatalf("decode public profile: %v", err)
	}
	if _, leaked := public.Data["user"]["email"]; leaked {
		t.Fatal("public profile exposes the email address")
	}

	w = doJSON(t, h, http.MethodGet, "/api/user/nobody", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown public profile: status %d", w.Code)
	}
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string]storage.ObjectInfo
	deleted chan string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		objects: make(map[string]storage.ObjectInfo),
		deleted: make(chan string, 4),
	}
}

func (f *fakeStorage) PresignUpload(_ context.Context, key, _ string, _ int64, _ time.Duration) (string, error) {
	return "https://upload.test/" + key + "?signature=x", nil
}

func (f *fakeStorage) Upload(_ context.Context, key, mimeType string, body io.Reader) error {
	n, err := io.Copy(io.Discard, body)
	if err != nil {
		return err
	}
	f.put(key, storage.ObjectInfo{ContentType: mimeType, Size: n})
	return nil
}

func (f *fakeStorage) Stat(_ context.Context, key string) (storage.ObjectInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.objects[key]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return info, nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	delete(f.objects, key)
	f.mu.Unlock()
	f.deleted <- key
	return nil
}

func (f *fakeStorage) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

func (f *fakeStorage) KeyFromURL(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, "https://cdn.test/")
	return key, ok && key != ""
}

func (f *fakeStorage) put(key string, info storage.ObjectInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = info
}

func TestAvatarPresignAndAttach(t *testing.T) {
	deps, _ := newTestDeps(t)
	h := Router(deps)
	alice := signup(t, h, "alice")

	w := doJSON(t, h, http.MethodPost, "/api/user/avatar/presign", PresignAvatarInput{MimeType: "image/png", FileSize: 1024}, bearer(alice.Token))
	if w.Code != http.StatusServiceUnavailable || decode[any](t, w).Code != 5003 {
		t.Fatalf("presign without storage: status %d, body %s", w.Code, w.Body.String())
	}

	fake := newFakeStorage()
	deps.Storage = fake

	w = doJSON(t, h, http.MethodPost, "/api/user/avatar/presign", PresignAvatarInput{MimeType: "text/plain", FileSize: 10}, bearer(alice.Token))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("presign text: status %d", w.Code)
	}

	presign := func() string {
		t.Helper()
		w := doJSON(t, h, http.MethodPost, "/api/user/avatar/presign", PresignAvatarInput{MimeType: "image/png", FileSize: 1024}, bearer(alice.Token))
		if w.Code != http.StatusOK {
			t.Fatalf("presign: status %d, body %s", w.Code, w.Body.String())
		}
		data := decode[map[string]string](t, w).Data
		if !strings.HasPrefix(data["presignedUrl"], "https://upload.test/") {
			t.Fatalf("presigned url = %q", data["presignedUrl"])
		}
		return data["avatarKey"]
	}

	first := presign()
	if !storage.OwnsAvatarKey(alice.User.ID, first) {
		t.Fatalf("key %q not under the user's prefix", first)
	}

	w = doJSON(t, h, http.MethodPost, "/api/user/profile", UpdateProfileInput{AvatarKey: &first}, bearer(alice.Token))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("attach before upload: status %d", w.Code)
	}

	fake.put(first, storage.ObjectInfo{ContentType: "image/png", Size: 1024})
	w = doJSON(t, h, http.MethodPost, "/api/user/profile", UpdateProfileInput{AvatarKey: &first}, bearer(alice.Token))
	if w.Code != http.StatusOK {
		t.Fatalf("attach: status %d, body %s", w.Code, w.Body.String())
	}
	if got := decode[userData](t, w).Data.User.Profile.Avatar; got != "https://cdn.test/"+first {
		t.Fatalf("avatar = %q", got)
	}

	foreign := storage.AvatarPrefix + "/someone-else/x.png"
	fake.put(foreign, storage.ObjectInfo{ContentType: "image/png", Size: 10})
	w = doJSON(t, h, http.MethodPost, "/api/user/profile", UpdateProfileInput{AvatarKey: &foreign}, bearer(alice.Token))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("foreign key: status %d", w.Code)
	}

	second := presign()
	fake.put(second, storage.ObjectInfo{ContentType: "image/png", Size: 2048})
	w = doJSON(t, h, http.MethodPost, "/api/user/profile", UpdateProfileInput{AvatarKey: &second}, bearer(alice.Token))
	if w.Code != http.StatusOK {
		t.Fatalf("replace: status %d, body %s", w.Code, w.Body.String())
	}

	select {
	case key := <-fake.deleted:
		if key != first {
			t.Fatalf("deleted %q, want %q", key, first)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("old avatar was not deleted")
	}
}

func TestHealthAndMetrics(t *testing.T) {
	deps, _ := newTestDeps(t)
	h := Router(deps)

	w := doJSON(t, h, http.MethodGet, "/health", nil, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("health: status %d, body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodGet, "/metrics", nil, nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "lobbychat_connections") {
		t.Fatalf("metrics: status %d", w.Code)
	}
}
