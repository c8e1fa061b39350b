package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"colourstream/internal/api"
	"colourstream/internal/auth"
	"colourstream/internal/mirotalk"
	"colourstream/internal/objectstore"
	"colourstream/internal/rooms"
	"colourstream/internal/store"
	"colourstream/internal/testsupport"
	"colourstream/internal/uploads"
)

type fakeNotifier struct {
	mu      sync.Mutex
	records []uploads.Record
}

func (f *fakeNotifier) NotifyUploadProgress(_ context.Context, rec uploads.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeNotifier) NotifyRoomCreated(context.Context, string) error  { return nil }
func (f *fakeNotifier) NotifyError(context.Context, error, string) error { return nil }
func (f *fakeNotifier) TestNotification(context.Context) error           { return nil }

func (f *fakeNotifier) recorded() []uploads.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uploads.Record(nil), f.records...)
}

type testEnv struct {
	server   *httptest.Server
	store    *store.Store
	tracker  *uploads.Tracker
	notifier *fakeNotifier
	token    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithObjects(t, nil)
}

// newStorageEnv backs the API with an object storage client pointed at a
// stub S3 server driven by handler.
func newStorageEnv(t *testing.T, handler http.HandlerFunc) *testEnv {
	t.Helper()
	s3 := httptest.NewServer(handler)
	t.Cleanup(s3.Close)
	cfg := testsupport.NewConfig(t, testsupport.WithStorage(s3.URL))
	objects, err := objectstore.New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("objectstore.New failed: %v", err)
	}
	return newTestEnvWithObjects(t, objects)
}

func newTestEnvWithObjects(t *testing.T, objects *objectstore.Client) *testEnv {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	hash, err := auth.HashPassword("test-password")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if err := st.SeedAdmin(ctx, "admin", hash); err != nil {
		t.Fatalf("SeedAdmin failed: %v", err)
	}

	authSvc := auth.NewService(st, cfg.Auth.JWTSecret, cfg.TokenTTL(), nil)
	tokens := mirotalk.NewTokenService("https://meet.example.com", "join-key", 24*time.Hour)
	roomSvc := rooms.NewService(st, tokens, nil)
	notifier := &fakeNotifier{}
	tracker := uploads.NewTracker(notifier, nil)
	t.Cleanup(tracker.Close)

	srv, err := api.New(cfg, api.Deps{
		Store:    st,
		Auth:     authSvc,
		Rooms:    roomSvc,
		Tracker:  tracker,
		Notifier: notifier,
		Objects:  objects,
	}, nil)
	if err != nil {
		t.Fatalf("api.New failed: %v", err)
	}

	httpServer := httptest.NewServer(srv.Handler())
	t.Cleanup(httpServer.Close)

	env := &testEnv{server: httpServer, store: st, tracker: tracker, notifier: notifier}
	env.token = env.login(t, "admin", "test-password")
	return env
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	resp := e.postJSON(t, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login returned %d", resp.StatusCode)
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return body.Token
}

func (e *testEnv) postJSON(t *testing.T, path, token string, payload any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func (e *testEnv) get(t *testing.T, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, e.server.URL+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	env := newTestEnv(t)
	resp := env.postJSON(t, "/api/auth/login", "", map[string]string{
		"username": "admin",
		"password": "wrong",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/api/rooms", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	resp = env.get(t, "/api/rooms", "garbage-token")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", resp.StatusCode)
	}

	resp = env.get(t, "/api/rooms", env.token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", resp.StatusCode)
	}
}

func TestRoomLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, "/api/rooms", env.token, map[string]any{
		"name":     "Grading Suite",
		"password": "hunter2",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	room := decodeBody[map[string]any](t, resp)
	roomID, _ := room["id"].(string)
	if roomID == "" {
		t.Fatalf("expected room id in response, got %v", room)
	}

	// Guests join with the room password, no bearer token.
	resp = env.postJSON(t, "/api/rooms/"+roomID+"/join", "", map[string]any{
		"displayName": "Guest",
		"password":    "hunter2",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 join, got %d", resp.StatusCode)
	}
	join := decodeBody[map[string]string](t, resp)
	if !strings.Contains(join["joinUrl"], "meet.example.com") {
		t.Fatalf("unexpected join url %q", join["joinUrl"])
	}

	resp = env.postJSON(t, "/api/rooms/"+roomID+"/join", "", map[string]any{
		"displayName": "Guest",
		"password":    "wrong",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong room password, got %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodDelete, env.server.URL+"/api/rooms/"+roomID, nil)
	req.Header.Set("Authorization", "Bearer "+env.token)
	deleteResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	deleteResp.Body.Close()
	if deleteResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 delete, got %d", deleteResp.StatusCode)
	}
}

func tusHookPayload(hookType, id string, size, offset int64, meta map[string]string) map[string]any {
	return map[string]any{
		"Type": hookType,
		"Event": map[string]any{
			"Upload": map[string]any{
				"ID":       id,
				"Size":     size,
				"Offset":   offset,
				"MetaData": meta,
			},
		},
	}
}

func TestTusHookLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	link := &store.UploadLink{Token: "tok-1", ClientName: "acme", ProjectName: "spring"}
	if err := env.store.CreateUploadLink(ctx, link); err != nil {
		t.Fatalf("CreateUploadLink failed: %v", err)
	}

	// pre-create with a bad token is rejected before any bytes move.
	resp := env.postJSON(t, "/api/upload/hooks", "", tusHookPayload("pre-create", "tus-1", 100, 0, map[string]string{
		"token": "bogus",
	}))
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", resp.StatusCode)
	}

	resp = env.postJSON(t, "/api/upload/hooks", "", tusHookPayload("pre-create", "tus-1", 100, 0, map[string]string{
		"token": "tok-1",
	}))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 pre-create, got %d", resp.StatusCode)
	}

	resp = env.postJSON(t, "/api/upload/hooks", "", tusHookPayload("post-create", "tus-1", 100, 0, map[string]string{
		"filename": "shot.mov",
		"token":    "tok-1",
	}))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 post-create, got %d", resp.StatusCode)
	}

	resp = env.postJSON(t, "/api/upload/hooks", "", tusHookPayload("post-receive", "tus-1", 100, 40, nil))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 post-receive, got %d", resp.StatusCode)
	}

	rec, ok := env.tracker.Get("tus-1")
	if !ok {
		t.Fatal("expected tracked upload")
	}
	if rec.Offset != 40 || rec.Complete {
		t.Fatalf("unexpected record %+v", rec)
	}

	resp = env.postJSON(t, "/api/upload/hooks", "", tusHookPayload("post-finish", "tus-1", 100, 100, nil))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 post-finish, got %d", resp.StatusCode)
	}

	rec, _ = env.tracker.Get("tus-1")
	if !rec.Complete || rec.Offset != rec.Size {
		t.Fatalf("expected completed record, got %+v", rec)
	}

	resp = env.postJSON(t, "/api/upload/hooks", "", tusHookPayload("made-up", "tus-1", 0, 0, nil))
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown hook type, got %d", resp.StatusCode)
	}
}

func TestS3CallbackTracksCompleteSnapshot(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, "/api/upload/s3-callback", "", map[string]any{
		"fileId":      "f123",
		"filename":    "graded.mov",
		"size":        2048,
		"clientName":  "acme",
		"projectName": "spring",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody[map[string]string](t, resp)
	if body["uploadId"] != "s3-f123" {
		t.Fatalf("unexpected upload id %q", body["uploadId"])
	}

	rec, ok := env.tracker.Get("s3-f123")
	if !ok {
		t.Fatal("expected tracked upload")
	}
	if !rec.Complete || rec.Offset != 2048 {
		t.Fatalf("expected complete snapshot, got %+v", rec)
	}

	// Companion-relayed variant keys on the object key instead.
	resp = env.postJSON(t, "/api/upload/s3-callback", "", map[string]any{
		"key":  "acme/spring/other.mov",
		"size": 10,
	})
	body = decodeBody[map[string]string](t, resp)
	if body["uploadId"] != "s3-companion-acme/spring/other.mov" {
		t.Fatalf("unexpected upload id %q", body["uploadId"])
	}
}

func TestClientProgressBypassesTracker(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, "/api/upload/progress", "", map[string]any{
		"uploadId":      "direct-1",
		"bytesUploaded": 512,
		"bytesTotal":    1024,
		"filename":      "direct.mov",
		"clientName":    "acme",
		"projectName":   "spring",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	if _, ok := env.tracker.Get("direct-1"); ok {
		t.Fatal("client progress must not enter the tracker map")
	}

	records := env.notifier.recorded()
	if len(records) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(records))
	}
	if records[0].ID != "direct-1" || records[0].Offset != 512 {
		t.Fatalf("unexpected notification %+v", records[0])
	}
}

func TestXHRUploadWithoutStorageFailsTerminally(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	link := &store.UploadLink{Token: "tok-xhr", ClientName: "acme", ProjectName: "spring"}
	if err := env.store.CreateUploadLink(ctx, link); err != nil {
		t.Fatalf("CreateUploadLink failed: %v", err)
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	_ = form.WriteField("token", "tok-xhr")
	part, err := form.CreateFormFile("file", "clip.mov")
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	fmt.Fprint(part, "file-bytes")
	form.Close()

	req, _ := http.NewRequest(http.MethodPost, env.server.URL+"/api/upload/xhr", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502 without object storage, got %d", resp.StatusCode)
	}

	all := env.tracker.All()
	var found *uploads.Record
	for i := range all {
		if strings.HasPrefix(all[i].ID, "xhr-") {
			found = &all[i]
		}
	}
	if found == nil {
		t.Fatal("expected xhr record in tracker")
	}
	if !found.Complete || found.Metadata[uploads.MetaError] == "" {
		t.Fatalf("expected terminal error record, got %+v", found)
	}
}

func TestUploadQueries(t *testing.T) {
	env := newTestEnv(t)

	env.tracker.Track(uploads.Record{ID: "a", Size: 10, Offset: 5})
	env.tracker.Track(uploads.Record{ID: "b", Size: 10, Offset: 10})
	env.tracker.Complete("b")

	active := decodeBody[map[string][]uploads.Record](t, env.get(t, "/api/upload/active", env.token))
	if len(active["uploads"]) != 1 || active["uploads"][0].ID != "a" {
		t.Fatalf("unexpected active uploads %+v", active)
	}

	all := decodeBody[map[string][]uploads.Record](t, env.get(t, "/api/upload/all", env.token))
	if len(all["uploads"]) != 2 {
		t.Fatalf("expected 2 uploads, got %+v", all)
	}

	resp := env.get(t, "/api/upload/a", env.token)
	rec := decodeBody[uploads.Record](t, resp)
	if rec.ID != "a" || rec.Offset != 5 {
		t.Fatalf("unexpected record %+v", rec)
	}

	resp = env.get(t, "/api/upload/ghost", env.token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	resp := env.get(t, "/api/health", "")
	body := decodeBody[map[string]any](t, resp)
	if body["status"] != "ok" {
		t.Fatalf("unexpected health payload %v", body)
	}
}

func TestPresignUploadRequiresValidToken(t *testing.T) {
	env := newStorageEnv(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("presigning must not call the storage backend, got %s %s", r.Method, r.URL)
	})
	ctx := context.Background()

	link := &store.UploadLink{Token: "tok-presign", ClientName: "acme", ProjectName: "spring"}
	if err := env.store.CreateUploadLink(ctx, link); err != nil {
		t.Fatalf("CreateUploadLink failed: %v", err)
	}

	resp := env.postJSON(t, "/api/upload/presign", "", map[string]string{
		"token":    "bogus",
		"filename": "shot.mov",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", resp.StatusCode)
	}

	resp = env.postJSON(t, "/api/upload/presign", "", map[string]string{
		"token": "tok-presign",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 without filename, got %d", resp.StatusCode)
	}

	resp = env.postJSON(t, "/api/upload/presign", "", map[string]string{
		"token":    "tok-presign",
		"filename": "shot.mov",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody[map[string]string](t, resp)
	if body["key"] != "acme/spring/shot.mov" {
		t.Fatalf("unexpected key %q", body["key"])
	}
	if !strings.Contains(body["url"], "X-Amz-Signature=") || !strings.Contains(body["url"], "acme/spring/shot.mov") {
		t.Fatalf("expected signed URL for the key, got %q", body["url"])
	}
}

func TestPresignUploadWithoutStorage(t *testing.T) {
	env := newTestEnv(t)
	resp := env.postJSON(t, "/api/upload/presign", "", map[string]string{
		"token":    "whatever",
		"filename": "shot.mov",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestStorageObjectDownloadAndDelete(t *testing.T) {
	var deleted bool
	env := newStorageEnv(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodHead && strings.HasSuffix(r.URL.Path, "/present.mov"):
			w.Header().Set("Content-Length", "10")
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodDelete:
			deleted = true
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
			w.WriteHeader(http.StatusBadRequest)
		}
	})

	resp := env.get(t, "/api/storage/object?key=acme/spring/present.mov", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without admin token, got %d", resp.StatusCode)
	}

	resp = env.get(t, "/api/storage/object?key=acme/spring/gone.mov", env.token)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for missing object, got %d", resp.StatusCode)
	}

	resp = env.get(t, "/api/storage/object?key=acme/spring/present.mov", env.token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody[map[string]string](t, resp)
	if !strings.Contains(body["url"], "X-Amz-Signature=") {
		t.Fatalf("expected signed download URL, got %q", body["url"])
	}

	req, _ := http.NewRequest(http.MethodDelete, env.server.URL+"/api/storage/object?key=acme/spring/present.mov", nil)
	req.Header.Set("Authorization", "Bearer "+env.token)
	delResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	delResp.Body.Close()
	if delResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 delete, got %d", delResp.StatusCode)
	}
	if !deleted {
		t.Fatal("expected delete to reach the storage backend")
	}
}

func TestUploadLinkDeleteWithPurge(t *testing.T) {
	var gotPrefix string
	env := newStorageEnv(t, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		switch {
		case r.Method == http.MethodGet && query.Get("list-type") == "2":
			gotPrefix = query.Get("prefix")
			fmt.Fprintf(w, `<ListBucketResult><Name>test-bucket</Name><KeyCount>2</KeyCount><IsTruncated>false</IsTruncated><Contents><Key>acme/spring/a.mov</Key><Size>1</Size></Contents><Contents><Key>acme/spring/b.mov</Key><Size>1</Size></Contents></ListBucketResult>`)
		case r.Method == http.MethodPost && query.Has("delete"):
			fmt.Fprintf(w, `<DeleteResult></DeleteResult>`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	ctx := context.Background()

	link := &store.UploadLink{Token: "tok-purge", ClientName: "acme", ProjectName: "spring"}
	if err := env.store.CreateUploadLink(ctx, link); err != nil {
		t.Fatalf("CreateUploadLink failed: %v", err)
	}

	req, _ := http.NewRequest(http.MethodDelete, env.server.URL+"/api/upload-links/tok-purge?purge=true", nil)
	req.Header.Set("Authorization", "Bearer "+env.token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody[map[string]any](t, resp)
	if body["status"] != "deleted" {
		t.Fatalf("unexpected response %v", body)
	}
	if removed, _ := body["objectsRemoved"].(float64); removed != 2 {
		t.Fatalf("expected 2 objects removed, got %v", body["objectsRemoved"])
	}
	if gotPrefix != "acme/spring/" {
		t.Fatalf("expected purge to list prefix acme/spring/, got %q", gotPrefix)
	}

	stored, err := env.store.GetUploadLink(ctx, "tok-purge")
	if err != nil {
		t.Fatalf("GetUploadLink failed: %v", err)
	}
	if stored != nil {
		t.Fatal("expected link to be removed")
	}
}

func TestOBSRoutesUnavailableWithoutClient(t *testing.T) {
	env := newTestEnv(t)
	resp := env.postJSON(t, "/api/obs/stream/start", env.token, map[string]string{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}
