package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"stagegate/internal/config"
	"stagegate/internal/db"
	"stagegate/internal/domain"
	"stagegate/internal/engine"
	"stagegate/internal/migrate"
	"stagegate/internal/repo"
)

const testJWTSecret = "test-secret"

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	cfg := config.Default("stagegate")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, cfg)
	handler, err := New(Config{
		Engine:   e,
		BasePath: "/v1",
		Auth: AuthConfig{
			JWTSecret:              testJWTSecret,
			AllowLegacyActorHeader: true,
		},
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func actorHeaders() map[string]string {
	return map[string]string{"X-Actor-Id": "tester"}
}

func createTestWP(t *testing.T, srv *testServer) WorkPackageResponse {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/workpackages", map[string]any{
		"title":    "Replace legacy portal",
		"owner_id": "owner-1",
	}, actorHeaders())
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d: %s", res.StatusCode, string(data))
	}
	var wp WorkPackageResponse
	if err := json.Unmarshal(data, &wp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return wp
}

func TestAuthRequired(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/workpackages", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal error envelope: %v", err)
	}
	if envelope.Error.Code != "unauthorized" {
		t.Fatalf("error code = %q, want unauthorized", envelope.Error.Code)
	}

	// health is open
	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, string(data))
	}
}

func TestJWTAuth(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "jwt-user",
	}).SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/workpackages", nil,
		map[string]string{"Authorization": "Bearer " + token})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}

	bad, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "jwt-user",
	}).SignedString([]byte("wrong-secret"))
	if err != nil {
		t.Fatal(err)
	}
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/workpackages", nil,
		map[string]string{"Authorization": "Bearer " + bad})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401 for bad signature", res.StatusCode)
	}
}

func TestAPIKeyAuth(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()

	plaintext := "sg_test_key"
	err := srv.Engine.Repo.InsertAPIKey(ctx, domain.APIKey{
		ID:        "key-1",
		ActorID:   "robot",
		Name:      "ci",
		CreatedAt: "2026-01-01T00:00:00Z",
	}, repo.HashAPIKey(plaintext))
	if err != nil {
		t.Fatalf("insert api key: %v", err)
	}

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v1/workpackages", map[string]any{
		"title": "Key-created package",
	}, map[string]string{"X-Api-Key": plaintext})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
	var wp WorkPackageResponse
	if err := json.Unmarshal(data, &wp); err != nil {
		t.Fatal(err)
	}

	// history is attributed to the key's actor
	entries, err := srv.Engine.Repo.ListHistory(ctx, wp.ID, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].ActorID == nil || *entries[0].ActorID != "robot" {
		t.Fatalf("history = %+v, want actor robot", entries)
	}

	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v1/workpackages", nil,
		map[string]string{"X-Api-Key": "sg_wrong"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401 for unknown key", res.StatusCode)
	}
}

func TestWorkPackageLifecycleOverHTTP(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	wp := createTestWP(t, srv)
	if wp.Status != "ideation" {
		t.Fatalf("status = %s, want ideation", wp.Status)
	}

	// detail includes all nine stage records
	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v1/workpackages/"+wp.ID, nil, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("get status %d: %s", res.StatusCode, string(data))
	}
	var detail WorkPackageDetailResponse
	if err := json.Unmarshal(data, &detail); err != nil {
		t.Fatal(err)
	}
	if detail.Stages.Ideation.WorkPackageID != wp.ID || detail.Stages.Deployed.WorkPackageID != wp.ID {
		t.Fatalf("stage records not initialised: %+v", detail.Stages)
	}

	// patch the ideation form
	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/v1/workpackages/"+wp.ID+"/ideation", map[string]any{
		"summary": "Modernise the customer portal",
	}, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("patch status %d: %s", res.StatusCode, string(data))
	}
	var ideation domain.Ideation
	if err := json.Unmarshal(data, &ideation); err != nil {
		t.Fatal(err)
	}
	if ideation.Summary != "Modernise the customer portal" {
		t.Fatalf("ideation = %+v", ideation)
	}

	// advance and check history attribution
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/workpackages/"+wp.ID+"/advance", nil, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("advance status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/workpackages/"+wp.ID+"/history", nil, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("history status %d: %s", res.StatusCode, string(data))
	}
	var history HistoryListResponse
	if err := json.Unmarshal(data, &history); err != nil {
		t.Fatal(err)
	}
	if history.Total != 3 {
		t.Fatalf("history total = %d, want 3", history.Total)
	}
	last := history.Items[len(history.Items)-1]
	if last.Description != "Advanced to feasibility" || last.ActorID == nil || *last.ActorID != "tester" {
		t.Fatalf("last history entry = %+v", last)
	}
}

func TestValidationErrorEnvelope(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	wp := createTestWP(t, srv)

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/workpackages/"+wp.ID+"/advance", nil, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("advance status %d: %s", res.StatusCode, string(data))
	}

	// approving an empty assessment returns the field map
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/workpackages/"+wp.ID+"/feasibility/approve", nil, actorHeaders())
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status %d, want 422: %s", res.StatusCode, string(data))
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Fields map[string]string `json:"fields"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.Error.Code != "validation_failed" {
		t.Fatalf("code = %q, want validation_failed", envelope.Error.Code)
	}
	if _, ok := envelope.Error.Details.Fields["assessed_by"]; !ok {
		t.Fatalf("fields = %v, want assessed_by", envelope.Error.Details.Fields)
	}

	// wrong-stage action is a conflict
	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/workpackages/"+wp.ID+"/testing/submit", nil, actorHeaders())
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("status %d, want 409: %s", res.StatusCode, string(data))
	}

	// unknown id is a 404
	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/v1/workpackages/no-such-id", nil, actorHeaders())
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d, want 404", res.StatusCode)
	}
}

func TestDeploymentUpdateRequiresDate(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	wp := createTestWP(t, srv)

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/workpackages/"+wp.ID+"/deployment", map[string]any{
		"deployed_by": "dave",
	}, actorHeaders())
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status %d, want 422: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/v1/workpackages/"+wp.ID+"/deployment", map[string]any{
		"deployment_date": "2026-04-01",
		"deployed_by":     "dave",
	}, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
	var rec domain.Deployed
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatal(err)
	}
	if rec.DeploymentDate != "2026-04-01" {
		t.Fatalf("record = %+v", rec)
	}
}

func TestListEmbedsDeploymentRecord(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	wp := createTestWP(t, srv)

	res, data := doJSON(t, client, http.MethodPost, srv.URL+"/v1/workpackages/"+wp.ID+"/deployment", map[string]any{
		"deployment_date": "2026-04-01",
		"deployed_by":     "dave",
	}, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("record deployment status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/workpackages", nil, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("list status %d: %s", res.StatusCode, string(data))
	}
	var raw struct {
		Items []map[string]json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if len(raw.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(raw.Items))
	}
	if _, ok := raw.Items[0]["deployment"]; !ok {
		t.Fatalf("list item keys = %v, want embedded deployment", raw.Items[0])
	}
	var page WorkPackageListResponse
	if err := json.Unmarshal(data, &page); err != nil {
		t.Fatal(err)
	}
	d := page.Items[0].Deployment
	if d.WorkPackageID != wp.ID || d.DeploymentDate != "2026-04-01" || d.DeployedBy != "dave" {
		t.Fatalf("deployment = %+v", d)
	}
}

func TestListPagination(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	for i := 0; i < 3; i++ {
		createTestWP(t, srv)
	}

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/v1/workpackages?limit=2", nil, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
	var page WorkPackageListResponse
	if err := json.Unmarshal(data, &page); err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 2 || page.NextCursor == "" {
		t.Fatalf("page = %+v, want 2 items and a cursor", page)
	}

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/v1/workpackages?limit=2&cursor="+page.NextCursor, nil, actorHeaders())
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", res.StatusCode, string(data))
	}
	var rest WorkPackageListResponse
	if err := json.Unmarshal(data, &rest); err != nil {
		t.Fatal(err)
	}
	if len(rest.Items) != 1 || rest.NextCursor != "" {
		t.Fatalf("page = %+v, want final single item", rest)
	}
}
