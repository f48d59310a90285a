package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/GooseOb/pai2024/internal/config"
	"github.com/GooseOb/pai2024/internal/database"
	"github.com/GooseOb/pai2024/internal/models"
	"github.com/GooseOb/pai2024/internal/notify"
	"github.com/GooseOb/pai2024/internal/service"
	"github.com/GooseOb/pai2024/internal/session"

	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"
)

type testApp struct {
	srv  *httptest.Server
	hub  *notify.Hub
	cfg  *config.Config
	auth *service.AuthService
}

func newApp(t *testing.T, mutate func(*config.Config)) *testApp {
	t.Helper()
	cfg, _ := config.Load("")
	cfg.Server.Mode = "test"
	cfg.Database.URL = filepath.Join(t.TempDir(), "app.db")
	cfg.Session.Secret = "test-secret"
	cfg.Limiter.Enabled = false
	cfg.Frontend.Path = ""
	cfg.Security.BcryptCost = bcrypt.MinCost
	if mutate != nil {
		mutate(cfg)
	}

	ctx := context.Background()
	st, err := database.Open(ctx, cfg.Database)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	sessions := session.NewMemoryStore()
	hub := notify.NewHub()

	persons := service.NewPersonService(st.Persons(), cfg.Security.BcryptCost)
	projects := service.NewProjectService(st.Projects(), st.Tasks(), hub)
	tasks := service.NewTaskService(st.Tasks(), projects, hub)
	auth := service.NewAuthService(persons, session.NewManager(sessions, cfg.Session.Secret, cfg.Session.TTL()))

	adminRole, userRole := models.RoleAdmin, models.RoleUser
	for _, in := range []service.PersonPatch{
		{Login: strp("admin"), Password: strp("admin-pw"), Name: strp("Ada"), Role: &adminRole},
		{Login: strp("user"), Password: strp("user-pw"), Name: strp("Ulf"), Role: &userRole},
	} {
		if _, err := persons.Create(ctx, in); err != nil {
			t.Fatalf("seed person: %v", err)
		}
	}

	srv := httptest.NewServer(SetupRouter(cfg, Deps{
		Store:    st,
		Auth:     auth,
		Persons:  persons,
		Projects: projects,
		Tasks:    tasks,
		Hub:      hub,
	}))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
		_ = sessions.Close()
		_ = st.Close(context.Background())
	})
	return &testApp{srv: srv, hub: hub, cfg: cfg, auth: auth}
}

func strp(s string) *string { return &s }

type client struct {
	t    *testing.T
	app  *testApp
	http *http.Client
}

func (a *testApp) client(t *testing.T) *client {
	jar, _ := cookiejar.New(nil)
	return &client{t: t, app: a, http: &http.Client{Jar: jar, Timeout: 5 * time.Second}}
}

// do sends body (raw string or value encoded as JSON) and decodes the
// response into out when out is non-nil.
func (c *client) do(method, path string, body any, out any) int {
	c.t.Helper()
	var rd *bytes.Reader
	switch b := body.(type) {
	case nil:
		rd = bytes.NewReader(nil)
	case string:
		rd = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			c.t.Fatalf("encode body: %v", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.app.srv.URL+path, rd)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.t.Fatalf("%s %s: decode response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (c *client) login(login, password string) map[string]any {
	c.t.Helper()
	var profile map[string]any
	status := c.do(http.MethodPost, "/api/auth", map[string]string{"username": login, "password": password}, &profile)
	if status != http.StatusOK {
		c.t.Fatalf("login %s: status %d (%v)", login, status, profile)
	}
	return profile
}

func (c *client) cookieHeader() http.Header {
	u, _ := url.Parse(c.app.srv.URL)
	h := http.Header{}
	for _, ck := range c.http.Jar.Cookies(u) {
		h.Add("Cookie", ck.Name+"="+ck.Value)
	}
	return h
}

func (c *client) dialWS() (*websocket.Conn, *http.Response, error) {
	wsURL := "ws" + strings.TrimPrefix(c.app.srv.URL, "http") + "/ws"
	return websocket.DefaultDialer.Dial(wsURL, c.cookieHeader())
}

func waitClients(t *testing.T, h *notify.Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Len() != n {
		if time.Now().After(deadline) {
			t.Fatalf("hub has %d clients, want %d", h.Len(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLoginAndWhoAmI(t *testing.T) {
	app := newApp(t, nil)
	c := app.client(t)

	var anon map[string]any
	if status := c.do(http.MethodGet, "/api/auth", nil, &anon); status != http.StatusOK || len(anon) != 0 {
		t.Errorf("anonymous whoami = %d %v, want 200 {}", status, anon)
	}

	profile := c.login("admin", "admin-pw")
	if profile["login"] != "admin" || profile["role"] != float64(0) {
		t.Errorf("profile = %v", profile)
	}
	if _, ok := profile["password"]; ok {
		t.Error("profile exposes the password")
	}

	var me map[string]any
	if status := c.do(http.MethodGet, "/api/auth", nil, &me); status != http.StatusOK {
		t.Fatalf("whoami status %d", status)
	}
	if me["_id"] != profile["_id"] || me["login"] != "admin" {
		t.Errorf("whoami = %v, want %v", me, profile)
	}

	var sessions []map[string]any
	if status := c.do(http.MethodPut, "/api/auth", nil, &sessions); status != http.StatusOK || len(sessions) != 1 {
		t.Errorf("sessions = %d %v", status, sessions)
	}

	if status := c.do(http.MethodDelete, "/api/auth", nil, nil); status != http.StatusOK {
		t.Errorf("logout status %d", status)
	}
	var after map[string]any
	c.do(http.MethodGet, "/api/auth", nil, &after)
	if len(after) != 0 {
		t.Errorf("whoami after logout = %v", after)
	}
	// idempotent
	if status := c.do(http.MethodDelete, "/api/auth", nil, nil); status != http.StatusOK {
		t.Errorf("second logout status %d", status)
	}
}

func TestLoginRejected(t *testing.T) {
	app := newApp(t, nil)
	c := app.client(t)

	var body map[string]any
	status := c.do(http.MethodPost, "/api/auth", map[string]string{"login": "admin", "password": "wrong"}, &body)
	if status != http.StatusBadRequest || body["error"] == nil {
		t.Errorf("wrong password = %d %v", status, body)
	}
	status = c.do(http.MethodPost, "/api/auth", map[string]string{"login": "ghost", "password": "x"}, nil)
	if status != http.StatusBadRequest {
		t.Errorf("unknown login = %d", status)
	}
	if status := c.do(http.MethodPut, "/api/auth", nil, nil); status != http.StatusUnauthorized {
		t.Errorf("sessions without login = %d", status)
	}
}

func TestFailedLoginKeepsSession(t *testing.T) {
	app := newApp(t, nil)
	c := app.client(t)
	profile := c.login("admin", "admin-pw")

	if status := c.do(http.MethodPost, "/api/auth", map[string]string{"login": "admin", "password": "typo"}, nil); status != http.StatusBadRequest {
		t.Errorf("bad re-login = %d, want 400", status)
	}
	var me map[string]any
	c.do(http.MethodGet, "/api/auth", nil, &me)
	if me["_id"] != profile["_id"] {
		t.Errorf("whoami after failed login = %v, want %v", me, profile)
	}

	// a successful re-login replaces the session
	c.login("user", "user-pw")
	var sessions []map[string]any
	c.do(http.MethodPut, "/api/auth", nil, &sessions)
	if len(sessions) != 1 {
		t.Errorf("live sessions = %d, want 1", len(sessions))
	}
}

func TestSessionsRedactedForUsers(t *testing.T) {
	app := newApp(t, nil)
	admin := app.client(t)
	adminProfile := admin.login("admin", "admin-pw")
	user := app.client(t)
	userProfile := user.login("user", "user-pw")

	var seen []map[string]any
	if status := user.do(http.MethodPut, "/api/auth", nil, &seen); status != http.StatusOK || len(seen) != 2 {
		t.Fatalf("user sessions = %d %v", status, seen)
	}
	own := 0
	for _, s := range seen {
		if s["person_id"] == userProfile["_id"] {
			own++
			if s["ip"] == "" {
				t.Error("own session lost its ip")
			}
			continue
		}
		if s["person_id"] != "" || s["ip"] != "" || s["user_agent"] != "" {
			t.Errorf("other session not redacted: %v", s)
		}
	}
	if own != 1 {
		t.Errorf("own sessions = %d, want 1", own)
	}

	var all []map[string]any
	admin.do(http.MethodPut, "/api/auth", nil, &all)
	found := false
	for _, s := range all {
		if s["person_id"] == userProfile["_id"] && s["ip"] != "" {
			found = true
		}
		if s["person_id"] == adminProfile["_id"] && s["ip"] == "" {
			t.Errorf("admin session redacted for admin: %v", s)
		}
	}
	if !found {
		t.Errorf("admin cannot see the user's session details: %v", all)
	}
}

func TestLoginRateLimited(t *testing.T) {
	app := newApp(t, func(cfg *config.Config) {
		cfg.Limiter.Enabled = true
		cfg.Limiter.RPS = 0.001
		cfg.Limiter.Burst = 1
	})
	c := app.client(t)
	c.login("admin", "admin-pw")
	if status := c.do(http.MethodPost, "/api/auth", map[string]string{"login": "admin", "password": "admin-pw"}, nil); status != http.StatusTooManyRequests {
		t.Errorf("second login = %d, want 429", status)
	}
}

func TestTaskCreateBroadcasts(t *testing.T) {
	app := newApp(t, nil)
	admin := app.client(t)
	admin.login("admin", "admin-pw")

	var project models.Project
	if status := admin.do(http.MethodPost, "/api/project", map[string]string{"name": "alpha"}, &project); status != http.StatusOK {
		t.Fatalf("create project: %d", status)
	}

	watcher := app.client(t)
	watcher.login("user", "user-pw")
	conn, _, err := watcher.dialWS()
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	defer conn.Close()
	waitClients(t, app.hub, 1)

	var task map[string]any
	status := admin.do(http.MethodPost, "/api/task", map[string]any{
		"name":         "write report",
		"startDate":    "2024-05-01",
		"assignee_ids": []string{},
		"project_id":   project.ID,
	}, &task)
	if status != http.StatusOK {
		t.Fatalf("create task: %d %v", status, task)
	}
	if id, _ := task["_id"].(string); id == "" {
		t.Errorf("task has no _id: %v", task)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev notify.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev != (notify.Event{Type: "update", Entity: "task", ID: project.ID}) {
		t.Errorf("event = %+v", ev)
	}

	var listed []map[string]any
	if status := watcher.do(http.MethodGet, "/api/task?project_id="+project.ID, nil, &listed); status != http.StatusOK {
		t.Fatalf("list tasks: %d", status)
	}
	if len(listed) != 1 || listed[0]["_id"] != task["_id"] || listed[0]["name"] != "write report" {
		t.Errorf("listed = %v", listed)
	}
}

func TestTaskListNeedsProject(t *testing.T) {
	app := newApp(t, nil)
	c := app.client(t)
	c.login("user", "user-pw")

	var body map[string]any
	if status := c.do(http.MethodGet, "/api/task", nil, &body); status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
	if body["error"] == nil {
		t.Errorf("body = %v", body)
	}
}

func TestRegularUserCannotDelete(t *testing.T) {
	app := newApp(t, nil)
	admin := app.client(t)
	admin.login("admin", "admin-pw")
	var project models.Project
	admin.do(http.MethodPost, "/api/project", map[string]string{"name": "keep me"}, &project)

	user := app.client(t)
	user.login("user", "user-pw")
	if status := user.do(http.MethodDelete, "/api/project?_id="+project.ID, nil, nil); status != http.StatusForbidden {
		t.Errorf("delete as user = %d, want 403", status)
	}
	if status := user.do(http.MethodPost, "/api/project", map[string]string{"name": "nope"}, nil); status != http.StatusForbidden {
		t.Errorf("create as user = %d, want 403", status)
	}

	var list []models.Project
	user.do(http.MethodGet, "/api/project", nil, &list)
	if len(list) != 1 || list[0].ID != project.ID {
		t.Errorf("projects = %+v", list)
	}

	anon := app.client(t)
	if status := anon.do(http.MethodGet, "/api/project", nil, nil); status != http.StatusUnauthorized {
		t.Errorf("anonymous list = %d, want 401", status)
	}
	if status := anon.do(http.MethodDelete, "/api/project?_id="+project.ID, nil, nil); status != http.StatusUnauthorized {
		t.Errorf("anonymous delete = %d, want 401", status)
	}
}

func TestCRUDErrors(t *testing.T) {
	app := newApp(t, nil)
	c := app.client(t)
	c.login("admin", "admin-pw")

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"empty body", http.MethodPost, "/api/project", "", http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/api/project", "{", http.StatusBadRequest},
		{"wrong type", http.MethodPost, "/api/project", `{"name": 5}`, http.StatusBadRequest},
		{"missing name", http.MethodPost, "/api/project", map[string]string{"description": "x"}, http.StatusBadRequest},
		{"update without id", http.MethodPut, "/api/project", map[string]string{"name": "x"}, http.StatusBadRequest},
		{"update unknown", http.MethodPut, "/api/project", map[string]string{"_id": "nope", "name": "x"}, http.StatusNotFound},
		{"delete without id", http.MethodDelete, "/api/project", nil, http.StatusBadRequest},
		{"delete unknown", http.MethodDelete, "/api/task?_id=nope", nil, http.StatusNotFound},
		{"task in unknown project", http.MethodPost, "/api/task", map[string]string{"name": "t", "startDate": "2024-01-01", "project_id": "nope"}, http.StatusBadRequest},
		{"duplicate login", http.MethodPost, "/api/person", map[string]string{"login": "user", "password": "x"}, http.StatusBadRequest},
		{"bad role", http.MethodPost, "/api/person", map[string]any{"login": "new", "password": "x", "role": 3}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var body map[string]any
			status := c.do(tc.method, tc.path, tc.body, &body)
			if status != tc.status {
				t.Errorf("status = %d, want %d (%v)", status, tc.status, body)
			}
			if body["error"] == nil {
				t.Errorf("no error message in %v", body)
			}
		})
	}
}

func TestPersonLifecycle(t *testing.T) {
	app := newApp(t, nil)
	c := app.client(t)
	c.login("admin", "admin-pw")

	var created map[string]any
	if status := c.do(http.MethodPost, "/api/person", map[string]string{"login": "eve", "password": "pw", "name": "Eve"}, &created); status != http.StatusOK {
		t.Fatalf("create: %d %v", status, created)
	}
	if created["role"] != float64(1) {
		t.Errorf("default role = %v", created["role"])
	}
	if _, ok := created["password"]; ok {
		t.Error("password serialized")
	}
	id := created["_id"].(string)

	var updated map[string]any
	c.do(http.MethodPut, "/api/person", map[string]string{"_id": id, "surname": "Moss"}, &updated)
	if updated["name"] != "Eve" || updated["surname"] != "Moss" {
		t.Errorf("updated = %v", updated)
	}

	eve := app.client(t)
	eve.login("eve", "pw")

	var deleted map[string]any
	if status := c.do(http.MethodDelete, "/api/person?_id="+id, nil, &deleted); status != http.StatusOK || deleted["_id"] != id {
		t.Errorf("delete = %d %v", status, deleted)
	}
	// the session of a deleted person no longer authenticates
	var me map[string]any
	eve.do(http.MethodGet, "/api/auth", nil, &me)
	if len(me) != 0 {
		t.Errorf("deleted person still logged in: %v", me)
	}
}

func TestWebSocketRequiresSession(t *testing.T) {
	app := newApp(t, nil)
	_, resp, err := app.client(t).dialWS()
	if err == nil {
		t.Fatal("anonymous websocket accepted")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("handshake response = %v, want 401", resp)
	}
}

func TestWebSocketAnonymousAllowed(t *testing.T) {
	app := newApp(t, func(cfg *config.Config) { cfg.Realtime.RequireSession = false })
	conn, _, err := app.client(t).dialWS()
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	waitClients(t, app.hub, 1)

	admin := app.client(t)
	admin.login("admin", "admin-pw")
	var project models.Project
	admin.do(http.MethodPost, "/api/project", map[string]string{"name": "beta"}, &project)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev notify.Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.Entity != "project" || ev.ID != project.ID {
		t.Errorf("event = %+v", ev)
	}
}

func TestHealthAndFallback(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "assets"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatal(err)
	}
	app := newApp(t, func(cfg *config.Config) { cfg.Frontend.Path = dir })
	c := app.client(t)

	var health map[string]any
	if status := c.do(http.MethodGet, "/healthz", nil, &health); status != http.StatusOK || health["status"] != "available" {
		t.Errorf("healthz = %d %v", status, health)
	}
	if status := c.do(http.MethodGet, "/api/nothing", nil, nil); status != http.StatusNotFound {
		t.Errorf("unknown api path = %d", status)
	}

	for path, want := range map[string]string{
		"/projects/42":   "<html>app</html>",
		"/":              "<html>app</html>",
		"/assets/app.js": "console.log(1)",
	} {
		resp, err := http.Get(app.srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || !strings.Contains(buf.String(), want) {
			t.Errorf("GET %s = %d %q, want %q", path, resp.StatusCode, buf.String(), want)
		}
	}
}
