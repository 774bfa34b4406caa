package v1

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/duynhne/user-web/config"
	"github.com/duynhne/user-web/internal/core"
	"github.com/duynhne/user-web/internal/core/domain"
	"github.com/duynhne/user-web/internal/core/repository/remote"
	logicv1 "github.com/duynhne/user-web/internal/logic/v1"
	"github.com/duynhne/user-web/middleware"
)

const testCookie = "uw_session"

// fakeAPI serves the users REST endpoints from memory.
type fakeAPI struct {
	mu       sync.Mutex
	users    []domain.User
	failList bool
	failPost bool
	failPut  bool
	failDel  bool
	posts    int
	puts     []domain.User
	deletes  []int
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failList {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		writeJSON(w, f.users)
	})
	mux.HandleFunc("GET /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		id, _ := strconv.Atoi(r.PathValue("id"))
		for _, u := range f.users {
			if u.ID == id {
				writeJSON(w, u)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("{}"))
	})
	mux.HandleFunc("POST /users", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.posts++
		if f.failPost {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		body["id"] = 11
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, body)
	})
	mux.HandleFunc("PUT /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		var u domain.User
		_ = json.NewDecoder(r.Body).Decode(&u)
		f.puts = append(f.puts, u)
		if f.failPut {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		writeJSON(w, u)
	})
	mux.HandleFunc("DELETE /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		id, _ := strconv.Atoi(r.PathValue("id"))
		f.deletes = append(f.deletes, id)
		if f.failDel {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]any{})
	})
	return mux
}

func (f *fakeAPI) postCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posts
}

func (f *fakeAPI) putCalls() []domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.User(nil), f.puts...)
}

func (f *fakeAPI) deleteCalls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.deletes...)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func seedUsers() []domain.User {
	return []domain.User{
		{
			ID: 1, Name: "Leanne Graham", Username: "Bret", Email: "Sincere@april.biz",
			Phone: "1234567890", Website: "hildegard.org",
			Address: &domain.Address{Street: "Kulas Light", Suite: "Apt. 556", City: "Gwenborough", Zipcode: "92998-3874"},
			Company: &domain.Company{Name: "Romaguera-Crona"},
		},
		{ID: 2, Name: "Ervin Howell", Username: "Antonette", Email: "Shanna@melissa.tv", Phone: "0987654321"},
	}
}

// browser replays the session cookie between requests.
type browser struct {
	t      *testing.T
	router *gin.Engine
	cookie *http.Cookie
}

func newBrowser(t *testing.T, api *fakeAPI) *browser {
	t.Helper()
	return newBrowserWithLogger(t, api, zap.NewNop())
}

// newBrowserWithLogger routes requests through LoggingMiddleware so handler
// log entries land in logger.
func newBrowserWithLogger(t *testing.T, api *fakeAPI, logger *zap.Logger) *browser {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	client, err := core.NewAPIClient(config.UsersAPIConfig{BaseURL: srv.URL})
	require.NoError(t, err)
	users := logicv1.NewUserService(remote.NewUserRepository(client))
	store := logicv1.NewSessionStore(users, logicv1.NewValidator(), time.Hour, 100)

	tmpl, err := LoadTemplates()
	require.NoError(t, err)

	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	r.Use(middleware.LoggingMiddleware(logger))
	r.Use(SessionMiddleware(store, testCookie, time.Hour))
	RegisterRoutes(r, NewUserHandler(config.ViewsConfig{ListLoadingIndicator: true}))

	return &browser{t: t, router: r}
}

func (b *browser) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}

	w := httptest.NewRecorder()
	b.router.ServeHTTP(w, req)

	for _, c := range w.Result().Cookies() {
		if c.Name == testCookie {
			b.cookie = c
		}
	}
	return w
}

func (b *browser) get(target string) *httptest.ResponseRecorder {
	return b.do(http.MethodGet, target, nil)
}

func (b *browser) post(target string, form url.Values) *httptest.ResponseRecorder {
	return b.do(http.MethodPost, target, form)
}

func TestListPage(t *testing.T) {
	b := newBrowser(t, &fakeAPI{users: seedUsers()})

	w := b.get("/")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Leanne Graham")
	assert.Contains(t, body, "Ervin Howell")
	assert.Contains(t, body, `href="/user/1"`)
	assert.NotContains(t, body, "Error occurred while fetching the data.")
	require.NotNil(t, b.cookie)
}

func TestListPage_Search(t *testing.T) {
	b := newBrowser(t, &fakeAPI{users: seedUsers()})

	w := b.get("/?q=ERV")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Ervin Howell")
	assert.NotContains(t, w.Body.String(), "Leanne Graham")
}

func TestListPage_FetchFailure(t *testing.T) {
	b := newBrowser(t, &fakeAPI{failList: true})

	w := b.get("/")

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Error occurred while fetching the data.")
	assert.NotContains(t, w.Body.String(), `<table id="users">`)
}

func TestCreateUser_ValidationErrors(t *testing.T) {
	api := &fakeAPI{users: seedUsers()}
	b := newBrowser(t, api)

	w := b.post("/users", url.Values{"name": {"Al"}, "email": {"nope"}, "phone": {"123"}})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Name is required and must be at least 3 characters.")
	assert.Contains(t, body, "Email is required and must be a valid email.")
	assert.Contains(t, body, "Phone number is required and must be 10 digits.")
	assert.Contains(t, body, "Address is required.")
	assert.Contains(t, body, `value="Al"`)
	assert.Equal(t, 0, api.postCount())
}

func TestCreateUser_Success(t *testing.T) {
	api := &fakeAPI{users: seedUsers()}
	b := newBrowser(t, api)

	w := b.post("/users", url.Values{
		"name":    {"Ann Lee"},
		"email":   {"ann@x.io"},
		"phone":   {"1234567890"},
		"address": {"1 Main St"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Equal(t, 1, api.postCount())

	w = b.get("/")
	body := w.Body.String()
	assert.Contains(t, body, "Ann Lee")
	assert.Contains(t, body, `href="/user/11"`)
	assert.Less(t, strings.Index(body, "Ervin Howell"), strings.Index(body, "Ann Lee"))
}

func TestCreateUser_APIFailureKeepsDialog(t *testing.T) {
	api := &fakeAPI{users: seedUsers(), failPost: true}
	b := newBrowser(t, api)

	w := b.post("/users", url.Values{
		"name":    {"Ann Lee"},
		"email":   {"ann@x.io"},
		"phone":   {"1234567890"},
		"address": {"1 Main St"},
	})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `<dialog id="create-user" open>`)
	assert.Contains(t, body, logicv1.NoticeCreateFailed)
	assert.Contains(t, body, `value="Ann Lee"`)
}

func TestDetailPage(t *testing.T) {
	b := newBrowser(t, &fakeAPI{users: seedUsers()})

	w := b.get("/user/1")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Kulas Light, Gwenborough, 92998-3874")
	assert.Contains(t, body, "Romaguera-Crona")

	w = b.get("/user/2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Ervin Howell")
	assert.Contains(t, w.Body.String(), "NULL")
}

func TestDetailPage_NotFound(t *testing.T) {
	b := newBrowser(t, &fakeAPI{users: seedUsers()})

	w := b.get("/user/99")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Error occurred while fetching the data.")
	assert.NotContains(t, w.Body.String(), `<table id="user">`)
}

func TestDetailPage_InvalidID(t *testing.T) {
	b := newBrowser(t, &fakeAPI{users: seedUsers()})

	for _, id := range []string{"abc", "0", "-3"} {
		w := b.get("/user/" + id)
		assert.Equal(t, http.StatusBadRequest, w.Code, id)
	}
}

func TestUpdateUser_WebsiteInvalidThenValid(t *testing.T) {
	api := &fakeAPI{users: seedUsers()}
	b := newBrowser(t, api)

	w := b.get("/user/1/edit")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `value="USER-Bret"`)

	form := url.Values{
		"name":    {"Leanne Graham"},
		"email":   {"Sincere@april.biz"},
		"phone":   {"1234567890"},
		"street":  {"Kulas Light"},
		"city":    {"Gwenborough"},
		"zipcode": {"92998-3874"},
		"company": {"Romaguera-Crona"},
		"website": {"ftp://x"},
	}
	w = b.post("/user/1/edit", form)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Website must be a valid URL if provided.")
	assert.Empty(t, api.putCalls())

	form.Set("website", "https://x")
	w = b.post("/user/1/edit", form)
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/user/1", w.Header().Get("Location"))
	puts := api.putCalls()
	require.Len(t, puts, 1)
	assert.Equal(t, 1, puts[0].ID)
	assert.Equal(t, "https://x", puts[0].Website)
	require.NotNil(t, puts[0].Address)
	assert.Equal(t, "Apt. 556", puts[0].Address.Suite)

	w = b.get("/user/1")
	assert.Contains(t, w.Body.String(), "https://x")
	assert.NotContains(t, w.Body.String(), `<dialog id="edit-user" open>`)
}

func TestUpdateUser_APIFailureKeepsDialog(t *testing.T) {
	api := &fakeAPI{users: seedUsers(), failPut: true}
	b := newBrowser(t, api)

	w := b.post("/user/2/edit", url.Values{
		"name":   {"Ervin H"},
		"email":  {"Shanna@melissa.tv"},
		"phone":  {"0987654321"},
		"street": {"Victor Plains"},
		"city":   {"Wisokyburgh"},
	})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), `<dialog id="edit-user" open>`)
	assert.Contains(t, w.Body.String(), logicv1.NoticeUpdateFailed)
	assert.Len(t, api.putCalls(), 1)
}

func TestDeleteUser_Success(t *testing.T) {
	api := &fakeAPI{users: seedUsers()}
	b := newBrowser(t, api)

	b.get("/")
	w := b.get("/user/2/delete")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Are you sure you want to delete this user?")

	w = b.post("/user/2/delete", url.Values{})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Equal(t, []int{2}, api.deleteCalls())

	w = b.get("/")
	body := w.Body.String()
	assert.Contains(t, body, "User deleted successfully!")
	assert.NotContains(t, body, "Ervin Howell")

	w = b.get("/")
	assert.NotContains(t, w.Body.String(), "User deleted successfully!")
}

func TestDeleteUser_FailureKeepsConfirmation(t *testing.T) {
	api := &fakeAPI{users: seedUsers(), failDel: true}
	b := newBrowser(t, api)

	b.get("/user/1")
	w := b.post("/user/1/delete", url.Values{})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `<dialog id="delete-user" open>`)
	assert.Contains(t, body, logicv1.NoticeDeleteFailed)
	assert.Equal(t, []int{1}, api.deleteCalls())
}

func TestSessionsAreIsolated(t *testing.T) {
	api := &fakeAPI{users: seedUsers()}
	b := newBrowser(t, api)

	b.post("/users", url.Values{
		"name":    {"Ann Lee"},
		"email":   {"ann@x.io"},
		"phone":   {"1234567890"},
		"address": {"1 Main St"},
	})

	other := &browser{t: t, router: b.router}
	w := other.get("/")
	assert.NotContains(t, w.Body.String(), "Ann Lee")
}

// handlerErrors returns the error-level messages logged by handlers, leaving
// out the request middleware's own "HTTP error" entry.
func handlerErrors(logs *observer.ObservedLogs) []string {
	var msgs []string
	for _, e := range logs.FilterLevelExact(zapcore.ErrorLevel).All() {
		if e.Message != "HTTP error" {
			msgs = append(msgs, e.Message)
		}
	}
	return msgs
}

func TestMutationFailuresAreLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	api := &fakeAPI{users: seedUsers()}
	b := newBrowserWithLogger(t, api, zap.New(core))

	w := b.post("/users", url.Values{"name": {"Al"}})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w = b.post("/user/1/edit", url.Values{"name": {"Leanne Graham"}, "website": {"ftp://x"}})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Empty(t, handlerErrors(logs), "validation failures are not logged as errors")

	api.mu.Lock()
	api.failPost, api.failPut, api.failDel = true, true, true
	api.mu.Unlock()

	w = b.post("/users", url.Values{
		"name":    {"Ann Lee"},
		"email":   {"ann@x.io"},
		"phone":   {"1234567890"},
		"address": {"1 Main St"},
	})
	require.Equal(t, http.StatusBadGateway, w.Code)
	w = b.post("/user/1/edit", url.Values{
		"name":   {"Leanne Graham"},
		"email":  {"Sincere@april.biz"},
		"phone":  {"1234567890"},
		"street": {"Kulas Light"},
		"city":   {"Gwenborough"},
	})
	require.Equal(t, http.StatusBadGateway, w.Code)
	w = b.post("/user/1/delete", url.Values{})
	require.Equal(t, http.StatusBadGateway, w.Code)

	assert.Equal(t, []string{
		"Failed to create user",
		"Failed to update user",
		"Failed to delete user",
	}, handlerErrors(logs))
}

func TestListTemplate_LoadingIndicator(t *testing.T) {
	tmpl, err := LoadTemplates()
	require.NoError(t, err)

	render := func(show bool) string {
		var buf strings.Builder
		require.NoError(t, tmpl.ExecuteTemplate(&buf, listTemplate, page{
			Title:       "Users",
			ShowLoading: show,
			List:        logicv1.ListState{Loading: true},
		}))
		return buf.String()
	}

	on := render(true)
	assert.Contains(t, on, `aria-busy="true"`)
	assert.NotContains(t, on, `<table id="users">`)

	off := render(false)
	assert.NotContains(t, off, `aria-busy="true"`)
	assert.Contains(t, off, `<table id="users">`)
}

func TestCreateUser_MalformedBody(t *testing.T) {
	api := &fakeAPI{users: seedUsers()}
	b := newBrowser(t, api)

	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader("name=%zz"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	b.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Malformed form encoding", w.Body.String())
	assert.Zero(t, api.postCount())
}

func TestSanitizeFormError(t *testing.T) {
	assert.Equal(t, "Malformed form encoding", sanitizeFormError(url.EscapeError("%zz")))
	assert.Equal(t, "Invalid request", sanitizeFormError(errors.New("http: request body too large")))
}
