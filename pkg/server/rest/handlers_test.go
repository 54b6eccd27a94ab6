//nolint:funlen,errcheck //ok for this test code
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/fantasy-league-service/pkg/model"
	"github.com/mpapenbr/fantasy-league-service/pkg/repository/api"
	"github.com/mpapenbr/fantasy-league-service/pkg/rules"
)

type fakeUserRepo struct {
	mu      sync.Mutex
	created []*model.User
	err     error
}

func (f *fakeUserRepo) Create(ctx context.Context, name string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u := &model.User{ID: uuid.Must(uuid.NewV4()), Name: name}
	f.created = append(f.created, u)
	return u, nil
}

func (f *fakeUserRepo) LoadByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return nil, api.ErrNoRows
}

type fakeTeamRepo struct {
	mu      sync.Mutex
	created []*model.Team
	err     error
}

func (f *fakeTeamRepo) Create(ctx context.Context, t *model.Team) (*model.Team, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ret := *t
	ret.ID = uuid.Must(uuid.NewV4())
	f.created = append(f.created, &ret)
	return &ret, nil
}

func (f *fakeTeamRepo) LoadByID(ctx context.Context, id uuid.UUID) (*model.Team, error) {
	return nil, api.ErrNoRows
}

func (f *fakeTeamRepo) LoadAllWithUser(ctx context.Context) ([]*model.TeamEntry, error) {
	return nil, nil
}

type fakeRepos struct {
	users *fakeUserRepo
	teams *fakeTeamRepo
}

func (f *fakeRepos) User() api.UserRepository { return f.users }
func (f *fakeRepos) Team() api.TeamRepository { return f.teams }

type fakeTx struct {
	calls int
}

func (f *fakeTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type fakeRanker struct {
	ranked []*model.RankedTeam
	err    error
	panic  bool
}

func (f *fakeRanker) List(ctx context.Context) ([]*model.RankedTeam, error) {
	if f.panic {
		panic("boom")
	}
	return f.ranked, f.err
}

type fakeNotifier struct {
	users []*model.User
	teams []*model.Team
}

func (f *fakeNotifier) UserCreated(ctx context.Context, u *model.User) {
	f.users = append(f.users, u)
}

func (f *fakeNotifier) TeamCreated(ctx context.Context, t *model.Team) {
	f.teams = append(f.teams, t)
}

type fixture struct {
	repos    *fakeRepos
	tx       *fakeTx
	ranker   *fakeRanker
	notifier *fakeNotifier
	srv      *Server
}

func newFixture(opts ...Option) *fixture {
	f := &fixture{
		repos:    &fakeRepos{users: &fakeUserRepo{}, teams: &fakeTeamRepo{}},
		tx:       &fakeTx{},
		ranker:   &fakeRanker{},
		notifier: &fakeNotifier{},
	}
	all := append([]Option{
		WithRepositories(f.repos),
		WithTxManager(f.tx),
		WithRanker(f.ranker),
		WithNotifier(f.notifier),
	}, opts...)
	f.srv = NewServer(all...)
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload["error"]
}

func TestCreateUser(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPost, "/api/users", `{"name":"Alice"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var got model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Alice", got.Name)
	assert.NotEqual(t, uuid.Nil, got.ID)
	assert.Len(t, f.repos.users.created, 1)
	assert.Len(t, f.notifier.users, 1)
	assert.Equal(t, 1, f.tx.calls)
}

func TestCreateUserValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "absent name", body: `{}`},
		{name: "null name", body: `{"name": null}`},
		{name: "empty name", body: `{"name": ""}`},
		{name: "blank name", body: `{"name": "   "}`},
		{name: "wrong type", body: `{"name": 42}`},
		{name: "malformed json", body: `{"name": `},
		{name: "no body", body: ``},
		{name: "second value", body: `{"name":"A"} {"name":"B"}`},
		{name: "trailing garbage", body: `{"name":"A"} x`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			rec := f.do(http.MethodPost, "/api/users", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, errorMessage(t, rec))
			assert.Empty(t, f.repos.users.created)
			assert.Empty(t, f.notifier.users)
		})
	}
}

func TestCreateUserTrailingWhitespace(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPost, "/api/users", "{\"name\":\"Alice\"}\n\t ")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, f.repos.users.created, 1)
}

func TestCreateUserBodyTooLarge(t *testing.T) {
	f := newFixture()
	body := `{"name":"` + strings.Repeat("a", maxBodySize) + `"}`
	rec := f.do(http.MethodPost, "/api/users", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "request body too large")
	assert.Empty(t, f.repos.users.created)
}

func TestCreateUserPersistenceError(t *testing.T) {
	f := newFixture()
	f.repos.users.err = errors.New("connection refused: secret detail")
	rec := f.do(http.MethodPost, "/api/users", `{"name":"Alice"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, msgInternalError, errorMessage(t, rec))
	assert.Empty(t, f.notifier.users)
}

const validTeam = `{
	"userId": "0b3f8a52-4c9e-4f73-9a55-2fd3b1a0c001",
	"drivers": ["VER", "HAM", "LEC", "NOR", "SAI"],
	"constructors": ["Ferrari", "Mercedes"],
	"totalCost": 98.5
}`

func TestCreateTeam(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPost, "/api/teams", validTeam)

	require.Equal(t, http.StatusCreated, rec.Code)
	var got model.Team
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.NotEqual(t, uuid.Nil, got.ID)
	assert.Equal(t, "0b3f8a52-4c9e-4f73-9a55-2fd3b1a0c001", got.UserID.String())
	assert.Equal(t, []string{"VER", "HAM", "LEC", "NOR", "SAI"}, got.Drivers)
	assert.Equal(t, []string{"Ferrari", "Mercedes"}, got.Constructors)
	assert.InDelta(t, 98.5, got.TotalCost, 1e-9)
	assert.Len(t, f.repos.teams.created, 1)
	assert.Len(t, f.notifier.teams, 1)
}

func TestCreateTeamAcceptsAnyRosterByDefault(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPost, "/api/teams", `{
		"userId": "0b3f8a52-4c9e-4f73-9a55-2fd3b1a0c001",
		"drivers": [],
		"constructors": ["Ferrari"],
		"totalCost": 0
	}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, f.repos.teams.created, 1)
}

func TestCreateTeamValidation(t *testing.T) {
	const uid = `"0b3f8a52-4c9e-4f73-9a55-2fd3b1a0c001"`
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{
			name:    "missing userId",
			body:    `{"drivers":[],"constructors":[],"totalCost":1}`,
			wantMsg: "userId is required",
		},
		{
			name:    "null userId",
			body:    `{"userId":null,"drivers":[],"constructors":[],"totalCost":1}`,
			wantMsg: "userId is required",
		},
		{
			name:    "userId not a uuid",
			body:    `{"userId":"42","drivers":[],"constructors":[],"totalCost":1}`,
			wantMsg: "userId must be a UUID",
		},
		{
			name:    "missing drivers",
			body:    `{"userId":` + uid + `,"constructors":[],"totalCost":1}`,
			wantMsg: "drivers is required",
		},
		{
			name:    "null drivers",
			body:    `{"userId":` + uid + `,"drivers":null,"constructors":[],"totalCost":1}`,
			wantMsg: "drivers is required",
		},
		{
			name:    "missing constructors",
			body:    `{"userId":` + uid + `,"drivers":[],"totalCost":1}`,
			wantMsg: "constructors is required",
		},
		{
			name:    "missing totalCost",
			body:    `{"userId":` + uid + `,"drivers":[],"constructors":[]}`,
			wantMsg: "totalCost is required",
		},
		{
			name:    "totalCost as string",
			body:    `{"userId":` + uid + `,"drivers":[],"constructors":[],"totalCost":"1"}`,
			wantMsg: "body is not valid JSON",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			rec := f.do(http.MethodPost, "/api/teams", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, errorMessage(t, rec), tt.wantMsg)
			assert.Empty(t, f.repos.teams.created)
		})
	}
}

func TestCreateTeamRosterRules(t *testing.T) {
	e, err := rules.NewOpaEvaluator()
	require.NoError(t, err)
	f := newFixture(WithRulesEvaluator(e))

	rec := f.do(http.MethodPost, "/api/teams", `{
		"userId": "0b3f8a52-4c9e-4f73-9a55-2fd3b1a0c001",
		"drivers": ["VER"],
		"constructors": ["Ferrari", "Mercedes"],
		"totalCost": 120
	}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	msg := errorMessage(t, rec)
	assert.Contains(t, msg, "team needs exactly 5 drivers, got 1")
	assert.Contains(t, msg, "exceeds budget")
	assert.Empty(t, f.repos.teams.created)

	rec = f.do(http.MethodPost, "/api/teams", validTeam)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateTeamPersistenceError(t *testing.T) {
	f := newFixture()
	f.repos.teams.err = errors.New(
		`violates foreign key constraint "teams_user_id_fkey"`)
	rec := f.do(http.MethodPost, "/api/teams", validTeam)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, msgInternalError, errorMessage(t, rec))
	assert.Empty(t, f.notifier.teams)
}

func TestListTeams(t *testing.T) {
	f := newFixture()
	f.ranker.ranked = []*model.RankedTeam{
		{
			TeamEntry: model.TeamEntry{
				Team: model.Team{
					ID:           uuid.Must(uuid.NewV4()),
					Drivers:      []string{"VER"},
					Constructors: []string{"Ferrari"},
					TotalCost:    40,
				},
				UserName: "Alice",
			},
			TotalPoints: 150,
		},
	}
	rec := f.do(http.MethodGet, "/api/teams", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Alice", got[0]["userName"])
	assert.InDelta(t, 150.0, got[0]["totalPoints"], 1e-9)
	assert.InDelta(t, 40.0, got[0]["totalCost"], 1e-9)
	assert.Equal(t, []any{"VER"}, got[0]["drivers"])
}

func TestListTeamsEmpty(t *testing.T) {
	f := newFixture()
	f.ranker.ranked = []*model.RankedTeam{}
	rec := f.do(http.MethodGet, "/api/teams", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestListTeamsFailure(t *testing.T) {
	f := newFixture()
	f.ranker.err = errors.New("driver standings: unexpected status")
	rec := f.do(http.MethodGet, "/api/teams", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, msgInternalError, errorMessage(t, rec))
}

func TestPanicIsRecovered(t *testing.T) {
	f := newFixture()
	f.ranker.panic = true
	rec := f.do(http.MethodGet, "/api/teams", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, msgInternalError, errorMessage(t, rec))
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))
}

func TestRequestID(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodGet, "/healthz", "")
	generated := rec.Header().Get(HeaderRequestID)
	_, err := uuid.FromString(generated)
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec = httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(HeaderRequestID))
}

func TestHealthz(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	f = newFixture(WithHealthCheck(func(ctx context.Context) error {
		return errors.New("db down")
	}))
	rec = f.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetrics(t *testing.T) {
	f := newFixture()
	f.do(http.MethodPost, "/api/users", `{"name":"Alice"}`)
	f.do(http.MethodPost, "/api/users", `{}`)

	rec := f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body,
		`fls_api_http_requests_total{method="POST",route="POST /api/users",status="201"} 1`)
	assert.Contains(t, body,
		`fls_api_http_requests_total{method="POST",route="POST /api/users",status="400"} 1`)
}

func TestMetricsSharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := newFixture(WithRegistry(reg))
	var second *fixture
	require.NotPanics(t, func() { second = newFixture(WithRegistry(reg)) })

	first.do(http.MethodPost, "/api/users", `{"name":"Alice"}`)
	second.do(http.MethodPost, "/api/users", `{"name":"Bob"}`)

	rec := second.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(),
		`fls_api_http_requests_total{method="POST",route="POST /api/users",status="201"} 2`)
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodDelete, "/api/teams", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
