package task_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/alanyang/cloudtask/internal/adapter/memory"
	domainrepo "github.com/alanyang/cloudtask/internal/domain/repository"
	domaintask "github.com/alanyang/cloudtask/internal/domain/task"
	domainuser "github.com/alanyang/cloudtask/internal/domain/user"
	"github.com/alanyang/cloudtask/internal/mocks"
	porttask "github.com/alanyang/cloudtask/internal/port/task"
	authsvc "github.com/alanyang/cloudtask/internal/service/auth"
	tasksvc "github.com/alanyang/cloudtask/internal/service/task"
	"github.com/alanyang/cloudtask/internal/transport/middleware"
	transporttask "github.com/alanyang/cloudtask/internal/transport/task"
	"golang.org/x/crypto/bcrypt"
)

func init() { gin.SetMode(gin.TestMode) }

type fixture struct {
	router *gin.Engine
	store  *mocks.MockTaskStore
	repos  *mocks.MockRepositoryStore
	token  string
	caller uuid.UUID
}

// newFixture wires a real gin engine with the real auth middleware and a task
// service backed by mocks, plus one logged-in user.
func newFixture(t *testing.T) fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := mocks.NewMockTaskStore(ctrl)
	repos := mocks.NewMockRepositoryStore(ctrl)
	envs := mocks.NewMockEnvironmentStore(ctrl)
	artifacts := mocks.NewMockArtifactStore(ctrl)
	users := mocks.NewMockUserStore(ctrl)

	hash, err := bcrypt.GenerateFromPassword([]byte("worker-pw"), bcrypt.MinCost)
	require.NoError(t, err)
	worker := domainuser.User{ID: uuid.New(), Email: "w@example.com", PasswordHash: string(hash)}
	users.EXPECT().GetByEmail(gomock.Any(), "w@example.com").Return(worker, nil).AnyTimes()

	auth := authsvc.NewService(users, memory.NewCache())
	token, err := auth.Login(context.Background(), "w@example.com", "worker-pw")
	require.NoError(t, err)

	svc := tasksvc.NewService(store, repos, envs, artifacts, nil)

	r := gin.New()
	transporttask.Register(r.Group("/tasks", middleware.RequireAuth(auth)), svc)

	return fixture{router: r, store: store, repos: repos, token: token, caller: worker.ID}
}

func (f fixture) do(t *testing.T, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	w := httptest.NewRecorder()
	req, err := http.NewRequestWithContext(context.Background(), method, path, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.token)
	f.router.ServeHTTP(w, req)
	return w
}

func detailOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Detail
}

// ── auth ──────────────────────────────────────────────────────────────────────

func TestTasks_MissingTokenUnauthorized(t *testing.T) {
	f := newFixture(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/tasks", nil)
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, detailOf(t, w))
}

func TestTasks_BogusTokenUnauthorized(t *testing.T) {
	f := newFixture(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, "/tasks", nil)
	req.Header.Set("Authorization", "Bearer nope")
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// ── POST /tasks ───────────────────────────────────────────────────────────────

func TestCreateTask_Success(t *testing.T) {
	f := newFixture(t)
	repoID := uuid.New()

	f.repos.EXPECT().GetByID(gomock.Any(), repoID).
		Return(domainrepo.Repository{ID: repoID, Name: "demo-repo"}, nil)
	f.store.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, tk domaintask.Task) (domaintask.Task, error) {
			assert.Equal(t, f.caller, tk.CreatedBy)
			return tk, nil
		})

	w := f.do(t, http.MethodPost, "/tasks", map[string]any{
		"title":         "Demo Task",
		"repository_id": repoID,
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	var got tasksvc.Detail
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Demo Task", got.Title)
	assert.Equal(t, domaintask.StatusPending, got.Status)
}

func TestCreateTask_MissingTitleBadRequest(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/tasks", map[string]any{"repository_id": uuid.New()})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ── GET /tasks ────────────────────────────────────────────────────────────────

func TestListTasks_StatusFilter(t *testing.T) {
	f := newFixture(t)

	f.store.EXPECT().List(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, filters domaintask.ListFilters) ([]domaintask.Task, error) {
			require.NotNil(t, filters.Status)
			assert.Equal(t, domaintask.StatusPending, *filters.Status)
			return nil, nil
		})

	w := f.do(t, http.MethodGet, "/tasks?status=pending", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestListTasks_InvalidStatusBadRequest(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/tasks?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ── POST /tasks/:id/claim ─────────────────────────────────────────────────────

func TestClaimTask_Success(t *testing.T) {
	f := newFixture(t)
	tk := domaintask.Task{ID: uuid.New(), Status: domaintask.StatusPending}

	f.store.EXPECT().GetByID(gomock.Any(), tk.ID).Return(tk, nil)
	f.store.EXPECT().
		UpdateStatus(gomock.Any(), tk.ID, domaintask.StatusPending, domaintask.StatusClaimed, gomock.Any()).
		Return(nil)

	w := f.do(t, http.MethodPost, "/tasks/"+tk.ID.String()+"/claim", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		ClaimExpiresAt string `json:"claim_expires_at"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body.ClaimExpiresAt)
}

func TestClaimTask_AlreadyClaimedConflict(t *testing.T) {
	f := newFixture(t)
	tk := domaintask.Task{ID: uuid.New(), Status: domaintask.StatusRunning}
	f.store.EXPECT().GetByID(gomock.Any(), tk.ID).Return(tk, nil)

	w := f.do(t, http.MethodPost, "/tasks/"+tk.ID.String()+"/claim", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.NotEmpty(t, detailOf(t, w))
}

func TestClaimTask_MissingNotFound(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	f.store.EXPECT().GetByID(gomock.Any(), id).
		Return(domaintask.Task{}, porttask.ErrNotFound)

	w := f.do(t, http.MethodPost, "/tasks/"+id.String()+"/claim", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClaimTask_BadIDBadRequest(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/tasks/not-a-uuid/claim", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ── POST /tasks/:id/attempts ──────────────────────────────────────────────────

func TestStartAttempt_NotAssigneeForbidden(t *testing.T) {
	f := newFixture(t)
	other := uuid.New()
	tk := domaintask.Task{ID: uuid.New(), Status: domaintask.StatusClaimed, AssigneeID: &other}
	f.store.EXPECT().GetByID(gomock.Any(), tk.ID).Return(tk, nil)

	w := f.do(t, http.MethodPost, "/tasks/"+tk.ID.String()+"/attempts", map[string]any{})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NotEmpty(t, detailOf(t, w))
}

func TestStartAttempt_OpenAttemptConflict(t *testing.T) {
	f := newFixture(t)
	tk := domaintask.Task{ID: uuid.New(), Status: domaintask.StatusClaimed, AssigneeID: &f.caller}

	f.store.EXPECT().GetByID(gomock.Any(), tk.ID).Return(tk, nil)
	f.store.EXPECT().HasOpenAttempt(gomock.Any(), tk.ID).Return(true, nil)

	w := f.do(t, http.MethodPost, "/tasks/"+tk.ID.String()+"/attempts", map[string]any{})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStartAttempt_Success(t *testing.T) {
	f := newFixture(t)
	tk := domaintask.Task{ID: uuid.New(), Status: domaintask.StatusClaimed, AssigneeID: &f.caller}

	f.store.EXPECT().GetByID(gomock.Any(), tk.ID).Return(tk, nil)
	f.store.EXPECT().HasOpenAttempt(gomock.Any(), tk.ID).Return(false, nil)
	f.store.EXPECT().
		UpdateStatus(gomock.Any(), tk.ID, domaintask.StatusClaimed, domaintask.StatusRunning, nil).
		Return(nil)
	f.store.EXPECT().CreateAttempt(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, a domaintask.Attempt) (domaintask.Attempt, error) {
			return a, nil
		})

	w := f.do(t, http.MethodPost, "/tasks/"+tk.ID.String()+"/attempts", map[string]any{})
	assert.Equal(t, http.StatusCreated, w.Code)

	var attempt domaintask.Attempt
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &attempt))
	assert.Equal(t, tk.ID, attempt.TaskID)
	assert.Equal(t, domaintask.AttemptRunning, attempt.Status)
}
