package task_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/alanyang/cloudtask/internal/domain/event"
	domainrepo "github.com/alanyang/cloudtask/internal/domain/repository"
	domaintask "github.com/alanyang/cloudtask/internal/domain/task"
	"github.com/alanyang/cloudtask/internal/mocks"
	portrepo "github.com/alanyang/cloudtask/internal/port/repository"
	porttask "github.com/alanyang/cloudtask/internal/port/task"
	tasksvc "github.com/alanyang/cloudtask/internal/service/task"
)

// ── helpers ───────────────────────────────────────────────────────────────────

type svcDeps struct {
	store     *mocks.MockTaskStore
	repos     *mocks.MockRepositoryStore
	envs      *mocks.MockEnvironmentStore
	artifacts *mocks.MockArtifactStore
	bus       *mocks.MockEventBus
}

func newTaskSvc(t *testing.T) (*tasksvc.Service, svcDeps) {
	t.Helper()
	ctrl := gomock.NewController(t)
	d := svcDeps{
		store:     mocks.NewMockTaskStore(ctrl),
		repos:     mocks.NewMockRepositoryStore(ctrl),
		envs:      mocks.NewMockEnvironmentStore(ctrl),
		artifacts: mocks.NewMockArtifactStore(ctrl),
		bus:       mocks.NewMockEventBus(ctrl),
	}
	svc := tasksvc.NewService(d.store, d.repos, d.envs, d.artifacts, d.bus)
	return svc, d
}

func newTask(status domaintask.Status) domaintask.Task {
	return domaintask.Task{
		ID:           uuid.New(),
		Title:        "demo",
		RepositoryID: uuid.New(),
		Status:       status,
		CreatedBy:    uuid.New(),
	}
}

func anyPublish(d svcDeps) {
	d.bus.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
}

func matchEventType(et event.Type) gomock.Matcher {
	return eventTypeMatcher{et}
}

type eventTypeMatcher struct{ want event.Type }

func (m eventTypeMatcher) Matches(x any) bool {
	e, ok := x.(event.Event)
	return ok && e.Type == m.want
}

func (m eventTypeMatcher) String() string {
	return "event of type " + string(m.want)
}

// ── Create ────────────────────────────────────────────────────────────────────

func TestCreate_UnknownRepositoryIsInvalid(t *testing.T) {
	svc, d := newTaskSvc(t)
	repoID := uuid.New()
	d.repos.EXPECT().GetByID(gomock.Any(), repoID).
		Return(domainrepo.Repository{}, portrepo.ErrNotFound)

	_, err := svc.Create(context.Background(), uuid.New(), "t", "", repoID, nil)
	assert.ErrorIs(t, err, tasksvc.ErrInvalid)
}

func TestCreate_PublishesEvent(t *testing.T) {
	svc, d := newTaskSvc(t)
	repoID := uuid.New()
	d.repos.EXPECT().GetByID(gomock.Any(), repoID).
		Return(domainrepo.Repository{ID: repoID, Name: "demo-repo"}, nil)
	d.store.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, tk domaintask.Task) (domaintask.Task, error) {
			return tk, nil
		})
	d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypeTaskCreated)).Return(nil)

	detail, err := svc.Create(context.Background(), uuid.New(), "t", "d", repoID, nil)
	require.NoError(t, err)
	assert.Equal(t, domaintask.StatusPending, detail.Status)
	require.NotNil(t, detail.Repository)
	assert.Equal(t, "demo-repo", detail.Repository.Name)
}

// ── Claim ─────────────────────────────────────────────────────────────────────

func TestClaim_PendingSucceeds(t *testing.T) {
	svc, d := newTaskSvc(t)
	anyPublish(d)
	caller := uuid.New()
	tk := newTask(domaintask.StatusPending)

	d.store.EXPECT().GetByID(gomock.Any(), tk.ID).Return(tk, nil)
	d.store.EXPECT().
		UpdateStatus(gomock.Any(), tk.ID, domaintask.StatusPending, domaintask.StatusClaimed, &caller).
		Return(nil)

	info, err := svc.Claim(context.Background(), tk.ID, caller)
	require.NoError(t, err)
	assert.False(t, info.ClaimExpiresAt.IsZero())
}

func TestClaim_ReviewSucceeds(t *testing.T) {
	svc, d := newTaskSvc(t)
	anyPublish(d)
	caller := uuid.New()
	tk := newTask(domaintask.StatusReview)

	d.store.EXPECT().GetByID(gomock.Any(), tk.ID).Return(tk, nil)
	d.store.EXPECT().
		UpdateStatus(gomock.Any(), tk.ID, domaintask.StatusReview, domaintask.StatusClaimed, &caller).
		Return(nil)

	_, err := svc.Claim(context.Background(), tk.ID, caller)
	require.NoError(t, err)
}

func TestClaim_ClaimedConflicts(t *testing.T) {
	svc, d := newTaskSvc(t)
	tk := newTask(domaintask.StatusClaimed)
	d.store.EXPECT().GetByID(gomock.Any(), tk.ID).Return(tk, nil)

	_, err := svc.Claim(context.Background(), tk.ID, uuid.New())
	assert.ErrorIs(t, err, tasksvc.ErrConflict)
}

func TestClaim_LostRaceConflicts(t *testing.T) {
	svc, d := newTaskSvc(t)
	tk := newTask(domaintask.StatusPending)

	d.store.EXPECT().GetByID(gomock.Any(), tk.ID).Return(tk, nil)
	d.store.EXPECT().
		UpdateStatus(gomock.Any(), tk.ID, gomock.Any(), gomock.Any(), gomock.Any()).
		Return(porttask.ErrStale)

	_, err := svc.Claim(context.Background(), tk.ID, uuid.New())
	assert.ErrorIs(t, err, tasksvc.ErrConflict)
}

func TestClaim_MissingTaskNotFound(t *testing.T) {
	svc, d := newTaskSvc(t)
	id := uuid.New()
	d.store.EXPECT().GetByID(gomock.Any(), id).Return(domaintask.Task{}, porttask.ErrNotFound)

	_, err := svc.Claim(context.Background(), id, uuid.New())
	assert.ErrorIs(t, err, tasksvc.ErrNotFound)
}

// ── StartAttempt ──────────────────────────────────────────────────────────────

func TestStartAttempt_NonAssigneeForbidden(t *testing.T) {
	svc, d := newTaskSvc(t)
	assignee := uuid.New()
	tk := newTask(domaintask.StatusClaimed)
	tk.AssigneeID = &assignee

	d.store.EXPECT().GetByID(gomock.Any(), tk.ID).Return(tk, nil)

	_, err := svc.StartAttempt(context.Background(), tk.ID, uuid.New())
	assert.ErrorIs(t, err, tasksvc.ErrForbidden)
}

func TestStartAttempt_UnassignedForbidden(t *testing.T) {
	svc, d := newTaskSvc(t)
	tk := newTask(domaintask.StatusPending)
	d.store.EXPECT().GetByID(gomock.Any(), tk.ID).Return(tk, nil)

	_, err := svc.StartAttempt(context.Background(), tk.ID, uuid.New())
	assert.ErrorIs(t, err, tasksvc.ErrForbidden)
}

func TestStartAttempt_OpenAttemptConflicts(t *testing.T) {
	svc, d := newTaskSvc(t)
	caller := uuid.New()
	tk := newTask(domaintask.StatusClaimed)
	tk.AssigneeID = &caller

	d.store.EXPECT().GetByID(gomock.Any(), tk.ID).Return(tk, nil)
	d.store.EXPECT().HasOpenAttempt(gomock.Any(), tk.ID).Return(true, nil)

	_, err := svc.StartAttempt(context.Background(), tk.ID, caller)
	assert.ErrorIs(t, err, tasksvc.ErrConflict)
}

func TestStartAttempt_Success(t *testing.T) {
	svc, d := newTaskSvc(t)
	caller := uuid.New()
	tk := newTask(domaintask.StatusClaimed)
	tk.AssigneeID = &caller

	d.store.EXPECT().GetByID(gomock.Any(), tk.ID).Return(tk, nil)
	d.store.EXPECT().HasOpenAttempt(gomock.Any(), tk.ID).Return(false, nil)
	d.store.EXPECT().
		UpdateStatus(gomock.Any(), tk.ID, domaintask.StatusClaimed, domaintask.StatusRunning, nil).
		Return(nil)
	d.store.EXPECT().CreateAttempt(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, a domaintask.Attempt) (domaintask.Attempt, error) {
			return a, nil
		})
	d.bus.EXPECT().Publish(gomock.Any(), matchEventType(event.TypeAttemptStarted)).Return(nil)

	attempt, err := svc.StartAttempt(context.Background(), tk.ID, caller)
	require.NoError(t, err)
	assert.Equal(t, domaintask.AttemptRunning, attempt.Status)
	assert.Equal(t, tk.ID, attempt.TaskID)
	assert.Equal(t, caller, attempt.CreatedBy)
}

// ── CompleteAttempt ───────────────────────────────────────────────────────────

func completeFixture(t *testing.T, d svcDeps, taskStatus domaintask.Status) (domaintask.Task, domaintask.Attempt, uuid.UUID) {
	t.Helper()
	caller := uuid.New()
	tk := newTask(taskStatus)
	tk.AssigneeID = &caller
	attempt := domaintask.NewAttempt(tk.ID, caller)

	d.store.EXPECT().GetAttempt(gomock.Any(), attempt.ID).Return(attempt, nil)
	d.store.EXPECT().GetByID(gomock.Any(), tk.ID).Return(tk, nil)
	return tk, attempt, caller
}

func TestCompleteAttempt_SucceededDrivesReview(t *testing.T) {
	svc, d := newTaskSvc(t)
	anyPublish(d)
	tk, attempt, caller := completeFixture(t, d, domaintask.StatusRunning)

	diff := "diff text"
	log := "log text"
	d.artifacts.EXPECT().StoreText(gomock.Any(), diff, "diff").Return("a1.diff", nil)
	d.artifacts.EXPECT().StoreText(gomock.Any(), log, "log").Return("a2.log", nil)
	d.store.EXPECT().UpdateAttempt(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, a domaintask.Attempt) error {
			assert.Equal(t, domaintask.AttemptSucceeded, a.Status)
			require.NotNil(t, a.DiffArtifactID)
			assert.Equal(t, "a1.diff", *a.DiffArtifactID)
			return nil
		})
	d.store.EXPECT().
		UpdateStatus(gomock.Any(), tk.ID, domaintask.StatusRunning, domaintask.StatusReview, nil).
		Return(nil)
	d.artifacts.EXPECT().URL(gomock.Any(), "a1.diff").Return("/artifacts/a1.diff", nil)
	d.artifacts.EXPECT().URL(gomock.Any(), "a2.log").Return("/artifacts/a2.log", nil)

	result, err := svc.CompleteAttempt(context.Background(), attempt.ID, caller, tasksvc.Outcome{
		Status: domaintask.AttemptSucceeded,
		Diff:   &diff,
		Log:    &log,
	})
	require.NoError(t, err)
	assert.Equal(t, domaintask.AttemptSucceeded, result.Status)
	require.NotNil(t, result.DiffURL)
	assert.Equal(t, "/artifacts/a1.diff", *result.DiffURL)
}

func TestCompleteAttempt_FailedReleasesTask(t *testing.T) {
	svc, d := newTaskSvc(t)
	anyPublish(d)
	tk, attempt, caller := completeFixture(t, d, domaintask.StatusRunning)

	log := "failure log"
	d.artifacts.EXPECT().StoreText(gomock.Any(), log, "log").Return("a3.log", nil)
	d.store.EXPECT().UpdateAttempt(gomock.Any(), gomock.Any()).Return(nil)
	d.store.EXPECT().
		UpdateStatus(gomock.Any(), tk.ID, domaintask.StatusRunning, domaintask.StatusPending, nil).
		Return(nil)
	d.artifacts.EXPECT().URL(gomock.Any(), "a3.log").Return("/artifacts/a3.log", nil)

	result, err := svc.CompleteAttempt(context.Background(), attempt.ID, caller, tasksvc.Outcome{
		Status: domaintask.AttemptFailed,
		Log:    &log,
	})
	require.NoError(t, err)
	assert.Equal(t, domaintask.AttemptFailed, result.Status)
	assert.Nil(t, result.DiffURL)
}

func TestCompleteAttempt_NonTerminalLeavesTask(t *testing.T) {
	svc, d := newTaskSvc(t)
	anyPublish(d)
	_, attempt, caller := completeFixture(t, d, domaintask.StatusRunning)

	// No UpdateStatus expectation: the task must stay untouched.
	d.store.EXPECT().UpdateAttempt(gomock.Any(), gomock.Any()).Return(nil)

	result, err := svc.CompleteAttempt(context.Background(), attempt.ID, caller, tasksvc.Outcome{
		Status: domaintask.AttemptRunning,
	})
	require.NoError(t, err)
	assert.Equal(t, domaintask.AttemptRunning, result.Status)
}

func TestCompleteAttempt_NonAssigneeForbidden(t *testing.T) {
	svc, d := newTaskSvc(t)
	_, attempt, _ := completeFixture(t, d, domaintask.StatusRunning)

	_, err := svc.CompleteAttempt(context.Background(), attempt.ID, uuid.New(), tasksvc.Outcome{
		Status: domaintask.AttemptSucceeded,
	})
	assert.ErrorIs(t, err, tasksvc.ErrForbidden)
}

func TestCompleteAttempt_UnknownStatusInvalid(t *testing.T) {
	svc, _ := newTaskSvc(t)

	_, err := svc.CompleteAttempt(context.Background(), uuid.New(), uuid.New(), tasksvc.Outcome{
		Status: domaintask.AttemptStatus("done"),
	})
	assert.ErrorIs(t, err, tasksvc.ErrInvalid)
}

func TestCompleteAttempt_MissingAttemptNotFound(t *testing.T) {
	svc, d := newTaskSvc(t)
	id := uuid.New()
	d.store.EXPECT().GetAttempt(gomock.Any(), id).
		Return(domaintask.Attempt{}, porttask.ErrNotFound)

	_, err := svc.CompleteAttempt(context.Background(), id, uuid.New(), tasksvc.Outcome{
		Status: domaintask.AttemptSucceeded,
	})
	assert.ErrorIs(t, err, tasksvc.ErrNotFound)
}

// ── Get ───────────────────────────────────────────────────────────────────────

func TestGet_AssemblesDetail(t *testing.T) {
	svc, d := newTaskSvc(t)
	tk := newTask(domaintask.StatusReview)
	artifactID := "a1.diff"
	attempt := domaintask.NewAttempt(tk.ID, uuid.New())
	attempt.Status = domaintask.AttemptSucceeded
	attempt.DiffArtifactID = &artifactID

	d.store.EXPECT().GetByID(gomock.Any(), tk.ID).Return(tk, nil)
	d.repos.EXPECT().GetByID(gomock.Any(), tk.RepositoryID).
		Return(domainrepo.Repository{ID: tk.RepositoryID, Name: "demo-repo"}, nil)
	d.store.EXPECT().ListAttempts(gomock.Any(), tk.ID).Return([]domaintask.Attempt{attempt}, nil)
	d.artifacts.EXPECT().URL(gomock.Any(), artifactID).Return("/artifacts/a1.diff", nil)

	detail, err := svc.Get(context.Background(), tk.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Repository)
	require.Len(t, detail.Attempts, 1)
	require.NotNil(t, detail.Attempts[0].DiffURL)
	assert.Equal(t, "/artifacts/a1.diff", *detail.Attempts[0].DiffURL)
	assert.Nil(t, detail.Attempts[0].LogURL)
}

func TestGet_MissingRepositoryDegrades(t *testing.T) {
	svc, d := newTaskSvc(t)
	tk := newTask(domaintask.StatusPending)

	d.store.EXPECT().GetByID(gomock.Any(), tk.ID).Return(tk, nil)
	d.repos.EXPECT().GetByID(gomock.Any(), tk.RepositoryID).
		Return(domainrepo.Repository{}, errors.New("gone"))
	d.store.EXPECT().ListAttempts(gomock.Any(), tk.ID).Return(nil, nil)

	detail, err := svc.Get(context.Background(), tk.ID)
	require.NoError(t, err)
	assert.Nil(t, detail.Repository)
	assert.Empty(t, detail.Attempts)
}
