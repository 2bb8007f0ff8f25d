package task_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	domaintask "github.com/alanyang/cloudtask/internal/domain/task"
)

func TestStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		name string
		from domaintask.Status
		to   domaintask.Status
		want bool
	}{
		{"pending to claimed", domaintask.StatusPending, domaintask.StatusClaimed, true},
		{"pending to running skips claim", domaintask.StatusPending, domaintask.StatusRunning, false},
		{"claimed to running", domaintask.StatusClaimed, domaintask.StatusRunning, true},
		{"claimed released to pending", domaintask.StatusClaimed, domaintask.StatusPending, true},
		{"running to review", domaintask.StatusRunning, domaintask.StatusReview, true},
		{"running released to pending", domaintask.StatusRunning, domaintask.StatusPending, true},
		{"review reclaimed", domaintask.StatusReview, domaintask.StatusClaimed, true},
		{"review to applied", domaintask.StatusReview, domaintask.StatusApplied, true},
		{"review cannot run directly", domaintask.StatusReview, domaintask.StatusRunning, false},
		{"applied is terminal", domaintask.StatusApplied, domaintask.StatusPending, false},
		{"no self loop", domaintask.StatusPending, domaintask.StatusPending, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.from.CanTransitionTo(tc.to))
		})
	}
}

func TestStatus_Claimable(t *testing.T) {
	assert.True(t, domaintask.StatusPending.Claimable())
	assert.True(t, domaintask.StatusReview.Claimable())
	assert.False(t, domaintask.StatusClaimed.Claimable())
	assert.False(t, domaintask.StatusRunning.Claimable())
	assert.False(t, domaintask.StatusApplied.Claimable())
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, domaintask.StatusRunning.Valid())
	assert.False(t, domaintask.Status("cancelled").Valid())
}

func TestAttemptStatus_TaskResult(t *testing.T) {
	assert.Equal(t, domaintask.StatusReview, domaintask.AttemptSucceeded.TaskResult(domaintask.StatusRunning))
	assert.Equal(t, domaintask.StatusPending, domaintask.AttemptFailed.TaskResult(domaintask.StatusRunning))
	assert.Equal(t, domaintask.StatusRunning, domaintask.AttemptRunning.TaskResult(domaintask.StatusRunning))
	assert.Equal(t, domaintask.StatusClaimed, domaintask.AttemptQueued.TaskResult(domaintask.StatusClaimed))
}

func TestAttemptStatus_Terminal(t *testing.T) {
	assert.True(t, domaintask.AttemptSucceeded.Terminal())
	assert.True(t, domaintask.AttemptFailed.Terminal())
	assert.False(t, domaintask.AttemptQueued.Terminal())
	assert.False(t, domaintask.AttemptRunning.Terminal())
}

func TestNew_Defaults(t *testing.T) {
	tk := domaintask.New("title", "desc", uuid.New(), uuid.New(), nil)
	assert.Equal(t, domaintask.StatusPending, tk.Status)
	assert.Nil(t, tk.AssigneeID)
	assert.NotZero(t, tk.ID)
}
