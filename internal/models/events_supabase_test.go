package models

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postgrestStub answers every RPC with the given status and JSON body and
// records the function name that was called.
func postgrestStub(t *testing.T, status int, body string) (*SupabaseRepo, *string) {
	t.Helper()
	var called string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = r.URL.Path
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return SupabaseNewRepo(nil, srv.URL, "key"), &called
}

func sampleReport() *Report {
	return &Report{EventID: uuid.New(), UserID: uuid.New(), Reason: ReasonSpam}
}

var sampleRule = EscalationRule{From: StatusActive, To: StatusUnderReview, Threshold: 3}

func TestSupabaseRecordReport(t *testing.T) {
	t.Run("success decodes outcome", func(t *testing.T) {
		repo, called := postgrestStub(t, http.StatusOK,
			`{"new_count":3,"previous_status":"active","status":"under_review"}`)

		out, err := repo.RecordReport(context.Background(), sampleReport(), sampleRule)
		require.NoError(t, err)
		assert.Equal(t, "/rest/v1/rpc/report_event", *called)
		assert.Equal(t, 3, out.NewCount)
		assert.Equal(t, StatusUnderReview, out.Status)
		assert.True(t, out.StatusChanged)
	})

	t.Run("unique violation is a duplicate", func(t *testing.T) {
		repo, _ := postgrestStub(t, http.StatusConflict,
			`{"code":"23505","message":"duplicate key value violates unique constraint \"event_reports_pkey\""}`)

		out, err := repo.RecordReport(context.Background(), sampleReport(), sampleRule)
		assert.ErrorIs(t, err, ErrDuplicateReport)
		assert.Nil(t, out)
	})

	t.Run("missing event", func(t *testing.T) {
		repo, _ := postgrestStub(t, http.StatusBadRequest,
			`{"code":"P0002","message":"event not found"}`)

		_, err := repo.RecordReport(context.Background(), sampleReport(), sampleRule)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("other failures are store errors", func(t *testing.T) {
		repo, _ := postgrestStub(t, http.StatusServiceUnavailable, `upstream down`)

		_, err := repo.RecordReport(context.Background(), sampleReport(), sampleRule)
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.NotErrorIs(t, err, ErrDuplicateReport)
	})
}

func TestSupabaseApproveEvent(t *testing.T) {
	id := uuid.New()

	t.Run("success decodes event", func(t *testing.T) {
		row, err := json.Marshal(map[string]interface{}{"id": id, "status": StatusActive, "report_count": 0})
		require.NoError(t, err)
		repo, called := postgrestStub(t, http.StatusOK, string(row))

		ev, err := repo.ApproveEvent(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "/rest/v1/rpc/approve_event", *called)
		assert.Equal(t, id, ev.ID)
		assert.Equal(t, StatusActive, ev.Status)
	})

	t.Run("missing event", func(t *testing.T) {
		repo, _ := postgrestStub(t, http.StatusBadRequest,
			`{"code":"P0002","message":"event not found"}`)

		ev, err := repo.ApproveEvent(context.Background(), id)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, ev)
	})

	t.Run("not under review", func(t *testing.T) {
		repo, _ := postgrestStub(t, http.StatusBadRequest,
			`{"code":"P0001","message":"event `+id.String()+` is not under review"}`)

		ev, err := repo.ApproveEvent(context.Background(), id)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Nil(t, ev)
	})
}

func TestSupabaseRPCHonoursContext(t *testing.T) {
	repo, _ := postgrestStub(t, http.StatusOK, `{}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.RecordReport(ctx, sampleReport(), sampleRule)
	assert.ErrorIs(t, err, context.Canceled)
}
