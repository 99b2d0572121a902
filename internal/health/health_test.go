package health

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hlcopy/internal/hlerr"
	"hlcopy/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, nil))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

type fakeRepo struct {
	state     types.SchedulerState
	positions []types.OpenPosition
}

func (r fakeRepo) GetSchedulerState() (*types.SchedulerState, error) { return &r.state, nil }
func (r fakeRepo) OpenPositions() ([]types.OpenPosition, error)      { return r.positions, nil }

func TestHandleHealthReturnsOK(t *testing.T) {
	t.Parallel()

	s := New(fakeRepo{}, 0, testLogger())
	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestHandleStatusReportsSchedulerStateAndPositionCount(t *testing.T) {
	t.Parallel()

	now := time.Now()
	repo := fakeRepo{
		state:     types.SchedulerState{LastRefreshAt: now},
		positions: []types.OpenPosition{{Token: "BTC"}, {Token: "ETH"}},
	}
	s := New(repo, 0, testLogger())

	rec := httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	body, _ := io.ReadAll(rec.Result().Body)
	var resp statusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.OpenPositions != 2 {
		t.Errorf("OpenPositions = %d, want 2", resp.OpenPositions)
	}
	if !resp.LastRefreshAt.Equal(now) {
		t.Errorf("LastRefreshAt = %v, want %v", resp.LastRefreshAt, now)
	}
}

func TestRecordErrorSurfacesInStatus(t *testing.T) {
	t.Parallel()

	s := New(fakeRepo{}, 0, testLogger())
	s.RecordError(hlerr.RateLimited, time.Now())

	rec := httptest.NewRecorder()
	s.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	var resp statusResponse
	if err := json.NewDecoder(rec.Result().Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.LastError == nil || resp.LastError.Kind != hlerr.RateLimited {
		t.Errorf("LastError = %+v, want Kind=RateLimited", resp.LastError)
	}
}
