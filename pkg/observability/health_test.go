package observability

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func TestHealthChecker_Liveness(t *testing.T) {
	checker := NewHealthChecker(nil, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()

	checker.Liveness(rr, req)

	if rr.Code != 200 {
		t.Errorf("Liveness status = %d, want 200", rr.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to unmarshal body: %v", err)
	}
	if body["status"] != StatusHealthy {
		t.Errorf("status = %v, want %s", body["status"], StatusHealthy)
	}
}

func TestHealthChecker_Check_AllHealthy(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock db: %v", err)
	}
	defer db.Close()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer redisClient.Close()

	checker := NewHealthChecker(db, redisClient)
	status := checker.Check(context.Background())

	if status.Status != StatusHealthy {
		t.Errorf("status = %s, want %s", status.Status, StatusHealthy)
	}
	if status.Dependencies["database"].Status != StatusHealthy {
		t.Errorf("database status = %s, want healthy", status.Dependencies["database"].Status)
	}
	if status.Dependencies["redis"].Status != StatusHealthy {
		t.Errorf("redis status = %s, want healthy", status.Dependencies["redis"].Status)
	}
}

func TestHealthChecker_Check_RedisDown(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock db: %v", err)
	}
	defer db.Close()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer redisClient.Close()

	// Stop redis so Ping fails. The session store is load bearing, so
	// the whole gateway is unhealthy, not degraded.
	mr.Close()

	checker := NewHealthChecker(db, redisClient)
	status := checker.Check(context.Background())

	if status.Status != StatusUnhealthy {
		t.Errorf("status = %s, want %s", status.Status, StatusUnhealthy)
	}
}

func TestHealthChecker_Readiness_Unhealthy(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer redisClient.Close()
	mr.Close()

	checker := NewHealthChecker(nil, redisClient)

	req := httptest.NewRequest("GET", "/ready", nil)
	rr := httptest.NewRecorder()

	checker.Readiness(rr, req)

	if rr.Code != 503 {
		t.Errorf("Readiness status = %d, want 503", rr.Code)
	}
}
