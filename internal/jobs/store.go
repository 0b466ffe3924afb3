package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/kvstore"
)

// ErrJobNotFound 는 잡 미존재 오류다.
var ErrJobNotFound = errors.New("job not found")

// Status 는 잡 상태다. queued → running → {succeeded | failed} 로만 전이한다.
type Status string

const (
	// StatusQueued 는 생성 직후 상태다.
	StatusQueued Status = "queued"
	// StatusRunning 는 실행 직전 상태다.
	StatusRunning Status = "running"
	// StatusSucceeded 는 성공 종결 상태다.
	StatusSucceeded Status = "succeeded"
	// StatusFailed 는 실패 종결 상태다.
	StatusFailed Status = "failed"
)

// Valid 는 알려진 상태값 여부를 반환한다.
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusRunning, StatusSucceeded, StatusFailed:
		return true
	default:
		return false
	}
}

// Terminal 는 종결 상태 여부를 반환한다. 종결 상태에서의 전이는 없다.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Job 는 내구 잡 행이다.
type Job struct {
	ID        string         `json:"id"`
	Identity  string         `json:"identity"`
	Type      string         `json:"type"`
	Params    map[string]any `json:"params,omitempty"`
	Status    Status         `json:"status"`
	Result    map[string]any `json:"result,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Patch 는 Patch 연산으로 갱신 가능한 필드다. 나머지 필드는 생성 후 불변이다.
type Patch struct {
	Status string
	Result map[string]any
}

// Store 는 잡 행과 식별자별 열거 색인을 관리한다.
// 색인 항목은 생성 시 한 번만 쓰이고 이후 갱신되지 않는다. 행만 변한다.
type Store struct {
	store  *kvstore.Store
	logger *slog.Logger
}

// NewStore 는 잡 저장소를 생성한다.
func NewStore(store *kvstore.Store, logger *slog.Logger) *Store {
	return &Store{store: store, logger: logger}
}

func jobKey(id string) string {
	return "job:" + id
}

func indexKey(identity string) string {
	return "jobidx:" + identity
}

// Create 는 잡을 생성한다. 행을 먼저 쓰고 색인을 쓴다.
// 색인 쓰기 실패는 경고만 남긴다. 잡은 id 로 계속 조회 가능하다.
func (s *Store) Create(ctx context.Context, identity string, jobType string, params map[string]any) (Job, error) {
	now := time.Now().UTC()
	job := Job{
		ID:        uuid.NewString(),
		Identity:  identity,
		Type:      jobType,
		Params:    params,
		Status:    StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.SetJSON(ctx, jobKey(job.ID), job); err != nil {
		return Job{}, fmt.Errorf("create job: %w", err)
	}

	member := kvstore.ReverseTimestamp(now) + ":" + job.ID
	if err := s.store.IndexAdd(ctx, indexKey(identity), member); err != nil {
		if s.logger != nil {
			s.logger.Warn("job_index_write_failed", "job_id", job.ID, "err", err)
		}
	}
	return job, nil
}

// Get 는 잡을 조회한다.
func (s *Store) Get(ctx context.Context, id string) (Job, error) {
	var job Job
	err := s.store.GetJSON(ctx, jobKey(id), &job)
	if errors.Is(err, kvstore.ErrNotFound) {
		return Job{}, ErrJobNotFound
	}
	if err != nil {
		return Job{}, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Patch 는 status/result 만 병합하는 read-modify-write 갱신이다.
// 알 수 없는 상태값과 종결 상태에서의 전이는 무시하고 현재 상태를 유지한다.
// updated_at 은 항상 갱신된다.
func (s *Store) Patch(ctx context.Context, id string, patch Patch) (Job, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return Job{}, err
	}

	if patch.Status != "" {
		next := Status(patch.Status)
		if next.Valid() && !job.Status.Terminal() {
			job.Status = next
		} else if s.logger != nil {
			s.logger.Warn("job_status_change_ignored", "job_id", id, "current", job.Status, "requested", patch.Status)
		}
	}
	if patch.Result != nil {
		job.Result = patch.Result
	}
	job.UpdatedAt = time.Now().UTC()

	if err := s.store.SetJSON(ctx, jobKey(id), job); err != nil {
		return Job{}, fmt.Errorf("patch job: %w", err)
	}
	return job, nil
}

// List 는 색인으로 잡을 최신순 나열한다. 행이 사라진 색인 항목은 건너뛴다.
func (s *Store) List(ctx context.Context, identity string, limit int, cursor string) ([]Job, string, error) {
	members, next, err := s.store.IndexScan(ctx, indexKey(identity), limit, cursor)
	if err != nil {
		return nil, "", fmt.Errorf("list jobs: %w", err)
	}

	result := make([]Job, 0, len(members))
	for _, member := range members {
		pos := strings.Index(member, ":")
		if pos < 0 || pos+1 >= len(member) {
			continue
		}
		job, err := s.Get(ctx, member[pos+1:])
		if errors.Is(err, ErrJobNotFound) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		result = append(result, job)
	}
	return result, next, nil
}
