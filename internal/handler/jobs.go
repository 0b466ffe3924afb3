package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/config"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/handler/shared"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/httperror"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/identity"
	"github.com/Bharath-kolekar/cognomega-edge-sub004/internal/jobs"
)

// CreateJobRequest: 잡 생성 요청입니다.
type CreateJobRequest struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params"`
}

// RunJobRequest: 동기 실행 요청입니다. 기존 잡 id 또는 새 잡 정의를 받는다.
type RunJobRequest struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Params map[string]any `json:"params"`
}

// PatchJobRequest: 잡 부분 갱신 요청입니다.
type PatchJobRequest struct {
	Status string         `json:"status"`
	Result map[string]any `json:"result"`
}

// JobResponse: 잡 응답입니다.
type JobResponse struct {
	ID        string         `json:"id"`
	Identity  string         `json:"identity"`
	Type      string         `json:"type"`
	Params    map[string]any `json:"params,omitempty"`
	Status    string         `json:"status"`
	Result    map[string]any `json:"result,omitempty"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
}

// JobListResponse: 잡 목록 응답입니다.
type JobListResponse struct {
	Jobs       []JobResponse `json:"jobs"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// JobsHandler: 잡 큐 핸들러입니다.
type JobsHandler struct {
	cfg       *config.Config
	store     *jobs.Store
	runner    *jobs.Runner
	scheduler *jobs.Scheduler
	resolver  *identity.Resolver
	logger    *slog.Logger
}

// NewJobsHandler: 잡 핸들러를 생성합니다.
func NewJobsHandler(
	cfg *config.Config,
	store *jobs.Store,
	runner *jobs.Runner,
	scheduler *jobs.Scheduler,
	resolver *identity.Resolver,
	logger *slog.Logger,
) *JobsHandler {
	return &JobsHandler{
		cfg:       cfg,
		store:     store,
		runner:    runner,
		scheduler: scheduler,
		resolver:  resolver,
		logger:    logger,
	}
}

// RegisterRoutes: 잡 라우트를 등록합니다.
func (h *JobsHandler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/jobs")
	group.POST("", h.handleCreate)
	group.POST("/run", h.handleRun)
	group.GET("", h.handleList)
	group.GET("/:id", h.handleGet)
	group.PATCH("/:id", h.handlePatch)
}

// handleCreate 는 잡을 큐에 넣고 응답 후 백그라운드에서 실행한다.
func (h *JobsHandler) handleCreate(c *gin.Context) {
	caller := h.resolver.FromRequest(c)
	if caller == "" {
		writeError(c, httperror.NewMissingIdentity())
		return
	}

	var req CreateJobRequest
	if !bindJSONAllowEmpty(c, &req) {
		return
	}
	if req.Type == "" {
		req.Type = jobs.TypeSkillCall
	}

	job, err := h.store.Create(c.Request.Context(), caller, req.Type, req.Params)
	if err != nil {
		shared.LogError(h.logger, "job_create", err)
		writeError(c, err)
		return
	}

	h.scheduler.Schedule(job.ID)
	c.JSON(http.StatusAccepted, buildJobResponse(job))
}

// handleRun 는 잡 실행이 끝날 때까지 기다렸다가 종결 행을 반환한다.
func (h *JobsHandler) handleRun(c *gin.Context) {
	caller := h.resolver.FromRequest(c)
	if caller == "" {
		writeError(c, httperror.NewMissingIdentity())
		return
	}

	var req RunJobRequest
	if !bindJSONAllowEmpty(c, &req) {
		return
	}

	jobID := req.ID
	if jobID == "" {
		jobType := req.Type
		if jobType == "" {
			jobType = jobs.TypeSkillCall
		}
		created, err := h.store.Create(c.Request.Context(), caller, jobType, req.Params)
		if err != nil {
			shared.LogError(h.logger, "job_create", err)
			writeError(c, err)
			return
		}
		jobID = created.ID
	}

	job, err := h.runner.Run(c.Request.Context(), jobID)
	if err != nil {
		shared.LogError(h.logger, "job_run", err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, buildJobResponse(job))
}

func (h *JobsHandler) handleGet(c *gin.Context) {
	job, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildJobResponse(job))
}

func (h *JobsHandler) handleList(c *gin.Context) {
	caller := h.resolver.FromRequest(c)
	if caller == "" {
		writeError(c, httperror.NewMissingIdentity())
		return
	}

	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	listed, next, err := h.store.List(c.Request.Context(), caller, limit, c.Query("cursor"))
	if err != nil {
		shared.LogError(h.logger, "job_list", err)
		writeError(c, err)
		return
	}

	response := JobListResponse{
		Jobs:       make([]JobResponse, 0, len(listed)),
		NextCursor: next,
	}
	for _, job := range listed {
		response.Jobs = append(response.Jobs, buildJobResponse(job))
	}

	c.JSON(http.StatusOK, response)
}

func (h *JobsHandler) handlePatch(c *gin.Context) {
	var req PatchJobRequest
	if !bindJSON(c, &req) {
		return
	}

	job, err := h.store.Patch(c.Request.Context(), c.Param("id"), jobs.Patch{
		Status: req.Status,
		Result: req.Result,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, buildJobResponse(job))
}

func buildJobResponse(job jobs.Job) JobResponse {
	return JobResponse{
		ID:        job.ID,
		Identity:  job.Identity,
		Type:      job.Type,
		Params:    job.Params,
		Status:    string(job.Status),
		Result:    job.Result,
		CreatedAt: job.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: job.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}
