package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"tandem/internal/model"
	"tandem/internal/progress"
	"tandem/internal/service/goals"
)

// GoalService is the slice of goals.Service the handlers use.
type GoalService interface {
	List(ctx context.Context, userID string) ([]model.Goal, error)
	Get(ctx context.Context, userID string, id uuid.UUID) (*model.Goal, error)
	Create(ctx context.Context, userID string, g model.Goal) (*model.Goal, error)
	Update(ctx context.Context, userID string, id uuid.UUID, patch model.GoalPatch) (*model.Goal, error)
	Delete(ctx context.Context, userID string, id uuid.UUID) error
	Today(ctx context.Context, userID string, ref time.Time) (progress.Day, error)

	ListTasks(ctx context.Context, userID string, f goals.TaskFilter) ([]model.Task, error)
	CreateTask(ctx context.Context, userID string, t model.Task) (*model.Task, error)
	ToggleTask(ctx context.Context, userID string, id uuid.UUID) (*model.Task, error)
	DeleteTask(ctx context.Context, userID string, id uuid.UUID) error

	CreateMilestone(ctx context.Context, userID string, goalID uuid.UUID, m model.Milestone) (*goals.MilestoneResult, error)
	ToggleMilestone(ctx context.Context, userID string, id uuid.UUID) (*goals.MilestoneResult, error)
	DeleteMilestone(ctx context.Context, userID string, id uuid.UUID) (*goals.MilestoneResult, error)

	ListGeneralReflections(ctx context.Context, userID string) ([]model.Reflection, error)
	AddReflection(ctx context.Context, userID string, goalID *uuid.UUID, date time.Time, content string) (*model.Reflection, error)
	DeleteReflection(ctx context.Context, userID string, id uuid.UUID) error
	AddResource(ctx context.Context, userID string, goalID *uuid.UUID, title, link string) (*model.Resource, error)
	DeleteResource(ctx context.Context, userID string, id uuid.UUID) error
}

type GoalHandler struct {
	service GoalService
	now     func() time.Time
}

func NewGoalHandler(service GoalService) *GoalHandler {
	return &GoalHandler{service: service, now: time.Now}
}

type milestoneRequest struct {
	Title string `json:"title"`
	Date  string `json:"date"`
}

func (r milestoneRequest) milestone() (model.Milestone, error) {
	date, err := optionalDate(r.Date)
	if err != nil {
		return model.Milestone{}, fmt.Errorf("%w: milestone date %q", model.ErrInvalidInput, r.Date)
	}
	return model.Milestone{Title: strings.TrimSpace(r.Title), Date: date}, nil
}

type taskRequest struct {
	Title   string `json:"title"`
	Type    string `json:"type"`
	Weekday *int   `json:"weekday"`
	Date    string `json:"date"`
	Tag     string `json:"tag"`
	GoalID  string `json:"goal_id"`
}

func (r taskRequest) task() (model.Task, error) {
	kind, err := model.ParseTaskKind(r.Type)
	if err != nil {
		return model.Task{}, err
	}
	t := model.Task{Title: strings.TrimSpace(r.Title), Kind: kind, Tag: r.Tag}
	if r.Weekday != nil {
		wd := time.Weekday(*r.Weekday)
		t.Weekday = &wd
	}
	if r.Date != "" {
		d, err := parseDate(r.Date)
		if err != nil {
			return model.Task{}, fmt.Errorf("%w: task date %q", model.ErrMalformedTask, r.Date)
		}
		t.Date = &d
	}
	if r.GoalID != "" {
		id, err := uuid.Parse(r.GoalID)
		if err != nil {
			return model.Task{}, fmt.Errorf("%w: goal_id %q", model.ErrInvalidInput, r.GoalID)
		}
		t.GoalID = &id
	}
	return t, nil
}

type createGoalRequest struct {
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Color       string             `json:"color"`
	Smart       model.SmartGoal    `json:"smart_goal"`
	StartDate   string             `json:"start_date"`
	EndDate     string             `json:"end_date"`
	Reasoning   string             `json:"reasoning"`
	Milestones  []milestoneRequest `json:"milestones"`
	Tasks       []taskRequest      `json:"tasks"`
}

func (r createGoalRequest) goal() (model.Goal, error) {
	g := model.Goal{
		Title:       strings.TrimSpace(r.Title),
		Description: r.Description,
		Color:       r.Color,
		Smart:       r.Smart,
		Reasoning:   r.Reasoning,
	}
	var err error
	if g.StartDate, err = optionalDate(r.StartDate); err != nil {
		return g, fmt.Errorf("%w: start_date %q", model.ErrInvalidInput, r.StartDate)
	}
	if g.EndDate, err = optionalDate(r.EndDate); err != nil {
		return g, fmt.Errorf("%w: end_date %q", model.ErrInvalidInput, r.EndDate)
	}
	for _, mr := range r.Milestones {
		m, err := mr.milestone()
		if err != nil {
			return g, err
		}
		g.Milestones = append(g.Milestones, m)
	}
	for _, tr := range r.Tasks {
		t, err := tr.task()
		if err != nil {
			return g, err
		}
		t.GoalID = nil
		g.Tasks = append(g.Tasks, t)
	}
	return g, nil
}

// GET /dashboard?date=YYYY-MM-DD
func (h *GoalHandler) Dashboard(c *gin.Context) {
	ref := h.now()
	if s := c.Query("date"); s != "" {
		d, err := parseDate(s)
		if err != nil {
			badRequest(c, "invalid date")
			return
		}
		ref = d
	}
	day, err := h.service.Today(c.Request.Context(), currentUser(c), ref)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, day)
}

func (h *GoalHandler) ListGoals(c *gin.Context) {
	list, err := h.service.List(c.Request.Context(), currentUser(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if list == nil {
		list = []model.Goal{}
	}
	c.JSON(http.StatusOK, gin.H{"goals": list})
}

func (h *GoalHandler) GetGoal(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	g, err := h.service.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *GoalHandler) CreateGoal(c *gin.Context) {
	var req createGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	g, err := req.goal()
	if err != nil {
		abortWithError(c, err)
		return
	}
	created, err := h.service.Create(c.Request.Context(), currentUser(c), g)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *GoalHandler) UpdateGoal(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var patch model.GoalPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	g, err := h.service.Update(c.Request.Context(), currentUser(c), id, patch)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *GoalHandler) DeleteGoal(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /tasks?date=&goal_id=<uuid>|general&view=daily|weekly|custom
func (h *GoalHandler) ListTasks(c *gin.Context) {
	var f goals.TaskFilter
	if s := c.Query("date"); s != "" {
		d, err := parseDate(s)
		if err != nil {
			badRequest(c, "invalid date")
			return
		}
		f.Date = &d
	}
	switch s := c.Query("goal_id"); s {
	case "":
	case "general":
		f.General = true
	default:
		id, err := uuid.Parse(s)
		if err != nil {
			badRequest(c, "invalid goal_id")
			return
		}
		f.GoalID = &id
	}
	if s := c.Query("view"); s != "" {
		kind, err := model.ParseTaskKind(s)
		if err != nil {
			badRequest(c, "invalid view")
			return
		}
		f.Kind = kind
	}

	tasks, err := h.service.ListTasks(c.Request.Context(), currentUser(c), f)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (h *GoalHandler) CreateTask(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	t, err := req.task()
	if err != nil {
		abortWithError(c, err)
		return
	}
	created, err := h.service.CreateTask(c.Request.Context(), currentUser(c), t)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *GoalHandler) ToggleTask(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	t, err := h.service.ToggleTask(c.Request.Context(), currentUser(c), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *GoalHandler) DeleteTask(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteTask(c.Request.Context(), currentUser(c), id); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *GoalHandler) CreateMilestone(c *gin.Context) {
	goalID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req milestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	m, err := req.milestone()
	if err != nil {
		abortWithError(c, err)
		return
	}
	res, err := h.service.CreateMilestone(c.Request.Context(), currentUser(c), goalID, m)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *GoalHandler) ToggleMilestone(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	res, err := h.service.ToggleMilestone(c.Request.Context(), currentUser(c), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *GoalHandler) DeleteMilestone(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	res, err := h.service.DeleteMilestone(c.Request.Context(), currentUser(c), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type reflectionRequest struct {
	Date    string `json:"date"`
	Content string `json:"content"`
}

func (h *GoalHandler) ListReflections(c *gin.Context) {
	list, err := h.service.ListGeneralReflections(c.Request.Context(), currentUser(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if list == nil {
		list = []model.Reflection{}
	}
	c.JSON(http.StatusOK, gin.H{"reflections": list})
}

// AddReflection serves both POST /reflections and POST /goals/:id/reflections.
func (h *GoalHandler) AddReflection(c *gin.Context) {
	var goalID *uuid.UUID
	if c.Param("id") != "" {
		id, ok := uuidParam(c, "id")
		if !ok {
			return
		}
		goalID = &id
	}
	var req reflectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	date := h.now()
	if req.Date != "" {
		d, err := parseDate(req.Date)
		if err != nil {
			badRequest(c, "invalid date")
			return
		}
		date = d
	}
	rf, err := h.service.AddReflection(c.Request.Context(), currentUser(c), goalID, date, req.Content)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rf)
}

func (h *GoalHandler) DeleteReflection(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteReflection(c.Request.Context(), currentUser(c), id); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type resourceRequest struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

func (h *GoalHandler) AddResource(c *gin.Context) {
	goalID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req resourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	rs, err := h.service.AddResource(c.Request.Context(), currentUser(c), &goalID, req.Title, req.URL)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rs)
}

func (h *GoalHandler) DeleteResource(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.DeleteResource(c.Request.Context(), currentUser(c), id); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
