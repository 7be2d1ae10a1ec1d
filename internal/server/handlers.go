package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rowanvale/questboard/internal/models"
	"github.com/rowanvale/questboard/internal/notify"
	"github.com/rowanvale/questboard/internal/task"
	"gorm.io/gorm"
)

// handlers carries the shared dependencies of all REST handlers.
type handlers struct {
	db      *gorm.DB
	gateway notify.Gateway
}

// progressView is the summed subtask progress exposed to clients.
type progressView struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// taskView is a task as rendered on the wire.
type taskView struct {
	models.Task
	ComputedProgress progressView `json:"computedProgress"`
}

func viewOf(t *models.Task) taskView {
	current, total := task.Progress(t)
	return taskView{Task: *t, ComputedProgress: progressView{Current: current, Total: total}}
}

func viewsOf(tasks []models.Task) []taskView {
	out := make([]taskView, 0, len(tasks))
	for i := range tasks {
		out = append(out, viewOf(&tasks[i]))
	}
	return out
}

// changed notifies the task's participants, plus any extra identities, that
// the task changed.
func (h *handlers) changed(t *models.Task, extra ...string) {
	h.gateway.TaskChanged(withExtra(t, extra), t.ID)
}

// removed notifies the task's participants, plus any extra identities, that
// the task disappeared.
func (h *handlers) removed(t *models.Task, extra ...string) {
	h.gateway.TaskRemoved(withExtra(t, extra), t.ID)
}

func withExtra(t *models.Task, extra []string) []string {
	ids := task.AffectedIdentities(t)
	for _, e := range extra {
		seen := false
		for _, id := range ids {
			if id == e {
				seen = true
				break
			}
		}
		if !seen {
			ids = append(ids, e)
		}
	}
	return ids
}

type subtaskBody struct {
	Title string `json:"title"`
	Total int    `json:"total"`
}

type rewardBody struct {
	Type  string `json:"type"`
	Value int    `json:"value"`
}

type createBody struct {
	Title      string        `json:"title"`
	Detail     string        `json:"detail"`
	Icon       string        `json:"icon"`
	DueAt      string        `json:"dueAt"`
	Subtasks   []subtaskBody `json:"subtasks"`
	Reward     rewardBody    `json:"attributeReward"`
	SelfAssign bool          `json:"selfAssign"`
}

// parseDue parses an RFC 3339 due date; an unparsable value is a validation
// error, not a server fault.
func parseDue(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, &task.ValidationError{Reason: "dueAt is required"}
	}
	due, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, &task.ValidationError{Reason: "dueAt must be an RFC 3339 timestamp"}
	}
	return due, nil
}

func subtaskInputs(body []subtaskBody) []task.SubtaskInput {
	out := make([]task.SubtaskInput, 0, len(body))
	for _, st := range body {
		out = append(out, task.SubtaskInput{Title: st.Title, Total: st.Total})
	}
	return out
}

func (h *handlers) create(c *gin.Context) {
	var body createBody
	if err := c.ShouldBindJSON(&body); err != nil {
		renderError(c, &task.ValidationError{Reason: "malformed request body"})
		return
	}
	due, err := parseDue(body.DueAt)
	if err != nil {
		renderError(c, err)
		return
	}
	t, err := task.Create(h.db, task.CreateOpts{
		Creator:    callerIdentity(c),
		Title:      body.Title,
		Detail:     body.Detail,
		Icon:       body.Icon,
		DueAt:      due,
		Subtasks:   subtaskInputs(body.Subtasks),
		Reward:     models.AttributeReward{Type: body.Reward.Type, Value: body.Reward.Value},
		SelfAssign: body.SelfAssign,
	})
	if err != nil {
		renderError(c, err)
		return
	}
	h.changed(t)
	c.JSON(http.StatusCreated, viewOf(t))
}

func (h *handlers) list(c *gin.Context) {
	tasks, err := task.List(h.db, callerIdentity(c), c.Query("status"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewsOf(tasks))
}

func (h *handlers) get(c *gin.Context) {
	t, err := task.GetFor(h.db, c.Param("id"), callerIdentity(c))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewOf(t))
}

func (h *handlers) mission(c *gin.Context) {
	tasks, err := task.Mission(h.db, callerIdentity(c))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewsOf(tasks))
}

func (h *handlers) collaboration(c *gin.Context) {
	tasks, err := task.Collaboration(h.db, callerIdentity(c), time.Now())
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewsOf(tasks))
}

func (h *handlers) archive(c *gin.Context) {
	tasks, err := task.Archive(h.db, callerIdentity(c))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, viewsOf(tasks))
}

func (h *handlers) assign(c *gin.Context) {
	t, err := task.Assign(h.db, c.Param("id"), callerIdentity(c))
	if err != nil {
		renderError(c, err)
		return
	}
	h.changed(t)
	c.JSON(http.StatusOK, viewOf(t))
}

type progressBody struct {
	SubtaskIndex *int `json:"subtaskIndex"`
	Current      *int `json:"current"`
}

func (h *handlers) progress(c *gin.Context) {
	var body progressBody
	if err := c.ShouldBindJSON(&body); err != nil || body.SubtaskIndex == nil || body.Current == nil {
		renderError(c, &task.ValidationError{Reason: "subtaskIndex and current are required"})
		return
	}
	t, err := task.UpdateProgress(h.db, c.Param("id"), callerIdentity(c), *body.SubtaskIndex, *body.Current)
	if err != nil {
		renderError(c, err)
		return
	}
	h.changed(t)
	c.JSON(http.StatusOK, viewOf(t))
}

func (h *handlers) submitReview(c *gin.Context) {
	t, err := task.SubmitReview(h.db, c.Param("id"), callerIdentity(c))
	if err != nil {
		renderError(c, err)
		return
	}
	h.changed(t)
	c.JSON(http.StatusOK, viewOf(t))
}

func (h *handlers) complete(c *gin.Context) {
	t, err := task.Complete(h.db, c.Param("id"), callerIdentity(c))
	if err != nil {
		renderError(c, err)
		return
	}
	h.changed(t)
	c.JSON(http.StatusOK, viewOf(t))
}

func (h *handlers) abandon(c *gin.Context) {
	caller := callerIdentity(c)
	t, err := task.Abandon(h.db, c.Param("id"), caller)
	if err != nil {
		renderError(c, err)
		return
	}
	h.changed(t, caller)
	c.JSON(http.StatusOK, viewOf(t))
}

func (h *handlers) close(c *gin.Context) {
	t, err := task.Close(h.db, c.Param("id"), callerIdentity(c))
	if err != nil {
		renderError(c, err)
		return
	}
	h.changed(t)
	c.JSON(http.StatusOK, viewOf(t))
}

type reworkBody struct {
	Title                 string        `json:"title"`
	Detail                string        `json:"detail"`
	DueAt                 string        `json:"dueAt"`
	Subtasks              []subtaskBody `json:"subtasks"`
	Reward                rewardBody    `json:"attributeReward"`
	ConfirmDeletePrevious bool          `json:"confirmDeletePrevious"`
}

func (h *handlers) rework(c *gin.Context) {
	var body reworkBody
	if err := c.ShouldBindJSON(&body); err != nil {
		renderError(c, &task.ValidationError{Reason: "malformed request body"})
		return
	}
	due, err := parseDue(body.DueAt)
	if err != nil {
		renderError(c, err)
		return
	}
	res, err := task.Rework(h.db, c.Param("id"), callerIdentity(c), task.ReworkOpts{
		Title:                 body.Title,
		Detail:                body.Detail,
		DueAt:                 due,
		Subtasks:              subtaskInputs(body.Subtasks),
		Reward:                models.AttributeReward{Type: body.Reward.Type, Value: body.Reward.Value},
		ConfirmDeletePrevious: body.ConfirmDeletePrevious,
	})
	if err != nil {
		renderError(c, err)
		return
	}
	switch res.Outcome {
	case task.ReworkConfirmRequired:
		c.JSON(http.StatusOK, gin.H{"code": "REWORK_CONFIRM_REQUIRED", "previousTaskId": res.PreviousTaskID})
	case task.ReworkUnchanged:
		c.JSON(http.StatusOK, gin.H{"message": "no changes", "task": viewOf(res.Task)})
	default:
		h.changed(res.Task)
		c.JSON(http.StatusCreated, viewOf(res.Task))
	}
}

func (h *handlers) acceptRework(c *gin.Context) {
	t, err := task.AcceptRework(h.db, c.Param("id"), callerIdentity(c))
	if err != nil {
		renderError(c, err)
		return
	}
	h.changed(t)
	c.JSON(http.StatusOK, viewOf(t))
}

func (h *handlers) rejectRework(c *gin.Context) {
	caller := callerIdentity(c)
	t, err := task.RejectRework(h.db, c.Param("id"), caller)
	if err != nil {
		renderError(c, err)
		return
	}
	h.changed(t, caller)
	c.JSON(http.StatusOK, viewOf(t))
}

func (h *handlers) cancelRework(c *gin.Context) {
	id := c.Param("id")
	before, _ := task.Get(h.db, id)
	if err := task.CancelRework(h.db, id, callerIdentity(c)); err != nil {
		renderError(c, err)
		return
	}
	if before != nil {
		h.removed(before)
	}
	c.JSON(http.StatusOK, gin.H{"message": "rework cancelled"})
}

func (h *handlers) restart(c *gin.Context) {
	t, err := task.Restart(h.db, c.Param("id"), callerIdentity(c))
	if err != nil {
		renderError(c, err)
		return
	}
	h.changed(t)
	c.JSON(http.StatusOK, viewOf(t))
}

func (h *handlers) delete(c *gin.Context) {
	id := c.Param("id")
	before, _ := task.Get(h.db, id)
	if err := task.Delete(h.db, id, callerIdentity(c)); err != nil {
		renderError(c, err)
		return
	}
	if before != nil {
		h.removed(before)
	}
	c.Status(http.StatusNoContent)
}
