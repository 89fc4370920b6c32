package http

import (
	"net/http"

	"github.com/obralimpa/obralimpa/internal/api/domain"
	"github.com/obralimpa/obralimpa/internal/api/service"
	"github.com/obralimpa/obralimpa/pkg/httpx"
	"github.com/obralimpa/obralimpa/pkg/sdk"
)

type TaskHandler struct {
	TaskService *service.TaskService
	UserService *service.UserService
}

// HandleCreate godoc
//
//	@Summary		Create Task
//	@Description	Add a task to a site. The optional assignee must be a member of the site.
//	@Tags			Tasks
//	@Accept			json
//	@Produce		json
//	@Param			request	body		sdk.CreateTaskRequest	true	"Task request"
//	@Success		201		{object}	sdk.Task
//	@Failure		400		{object}	sdk.APIError
//	@Failure		404		{object}	sdk.APIError
//	@Security		BearerAuth
//	@Router			/v1/tasks [post].
func (h *TaskHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req sdk.CreateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	task, err := h.TaskService.CreateTask(r.Context(), req.SiteID, req.Title, req.Description, req.AssigneeID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toSDKTask(task))
}

// HandleList godoc
//
//	@Summary		List Tasks
//	@Description	Workers default to their primary site and may only read sites they belong to; admins read any site, or all sites when site_id is omitted.
//	@Tags			Tasks
//	@Produce		json
//	@Param			site_id	query		string	false	"Filter by site"
//	@Param			status	query		string	false	"Filter by status (pending, in_progress, completed)"
//	@Success		200		{array}		sdk.Task
//	@Failure		403		{object}	sdk.APIError
//	@Security		BearerAuth
//	@Router			/v1/tasks [get].
func (h *TaskHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user, err := h.UserService.GetUserByID(r.Context(), httpx.UserIDFromCtx(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	tasks, err := h.TaskService.ListTasksForUser(r.Context(), user,
		r.URL.Query().Get("site_id"),
		domain.TaskStatus(r.URL.Query().Get("status")),
	)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]sdk.Task, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toSDKTask(t))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleUpdate godoc
//
//	@Summary		Update Task
//	@Description	Set a task's status, optionally attaching a completion photo. Workers may only touch tasks on their own sites.
//	@Tags			Tasks
//	@Accept			json
//	@Produce		json
//	@Param			request	body		sdk.UpdateTaskRequest	true	"Update request"
//	@Success		200		{object}	sdk.Task
//	@Failure		400		{object}	sdk.APIError
//	@Failure		403		{object}	sdk.APIError
//	@Failure		404		{object}	sdk.APIError
//	@Security		BearerAuth
//	@Router			/v1/tasks/{id} [patch].
func (h *TaskHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req sdk.UpdateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.UserService.GetUserByID(r.Context(), httpx.UserIDFromCtx(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	task, err := h.TaskService.UpdateTaskStatus(r.Context(), user, r.PathValue("id"),
		domain.TaskStatus(req.Status), req.PhotoURL)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toSDKTask(task))
}
