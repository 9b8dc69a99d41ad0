package main

import (
	"net/http"

	"github.com/harlequingg/project-tracker/internal/tracker"
)

func (app *application) createTaskHandler(w http.ResponseWriter, r *http.Request) {
	var input tracker.TaskInput
	if err := readJSON(w, r, &input); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	t, err := app.service.CreateTask(r.Context(), getUserFromRequest(r), input)
	if err != nil {
		app.serviceError(w, err)
		return
	}
	app.writeJSON(w, http.StatusCreated, t)
}

func (app *application) listTasksHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	q := tracker.TaskQuery{
		Project:  qs.Get("project"),
		Status:   qs.Get("status"),
		Priority: qs.Get("priority"),
		DueDate:  qs.Get("dueDate"),
		Search:   qs.Get("search"),
		SortBy:   qs.Get("sortBy"),
	}

	tasks, err := app.service.ListTasks(r.Context(), getUserFromRequest(r), q)
	if err != nil {
		app.serviceError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, tasks)
}

func (app *application) getTaskHandler(w http.ResponseWriter, r *http.Request) {
	t, err := app.service.GetTask(r.Context(), getUserFromRequest(r), r.PathValue("id"))
	if err != nil {
		app.serviceError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, t)
}

func (app *application) updateTaskHandler(w http.ResponseWriter, r *http.Request) {
	var patch tracker.Patch
	if err := readJSON(w, r, &patch); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	t, err := app.service.UpdateTask(r.Context(), getUserFromRequest(r), r.PathValue("id"), patch)
	if err != nil {
		app.serviceError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, t)
}

func (app *application) deleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	t, err := app.service.DeleteTask(r.Context(), getUserFromRequest(r), r.PathValue("id"))
	if err != nil {
		app.serviceError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, t)
}
