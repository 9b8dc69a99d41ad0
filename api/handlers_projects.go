package main

import (
	"net/http"

	"github.com/harlequingg/project-tracker/internal/tracker"
)

func (app *application) createProjectHandler(w http.ResponseWriter, r *http.Request) {
	var input tracker.ProjectInput
	if err := readJSON(w, r, &input); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	p, err := app.service.CreateProject(r.Context(), getUserFromRequest(r), input)
	if err != nil {
		app.serviceError(w, err)
		return
	}
	app.writeJSON(w, http.StatusCreated, p)
}

func (app *application) listProjectsHandler(w http.ResponseWriter, r *http.Request) {
	projects, err := app.service.ListProjects(r.Context(), getUserFromRequest(r))
	if err != nil {
		app.serviceError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, projects)
}

func (app *application) getProjectHandler(w http.ResponseWriter, r *http.Request) {
	p, err := app.service.GetProject(r.Context(), getUserFromRequest(r), r.PathValue("id"))
	if err != nil {
		app.serviceError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, p)
}

func (app *application) updateProjectHandler(w http.ResponseWriter, r *http.Request) {
	var patch tracker.Patch
	if err := readJSON(w, r, &patch); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	p, err := app.service.UpdateProject(r.Context(), getUserFromRequest(r), r.PathValue("id"), patch)
	if err != nil {
		app.serviceError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, p)
}

func (app *application) deleteProjectHandler(w http.ResponseWriter, r *http.Request) {
	p, err := app.service.DeleteProject(r.Context(), getUserFromRequest(r), r.PathValue("id"))
	if err != nil {
		app.serviceError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, p)
}
