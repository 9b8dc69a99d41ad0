package main

import (
	"net/http"
)

func composeRoutes(app *application) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthcheck", app.healthCheckHandler)

	mux.HandleFunc("POST /auth/register", app.registerUserHandler)
	mux.HandleFunc("POST /auth/login", app.loginUserHandler)
	mux.HandleFunc("GET /auth/me", app.requireAuthenticatedUser(app.showCurrentUserHandler))
	mux.HandleFunc("PATCH /auth/theme", app.requireAuthenticatedUser(app.updateThemeHandler))

	mux.HandleFunc("POST /projects", app.requireAuthenticatedUser(app.createProjectHandler))
	mux.HandleFunc("GET /projects", app.requireAuthenticatedUser(app.listProjectsHandler))
	mux.HandleFunc("GET /projects/{id}", app.requireAuthenticatedUser(app.getProjectHandler))
	mux.HandleFunc("PATCH /projects/{id}", app.requireAuthenticatedUser(app.updateProjectHandler))
	mux.HandleFunc("DELETE /projects/{id}", app.requireAuthenticatedUser(app.deleteProjectHandler))

	mux.HandleFunc("POST /tasks", app.requireAuthenticatedUser(app.createTaskHandler))
	mux.HandleFunc("GET /tasks", app.requireAuthenticatedUser(app.listTasksHandler))
	mux.HandleFunc("GET /tasks/{id}", app.requireAuthenticatedUser(app.getTaskHandler))
	mux.HandleFunc("PATCH /tasks/{id}", app.requireAuthenticatedUser(app.updateTaskHandler))
	mux.HandleFunc("DELETE /tasks/{id}", app.requireAuthenticatedUser(app.deleteTaskHandler))

	handler := app.enableCORS(mux)
	if app.config.Limiter.Enabled {
		handler = app.rateLimit(handler)
	}
	return app.recoverPanic(handler)
}
