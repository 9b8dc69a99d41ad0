package main

import (
	"net/http"

	"github.com/harlequingg/project-tracker/internal/tracker"
)

func (app *application) registerUserHandler(w http.ResponseWriter, r *http.Request) {
	var input tracker.RegisterInput
	if err := readJSON(w, r, &input); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	session, err := app.service.Register(r.Context(), input)
	if err != nil {
		app.serviceError(w, err)
		return
	}

	if app.mailer != nil {
		u := session.User
		app.background(func() {
			data := map[string]any{"name": u.Name, "email": u.Email}
			if err := app.mailer.send(u.Email, welcomeTemplate, data); err != nil {
				app.logger.Printf("sending welcome mail to user %s: %v", u.ID, err)
			}
		})
	}

	app.writeJSON(w, http.StatusCreated, session)
}

func (app *application) loginUserHandler(w http.ResponseWriter, r *http.Request) {
	var input credentialsInput
	if err := readJSON(w, r, &input); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	session, err := app.service.Login(r.Context(), input.Email, input.Password)
	if err != nil {
		app.serviceError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, session)
}

func (app *application) showCurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	app.writeJSON(w, http.StatusOK, userResponse{User: getUserFromRequest(r)})
}

func (app *application) updateThemeHandler(w http.ResponseWriter, r *http.Request) {
	var input themeInput
	if err := readJSON(w, r, &input); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	theme, err := app.service.SetTheme(r.Context(), getUserFromRequest(r), input.Theme)
	if err != nil {
		app.serviceError(w, err)
		return
	}
	app.writeJSON(w, http.StatusOK, themeResponse{Theme: theme})
}
