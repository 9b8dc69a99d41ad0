package main

import (
	"github.com/harlequingg/project-tracker/internal/model"
)

// envelope wraps a JSON response under named keys.
type envelope map[string]any

type credentialsInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type themeInput struct {
	Theme string `json:"theme"`
}

type userResponse struct {
	User *model.User `json:"user"`
}

type themeResponse struct {
	Theme string `json:"theme"`
}
