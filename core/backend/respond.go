package backend

import (
	"net/http"

	"github.com/goccy/go-json"
)

// error messages of the JSON error responses
const (
	messageBadRequest       = "bad request"
	messageNotFound         = "resource not found"
	messageMethodNotAllowed = "method not allowed"
	messageUnprocessable    = "unprocessable"
	messageServerError      = "An error occurred"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// serverErrorResponse is the body of generic 500 responses
type serverErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type drinksResponse struct {
	Success bool        `json:"success"`
	Drinks  interface{} `json:"drinks"`
}

type deleteResponse struct {
	Success bool  `json:"success"`
	Delete  int64 `json:"delete"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		http.Error(w, "Error 4701", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Success: false, Error: status, Message: message})
}

func writeServerError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, serverErrorResponse{Success: false, Error: messageServerError})
}
