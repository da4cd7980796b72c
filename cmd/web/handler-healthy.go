package main

import (
	"encoding/json"
	"net/http"
)

type healthResponse struct {
	Status  string `json:"status"`
	Records int    `json:"records"`
}

// healthy responds with a JSON object indicating that the server is healthy and how many roads it can draw from.
func (app *application) healthy(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(healthResponse{
		Status:  "ok",
		Records: app.engine.Table().Len(),
	}); err != nil {
		app.serverError(w, r, err)
	}
}
