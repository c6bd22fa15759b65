package http

import (
	"encoding/json"
	"net/http"
)

// DataResponse is the envelope for every successful JSON body.
type DataResponse struct {
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

// ListMeta describes the window a list response was cut from.
type ListMeta struct {
	Total  int `json:"total"`
	Count  int `json:"count"`
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset"`
}

// ListResponse is the envelope for list endpoints.
type ListResponse[T any] struct {
	Data []T      `json:"data"`
	Meta ListMeta `json:"meta"`
}

// WriteJSON is a helper to standardize JSON responses.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData writes a 200 response with {"data": v}.
func WriteData(w http.ResponseWriter, v any) {
	WriteJSON(w, http.StatusOK, DataResponse{Data: v})
}

// WriteMessage writes data together with a human-readable message.
func WriteMessage(w http.ResponseWriter, v any, message string) {
	WriteJSON(w, http.StatusOK, DataResponse{Data: v, Message: message})
}

// WriteCreated writes a 201 Created response
func WriteCreated(w http.ResponseWriter, v any) {
	WriteJSON(w, http.StatusCreated, DataResponse{Data: v})
}

// WriteNoContent writes a 204 No Content response
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WritePaginated writes one page of a longer list.
func WritePaginated[T any](w http.ResponseWriter, items []T, total, limit, offset int) {
	if items == nil {
		items = []T{}
	}
	WriteJSON(w, http.StatusOK, ListResponse[T]{
		Data: items,
		Meta: ListMeta{Total: total, Count: len(items), Limit: limit, Offset: offset},
	})
}

// WriteList writes a complete, unpaginated list.
func WriteList[T any](w http.ResponseWriter, items []T) {
	WritePaginated(w, items, len(items), 0, 0)
}
