package models

// Error is the JSON body of every non-2xx response.
type Error struct {
	Message string `json:"message"`
}

type Message struct {
	Message string `json:"message"`
}
