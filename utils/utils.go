package utils

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"concert-manager/models"
)

var ErrInvalidID = errors.New("invalid id")

func RespondWithError(w http.ResponseWriter, status int, error models.Error) {
	ResponseJSONStatus(w, status, error)
}

func ResponseJSON(w http.ResponseWriter, data interface{}) {
	ResponseJSONStatus(w, http.StatusOK, data)
}

func ResponseJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("can't encode JSON response", "error", err)
	}
}

func StrToInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	return strconv.Atoi(s)
}

// ParseID turns a path id into an int. Empty and non-numeric ids are rejected
// with ErrInvalidID.
func ParseID(raw string) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, ErrInvalidID
	}
	id, err := StrToInt(raw)
	if err != nil {
		return 0, ErrInvalidID
	}
	return id, nil
}
