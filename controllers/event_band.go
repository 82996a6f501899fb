package controllers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"concert-manager/middleware"
	"concert-manager/models"
	"concert-manager/schemas"
	"concert-manager/utils"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
)

const maxBodyBytes = 1 << 20

const (
	selectEventBands = `SELECT id, event_id, band_id, setlist, rating, mainAct, runningOrder, notes FROM EventBands`

	selectEventBandByID = selectEventBands + ` WHERE id = ?`

	countEventBandsByEvent = `SELECT COUNT(*) AS total FROM EventBands WHERE event_id = ?`

	selectEventBandDetailsByEvent = `SELECT eb.id AS event_band_id, eb.band_id, b.name AS band_name,
			eb.mainAct, eb.runningOrder, eb.rating, eb.notes
		FROM EventBands eb
		JOIN ConcertBands b ON b.id = eb.band_id
		WHERE eb.event_id = ?
		ORDER BY eb.runningOrder ASC, b.name ASC`

	insertEventBand = `INSERT INTO EventBands (event_id, band_id, setlist, rating, mainAct, runningOrder, notes) VALUES (?, ?, ?, ?, ?, ?, ?)`

	lockEventBandByID = `SELECT id FROM EventBands WHERE id = ? FOR UPDATE`

	updateEventBand = `UPDATE EventBands SET event_id = ?, band_id = ?, setlist = ?, rating = ?, mainAct = ?, runningOrder = ?, notes = ? WHERE id = ?`
)

// SchemaValidator checks a decoded JSON document against a named schema.
type SchemaValidator interface {
	ValidateObject(obj interface{}, schemaPath string) bool
}

// EventBandController serves the EventBands table: which bands play which
// events, in what order.
type EventBandController struct {
	Validator SchemaValidator
}

func logger(r *http.Request) *slog.Logger {
	return slog.With("request_id", middleware.RequestIDFromContext(r.Context()))
}

// acquire takes one connection from the pool for the lifetime of the request.
// The caller must Close it.
func acquire(w http.ResponseWriter, r *http.Request, db *sqlx.DB, failMessage string) (*sqlx.Conn, bool) {
	conn, err := db.Connx(r.Context())
	if err != nil {
		logger(r).Error("can't acquire database connection", "error", err)
		utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: failMessage})
		return nil, false
	}
	return conn, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := utils.ParseID(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid ID format"})
		return 0, false
	}
	return id, true
}

// decodeBody reads the request body, checks it against the EventBand schema
// and decodes it. Anything wrong with the body is logged and answered with 400.
func (c EventBandController) decodeBody(w http.ResponseWriter, r *http.Request) (models.EventBandInput, bool) {
	var in models.EventBandInput
	log := logger(r)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Warn("can't read request body", "error", err)
		utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid data. See server logs for details."})
		return in, false
	}

	doc, err := utils.DecodeJSON(bytes.NewReader(body))
	if err != nil {
		log.Warn("request body is not valid JSON", "error", err)
		utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid data. See server logs for details."})
		return in, false
	}
	if !c.Validator.ValidateObject(doc, schemas.EventBand) {
		utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid data. See server logs for details."})
		return in, false
	}

	if err := json.Unmarshal(body, &in); err != nil {
		log.Warn("can't decode Event-Band", "error", err)
		utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Invalid data. See server logs for details."})
		return in, false
	}
	return in, true
}

// GetEventBands returns every row, unfiltered.
func (c EventBandController) GetEventBands(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, ok := acquire(w, r, db, "Error fetching Event-Bands")
		if !ok {
			return
		}
		defer conn.Close()

		eventBands := []models.EventBand{}
		if err := conn.SelectContext(r.Context(), &eventBands, selectEventBands); err != nil {
			logger(r).Error("error fetching Event-Bands", "error", err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Error fetching Event-Bands"})
			return
		}

		utils.ResponseJSON(w, eventBands)
	}
}

// CountEventBandsByEvent returns how many bands are booked for the event.
func (c EventBandController) CountEventBandsByEvent(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, ok := pathID(w, r)
		if !ok {
			return
		}

		conn, ok := acquire(w, r, db, "Error fetching Event-Bands")
		if !ok {
			return
		}
		defer conn.Close()

		var total sql.NullInt64
		if err := conn.GetContext(r.Context(), &total, countEventBandsByEvent, eventID); err != nil {
			logger(r).Error("error counting Event-Bands", "event_id", eventID, "error", err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Error fetching Event-Bands"})
			return
		}

		utils.ResponseJSON(w, models.EventBandCount{Count: total.Int64})
	}
}

// GetEventBandDetailsByEvent returns the event's line-up with band names, in
// running order. Bands sharing a slot are listed alphabetically.
func (c EventBandController) GetEventBandDetailsByEvent(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID, ok := pathID(w, r)
		if !ok {
			return
		}

		conn, ok := acquire(w, r, db, "Error fetching Event-Bands")
		if !ok {
			return
		}
		defer conn.Close()

		details := []models.EventBandDetail{}
		if err := conn.SelectContext(r.Context(), &details, selectEventBandDetailsByEvent, eventID); err != nil {
			logger(r).Error("error fetching Event-Band details", "event_id", eventID, "error", err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Error fetching Event-Bands"})
			return
		}

		utils.ResponseJSON(w, details)
	}
}

func (c EventBandController) GetEventBand(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}

		conn, ok := acquire(w, r, db, "Error fetching Event-Bands")
		if !ok {
			return
		}
		defer conn.Close()

		var eventBand models.EventBand
		err := conn.GetContext(r.Context(), &eventBand, selectEventBandByID, id)
		if errors.Is(err, sql.ErrNoRows) {
			utils.RespondWithError(w, http.StatusNotFound, models.Error{Message: "Event-Band not found"})
			return
		}
		if err != nil {
			logger(r).Error("error fetching Event-Band", "id", id, "error", err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Error fetching Event-Bands"})
			return
		}

		utils.ResponseJSON(w, eventBand)
	}
}

// CreateEventBand inserts a new association. Duplicate (event_id, band_id)
// pairs are accepted.
func (c EventBandController) CreateEventBand(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, ok := c.decodeBody(w, r)
		if !ok {
			return
		}
		eventBand := in.Normalize()
		log := logger(r)

		conn, ok := acquire(w, r, db, "Error creating Event-Band")
		if !ok {
			return
		}
		defer conn.Close()

		result, err := conn.ExecContext(r.Context(), insertEventBand, eventBand.Values()...)
		if err != nil {
			log.Error("error creating Event-Band", "error", err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Error creating Event-Band"})
			return
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			log.Error("error checking insert result", "error", err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Error creating Event-Band"})
			return
		}
		if rowsAffected != 1 {
			log.Warn("failed to create Event-Band", "rows_affected", rowsAffected)
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Failed to create Event-Band in database"})
			return
		}

		id, err := result.LastInsertId()
		if err != nil {
			log.Error("error reading Event-Band id", "error", err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Error creating Event-Band"})
			return
		}

		log.Info("Event-Band created", "id", id, "event_id", eventBand.EventID, "band_id", eventBand.BandID)
		utils.ResponseJSONStatus(w, http.StatusCreated, models.EventBandCreated{
			Message: "Event-Band created successfully",
			VenueID: strconv.FormatInt(id, 10),
		})
	}
}

// UpdateEventBand overwrites all seven fields of an existing row. Fields left
// out of the body are reset to their defaults. The existence check and the
// write share one transaction.
func (c EventBandController) UpdateEventBand(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		in, ok := c.decodeBody(w, r)
		if !ok {
			return
		}
		eventBand := in.Normalize()
		log := logger(r).With("id", id)

		conn, ok := acquire(w, r, db, "Database error")
		if !ok {
			return
		}
		defer conn.Close()

		tx, err := conn.BeginTxx(r.Context(), nil)
		if err != nil {
			log.Error("error starting Event-Band update", "error", err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error"})
			return
		}
		defer tx.Rollback()

		var existingID int
		err = tx.GetContext(r.Context(), &existingID, lockEventBandByID, id)
		if errors.Is(err, sql.ErrNoRows) {
			utils.RespondWithError(w, http.StatusNotFound, models.Error{Message: fmt.Sprintf("Event-Band with ID [ %d ] not found", id)})
			return
		}
		if err != nil {
			log.Error("error looking up Event-Band", "error", err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error"})
			return
		}

		result, err := tx.ExecContext(r.Context(), updateEventBand, append(eventBand.Values(), id)...)
		if err != nil {
			log.Error("error updating Event-Band", "error", err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error"})
			return
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			log.Error("error checking update result", "error", err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error"})
			return
		}
		if rowsAffected != 1 {
			log.Warn("failed to update Event-Band", "rows_affected", rowsAffected)
			utils.RespondWithError(w, http.StatusBadRequest, models.Error{Message: "Failed to update Event-Band"})
			return
		}

		if err := tx.Commit(); err != nil {
			log.Error("error committing Event-Band update", "error", err)
			utils.RespondWithError(w, http.StatusInternalServerError, models.Error{Message: "Database error"})
			return
		}

		utils.ResponseJSON(w, models.Message{Message: "Event-Band updated successfully"})
	}
}
