/*
 * Copyright (c) 2025 SECOM CO., LTD. All Rights reserved.
 *
 * SPDX-License-Identifier: BSD-2-Clause
 */

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/mux"
	"github.com/kentakayama/tracker-over-http/internal/domain"
	"github.com/kentakayama/tracker-over-http/internal/domain/model"
	"github.com/kentakayama/tracker-over-http/internal/location"
	"github.com/kentakayama/tracker-over-http/internal/tracker"
	"github.com/kentakayama/tracker-over-http/internal/util"
)

const (
	maxRequestBodyBytes = 64 << 10
)

// FixSink accepts positions reported by the host platform.
type FixSink interface {
	Push(fix model.LocationFix)
}

// RecordStore is the read side of the key-value store used by the debug dump.
type RecordStore interface {
	Keys(ctx context.Context) ([]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

type handler struct {
	tracker *tracker.Tracker
	fixes   FixSink
	records RecordStore
	logger  *log.Logger

	closing   chan struct{}
	closeOnce sync.Once
}

type responseSpec struct {
	status      int
	body        []byte
	contentType string
}

type errorBody struct {
	Error string `json:"error"`
}

type enrollBody struct {
	DeviceID string `json:"deviceID"`
}

type sessionBody struct {
	Tracking         bool   `json:"tracking"`
	StartedAtEpochMs *int64 `json:"startedAtEpochMs,omitempty"`
}

type fixAcceptedBody struct {
	Uploaded bool `json:"uploaded"`
}

func newHandler(tr *tracker.Tracker, fixes FixSink, records RecordStore, logger *log.Logger) (*handler, error) {
	return &handler{
		tracker: tr,
		fixes:   fixes,
		records: records,
		logger:  logger,
		closing: make(chan struct{}),
	}, nil
}

func (h *handler) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/status", h.getStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/status/stream", h.streamStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/enroll", h.enroll).Methods(http.MethodPost)
	r.HandleFunc("/api/permissions", h.requestPermissions).Methods(http.MethodPost)
	r.HandleFunc("/api/tracking/on", h.turnOn).Methods(http.MethodPost)
	r.HandleFunc("/api/tracking/off", h.turnOff).Methods(http.MethodPost)
	r.HandleFunc("/api/location/query", h.queryLocation).Methods(http.MethodPost)
	r.HandleFunc("/api/location/fix", h.pushFix).Methods(http.MethodPost)
	r.HandleFunc("/api/device", h.factoryReset).Methods(http.MethodDelete)
	r.HandleFunc("/api/debug/records", h.debugRecords).Methods(http.MethodGet)
	return r
}

func (h *handler) close() {
	h.closeOnce.Do(func() { close(h.closing) })
}

func (h *handler) getStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.tracker.Status(r.Context())
	if err != nil {
		h.writeError(w, "status", err)
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

func (h *handler) enroll(w http.ResponseWriter, r *http.Request) {
	identity, err := h.tracker.EnsureEnrolled(r.Context())
	if err != nil {
		h.writeError(w, "enroll", err)
		return
	}
	h.writeJSON(w, http.StatusOK, enrollBody{DeviceID: identity.ID})
}

func (h *handler) requestPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.tracker.RequestPermissions(r.Context())
	if err != nil {
		h.writeError(w, "request permissions", err)
		return
	}
	h.writeJSON(w, http.StatusOK, perms)
}

func (h *handler) turnOn(w http.ResponseWriter, r *http.Request) {
	session, err := h.tracker.TurnOn(r.Context())
	if err != nil {
		h.writeError(w, "turn on", err)
		return
	}
	h.writeJSON(w, http.StatusOK, sessionBody{Tracking: session.Active, StartedAtEpochMs: session.StartedAtEpochMs})
}

func (h *handler) turnOff(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.TurnOff(r.Context()); err != nil {
		h.writeError(w, "turn off", err)
		return
	}
	h.writeResponse(w, responseSpec{status: http.StatusNoContent})
}

func (h *handler) queryLocation(w http.ResponseWriter, r *http.Request) {
	fix, err := h.tracker.QueryLocation(r.Context())
	if err != nil {
		h.writeError(w, "query location", err)
		return
	}
	h.writeJSON(w, http.StatusOK, fix)
}

// pushFix takes a position from the host. While tracking it goes through the
// uplink like any background fix; otherwise it only feeds one-shot queries.
func (h *handler) pushFix(w http.ResponseWriter, r *http.Request) {
	var fix model.LocationFix
	if err := h.decodeJSON(r, &fix); err != nil {
		h.logger.Printf("failed to parse fix: %v", err)
		h.writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid location fix"})
		return
	}
	if err := validateFix(fix); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	if h.fixes != nil {
		h.fixes.Push(fix)
	}

	uploaded, err := h.tracker.PushFix(r.Context(), fix)
	if err != nil {
		h.writeError(w, "push fix", err)
		return
	}
	h.writeJSON(w, http.StatusAccepted, fixAcceptedBody{Uploaded: uploaded})
}

func (h *handler) factoryReset(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.FactoryReset(r.Context()); err != nil {
		h.writeError(w, "factory reset", err)
		return
	}
	h.writeResponse(w, responseSpec{status: http.StatusNoContent})
}

// debugRecords dumps every stored record with its CBOR decoded to JSON.
func (h *handler) debugRecords(w http.ResponseWriter, r *http.Request) {
	if h.records == nil {
		http.NotFound(w, r)
		return
	}

	keys, err := h.records.Keys(r.Context())
	if err != nil {
		h.writeError(w, "list records", fmt.Errorf("%w: %v", domain.ErrPersistence, err))
		return
	}

	out := make(map[string]any, len(keys))
	for _, key := range keys {
		raw, err := h.records.Get(r.Context(), key)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			h.writeError(w, "read record", fmt.Errorf("%w: %v", domain.ErrPersistence, err))
			return
		}
		decoded, err := util.DecodeCBORForJSON(raw)
		if err != nil {
			out[key] = fmt.Sprintf("h'%x'", raw)
			continue
		}
		out[key] = decoded
	}
	h.writeJSON(w, http.StatusOK, out)
}

// streamStatus sends the current status and then one event per refresh tick
// until the client goes away or the server shuts down.
func (h *handler) streamStatus(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	updates, unsubscribe := h.tracker.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if status, err := h.tracker.Status(r.Context()); err == nil {
		if err := writeEvent(w, status); err != nil {
			return
		}
	} else {
		h.logger.Printf("status stream: %v", err)
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.closing:
			return
		case status, ok := <-updates:
			if !ok {
				return
			}
			if err := writeEvent(w, status); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, status model.Status) error {
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: status\ndata: %s\n\n", data)
	return err
}

func validateFix(fix model.LocationFix) error {
	if fix.Latitude < -90 || fix.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range", fix.Latitude)
	}
	if fix.Longitude < -180 || fix.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range", fix.Longitude)
	}
	if fix.CapturedAtEpochMs <= 0 {
		return errors.New("capturedAtEpochMs must be positive")
	}
	return nil
}

func (h *handler) decodeJSON(r *http.Request, out any) error {
	defer r.Body.Close()

	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotEnrolled), errors.Is(err, domain.ErrStaleFix):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrRegistration):
		return http.StatusBadGateway
	case errors.Is(err, location.ErrNoFix):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) writeError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	h.logger.Printf("%s failed (%d): %v", op, status, err)
	h.writeJSON(w, status, errorBody{Error: err.Error()})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		h.logger.Printf("failed encoding response body: %v", err)
		h.writeResponse(w, responseSpec{status: http.StatusInternalServerError})
		return
	}
	h.writeResponse(w, responseSpec{
		status:      status,
		body:        body,
		contentType: "application/json",
	})
}

func (h *handler) writeResponse(w http.ResponseWriter, spec responseSpec) {
	w.Header().Set("Server", "trackerd")

	if len(spec.body) > 0 {
		for k, v := range defaultHeaders {
			w.Header().Set(k, v)
		}
		w.Header().Set("Content-Type", spec.contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(spec.body)))
		w.WriteHeader(spec.status)
		if _, err := w.Write(spec.body); err != nil {
			h.logger.Printf("failed writing response body: %v", err)
		}
		return
	}

	w.WriteHeader(spec.status)
}

var defaultHeaders = map[string]string{
	"Cache-Control":           "no-store",
	"X-Content-Type-Options":  "nosniff",
	"Content-Security-Policy": "default-src 'none'",
	"Referrer-Policy":         "no-referrer",
}
