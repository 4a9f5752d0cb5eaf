package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"campus_coffee/internal/app"
	"campus_coffee/internal/domain"
)

type Handlers struct {
	Reviews *app.ReviewService
	Users   *app.CrudService[domain.User]
	Pos     *app.CrudService[domain.Pos]
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.mux.Route("/api/reviews", func(r chi.Router) {
		r.Get("/", h.listReviews)
		r.Post("/", h.createReview)
		r.Get("/filter", h.filterReviews)
		r.Get("/{id}", h.getReview)
		r.Put("/{id}", h.updateReview)
		r.Delete("/{id}", h.deleteReview)
		r.Put("/{id}/approve", h.approveReview)
	})
	mountCrud(s.mux, "/api/users", h.Users, fromUserDTO, toUserDTO)
	mountCrud(s.mux, "/api/pos", h.Pos, fromPosDTO, toPosDTO)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// statusClientClosedRequest is the non-standard code nginx logs for requests
// the client abandoned.
const statusClientClosedRequest = 499

// writeError maps service errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrValidation):
		writeProblem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "request timed out")
	case errors.Is(err, context.Canceled):
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("client went away")
		writeProblem(w, statusClientClosedRequest, "Client Closed Request", "request canceled")
	default:
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "unexpected error")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal response body")
		return "", nil
	}
	sum := sha1.Sum(body)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`, body
}

// writeJSON sends v. GET responses carry a weak ETag and honour If-None-Match.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "could not encode response")
		return
	}
	if r.Method == http.MethodGet && etag != "" {
		w.Header().Set("ETag", etag)
		if inm := r.Header.Get("If-None-Match"); inm == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

func pathID(r *http.Request) (int64, error) {
	return parseID(chi.URLParam(r, "id"), "id")
}

func parseID(raw, name string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Invalid(name + " must be a positive integer")
	}
	return id, nil
}

// -----------------------------------------------------------------------------
// reviews
// -----------------------------------------------------------------------------

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	rs, err := h.Reviews.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, mapSlice(rs, toReviewDTO))
}

func (h *Handlers) getReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rv, err := h.Reviews.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toReviewDTO(rv))
}

func (h *Handlers) createReview(w http.ResponseWriter, r *http.Request) {
	var dto ReviewDTO
	if err := decodeBody(r, &dto); err != nil {
		writeError(w, r, err)
		return
	}
	if dto.ID != 0 {
		writeError(w, r, domain.Invalid("id must not be set when creating a review"))
		return
	}
	rv, err := h.Reviews.Upsert(r.Context(), fromReviewDTO(dto))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toReviewDTO(rv))
}

func (h *Handlers) updateReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var dto ReviewDTO
	if err := decodeBody(r, &dto); err != nil {
		writeError(w, r, err)
		return
	}
	if dto.ID != 0 && dto.ID != id {
		writeError(w, r, domain.Invalid("id in body does not match path"))
		return
	}
	dto.ID = id
	rv, err := h.Reviews.Upsert(r.Context(), fromReviewDTO(dto))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toReviewDTO(rv))
}

func (h *Handlers) deleteReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Reviews.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) filterReviews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	posID, err := parseID(q.Get("pos_id"), "pos_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	approved, err := strconv.ParseBool(q.Get("approved"))
	if err != nil {
		writeError(w, r, domain.Invalid("approved must be true or false"))
		return
	}
	rs, err := h.Reviews.Filter(r.Context(), posID, approved)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, mapSlice(rs, toReviewDTO))
}

func (h *Handlers) approveReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	userID, err := parseID(r.URL.Query().Get("user_id"), "user_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rv, err := h.Reviews.Approve(r.Context(), domain.Review{ID: id}, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toReviewDTO(rv))
}

// -----------------------------------------------------------------------------
// generic CRUD routes for users and POS
// -----------------------------------------------------------------------------

func mountCrud[T domain.Entity, D any](m chi.Router, path string, svc *app.CrudService[T], from func(D) T, to func(T) D) {
	m.Route(path, func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			vs, err := svc.List(r.Context())
			if err != nil {
				writeError(w, r, err)
				return
			}
			writeJSON(w, r, http.StatusOK, mapSlice(vs, to))
		})
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var dto D
			if err := decodeBody(r, &dto); err != nil {
				writeError(w, r, err)
				return
			}
			v := from(dto)
			if !v.IsNew() {
				writeError(w, r, domain.Invalid("id must not be set when creating"))
				return
			}
			saved, err := svc.Upsert(r.Context(), v)
			if err != nil {
				writeError(w, r, err)
				return
			}
			writeJSON(w, r, http.StatusCreated, to(saved))
		})
		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, err := pathID(r)
			if err != nil {
				writeError(w, r, err)
				return
			}
			v, err := svc.GetByID(r.Context(), id)
			if err != nil {
				writeError(w, r, err)
				return
			}
			writeJSON(w, r, http.StatusOK, to(v))
		})
		r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, err := pathID(r)
			if err != nil {
				writeError(w, r, err)
				return
			}
			var dto D
			if err := decodeBody(r, &dto); err != nil {
				writeError(w, r, err)
				return
			}
			v := from(dto)
			if !v.IsNew() && v.GetID() != id {
				writeError(w, r, domain.Invalid("id in body does not match path"))
				return
			}
			saved, err := svc.Upsert(r.Context(), withID(v, id))
			if err != nil {
				writeError(w, r, err)
				return
			}
			writeJSON(w, r, http.StatusOK, to(saved))
		})
		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, err := pathID(r)
			if err != nil {
				writeError(w, r, err)
				return
			}
			if err := svc.Delete(r.Context(), id); err != nil {
				writeError(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})
	})
}

// withID sets the id of a user or POS taken from the request path.
func withID[T domain.Entity](v T, id int64) T {
	switch e := any(&v).(type) {
	case *domain.User:
		e.ID = id
	case *domain.Pos:
		e.ID = id
	}
	return v
}
