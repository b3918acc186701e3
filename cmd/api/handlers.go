package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"appealdesk/appeal"
)

type appealResponse struct {
	ID                        string `json:"id"`
	Description               string `json:"description"`
	EntryTime                 string `json:"entryTime"`
	ResolutionDeadline        string `json:"resolutionDeadline"`
	ResolutionDeadlineDisplay string `json:"resolutionDeadlineDisplay"`
	IsResolved                bool   `json:"isResolved"`
}

type createAppealRequest struct {
	Description        string `json:"description"`
	ResolutionDeadline string `json:"resolutionDeadline"`
}

type validationResponse struct {
	Appeal createAppealRequest `json:"appeal"`
	Errors map[string][]string `json:"errors"`
}

type formField struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Required    bool   `json:"required"`
	MinLength   int    `json:"minLength,omitempty"`
	MaxLength   int    `json:"maxLength,omitempty"`
	MinLeadMins int    `json:"minLeadMinutes,omitempty"`
	Format      string `json:"format,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListAppeals(w http.ResponseWriter, r *http.Request) {
	appeals, err := s.appealService.ListActive(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	items := make([]appealResponse, 0, len(appeals))
	for _, a := range appeals {
		items = append(items, s.toAppealResponse(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"total": len(items),
	})
}

func (s *Server) handleNewAppealForm(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"action": appealsPath,
		"method": http.MethodPost,
		"fields": []formField{
			{
				Name:      appeal.FieldDescription,
				Label:     "Description",
				Required:  true,
				MinLength: appeal.DescriptionMinLength,
				MaxLength: appeal.DescriptionMaxLength,
			},
			{
				Name:        appeal.FieldResolutionDeadline,
				Label:       "Resolution Deadline",
				Required:    true,
				MinLeadMins: int(appeal.MinResolutionLead / time.Minute),
				Format:      "HH:mm dd.MM.yyyy",
			},
		},
	})
}

func (s *Server) handleCreateAppeal(w http.ResponseWriter, r *http.Request) {
	var req createAppealRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxCreateBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	deadline, ok := s.parseDeadline(req.ResolutionDeadline)
	if !ok {
		writeJSON(w, http.StatusBadRequest, validationResponse{
			Appeal: req,
			Errors: unparseableDeadlineErrors(r, req),
		})
		return
	}

	created, err := s.appealService.Create(r.Context(), appeal.Draft{
		Description:        req.Description,
		ResolutionDeadline: deadline,
	})
	if err != nil {
		var verr *appeal.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, validationResponse{Appeal: req, Errors: verr.Fields})
			return
		}
		s.internalError(w, r, err)
		return
	}

	w.Header().Set("Location", appealsPath)
	writeJSON(w, http.StatusSeeOther, s.toAppealResponse(created))
}

func (s *Server) handleGetAppeal(w http.ResponseWriter, r *http.Request) {
	found, err := s.appealService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, appeal.ErrNotFound) {
			writeError(w, http.StatusNotFound, "appeal not found")
			return
		}
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toAppealResponse(found))
}

func (s *Server) handleResolveAppeal(w http.ResponseWriter, r *http.Request) {
	s.finish(w, r, s.appealService.Resolve(r.Context(), chi.URLParam(r, "id")))
}

func (s *Server) handleDeleteAppeal(w http.ResponseWriter, r *http.Request) {
	s.finish(w, r, s.appealService.Delete(r.Context(), chi.URLParam(r, "id")))
}

// finish redirects back to the list whether or not the id matched, unless the
// service was configured to report unknown ids.
func (s *Server) finish(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		if errors.Is(err, appeal.ErrNotFound) {
			writeError(w, http.StatusNotFound, "appeal not found")
			return
		}
		s.internalError(w, r, err)
		return
	}
	w.Header().Set("Location", appealsPath)
	w.WriteHeader(http.StatusSeeOther)
}

// unparseableDeadlineErrors still validates the remaining fields so every
// problem is reported at once.
func unparseableDeadlineErrors(r *http.Request, req createAppealRequest) map[string][]string {
	fields := make(map[string][]string)
	var verr *appeal.ValidationError
	if errors.As(appeal.ValidateDraft(r.Context(), appeal.Draft{Description: req.Description}, time.Now()), &verr) {
		for name, msgs := range verr.Fields {
			fields[name] = msgs
		}
	}
	fields[appeal.FieldResolutionDeadline] = []string{"Resolution deadline is not a valid date."}
	return fields
}

// parseDeadline accepts RFC 3339 or the form layout in the server time zone.
// An empty value yields the zero time so validation reports it.
func (s *Server) parseDeadline(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation(appeal.DeadlineLayout, raw, s.loc()); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func (s *Server) toAppealResponse(a appeal.Appeal) appealResponse {
	return appealResponse{
		ID:                        a.ID,
		Description:               a.Description,
		EntryTime:                 a.EntryTime.Format(time.RFC3339),
		ResolutionDeadline:        a.ResolutionDeadline.Format(time.RFC3339),
		ResolutionDeadlineDisplay: a.ResolutionDeadline.In(s.loc()).Format(appeal.DeadlineLayout),
		IsResolved:                a.IsResolved,
	}
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger().WithError(err).WithField("path", r.URL.Path).Error("request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
