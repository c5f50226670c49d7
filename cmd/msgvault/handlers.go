package main

import (
	"encoding/json"
	"net/http"

	"msgvault/internal/errors"
	"msgvault/internal/models"
	"msgvault/internal/service"
	"msgvault/internal/tracing"
	"msgvault/internal/validation"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) handleListMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query, err := parseListQuery(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		page, err := s.queries.List(r.Context(), *query)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		s.writeJSON(w, http.StatusOK, page)
	}
}

func (s *Server) handleGetMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		messageID := mux.Vars(r)["message_id"]
		if err := validation.ValidateMessageID(messageID); err != nil {
			s.writeError(w, r, err)
			return
		}

		record, err := s.queries.Get(r.Context(), messageID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		s.writeJSON(w, http.StatusOK, record)
	}
}

func parseListQuery(r *http.Request) (*models.ListQuery, error) {
	params := r.URL.Query()

	guildID, err := validation.ParseScopeID("guild_id", params.Get("guild_id"))
	if err != nil {
		return nil, err
	}

	channelID, err := validation.ParseScopeID("channel_id", params.Get("channel_id"))
	if err != nil {
		return nil, err
	}

	from, err := validation.ParseTimestamp("from", params.Get("from"))
	if err != nil {
		return nil, err
	}

	to, err := validation.ParseTimestamp("to", params.Get("to"))
	if err != nil {
		return nil, err
	}

	limit, err := validation.ParseLimit(params.Get("limit"))
	if err != nil {
		return nil, err
	}

	includeDeleted, err := validation.ParseBool("include_deleted", params.Get("include_deleted"))
	if err != nil {
		return nil, err
	}

	cursor := params.Get("cursor")
	if cursor != "" {
		if err := validation.ValidateMessageID(cursor); err != nil {
			return nil, err
		}
	}

	return &models.ListQuery{
		GuildID:        guildID,
		ChannelID:      channelID,
		From:           from,
		To:             to,
		Cursor:         cursor,
		Limit:          limit,
		IncludeDeleted: includeDeleted,
	}, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestInfo := tracing.GetRequestInfo(r.Context())
	status := errors.HTTPStatusCode(err)

	if status >= 500 {
		s.logger.WithError(err).WithFields(logrus.Fields{
			service.LogFieldRequestID: requestInfo.RequestID,
			service.LogFieldURL:       r.URL.Path,
		}).Error("Request failed")
	}

	response := errors.ToHTTPResponse(err, requestInfo.RequestID)
	s.writeJSON(w, status, response)
}
