package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ignite/recipient-engine/internal/email"
	"github.com/ignite/recipient-engine/internal/phone"
)

// ValidatePhoneRequest is the request body for phone validation
type ValidatePhoneRequest struct {
	Number             string `json:"number"`
	AllowInternational bool   `json:"allow_international"`
}

// ValidatePhone validates a mobile number and reports how it would be
// routed and billed.
// POST /api/phone/validate
func (h *Handlers) ValidatePhone(w http.ResponseWriter, r *http.Request) {
	var req ValidatePhoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Number == "" {
		respondError(w, http.StatusBadRequest, "number is required")
		return
	}

	normalised, err := phone.Validate(req.Number, req.AllowInternational)
	if err != nil {
		var vErr phone.ValidationError
		code := ""
		if errors.As(err, &vErr) {
			code = string(vErr.Code)
		}
		respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"valid": false,
			"code":  code,
			"error": err.Error(),
		})
		return
	}

	info, err := phone.InternationalInfo(normalised)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to resolve routing info")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"valid":  true,
		"number": normalised,
		"info":   info,
	})
}

// ValidateEmailRequest is the request body for email validation
type ValidateEmailRequest struct {
	Address string `json:"address"`
}

// ValidateEmail validates and normalises an email address.
// POST /api/email/validate
func (h *Handlers) ValidateEmail(w http.ResponseWriter, r *http.Request) {
	var req ValidateEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Address == "" {
		respondError(w, http.StatusBadRequest, "address is required")
		return
	}

	normalised, err := email.Validate(req.Address)
	if err != nil {
		respondJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"valid":   true,
		"address": normalised,
	})
}
