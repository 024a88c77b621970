package handlers

import (
	"encoding/json"

	"github.com/SafetyDady/moobaan-smart-sub000/internal/domain/errors"
)

// reasonRequest is the body for operations that record why they happened.
type reasonRequest struct {
	Reason string `json:"reason"`
}

// parseBody decodes a JSON request body into dst.
func parseBody(body string, dst interface{}) error {
	if err := json.Unmarshal([]byte(body), dst); err != nil {
		return errors.NewInvalidInputError("invalid request body", err)
	}
	return nil
}
