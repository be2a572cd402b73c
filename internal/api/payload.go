package api

import (
	"encoding/json"

	"github.com/soaringjerry/psyscore/internal/services"
)

// answersPayload accepts answers keyed by item id with string or numeric
// values; null clears an answer.
type answersPayload struct {
	Answers map[string]json.RawMessage `json:"answers"`
}

func (p answersPayload) decode() (services.Answers, error) {
	return services.DecodeAnswersJSON(p.Answers)
}

type createSessionRequest struct {
	Catalog string `json:"catalog" binding:"required"`
}

type loginRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Password  string `json:"password" binding:"required"`
}

type uploadRequest struct {
	Format   string `json:"format"`
	Formulas bool   `json:"formulas"`
}

type catalogSummary struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	DurationMinutes int      `json:"duration_minutes,omitempty"`
	ItemCount       int      `json:"item_count"`
	Facets          []string `json:"facets"`
	Domains         []string `json:"domains,omitempty"`
}
