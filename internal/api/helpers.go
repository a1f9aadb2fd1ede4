package api

import (
	"github.com/bookberryapp/bookberry-server/internal/domain"
	domainerrors "github.com/bookberryapp/bookberry-server/internal/errors"
)

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message" doc:"Result message"`
}

// MessageOutput wraps a message response for Huma.
type MessageOutput struct {
	Body MessageResponse
}

// parseShelfQuery converts raw status and sort query values into a ShelfQuery.
func parseShelfQuery(status, sort string) (domain.ShelfQuery, error) {
	var q domain.ShelfQuery

	if status != "" {
		st, err := parseStatus(status)
		if err != nil {
			return q, err
		}
		q.Status = st
	}

	order, err := domain.ParseShelfSort(sort)
	if err != nil {
		return q, domainerrors.Validation(err.Error())
	}
	q.Sort = order
	return q, nil
}

func parseStatus(raw string) (domain.ReadingStatus, error) {
	st, err := domain.ParseReadingStatus(raw)
	if err != nil {
		return "", domainerrors.Validation(err.Error()).WithDetails(map[string]any{
			"allowed": domain.ReadingStatuses,
		})
	}
	return st, nil
}

// entriesOrEmpty keeps list responses as [] rather than null.
func entriesOrEmpty(entries []*domain.ShelfEntry) []*domain.ShelfEntry {
	if entries == nil {
		return []*domain.ShelfEntry{}
	}
	return entries
}
