package utils

import (
	"fmt"
	"strconv"

	"github.com/statio/backend/internal/apperr"
)

// Page is an offset window over an ordered list.
type Page struct {
	Skip  int
	Limit int
}

// ParsePage reads skip and limit query values. An empty limit falls back to
// def; limits outside 1..max and negative skips are rejected.
func ParsePage(skipRaw, limitRaw string, def, max int) (Page, error) {
	p := Page{Limit: def}
	if skipRaw != "" {
		n, err := strconv.Atoi(skipRaw)
		if err != nil {
			return Page{}, apperr.Validation("skip must be an integer")
		}
		p.Skip = n
	}
	if limitRaw != "" {
		n, err := strconv.Atoi(limitRaw)
		if err != nil {
			return Page{}, apperr.Validation("limit must be an integer")
		}
		p.Limit = n
	}
	if err := p.Validate(max); err != nil {
		return Page{}, err
	}
	return p, nil
}

// Validate checks skip >= 0 and 1 <= limit <= max.
func (p Page) Validate(max int) error {
	if p.Skip < 0 {
		return apperr.Validation("skip must be >= 0")
	}
	if p.Limit < 1 || p.Limit > max {
		return apperr.Validation(fmt.Sprintf("limit must be between 1 and %d", max))
	}
	return nil
}
