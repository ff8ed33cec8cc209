package service

import (
	"github.com/evetabi/matchsim/internal/domain"
	"github.com/evetabi/matchsim/internal/odds"
)

// quotesOf converts engine selections into board quotes, keeping their order.
func quotesOf(sels []odds.Selection) []domain.Quote {
	quotes := make([]domain.Quote, 0, len(sels))
	for _, sel := range sels {
		quotes = append(quotes, sel.Quote())
	}
	return quotes
}
