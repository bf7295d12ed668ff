package notify

import (
	"fmt"
	"strings"

	"github.com/donaldgifford/hotel-price-tracker/pkg/pricedrop"
	domain "github.com/donaldgifford/hotel-price-tracker/pkg/types"
)

func alertSubject(a *domain.PriceAlert) string {
	return fmt.Sprintf("Price drop: %s is now %s %s", a.HotelName, a.CurrentPrice.StringFixed(2), a.Currency)
}

func alertLine(a *domain.PriceAlert) string {
	return fmt.Sprintf("%s (%s): %s -> %s %s, saves %s (%s, %s)",
		a.HotelName,
		a.Location,
		a.BookedPrice.StringFixed(2),
		a.CurrentPrice.StringFixed(2),
		a.Currency,
		a.DeltaAmount.StringFixed(2),
		pricedrop.FormatPercent(a.DeltaPercent),
		a.ThresholdLabel,
	)
}

func alertMessage(a *domain.PriceAlert) *Message {
	text := alertLine(a)
	if a.Provider != "" {
		text += "\nSeen on " + a.Provider + "."
	}
	return &Message{
		UserID:  a.UserID,
		Subject: alertSubject(a),
		Text:    text,
		Alerts:  []domain.PriceAlert{*a},
	}
}

func digestMessage(userID string, alerts []domain.PriceAlert) *Message {
	var b strings.Builder
	for i := range alerts {
		b.WriteString("- ")
		b.WriteString(alertLine(&alerts[i]))
		b.WriteString("\n")
	}

	noun := "drops"
	if len(alerts) == 1 {
		noun = "drop"
	}
	return &Message{
		UserID:  userID,
		Subject: fmt.Sprintf("%d hotel price %s for your bookings", len(alerts), noun),
		Text:    strings.TrimSuffix(b.String(), "\n"),
		Alerts:  alerts,
	}
}
