package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/KirkDiggler/grimoire/internal/events"
	"github.com/KirkDiggler/grimoire/internal/repositories/rollhistory"
)

const journalTimeout = 2 * time.Second

// journalEvents are the sheet events worth a line in the roll history
var journalEvents = []events.EventType{
	events.EventTypeOnShortRest,
	events.EventTypeOnLongRest,
	events.EventTypeFreeCastConsumed,
}

// newJournal records rests and free casts in the roll history.
func newJournal(history rollhistory.Repository, logger *slog.Logger) *events.ListenerFunc {
	return &events.ListenerFunc{
		Name:  "journal",
		Order: events.PriorityDefault,
		Callback: func(e events.Event) error {
			sc, ok := e.(*events.StateChanged)
			if !ok {
				return nil
			}

			entry := &rollhistory.Entry{Total: sc.Amount}
			switch sc.GetType() {
			case events.EventTypeOnShortRest:
				entry.Label = "short rest"
			case events.EventTypeOnLongRest:
				entry.Label = "long rest"
			case events.EventTypeFreeCastConsumed:
				entry.Label = "free cast: " + sc.Key
			default:
				return nil
			}

			ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
			defer cancel()

			// a lost journal line never fails the action that caused it
			if err := history.Append(ctx, entry); err != nil {
				logger.Warn("failed to journal event",
					"event", sc.GetType(),
					"error", err)
			}
			return nil
		},
	}
}
