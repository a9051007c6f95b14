package handlers

import "context"

// Help sends the static help text.
type Help struct {
	session     *Session
	botUsername string
}

func NewHelp(session *Session, botUsername string) *Help {
	return &Help{session: session, botUsername: botUsername}
}

func (h *Help) Handle(ctx context.Context, ev Event) error {
	h.session.Send(ctx, ev.ChatID, h.session.tr.Tf("help", h.botUsername), nil)
	return nil
}
