package mafia

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"mafia-game-bot/internal/gateway"
)

// Lobby markers exposed on the gathering message.
const (
	markerJoin   = "join"
	markerStart  = "start"
	markerCancel = "cancel"
)

// ErrLobbyCancelled reports that the creator called the game off before
// it started.
var ErrLobbyCancelled = errors.New("lobby cancelled")

// lobby gathers participants through marker toggles on a single message.
// The creator is always a participant and decides when to start; there is
// no timeout.
type lobby struct {
	gw      gateway.Gateway
	channel gateway.Channel
	creator gateway.User
	minimum int
	log     zerolog.Logger
}

// run blocks until the creator starts or cancels, returning the gathered
// participants in join order (creator first).
func (l *lobby) run(ctx context.Context) ([]gateway.User, error) {
	participants := []gateway.User{l.creator}
	joined := map[int64]int{l.creator.ID: 0}

	posted, err := l.channel.Send(ctx, l.status(participants))
	if err != nil {
		return nil, err
	}
	for _, marker := range []string{markerJoin, markerStart, markerCancel} {
		if err := posted.AddMarker(ctx, marker); err != nil {
			return nil, err
		}
	}

	sub := l.gw.Subscribe(func(ev gateway.Event) bool {
		return ev.Kind == gateway.EventReaction && ev.Reaction.MessageID == posted.ID()
	})
	defer sub.Close()

	refresh := func() {
		if err := posted.Edit(ctx, l.status(participants)); err != nil {
			l.log.Debug().Err(err).Msg("lobby refresh failed")
		}
	}

	for {
		var ev gateway.Event
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case ev = <-sub.Events():
		}
		r := ev.Reaction

		switch r.Marker {
		case markerJoin:
			if r.User.ID == l.creator.ID {
				continue
			}
			if i, in := joined[r.User.ID]; in {
				if r.Removed {
					participants = append(participants[:i], participants[i+1:]...)
					delete(joined, r.User.ID)
					for j := i; j < len(participants); j++ {
						joined[participants[j].ID] = j
					}
					refresh()
				}
				continue
			}
			if r.Removed {
				continue
			}
			joined[r.User.ID] = len(participants)
			participants = append(participants, r.User)
			refresh()

		case markerStart:
			if r.User.ID != l.creator.ID {
				continue
			}
			if len(participants) < l.minimum {
				l.say(ctx, "Need at least "+strconv.Itoa(l.minimum)+" players to start.")
				continue
			}
			return participants, nil

		case markerCancel:
			if r.User.ID != l.creator.ID {
				continue
			}
			l.say(ctx, "Game cancelled.")
			return nil, ErrLobbyCancelled
		}
	}
}

func (l *lobby) say(ctx context.Context, text string) {
	if _, err := l.channel.Send(ctx, text); err != nil {
		l.log.Warn().Err(err).Msg("lobby send failed")
	}
}

func (l *lobby) status(participants []gateway.User) string {
	var b strings.Builder
	b.WriteString(l.creator.Name)
	b.WriteString(" is gathering a game of Mafia! Press \"join\" to play.\n")
	b.WriteString("Players (" + strconv.Itoa(len(participants)) +
		", minimum " + strconv.Itoa(l.minimum) + "):\n")
	for _, u := range participants {
		b.WriteString("- " + u.Name + "\n")
	}
	b.WriteString("Only " + l.creator.Name + " can start or cancel.")
	return b.String()
}
