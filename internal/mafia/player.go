package mafia

import (
	"context"

	"mafia-game-bot/internal/gateway"
)

// willLimit is the maximum length of a player's will.
const willLimit = 1000

// Player is one participant in a running game. Membership never changes
// after the roster is built; death is a flag, not a removal.
type Player struct {
	// User is the platform identity, re-resolved against the game area
	// once everyone has joined (see Roster.Localize).
	User gateway.User

	// Role is set exactly once during assignment and immutable after.
	Role Role

	// Alive is mutated only by Kill.
	Alive bool

	// Will is free text shown exactly once, at death reveal.
	Will string

	// Channel is the player's personal channel inside the game area.
	Channel gateway.Channel

	game *Game
}

func newPlayer(game *Game, user gateway.User) *Player {
	return &Player{User: user, Role: RoleInnocent, Alive: true, game: game}
}

func (p *Player) ID() int64    { return p.User.ID }
func (p *Player) Name() string { return p.User.Name }
func (p *Player) Dead() bool   { return !p.Alive }

// Mafia reports whether the player is on the mafia faction.
func (p *Player) Mafia() bool { return p.Role.Evil() }

// Suspicious reports how the player reads to an investigation. The
// Investigator itself reads suspicious, which keeps the role honest.
func (p *Player) Suspicious() bool {
	return p.Mafia() || p.Role == RoleInvestigator
}

// Kill marks the player dead and applies the death side effects: the
// personal-channel notice, losing the ability to speak in the mafia chat,
// and the player→dead tag swap that mutes them everywhere. A dead player
// never comes back.
func (p *Player) Kill(ctx context.Context) {
	if p.Dead() {
		return
	}
	p.Alive = false

	if p.Channel != nil {
		p.game.say(ctx, p.Channel, p.Name()+": You died!")
	}

	if p.Mafia() {
		if mafiaChat := p.game.roleChats[RoleMafia]; mafiaChat != nil {
			if err := mafiaChat.SetUserAccess(ctx, p.User, gateway.AccessReadOnly); err != nil {
				p.game.log.Warn().Err(err).Str("player", p.Name()).Msg("could not hush dead mafia")
			}
		}
	}

	area := p.game.area
	if err := area.RemoveTag(ctx, p.User, tagPlayer); err != nil {
		p.game.log.Warn().Err(err).Str("player", p.Name()).Msg("could not remove player tag")
	}
	if err := area.AssignTag(ctx, p.User, tagDead); err != nil {
		p.game.log.Warn().Err(err).Str("player", p.Name()).Msg("could not assign dead tag")
	}
}

// SetWill records the player's will, enforcing the length cap.
func (p *Player) SetWill(text string) bool {
	if len(text) > willLimit {
		return false
	}
	p.Will = text
	return true
}

func excludePlayer(players []*Player, exclude *Player) []*Player {
	out := make([]*Player, 0, len(players))
	for _, p := range players {
		if p != exclude {
			out = append(out, p)
		}
	}
	return out
}
