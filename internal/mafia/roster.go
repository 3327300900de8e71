package mafia

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"mafia-game-bot/internal/gateway"
)

// Roster owns the canonical player set for one game. It is created once,
// after participant gathering succeeds, and its membership never changes.
type Roster struct {
	players []*Player
	byID    map[int64]*Player
}

func newRoster(players []*Player) *Roster {
	sort.Slice(players, func(i, j int) bool { return players[i].ID() < players[j].ID() })
	byID := make(map[int64]*Player, len(players))
	for _, p := range players {
		byID[p.ID()] = p
	}
	return &Roster{players: players, byID: byID}
}

// Get looks a player up by stable platform id. Returns nil for outsiders.
func (r *Roster) Get(id int64) *Player { return r.byID[id] }

// Players returns every player in stable (id) order.
func (r *Roster) Players() []*Player {
	return append([]*Player(nil), r.players...)
}

// Sample returns n distinct players chosen uniformly at random. Asking
// for more players than exist is a programmer error.
func (r *Roster) Sample(n int) []*Player {
	if n > len(r.players) {
		panic(fmt.Sprintf("roster: sampling %d of %d players", n, len(r.players)))
	}
	idx := rand.Perm(len(r.players))[:n]
	out := make([]*Player, n)
	for i, j := range idx {
		out[i] = r.players[j]
	}
	return out
}

func (r *Roster) filter(pred func(*Player) bool) []*Player {
	var out []*Player
	for _, p := range r.players {
		if pred(p) {
			out = append(out, p)
		}
	}
	return out
}

// Alive returns the players still in the game.
func (r *Roster) Alive() []*Player {
	return r.filter(func(p *Player) bool { return p.Alive })
}

// Dead returns the players who have died.
func (r *Roster) Dead() []*Player {
	return r.filter(func(p *Player) bool { return p.Dead() })
}

// Mafia returns every mafia-faction player, dead or alive.
func (r *Roster) Mafia() []*Player {
	return r.filter(func(p *Player) bool { return p.Mafia() })
}

// AliveMafia returns the living mafia.
func (r *Roster) AliveMafia() []*Player {
	return r.filter(func(p *Player) bool { return p.Mafia() && p.Alive })
}

// Townies returns every non-mafia player, dead or alive.
func (r *Roster) Townies() []*Player {
	return r.filter(func(p *Player) bool { return !p.Mafia() })
}

// AliveTownies returns the living town.
func (r *Roster) AliveTownies() []*Player {
	return r.filter(func(p *Player) bool { return !p.Mafia() && p.Alive })
}

// WithRole returns the players holding a role.
func (r *Roster) WithRole(role Role) []*Player {
	return r.filter(func(p *Player) bool { return p.Role == role })
}

// Nocturnal returns everyone with an active night capability, i.e. every
// player whose role is not the default Innocent.
func (r *Roster) Nocturnal() []*Player {
	return r.filter(func(p *Player) bool { return p.Role != RoleInnocent })
}

// AllMafiaDead is the town's win condition.
func (r *Roster) AllMafiaDead() bool { return len(r.AliveMafia()) == 0 }

// AllTowniesDead is the mafia's win condition.
func (r *Roster) AllTowniesDead() bool { return len(r.AliveTownies()) == 0 }

// Localize re-resolves each player's identity against the game area's
// membership, which issues fresh per-area handles on join. Idempotent;
// called once, after everyone has joined.
func (r *Roster) Localize(ctx context.Context, area gateway.Area) error {
	members := make(map[int64]gateway.User)
	for _, u := range area.Members() {
		members[u.ID] = u
	}
	for _, p := range r.players {
		local, ok := members[p.ID()]
		if !ok {
			return fmt.Errorf("player %s (%d) is not in the game area", p.Name(), p.ID())
		}
		p.User = local
	}
	return nil
}
