package mafia

import (
	"context"
	"time"

	"mafia-game-bot/internal/gateway"
)

// Role is the closed set of parts a player can play. Behavior lives in the
// hook table below; static properties live in roleMeta.
type Role int

const (
	RoleInnocent Role = iota
	RoleMafia
	RoleDoctor
	RoleEscort
	RoleInvestigator
	RoleMedium
)

// AllRoles lists every role in declaration order.
var AllRoles = []Role{RoleInnocent, RoleMafia, RoleDoctor, RoleEscort, RoleInvestigator, RoleMedium}

type roleMeta struct {
	name string
	// guaranteed roles have at least one holder in every game
	guaranteed bool
	// grouped roles share one channel and one collective nightly decision
	grouped bool
	// evil roles count toward the mafia faction
	evil bool
	// weight in the townie role lottery; zero means never rolled
	weight int
	// key is the memory slot template for the role's nightly decision
	key *Key
}

var roleMetas = map[Role]roleMeta{
	RoleInnocent:     {name: "Innocent", guaranteed: true, weight: 10},
	RoleMafia:        {name: "Mafia", guaranteed: true, grouped: true, evil: true, key: &Key{Name: "mafia_victim"}},
	RoleDoctor:       {name: "Doctor", weight: 10, key: &Key{Name: "heal_target"}},
	RoleEscort:       {name: "Escort", weight: 5, key: &Key{Name: "block_target"}},
	RoleInvestigator: {name: "Investigator", weight: 10, key: &Key{Name: "investigator_target"}},
	RoleMedium:       {name: "Medium", weight: 5, key: &Key{Name: "has_seanced", Persistent: true}},
}

func (r Role) String() string    { return roleMetas[r].name }
func (r Role) Guaranteed() bool  { return roleMetas[r].guaranteed }
func (r Role) Grouped() bool     { return roleMetas[r].grouped }
func (r Role) Evil() bool        { return roleMetas[r].evil }
func (r Role) weight() int       { return roleMetas[r].weight }

// DecisionKey returns the memory key tracking this role's nightly decision
// for the given player: shared for grouped roles, per-player otherwise.
func (r Role) DecisionKey(p *Player) (Key, bool) {
	k := roleMetas[r].key
	if k == nil {
		return Key{}, false
	}
	if r.Grouped() {
		return *k, true
	}
	return k.Localized(p.ID()), true
}

// mafiaCount is how many mafia a game of n players gets.
func mafiaCount(n int) int {
	c := n / 3
	if c > 3 {
		c = 3
	}
	if c < 1 {
		c = 1
	}
	return c
}

// actionContext carries everything a role hook needs: the game, the acting
// player, and (for message hooks) the triggering message.
type actionContext struct {
	ctx     context.Context
	game    *Game
	player  *Player
	message *gateway.Message
}

// channel returns where this role acts: the shared role channel for
// grouped roles, the player's personal channel otherwise.
func (a *actionContext) channel() gateway.Channel {
	if a.player.Role.Grouped() {
		return a.game.roleChats[a.player.Role]
	}
	return a.player.Channel
}

func (a *actionContext) send(text string) {
	a.game.say(a.ctx, a.channel(), text)
}

// reply addresses the acting player, or the whole group when more than one
// member shares the role.
func (a *actionContext) reply(text string) {
	mention := a.player.Name()
	if a.player.Role.Grouped() && len(a.game.roster.WithRole(a.player.Role)) > 1 {
		mention = "everyone"
	}
	a.send(mention + ": " + text)
}

// selectCommand parses "<command> <name>" from the triggering message and
// resolves the name against the candidate players. Failed resolutions get
// a negative-ack reaction and return nil.
func (a *actionContext) selectCommand(command string, candidates []*Player) *Player {
	name, ok := basicCommand(command, a.message.Text)
	if !ok {
		return nil
	}
	target := selectPlayer(name, candidates)
	if target == nil {
		a.game.nack(a.ctx, a.channel(), a.message.ID)
		return nil
	}
	return target
}

// roleHooks is one role's behavior: an optional message handler plus
// night-boundary hooks with explicit priorities. Higher priority runs
// first; the Doctor's end hook is far below everyone else so it always
// observes the Mafia's resolved outcome.
type roleHooks struct {
	onMessage func(a *actionContext, state any) any

	beginPriority int
	onNightBegin  func(a *actionContext, state any)

	endPriority int
	onNightEnd  func(a *actionContext, state any)
}

// picker is the shared shape of roles that non-persistently choose one
// target at night. What happens at night end is up to the role.
type picker struct {
	command  string
	prompt   Message
	response Message
	// targets defaults to every living player except the actor
	targets func(a *actionContext) []*Player
	// allow gates prompting and picking; defaults to always
	allow func(a *actionContext) bool
}

func (p picker) pickTargets(a *actionContext) []*Player {
	if p.targets != nil {
		return p.targets(a)
	}
	return excludePlayer(a.game.roster.Alive(), a.player)
}

func (p picker) allowed(a *actionContext) bool {
	return p.allow == nil || p.allow(a)
}

func (p picker) onNightBegin(a *actionContext, _ any) {
	if !p.allowed(a) {
		return
	}
	a.reply(render(p.prompt, "{targets}", userListing(p.pickTargets(a))))
}

func (p picker) onMessage(a *actionContext, state any) any {
	if !p.allowed(a) {
		return state
	}
	target := a.selectCommand(p.command, p.pickTargets(a))
	if target == nil {
		return state
	}
	a.reply(render(p.response, "{target}", target.Name()))
	return target
}

func statePlayer(state any) *Player {
	p, _ := state.(*Player)
	return p
}

var roleHookTable map[Role]roleHooks

func init() {
	mafiaPicker := picker{
		command:  "!kill",
		prompt:   msgPickPrompt[RoleMafia],
		response: msgPickResponse[RoleMafia],
		targets: func(a *actionContext) []*Player {
			return a.game.roster.AliveTownies()
		},
	}
	doctorPicker := picker{
		command:  "!heal",
		prompt:   msgPickPrompt[RoleDoctor],
		response: msgPickResponse[RoleDoctor],
	}
	escortPicker := picker{
		command:  "!block",
		prompt:   msgPickPrompt[RoleEscort],
		response: msgPickResponse[RoleEscort],
	}
	investigatorPicker := picker{
		command:  "!visit",
		prompt:   msgPickPrompt[RoleInvestigator],
		response: msgPickResponse[RoleInvestigator],
	}

	roleHookTable = map[Role]roleHooks{
		RoleInnocent: {},

		RoleMafia: {
			onMessage:    mafiaPicker.onMessage,
			onNightBegin: mafiaPicker.onNightBegin,
			onNightEnd:   mafiaNightEnd,
		},

		RoleDoctor: {
			onMessage:    doctorPicker.onMessage,
			onNightBegin: doctorPicker.onNightBegin,
			// run dead last so the attack outcome is already resolved
			endPriority: -100,
			onNightEnd:  doctorNightEnd,
		},

		RoleEscort: {
			onMessage:    escortPicker.onMessage,
			onNightBegin: escortPicker.onNightBegin,
			// run first so a blocked decision is erased before it resolves
			endPriority: 100,
			onNightEnd:  escortNightEnd,
		},

		RoleInvestigator: {
			onMessage:    investigatorPicker.onMessage,
			onNightBegin: investigatorPicker.onNightBegin,
			onNightEnd:   investigatorNightEnd,
		},

		RoleMedium: {
			onMessage:    mediumOnMessage,
			onNightBegin: mediumNightBegin,
			onNightEnd:   mediumNightEnd,
		},
	}
}

// attackedKey marks a player as attacked during the current night.
func attackedKey(p *Player) Key {
	return Key{Name: "attacked"}.Localized(p.ID())
}

func mafiaNightEnd(a *actionContext, state any) {
	victim := statePlayer(state)
	if victim == nil {
		return
	}

	a.game.memory.Set(attackedKey(victim), true)

	healed := a.game.memory.MatchPrefix("heal_target_", func(v any) bool {
		return v == victim
	})
	if healed {
		a.reply(render(msgMafiaFailure, "{target}", victim.Name()))
		return
	}

	victim.Kill(a.ctx)
	a.reply(render(msgMafiaSuccess, "{target}", victim.Name()))
}

func doctorNightEnd(a *actionContext, state any) {
	target := statePlayer(state)
	if target == nil {
		return
	}

	if a.game.memory.Has(attackedKey(target)) {
		a.game.say(a.ctx, target.Channel, target.Name()+": "+render(msgDoctorYouWereSaved))
		a.send(render(msgDoctorHealed, "{target}", target.Name()))
		return
	}
	a.send(render(msgDoctorNoop, "{target}", target.Name()))
}

func escortNightEnd(a *actionContext, state any) {
	target := statePlayer(state)
	if target == nil {
		return
	}

	if key, ok := target.Role.DecisionKey(target); ok && !key.Persistent {
		a.game.memory.Delete(key)
	}
	a.reply(render(msgEscortResult, "{target}", target.Name()))
}

func investigatorNightEnd(a *actionContext, state any) {
	target := statePlayer(state)
	if target == nil {
		return
	}

	if target.Suspicious() {
		a.reply(render(msgInvestigatorSuspicious))
		return
	}
	a.reply(render(msgInvestigatorClean))
}

// seanceOpenKey tracks an in-flight seance grant so it can be revoked when
// the night ends.
func seanceOpenKey(p *Player) Key {
	return Key{Name: "seance_open"}.Localized(p.ID())
}

func mediumOnMessage(a *actionContext, state any) any {
	if a.message.Text != "!seance" {
		return state
	}

	used, _ := state.(bool)
	if used {
		a.reply(render(msgMediumAlreadySeanced))
		return state
	}

	a.reply(render(msgMediumSeance))

	spec := a.game.specChat
	if err := spec.SetUserAccess(a.ctx, a.player.User, gateway.AccessReadOnly); err != nil {
		a.game.log.Warn().Err(err).Msg("seance grant failed")
		return state
	}
	a.game.memory.Set(seanceOpenKey(a.player), true)

	a.game.sleep(a.ctx, time.Second)
	a.game.say(a.ctx, spec, "everyone: "+render(msgMediumSeanceAnnouncement, "{medium}", a.player.Name()))
	return true
}

func mediumNightBegin(a *actionContext, state any) {
	if used, _ := state.(bool); used {
		// one seance per game
		return
	}
	if len(a.game.roster.Dead()) == 0 {
		return
	}
	a.reply(render(msgPickPrompt[RoleMedium]))
}

func mediumNightEnd(a *actionContext, _ any) {
	key := seanceOpenKey(a.player)
	if !a.game.memory.Has(key) {
		return
	}
	a.game.memory.Delete(key)
	if err := a.game.specChat.SetUserAccess(a.ctx, a.player.User, gateway.AccessInherit); err != nil {
		a.game.log.Warn().Err(err).Msg("seance revoke failed")
	}
}
