package mafia

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mafia-game-bot/internal/gateway"
)

// Membership tags inside a game area.
const (
	tagPlayer    gateway.Tag = "player"
	tagDead      gateway.Tag = "dead"
	tagSpectator gateway.Tag = "spectator"
)

// Phase is the orchestrator's coarse state.
type Phase int

const (
	// PhaseWaiting: lobby gathering has not finished.
	PhaseWaiting Phase = iota
	// PhaseFilling: the area exists, participants must join it.
	PhaseFilling
	// PhaseStarted: the day/night loop is running.
	PhaseStarted
	// PhaseOver: terminal, the area is (being) deleted.
	PhaseOver
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhaseFilling:
		return "filling"
	case PhaseStarted:
		return "started"
	default:
		return "over"
	}
}

// Win sentinels unwind the day/night loop as soon as a faction is wiped
// out. They are control flow, never shown to players as error text.
var (
	ErrMafiaWin = errors.New("mafia win")
	ErrTownWin  = errors.New("town win")
)

// Config holds the tunable game parameters. Zero values are replaced by
// DefaultConfig in NewGame.
type Config struct {
	MinPlayers int

	NightTime      time.Duration
	TutorialTime   time.Duration
	DiscussionTime time.Duration
	VotingTime     time.Duration
	DefenseTime    time.Duration
	JudgementTime  time.Duration
	LastWordsTime  time.Duration
	GraceTime      time.Duration
}

func DefaultConfig() Config {
	return Config{
		MinPlayers:     3,
		NightTime:      36 * time.Second,
		TutorialTime:   15 * time.Second,
		DiscussionTime: 45 * time.Second,
		VotingTime:     30 * time.Second,
		DefenseTime:    20 * time.Second,
		JudgementTime:  20 * time.Second,
		LastWordsTime:  5 * time.Second,
		GraceTime:      15 * time.Second,
	}
}

// withDefaults fills every unset field from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MinPlayers == 0 {
		c.MinPlayers = def.MinPlayers
	}
	if c.NightTime == 0 {
		c.NightTime = def.NightTime
	}
	if c.TutorialTime == 0 {
		c.TutorialTime = def.TutorialTime
	}
	if c.DiscussionTime == 0 {
		c.DiscussionTime = def.DiscussionTime
	}
	if c.VotingTime == 0 {
		c.VotingTime = def.VotingTime
	}
	if c.DefenseTime == 0 {
		c.DefenseTime = def.DefenseTime
	}
	if c.JudgementTime == 0 {
		c.JudgementTime = def.JudgementTime
	}
	if c.LastWordsTime == 0 {
		c.LastWordsTime = def.LastWordsTime
	}
	if c.GraceTime == 0 {
		c.GraceTime = def.GraceTime
	}
	return c
}

// Game is one running match: the orchestrator that owns the provisioned
// area, the roster and the phase loop. All area and roster mutation
// happens from the orchestrator goroutine or from the event pump; shared
// Memory writes are serialized by Memory's own lock.
type Game struct {
	ID      string
	gw      gateway.Gateway
	creator gateway.User
	config  Config
	log     zerolog.Logger

	lobbyChat gateway.Channel
	invite    gateway.Posted

	memory *Memory
	roster *Roster

	area      gateway.Area
	gameChat  gateway.Channel
	specChat  gateway.Channel
	roleChats map[Role]gateway.Channel
	listing   gateway.Posted

	sub    *gateway.Subscription
	cancel context.CancelFunc

	aliveAtDusk map[int64]bool

	mu      sync.Mutex
	phase   Phase
	day     int
	thrown  bool
	handler func(gateway.Event)
}

// NewGame prepares a match rooted in the chat where it was requested. The
// game id doubles as the session key: one game per originating chat.
func NewGame(gw gateway.Gateway, lobbyChat gateway.Channel, creator gateway.User, cfg Config, log zerolog.Logger) *Game {
	cfg = cfg.withDefaults()
	g := &Game{
		ID:        lobbyChat.ID(),
		gw:        gw,
		creator:   creator,
		config:    cfg,
		lobbyChat: lobbyChat,
		memory:    NewMemory(),
		phase:     PhaseWaiting,
	}
	g.log = log.With().Str("game_id", g.ID).Logger()
	return g
}

// Run drives the whole match: lobby, provisioning, the day/night loop and
// teardown. It blocks until the game is over and the area is gone. A
// cancelled lobby is a normal outcome, not an error.
func (g *Game) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g.mu.Lock()
	g.cancel = cancel
	g.mu.Unlock()

	lob := &lobby{
		gw:      g.gw,
		channel: g.lobbyChat,
		creator: g.creator,
		minimum: g.config.MinPlayers,
		log:     g.log,
	}
	participants, err := lob.run(runCtx)
	if err != nil {
		if errors.Is(err, ErrLobbyCancelled) || errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	g.say(ctx, g.lobbyChat, render(msgLobbyStarting))

	area, err := g.gw.CreateArea(ctx, "mafia-"+uuid.NewString()[:8])
	if err != nil {
		g.say(ctx, g.lobbyChat, "Couldn't set up the game: "+err.Error())
		return fmt.Errorf("provisioning game area: %w", err)
	}
	g.area = area
	g.log = g.log.With().Str("area", area.ID()).Logger()

	players := make([]*Player, len(participants))
	for i, u := range participants {
		players[i] = newPlayer(g, u)
	}
	g.roster = newRoster(players)
	g.setPhase(PhaseFilling)

	g.sub = g.gw.Subscribe(func(ev gateway.Event) bool {
		return ev.AreaID == area.ID() ||
			(ev.Kind == gateway.EventMessage && ev.Message.Direct)
	})
	defer g.sub.Close()
	go g.pump(runCtx)

	cause := g.play(runCtx)
	g.teardown(ctx, cause)

	if cause != nil && !errors.Is(cause, ErrMafiaWin) && !errors.Is(cause, ErrTownWin) &&
		!g.wasThrown() && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return nil
}

// play runs everything between provisioning and teardown. Any panic in a
// role handler or phase step surfaces as an error here so teardown always
// runs and the area is never orphaned.
func (g *Game) play(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("game loop failure: %v", r)
		}
	}()

	if err := g.setupArea(ctx); err != nil {
		return err
	}
	if err := g.fill(ctx); err != nil {
		return err
	}
	if err := g.roster.Localize(ctx, g.area); err != nil {
		return err
	}
	g.assignRoles()
	if err := g.createChannels(ctx); err != nil {
		return err
	}
	g.greet(ctx)
	g.setPhase(PhaseStarted)

	for day := 1; ; day++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := g.dayPhase(ctx, day); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := g.nightPhase(ctx, day); err != nil {
			return err
		}
	}
}

// setupArea creates the shared channels and their base access rules.
func (g *Game) setupArea(ctx context.Context) error {
	gameChat, err := g.area.CreateChannel(ctx, "town-square", gateway.AccessAllow)
	if err != nil {
		return fmt.Errorf("creating town square: %w", err)
	}
	g.gameChat = gameChat

	specChat, err := g.area.CreateChannel(ctx, "graveyard", gateway.AccessHidden)
	if err != nil {
		return fmt.Errorf("creating graveyard: %w", err)
	}
	g.specChat = specChat

	for _, grant := range []struct {
		ch     gateway.Channel
		tag    gateway.Tag
		access gateway.Access
	}{
		{specChat, tagSpectator, gateway.AccessAllow},
		{specChat, tagDead, gateway.AccessAllow},
		{gameChat, tagSpectator, gateway.AccessReadOnly},
		{gameChat, tagDead, gateway.AccessReadOnly},
	} {
		if err := grant.ch.SetTagAccess(ctx, grant.tag, grant.access); err != nil {
			return fmt.Errorf("setting base access: %w", err)
		}
	}
	return nil
}

// fill invites the participants into the area and blocks until every one
// of them has joined. There is no timeout: a missing participant stalls
// the game until they join or someone abandons it.
func (g *Game) fill(ctx context.Context) error {
	link, err := g.area.InviteLink(ctx)
	if err != nil {
		return fmt.Errorf("creating invite link: %w", err)
	}
	invite, err := g.lobbyChat.Send(ctx, render(msgLobbyInvite,
		"{mentions}", commaListing(g.roster.Players()),
		"{invite}", link,
	))
	if err != nil {
		return fmt.Errorf("posting invite: %w", err)
	}
	g.invite = invite

	progress, err := g.lobbyChat.Send(ctx, g.fillingText())
	if err != nil {
		return fmt.Errorf("posting join progress: %w", err)
	}

	// missing players are recomputed from the area's authoritative
	// membership on every event, so a join racing the handler install is
	// never lost.
	done := make(chan struct{})
	var once sync.Once
	g.setHandler(func(ev gateway.Event) {
		if ev.Kind != gateway.EventMemberJoined && ev.Kind != gateway.EventMemberLeft {
			return
		}
		if err := progress.Edit(ctx, g.fillingText()); err != nil {
			g.log.Debug().Err(err).Msg("join progress edit failed")
		}
		if len(g.missingPlayers()) == 0 {
			once.Do(func() { close(done) })
		}
	})
	defer g.setHandler(nil)

	if len(g.missingPlayers()) == 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// missingPlayers lists roster members not yet present in the area.
func (g *Game) missingPlayers() []*Player {
	return g.roster.filter(func(p *Player) bool { return !g.area.HasMember(p.ID()) })
}

func (g *Game) fillingText() string {
	missing := g.missingPlayers()
	if len(missing) == 0 {
		return "Everyone is in!"
	}
	return render(msgFillingProgress, "{waiting_on}", userListing(missing))
}

// assignRoles picks the mafia by uniform sample, rolls the rest through
// the weighted townie lottery and guarantees the town at least one active
// nightly capability.
func (g *Game) assignRoles() {
	players := g.roster.Players()
	for _, p := range g.roster.Sample(mafiaCount(len(players))) {
		p.Role = RoleMafia
	}
	for _, p := range players {
		if p.Role != RoleMafia {
			p.Role = rollTownieRole()
		}
	}

	townies := g.roster.Townies()
	for _, p := range townies {
		if p.Role != RoleInnocent {
			return
		}
	}
	if len(townies) > 0 {
		townies[rand.Intn(len(townies))].Role = RoleInvestigator
	}
}

func rollTownieRole() Role {
	total := 0
	for _, r := range AllRoles {
		if !r.Evil() {
			total += r.weight()
		}
	}
	pick := rand.Intn(total)
	for _, r := range AllRoles {
		if r.Evil() {
			continue
		}
		if pick < r.weight() {
			return r
		}
		pick -= r.weight()
	}
	return RoleInnocent
}

// createChannels provisions each player's personal channel and the shared
// channels of grouped roles.
func (g *Game) createChannels(ctx context.Context) error {
	g.roleChats = make(map[Role]gateway.Channel)
	for _, p := range g.roster.Players() {
		ch, err := g.area.CreateChannel(ctx,
			"player-"+strconv.FormatInt(p.ID(), 10), gateway.AccessHidden)
		if err != nil {
			return fmt.Errorf("creating channel for %s: %w", p.Name(), err)
		}
		if err := ch.SetUserAccess(ctx, p.User, gateway.AccessAllow); err != nil {
			return fmt.Errorf("granting %s their channel: %w", p.Name(), err)
		}
		p.Channel = ch
	}

	for _, r := range AllRoles {
		if !r.Grouped() {
			continue
		}
		members := g.roster.WithRole(r)
		if len(members) == 0 {
			continue
		}
		ch, err := g.area.CreateChannel(ctx,
			strings.ToLower(r.String())+"-chat", gateway.AccessHidden)
		if err != nil {
			return fmt.Errorf("creating %s chat: %w", r, err)
		}
		for _, p := range members {
			if err := ch.SetUserAccess(ctx, p.User, gateway.AccessAllow); err != nil {
				return fmt.Errorf("granting %s the %s chat: %w", p.Name(), r, err)
			}
		}
		g.roleChats[r] = ch
	}
	return nil
}

// greet announces the game, pins the player listing and tells every
// player their role.
func (g *Game) greet(ctx context.Context) {
	players := g.roster.Players()
	g.say(ctx, g.gameChat, render(msgGameStart, "{mentions}", commaListing(players)))

	if listing, err := g.gameChat.Send(ctx, g.listingText()); err == nil {
		g.listing = listing
		if err := listing.Pin(ctx); err != nil {
			g.log.Debug().Err(err).Msg("listing pin failed")
		}
	} else {
		g.log.Warn().Err(err).Msg("listing post failed")
	}

	for _, p := range players {
		if p.Role.Grouped() {
			continue
		}
		g.say(ctx, p.Channel, p.Name()+": "+render(msgRoleGreetings[p.Role]))
	}
	if mafiaChat := g.roleChats[RoleMafia]; mafiaChat != nil {
		g.say(ctx, mafiaChat, render(msgMafiaGreet))
		g.say(ctx, mafiaChat, "Your partners in crime:\n"+userListing(g.roster.Mafia()))
	}
}

func (g *Game) dayPhase(ctx context.Context, day int) error {
	g.setDay(day)
	g.log.Info().Int("day", day).Str("phase", "day").Msg("day begins")
	g.unlockChat(ctx)
	g.say(ctx, g.gameChat, render(msgDayAnnouncement, "{day}", strconv.Itoa(day)))

	if day == 1 {
		// truncated tutorial day, straight to the first night
		g.say(ctx, g.gameChat, render(msgTutorial,
			"{mafia_n}", strconv.Itoa(len(g.roster.Mafia()))))
		g.window(ctx, g.config.TutorialTime, nil, nil)
		return nil
	}

	g.revealNightDeaths(ctx)
	if err := g.checkWin(); err != nil {
		return err
	}

	g.say(ctx, g.gameChat, render(msgDiscussionTime))
	g.window(ctx, g.config.DiscussionTime, g.gameChat, nil)

	g.trialLoop(ctx)
	return g.checkWin()
}

func (g *Game) nightPhase(ctx context.Context, day int) error {
	g.log.Info().Int("day", day).Str("phase", "night").Msg("night begins")
	g.lockChat(ctx)
	g.say(ctx, g.gameChat, render(msgNightAnnouncement, "{day}", strconv.Itoa(day)))
	g.say(ctx, g.gameChat, render(msgNightFlavor))

	g.aliveAtDusk = make(map[int64]bool)
	for _, p := range g.roster.Alive() {
		g.aliveAtDusk[p.ID()] = true
	}

	g.memory.Reset()
	g.runNightHooks(ctx, true)
	g.window(ctx, g.config.NightTime, nil, func(ev gateway.Event) bool {
		if ev.Kind == gateway.EventMessage {
			g.dispatchNightMessage(ctx, ev.Message)
		}
		return true
	})
	g.runNightHooks(ctx, false)
	return nil
}

// dispatchNightMessage routes a message to its author's role handler,
// provided the author is alive and posted in the role's action channel.
// The handler's returned decision is written back to Memory so later
// hooks (and the Escort's erasure) all see one authoritative copy.
func (g *Game) dispatchNightMessage(ctx context.Context, msg *gateway.Message) {
	p := g.roster.Get(msg.Author.ID)
	if p == nil || p.Dead() {
		return
	}
	hooks := roleHookTable[p.Role]
	if hooks.onMessage == nil {
		return
	}
	a := &actionContext{ctx: ctx, game: g, player: p, message: msg}
	if ch := a.channel(); ch == nil || msg.Channel != ch.ID() {
		return
	}
	state := hooks.onMessage(a, g.roleState(p))
	if key, ok := p.Role.DecisionKey(p); ok && state != nil {
		g.memory.Set(key, state)
	}
}

// roleState reads the player's (or their group's) current decision.
func (g *Game) roleState(p *Player) any {
	key, ok := p.Role.DecisionKey(p)
	if !ok {
		return nil
	}
	v, _ := g.memory.Get(key)
	return v
}

// runNightHooks fires every living role's begin or end hook in strictly
// descending priority order. Grouped roles fire once per group, through
// their first living member.
func (g *Game) runNightHooks(ctx context.Context, begin bool) {
	type firing struct {
		priority int
		player   *Player
	}
	var firings []firing
	grouped := make(map[Role]bool)
	for _, p := range g.roster.Alive() {
		hooks := roleHookTable[p.Role]
		var hook func(*actionContext, any)
		var priority int
		if begin {
			hook, priority = hooks.onNightBegin, hooks.beginPriority
		} else {
			hook, priority = hooks.onNightEnd, hooks.endPriority
		}
		if hook == nil {
			continue
		}
		if p.Role.Grouped() {
			if grouped[p.Role] {
				continue
			}
			grouped[p.Role] = true
		}
		firings = append(firings, firing{priority, p})
	}
	sort.SliceStable(firings, func(i, j int) bool {
		return firings[i].priority > firings[j].priority
	})

	for _, f := range firings {
		if ctx.Err() != nil {
			return
		}
		hooks := roleHookTable[f.player.Role]
		a := &actionContext{ctx: ctx, game: g, player: f.player}
		if begin {
			hooks.onNightBegin(a, g.roleState(f.player))
		} else {
			hooks.onNightEnd(a, g.roleState(f.player))
		}
	}
}

func (g *Game) revealNightDeaths(ctx context.Context) {
	for _, p := range g.roster.Dead() {
		if !g.aliveAtDusk[p.ID()] {
			continue
		}
		g.say(ctx, g.gameChat, render(msgFoundDead, "{victim}", p.Name()))
		g.revealDeath(ctx, p)
	}
}

// revealDeath shows the player's will (once, here) and their role, and
// refreshes the pinned listing.
func (g *Game) revealDeath(ctx context.Context, p *Player) {
	if p.Will != "" {
		g.say(ctx, g.gameChat, p.Name()+" left a will:\n"+p.Will)
	}
	g.say(ctx, g.gameChat, render(msgTheyRole, "{role}", p.Role.String()))
	g.refreshListing(ctx)
}

func (g *Game) checkWin() error {
	switch {
	case g.roster.AllMafiaDead():
		return ErrTownWin
	case g.roster.AllTowniesDead():
		return ErrMafiaWin
	}
	return nil
}

// teardown announces the outcome, gives everyone a grace window with chat
// unlocked and deletes the area. All steps are best-effort; the delete
// must happen no matter how the game ended.
func (g *Game) teardown(ctx context.Context, cause error) {
	g.setPhase(PhaseOver)

	if g.gameChat != nil {
		switch {
		case errors.Is(cause, ErrTownWin):
			g.say(ctx, g.gameChat, render(msgTowniesWin))
			g.say(ctx, g.gameChat, render(msgCurrentlyAliveT,
				"{players}", commaListing(g.roster.AliveTownies())))
		case errors.Is(cause, ErrMafiaWin):
			g.say(ctx, g.gameChat, render(msgMafiaWin))
			g.say(ctx, g.gameChat, render(msgCurrentlyAliveM,
				"{players}", commaListing(g.roster.AliveMafia())))
		case g.wasThrown() || errors.Is(cause, context.Canceled):
			// the throw was already announced
		case cause != nil:
			g.say(ctx, g.gameChat, render(msgSomethingBroke, "{error}", cause.Error()))
		}

		g.unlockChat(ctx)
		g.say(ctx, g.gameChat, render(msgPlayerRoleList,
			"{players}", roleListing(g.roster.Players())))
		g.say(ctx, g.gameChat, render(msgThankYou))
		g.say(ctx, g.gameChat, render(msgGameOver,
			"{seconds}", strconv.Itoa(int(g.config.GraceTime/time.Second))))
		g.sleep(ctx, g.config.GraceTime)
	}

	if err := g.area.Delete(ctx); err != nil {
		g.log.Debug().Err(err).Msg("area teardown failed")
	}
	if g.invite != nil {
		if err := g.invite.Edit(ctx, render(msgGameOverInvite,
			"{players}", roleListing(g.roster.Players()))); err != nil {
			g.log.Debug().Err(err).Msg("final invite edit failed")
		}
	}
	g.log.Info().Msg("game over")
}

// pump is the single consumer of the game's event subscription. Every
// event first passes through the ambient handlers (wills, abandonment),
// then through whichever window handler is currently installed.
func (g *Game) pump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-g.sub.Events():
			if !ok {
				// subscription closed during teardown
				return
			}
			g.handleAmbient(ctx, ev)
			g.mu.Lock()
			h := g.handler
			g.mu.Unlock()
			if h != nil {
				h(ev)
			}
		}
	}
}

func (g *Game) handleAmbient(ctx context.Context, ev gateway.Event) {
	switch ev.Kind {
	case gateway.EventMessage:
		g.handleWill(ctx, ev.Message)
	case gateway.EventMemberJoined:
		g.tagJoiner(ctx, *ev.Member)
	case gateway.EventMemberLeft:
		g.handleDeparture(ctx, *ev.Member)
	}
}

// tagJoiner marks everyone entering the area: roster members as players,
// everyone else as spectators. Spectators may arrive at any point of the
// game.
func (g *Game) tagJoiner(ctx context.Context, u gateway.User) {
	tag := tagSpectator
	if p := g.roster.Get(u.ID); p != nil && p.Alive {
		tag = tagPlayer
	}
	if err := g.area.AssignTag(ctx, u, tag); err != nil {
		g.log.Warn().Err(err).Int64("user", u.ID).Str("tag", string(tag)).Msg("tagging failed")
	}
}

// handleWill records a living player's will, sent as "!will <text>" in
// their personal channel or privately, any time while they live.
func (g *Game) handleWill(ctx context.Context, msg *gateway.Message) {
	p := g.roster.Get(msg.Author.ID)
	if p == nil || p.Dead() {
		return
	}
	text, ok := basicCommand("!will", msg.Text)
	if !ok {
		return
	}
	if !msg.Direct && (p.Channel == nil || msg.Channel != p.Channel.ID()) {
		return
	}
	if !p.SetWill(text) {
		g.say(ctx, p.Channel, "Your will can be at most "+strconv.Itoa(willLimit)+" characters.")
		return
	}
	g.say(ctx, p.Channel, "Your will has been updated.")
}

// handleDeparture turns a living player leaving the area into a throw.
// This covers the filling step too: a participant who joins and walks
// out again would otherwise stall the game waiting for them.
func (g *Game) handleDeparture(ctx context.Context, u gateway.User) {
	phase := g.currentPhase()
	if phase != PhaseFilling && phase != PhaseStarted {
		return
	}
	p := g.roster.Get(u.ID)
	if p == nil || p.Dead() {
		return
	}

	g.mu.Lock()
	if g.thrown {
		g.mu.Unlock()
		return
	}
	g.thrown = true
	g.mu.Unlock()

	g.log.Info().Str("player", p.Name()).Msg("game thrown")
	g.unlockChat(ctx)
	g.say(ctx, g.gameChat, render(msgGameThrown, "{thrower}", p.Name()))
	g.cancel()
}

// window runs one timed phase. Events arriving while it is open are fed
// to onEvent (nil means just wait out the clock); returning false closes
// the window early. Windows of ten seconds or more announce 10s and 5s
// warnings to warn, when given.
func (g *Game) window(ctx context.Context, d time.Duration, warn gateway.Channel, onEvent func(gateway.Event) bool) {
	done := make(chan struct{})
	var once sync.Once
	if onEvent != nil {
		g.setHandler(func(ev gateway.Event) {
			if !onEvent(ev) {
				once.Do(func() { close(done) })
			}
		})
		defer g.setHandler(nil)
	}

	remaining := d
	if warn != nil && d >= 10*time.Second {
		for _, checkpoint := range []time.Duration{10 * time.Second, 5 * time.Second} {
			if remaining <= checkpoint {
				continue
			}
			if !g.wait(ctx, remaining-checkpoint, done) {
				return
			}
			remaining = checkpoint
			g.say(ctx, warn, render(msgTimeRemaining,
				"{seconds}", strconv.Itoa(int(checkpoint/time.Second))))
		}
	}
	g.wait(ctx, remaining, done)
}

func (g *Game) wait(ctx context.Context, d time.Duration, done <-chan struct{}) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-done:
		return false
	case <-t.C:
		return true
	}
}

// sleep pauses for a narrative beat, or until the game is cancelled.
func (g *Game) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (g *Game) say(ctx context.Context, ch gateway.Channel, text string) {
	if ch == nil {
		return
	}
	if _, err := ch.Send(ctx, text); err != nil {
		g.log.Warn().Err(err).Str("channel", ch.Name()).Msg("send failed")
	}
}

func (g *Game) nack(ctx context.Context, ch gateway.Channel, messageID string) {
	if err := ch.React(ctx, messageID, "❌"); err != nil {
		g.log.Debug().Err(err).Msg("nack failed")
	}
}

func (g *Game) lockChat(ctx context.Context) {
	if g.gameChat == nil {
		return
	}
	if err := g.gameChat.SetTagAccess(ctx, gateway.TagEveryone, gateway.AccessReadOnly); err != nil {
		g.log.Warn().Err(err).Msg("chat lock failed")
	}
}

func (g *Game) unlockChat(ctx context.Context) {
	if g.gameChat == nil {
		return
	}
	if err := g.gameChat.SetTagAccess(ctx, gateway.TagEveryone, gateway.AccessInherit); err != nil {
		g.log.Warn().Err(err).Msg("chat unlock failed")
	}
}

func (g *Game) refreshListing(ctx context.Context) {
	if g.listing == nil {
		return
	}
	if err := g.listing.Edit(ctx, g.listingText()); err != nil {
		g.log.Debug().Err(err).Msg("listing refresh failed")
	}
}

func (g *Game) listingText() string {
	var b strings.Builder
	b.WriteString("Players:\n")
	for _, p := range g.roster.Players() {
		if p.Dead() {
			b.WriteString("- " + p.Name() + " (dead, was " + p.Role.String() + ")\n")
		} else {
			b.WriteString("- " + p.Name() + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func roleListing(players []*Player) string {
	lines := make([]string, len(players))
	for i, p := range players {
		lines[i] = "- " + p.Name() + ": " + p.Role.String()
	}
	return strings.Join(lines, "\n")
}

func (g *Game) setHandler(h func(gateway.Event)) {
	g.mu.Lock()
	g.handler = h
	g.mu.Unlock()
}

func (g *Game) setPhase(p Phase) {
	g.mu.Lock()
	g.phase = p
	g.mu.Unlock()
}

func (g *Game) currentPhase() Phase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

func (g *Game) setDay(day int) {
	g.mu.Lock()
	g.day = day
	g.mu.Unlock()
}

// Day returns the current day counter.
func (g *Game) Day() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.day
}

func (g *Game) wasThrown() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.thrown
}

// Creator returns who opened the lobby.
func (g *Game) Creator() gateway.User { return g.creator }

// Abort cancels the game wherever it is; a lobby just closes, a running
// match proceeds straight to teardown.
func (g *Game) Abort() {
	g.mu.Lock()
	cancel := g.cancel
	g.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
