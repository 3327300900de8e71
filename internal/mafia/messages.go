package mafia

import (
	"math/rand"
	"strings"
)

// Message is a template with one or more equivalent variants; rendering
// picks one at random so repeated announcements don't read robotic.
type Message []string

// render picks a variant and substitutes "{placeholder}", value pairs.
func render(m Message, kv ...string) string {
	text := m[rand.Intn(len(m))]
	if len(kv) == 0 {
		return text
	}
	return strings.NewReplacer(kv...).Replace(text)
}

// userListing formats players one per line.
func userListing(players []*Player) string {
	names := make([]string, len(players))
	for i, p := range players {
		names[i] = "- " + p.Name()
	}
	return strings.Join(names, "\n")
}

// commaListing formats players on a single line.
func commaListing(players []*Player) string {
	names := make([]string, len(players))
	for i, p := range players {
		names[i] = p.Name()
	}
	return strings.Join(names, ", ")
}

var (
	msgLobbyStarting = Message{"Game is starting! Good luck."}
	msgLobbyInvite   = Message{
		"{mentions}: The game is starting!\n\nJoin here: {invite}\n" +
			"(Anyone can join! You'll be a spectator if you didn't join the lobby earlier.)",
	}
	msgFillingProgress = Message{"Waiting for these players to join:\n{waiting_on}"}

	msgGameStart = Message{"{mentions}: Welcome to Mafia! The game is about to begin."}
	msgTutorial  = Message{
		"It's the first day, so take a moment to get to know everyone. " +
			"There are {mafia_n} mafia among you. When night falls, they pick their first victim...",
	}
	msgDayAnnouncement   = Message{"It is now day {day}."}
	msgNightAnnouncement = Message{"It is now night {day}."}
	msgNightFlavor       = Message{
		"The town sleeps... but not everyone.",
		"Darkness falls and doors are bolted shut.",
		"The streets empty out. Somewhere, a plan is made.",
	}

	msgMafiaGreet = Message{
		"everyone: Hello, mafia! Plan out who to kill each night in this channel.",
		"everyone: Greetings, mafia! Plan out who to kill each night in this channel.",
	}

	msgRoleGreetings = map[Role]Message{
		RoleInnocent: {"You are Innocent! Your goal is to survive and hang the mafia."},
		RoleInvestigator: {
			"Hello there, Investigator! You can visit someone's house every night " +
				"and determine their suspiciousness. This is vital to defeating the mafia!",
		},
		RoleDoctor: {
			"Hello, Doctor! At night, you'll be able to heal someone and prevent " +
				"their death if they're attacked.",
		},
		RoleEscort: {
			"Hello, Escort! At night, you can distract someone and stop whatever " +
				"they were planning to do.",
		},
		RoleMedium: {
			"Hello, Medium! At night, you'll be able to talk to the dead. " +
				"Keep in mind that you can only do this once per game. Be smart!",
		},
	}

	msgPickPrompt = map[Role]Message{
		RoleMafia: {
			"Who will you kill tonight? Type !kill and a name. Your options:\n{targets}",
			"Pick tonight's victim with !kill and a name. Your options:\n{targets}",
		},
		RoleDoctor: {
			"Who will you heal tonight? Type !heal and a name. Your options:\n{targets}",
		},
		RoleEscort: {
			"Who will you distract tonight? Type !block and a name. Your options:\n{targets}",
		},
		RoleInvestigator: {
			"Who will you visit tonight? Type !visit and a name. Your options:\n{targets}",
		},
		RoleMedium: {
			"Type !seance to open a channel to the dead. You can only do this once per game!",
		},
	}

	msgPickResponse = map[Role]Message{
		RoleMafia: {
			"{target} will be killed tonight.",
			"OK, {target} dies tonight.",
		},
		RoleDoctor: {
			"You'll heal {target} tonight.",
			"OK, you'll watch over {target} tonight.",
		},
		RoleEscort: {
			"You'll distract {target} tonight.",
		},
		RoleInvestigator: {
			"You'll visit {target} tonight.",
			"OK, paying {target} a visit tonight.",
		},
	}

	msgMafiaFailure = Message{
		"Someone prevented {target}'s death!",
		"{target} managed to survive your attack!",
		"{target} was healed!",
	}
	msgMafiaSuccess = Message{
		"{target} was killed!",
		"{target} is now dead.",
		"{target}, rest in peace.",
	}

	msgDoctorYouWereSaved = Message{
		"Your life was saved by a doctor!",
		"A doctor saved your life!",
	}
	msgDoctorHealed = Message{
		"You have saved {target}'s life!",
		"You prevented {target}'s death!",
		"{target} was saved!",
	}
	msgDoctorNoop = Message{
		"{target} wasn't attacked, so nothing happened.",
		"Nothing happened! {target} wasn't attacked.",
	}

	msgEscortResult = Message{
		"You kept {target} busy all night.",
		"{target} never made it out the door tonight.",
	}

	msgInvestigatorSuspicious = Message{"Your target is suspicious."}
	msgInvestigatorClean      = Message{"You find nothing strange with your target."}

	msgMediumSeance = Message{
		"You light the candles and reach into the beyond...",
	}
	msgMediumAlreadySeanced = Message{
		"You have already used your seance this game.",
	}
	msgMediumSeanceAnnouncement = Message{
		"{medium} is listening in from the other side...",
	}

	msgFoundDead = Message{
		"{victim} was found dead in their home last night!",
		"The town wakes to terrible news: {victim} is dead!",
	}
	msgTheyRole = Message{"They were the {role}."}

	msgDiscussionTime = Message{
		"Discussion time! Talk amongst yourselves about anything suspicious that happened last night.",
	}

	msgVotingTime = Message{
		"Voting time! You have {seconds} seconds to vote for someone to put on trial " +
			"with !vote and a name. {votes} votes are required.\n\nAlive players:\n{players}",
	}
	msgTimeRemaining   = Message{"{seconds} seconds remaining!"}
	msgVotedFor        = Message{"{voter} voted for {target}."}
	msgAlreadyVotedFor = Message{"{voter}: You already voted for {target}."}
	msgVotesEntry      = Message{"{votes} - {target}"}
	msgVotingStalemate = Message{
		"The town couldn't agree on a suspect. Maybe tomorrow?",
	}
	msgTooManyTrials = Message{
		"Three trials and no verdict. The town gives up for today.",
	}

	msgPutOnTrial = Message{
		"{player}, you stand accused. What do you have to say for yourself?",
	}
	msgJudgementPrompt = Message{
		"{mentions}: Is {player} guilty or innocent? Vote with !guilty or !innocent " +
			"in your own channel or privately. You may abstain by staying silent.",
	}
	msgJudgementVote         = Message{"Your vote: {judgement}."}
	msgJudgementVotePublic   = Message{"{player} has cast their judgement."}
	msgJudgementVoteChanged  = Message{"{player} has changed their judgement."}
	msgJudgementTie          = Message{"The vote is tied. {player} walks free."}
	msgJudgementInnocent     = Message{"The town finds {player} innocent. They walk free."}
	msgLynchLastWordsPrompt  = Message{"{player}, any last words?"}
	msgRestInPeace           = Message{"Rest in peace, {player}."}

	msgGameThrown = Message{
		"{thrower} abandoned the game! That's a throw. Game over, everyone.",
	}
	msgSomethingBroke = Message{
		"Something broke while running the game: {error}\nThe game has to end here, sorry.",
	}
	msgMafiaWin         = Message{"The mafia have taken over the town. Mafia win!"}
	msgTowniesWin       = Message{"All mafia have been eliminated. Town wins!"}
	msgCurrentlyAliveM  = Message{"Surviving mafia: {players}"}
	msgCurrentlyAliveT  = Message{"Surviving townies: {players}"}
	msgThankYou         = Message{"Thanks for playing!"}
	msgGameOver         = Message{"The game is over! This area self-destructs in {seconds} seconds."}
	msgGameOverInvite   = Message{"The game has ended. Final roles:\n{players}"}
	msgPlayerRoleList   = Message{"Roles in this game:\n{players}"}
)
