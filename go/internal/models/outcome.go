package models

import "sort"

// Outcome summarises an ended game from the requesting player's side.
type Outcome struct {
	Winner    Faction `json:"winner"`
	PlayerWon bool    `json:"player_won"`
}

// GameOutcome reports the result once the game has ended. Werewolves win for
// werewolf players, villagers win for everyone else.
func GameOutcome(game *GameSnapshot, self *PlayerPrivate) (Outcome, bool) {
	if game == nil || game.Phase != PhaseEnded || game.Winner == nil {
		return Outcome{}, false
	}
	out := Outcome{Winner: *game.Winner}
	if self != nil {
		isWolf := self.Role == RoleWerewolf
		out.PlayerWon = (out.Winner == FactionWerewolves) == isWolf
	}
	return out, true
}

// PackVote is one ally's current night vote with names resolved.
type PackVote struct {
	AllyID     string `json:"ally_id"`
	AllyName   string `json:"ally_name"`
	TargetID   string `json:"target_id"`
	TargetName string `json:"target_name"`
}

// PackVotes resolves the faction's coordination votes against the roster,
// ordered by ally name.
func PackVotes(game *GameSnapshot, self *PlayerPrivate) []PackVote {
	if self == nil || len(self.PackVotes) == 0 {
		return nil
	}
	votes := make([]PackVote, 0, len(self.PackVotes))
	for allyID, targetID := range self.PackVotes {
		votes = append(votes, PackVote{
			AllyID:     allyID,
			AllyName:   game.PlayerName(allyID),
			TargetID:   targetID,
			TargetName: game.PlayerName(targetID),
		})
	}
	sort.Slice(votes, func(i, j int) bool {
		if votes[i].AllyName != votes[j].AllyName {
			return votes[i].AllyName < votes[j].AllyName
		}
		return votes[i].AllyID < votes[j].AllyID
	})
	return votes
}
