package conclusion

// Participant is what the evaluator needs to know about one living player.
type Participant struct {
	// KeepsGameRunning is false for roles that never hold the game hostage.
	KeepsGameRunning bool
	WinCondition     WinCondition
	// UnresolvedWildcard is true while the player has not committed to a role.
	UnresolvedWildcard bool
}

// Evaluate decides whether the game is over given the living players.
//
// With no player keeping the game running the result is Draw. When every
// living player is an unresolved wildcard and there is more than one, the game
// continues. Otherwise the first candidate conclusion every keeper agrees with
// is returned.
//
// Postcondition: ok is false iff the game must continue.
func Evaluate(living []Participant) (result Conclusion, ok bool) {
	wildcards := 0
	for _, p := range living {
		if p.UnresolvedWildcard {
			wildcards++
		}
	}
	if wildcards > 1 && wildcards == len(living) {
		return 0, false
	}

	keepers := make([]Participant, 0, len(living))
	for _, p := range living {
		if p.KeepsGameRunning {
			keepers = append(keepers, p)
		}
	}
	if len(keepers) == 0 {
		return Draw, true
	}

	for _, c := range Candidates() {
		agreed := true
		for _, p := range keepers {
			if !p.WinCondition.AgreesWith(c) {
				agreed = false
				break
			}
		}
		if agreed {
			return c, true
		}
	}
	return 0, false
}
