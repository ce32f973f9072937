package combat

// AttackKind classifies what an ability does to the player it lands on.
type AttackKind int

const (
	KindNone AttackKind = iota
	KindAttack
	KindAttackDead
	KindNecroPossess
	KindRevive
	KindWildcard
)

// String returns the kind label.
func (k AttackKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindAttack:
		return "attack"
	case KindAttackDead:
		return "attack_dead"
	case KindNecroPossess:
		return "necro_possess"
	case KindRevive:
		return "revive"
	case KindWildcard:
		return "wildcard"
	default:
		return "unknown"
	}
}

// AttackData describes the effect category of an ability's visit.
//
// PossessImmune only applies to KindAttack. TownOnly only applies to
// KindNecroPossess and KindRevive.
type AttackData struct {
	Kind          AttackKind
	PossessImmune bool
	TownOnly      bool
	// WouldHelpTownIfRevived marks revive-class data whose success favours Town.
	WouldHelpTownIfRevived bool
}

// NoAttack is the data of an ability that does not attack.
func NoAttack() AttackData { return AttackData{Kind: KindNone} }

// Attack kills a living subject. possessImmune keeps possession from
// redirecting it.
func Attack(possessImmune bool) AttackData {
	return AttackData{Kind: KindAttack, PossessImmune: possessImmune}
}

// AttackDead targets a player who is already dead.
func AttackDead() AttackData { return AttackData{Kind: KindAttackDead} }

// NecroPossess controls a dead subject, restricted to Town graves when
// townOnly is set.
func NecroPossess(townOnly bool) AttackData {
	return AttackData{Kind: KindNecroPossess, TownOnly: townOnly}
}

// Revive brings a dead subject back, restricted to Town graves when townOnly
// is set.
func Revive(townOnly bool) AttackData {
	return AttackData{Kind: KindRevive, TownOnly: townOnly, WouldHelpTownIfRevived: townOnly}
}

// Wildcard lands on a living subject whatever its defense.
func Wildcard() AttackData { return AttackData{Kind: KindWildcard} }

// IsAttack reports whether the data is lethal on its own.
func (a AttackData) IsAttack() bool {
	return a.Kind == KindAttack || a.Kind == KindWildcard
}

// Subject is what AttackData needs to know about the player it lands on.
type Subject struct {
	Alive bool
	// GraveTownAligned is true when the subject's grave shows a Town role.
	GraveTownAligned bool
}

// Outcome is the result of applying AttackData to a Subject.
type Outcome int

const (
	OutcomeNoEffect Outcome = iota
	// OutcomeAttack means the caller must run the kill resolver.
	OutcomeAttack
	// OutcomeUnblockable means the subject dies regardless of defense.
	OutcomeUnblockable
	OutcomeRevive
	OutcomePossessCorpse
)

// Resolve converts attack data into the effect it has on subject.
// Wildcard always lands. Revive and NecroPossess only affect dead subjects and,
// when TownOnly, only subjects whose grave shows a Town role.
//
// Postcondition: Returns OutcomeNoEffect when no constraint is satisfied.
func (a AttackData) Resolve(subject Subject) Outcome {
	switch a.Kind {
	case KindAttack:
		if subject.Alive {
			return OutcomeAttack
		}
	case KindWildcard:
		if subject.Alive {
			return OutcomeUnblockable
		}
	case KindAttackDead:
		if !subject.Alive {
			return OutcomeAttack
		}
	case KindRevive:
		if !subject.Alive && (!a.TownOnly || subject.GraveTownAligned) {
			return OutcomeRevive
		}
	case KindNecroPossess:
		if !subject.Alive && (!a.TownOnly || subject.GraveTownAligned) {
			return OutcomePossessCorpse
		}
	}
	return OutcomeNoEffect
}
