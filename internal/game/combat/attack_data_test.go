package combat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cory-johannsen/nightfall/internal/game/combat"
)

func TestAttackData_Resolve(t *testing.T) {
	alive := combat.Subject{Alive: true}
	deadTown := combat.Subject{Alive: false, GraveTownAligned: true}
	deadOther := combat.Subject{Alive: false}

	assert.Equal(t, combat.OutcomeAttack, combat.Attack(false).Resolve(alive))
	assert.Equal(t, combat.OutcomeNoEffect, combat.Attack(false).Resolve(deadTown))
	assert.Equal(t, combat.OutcomeUnblockable, combat.Wildcard().Resolve(alive))
	assert.Equal(t, combat.OutcomeAttack, combat.AttackDead().Resolve(deadOther))
	assert.Equal(t, combat.OutcomeNoEffect, combat.AttackDead().Resolve(alive))
	assert.Equal(t, combat.OutcomeNoEffect, combat.NoAttack().Resolve(alive))
}

func TestAttackData_TownOnlyRevive(t *testing.T) {
	r := combat.Revive(true)
	assert.True(t, r.WouldHelpTownIfRevived)
	assert.Equal(t, combat.OutcomeRevive, r.Resolve(combat.Subject{GraveTownAligned: true}))
	assert.Equal(t, combat.OutcomeNoEffect, r.Resolve(combat.Subject{}))
	assert.Equal(t, combat.OutcomeRevive, combat.Revive(false).Resolve(combat.Subject{}))
	assert.Equal(t, combat.OutcomeNoEffect, r.Resolve(combat.Subject{Alive: true, GraveTownAligned: true}))
}

func TestAttackData_NecroPossess(t *testing.T) {
	assert.Equal(t, combat.OutcomePossessCorpse, combat.NecroPossess(false).Resolve(combat.Subject{}))
	assert.Equal(t, combat.OutcomeNoEffect, combat.NecroPossess(true).Resolve(combat.Subject{}))
}

func TestAttackData_IsAttack(t *testing.T) {
	assert.True(t, combat.Attack(true).IsAttack())
	assert.True(t, combat.Wildcard().IsAttack())
	assert.False(t, combat.Revive(true).IsAttack())
}

func TestAttackData_ConstructorsSetKind(t *testing.T) {
	assert.Equal(t, combat.KindNone, combat.NoAttack().Kind)
	assert.Equal(t, combat.KindAttack, combat.Attack(false).Kind)
	assert.True(t, combat.Attack(true).PossessImmune)
	assert.Equal(t, combat.KindAttackDead, combat.AttackDead().Kind)
	assert.True(t, combat.NecroPossess(true).TownOnly)
	assert.Equal(t, combat.KindRevive, combat.Revive(false).Kind)
	assert.False(t, combat.Revive(false).WouldHelpTownIfRevived)
	assert.Equal(t, combat.OutcomeNoEffect, combat.Wildcard().Resolve(combat.Subject{}))
}
