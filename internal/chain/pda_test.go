package chain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerivePDADeterministic(t *testing.T) {
	a := DerivePDA(ProgramID("titanProg111"), []byte("config"))
	b := DerivePDA(ProgramID("titanProg111"), []byte("config"))
	assert.Equal(t, a, b)
}

func TestDerivePDADiffersBySeed(t *testing.T) {
	prog := ProgramID("titanProg111")
	config := DerivePDA(prog, []byte("config"))
	player := DerivePDA(prog, []byte("player"), []byte("wallet123"))
	assert.NotEqual(t, config, player)
}

func TestDerivePDADiffersByProgram(t *testing.T) {
	a := DerivePDA(ProgramID("titanProg111"), []byte("config"))
	b := DerivePDA(ProgramID("gameProg222"), []byte("config"))
	assert.NotEqual(t, a, b)
}

func TestTitanPDADiffersByID(t *testing.T) {
	prog := ProgramID("titanProg111")
	a := TitanPDA(prog, 1)
	b := TitanPDA(prog, 2)
	assert.NotEqual(t, a, b)
}

func TestU64LELength(t *testing.T) {
	assert.Len(t, U64LE(42), 8)
}
