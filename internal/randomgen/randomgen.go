// Package randomgen produces random person records that pass every field validator. It feeds the
// load generator and the integration tests.
package randomgen

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"gitlab.com/dirk.krummacker/person-directory/pkg/model"
)

var lastNames = []string{
	"Diop", "Fall", "Ndiaye", "Sow", "Ba", "Gueye", "Sarr", "Faye", "Diallo", "Cissé",
	"Mbaye", "Kane", "Thiam", "Seck", "Niang", "Camara", "Touré", "Wade", "Ndour", "Sy",
}

var firstNames = []string{
	"Fatou", "Moussa", "Aminata", "Ousmane", "Awa", "Mamadou", "Khady", "Ibrahima", "Aïssatou",
	"Cheikh", "Mariama", "Abdoulaye", "Ndèye", "Modou", "Coumba", "Serigne", "Astou", "Babacar",
}

var streets = []string{
	"Rue 10, Médina, Dakar", "Avenue Cheikh Anta Diop, Dakar", "Cité Keur Gorgui, Dakar",
	"Quartier Escale, Saint-Louis", "Route de Khombole, Thiès", "Sicap Liberté 6, Dakar",
}

// Generator draws random values from its own source. It is not safe for concurrent use.
type Generator struct {
	rng *rand.Rand
	now func() time.Time
}

// New returns a generator seeded with seed. The same seed yields the same sequence.
func New(seed uint64) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), now: time.Now}
}

// PickLastName returns one of a fixed set of last names.
func (g *Generator) PickLastName() string {
	return lastNames[g.rng.IntN(len(lastNames))]
}

// PickFirstName returns one of a fixed set of first names.
func (g *Generator) PickFirstName() string {
	return firstNames[g.rng.IntN(len(firstNames))]
}

// Phone returns a canonical 9 digit mobile number starting with 70 to 78.
func (g *Generator) Phone() string {
	return fmt.Sprintf("7%d%07d", g.rng.IntN(9), g.rng.IntN(10_000_000))
}

// Address returns a street of a fixed set, prefixed with a house number.
func (g *Generator) Address() string {
	return fmt.Sprintf("%d %s", 1+g.rng.IntN(200), streets[g.rng.IntN(len(streets))])
}

// BirthDate returns a date for an age between 18 and 80 years.
func (g *Generator) BirthDate() model.Date {
	t := g.now().AddDate(-18, 0, -g.rng.IntN(62*365))
	return model.NewDate(t.Year(), t.Month(), t.Day())
}

// Person returns a new, unpersisted record with every field set.
func (g *Generator) Person() model.Person {
	birth := g.BirthDate()
	return model.Person{
		LastName:  g.PickLastName(),
		FirstName: g.PickFirstName(),
		BirthDate: &birth,
		Address:   model.StringPtr(g.Address()),
		Phone:     model.StringPtr(g.Phone()),
	}
}

var (
	sharedMu sync.Mutex
	shared   = New(uint64(time.Now().UnixNano()))
)

// PickLastName returns a random last name from the package generator.
func PickLastName() string {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	return shared.PickLastName()
}

// PickFirstName returns a random first name from the package generator.
func PickFirstName() string {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	return shared.PickFirstName()
}

// RandomPerson returns a record from the package generator.
func RandomPerson() model.Person {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	return shared.Person()
}
