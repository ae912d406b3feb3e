package compendium

// Ability is one of the six ability scores
type Ability string

// Abilities
const (
	AbilityStrength     Ability = "str"
	AbilityDexterity    Ability = "dex"
	AbilityConstitution Ability = "con"
	AbilityIntelligence Ability = "int"
	AbilityWisdom       Ability = "wis"
	AbilityCharisma     Ability = "cha"
)

// Abilities lists the abilities in sheet order
var Abilities = []Ability{
	AbilityStrength,
	AbilityDexterity,
	AbilityConstitution,
	AbilityIntelligence,
	AbilityWisdom,
	AbilityCharisma,
}

// Character is a generated character with its resolved kit
type Character struct {
	Name      string          `json:"name"`
	Level     int             `json:"level"`
	Abilities map[Ability]int `json:"abilities"`
	Items     []*Document     `json:"items"`
}

// Modifier is the ability modifier for a score
func Modifier(score int) int {
	// floor division so 9 gives -1
	d := score - 10
	if d < 0 {
		return (d - 1) / 2
	}
	return d / 2
}
