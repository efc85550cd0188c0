package character

import "github.com/KirkDiggler/grimoire/internal/rules"

const (
	ChargeLuck   = "luck"
	ChargeChrono = "chrono"

	defaultHitDie = 6
)

// DefaultState is the sheet a session starts from: a level 4 wizard.
func DefaultState() *State {
	s := &State{
		Name:  "Wizard",
		Level: 4,
		HP:    HP{Current: 26, Max: 26},
		Abilities: map[Ability]int{
			AbilityStrength:     10,
			AbilityDexterity:    14,
			AbilityConstitution: 14,
			AbilityIntelligence: 18,
			AbilityWisdom:       12,
			AbilityCharisma:     10,
		},
		Skills: []Skill{
			{Name: "Acrobatics", Ability: AbilityDexterity},
			{Name: "Arcana", Ability: AbilityIntelligence, Proficient: true},
			{Name: "Athletics", Ability: AbilityStrength},
			{Name: "Stealth", Ability: AbilityDexterity, Proficient: true},
			{Name: "Animal Handling", Ability: AbilityWisdom},
			{Name: "Sleight of Hand", Ability: AbilityDexterity, Proficient: true},
			{Name: "History", Ability: AbilityIntelligence, Proficient: true},
			{Name: "Intimidation", Ability: AbilityCharisma},
			{Name: "Investigation", Ability: AbilityIntelligence, Proficient: true, Expertise: true},
			{Name: "Medicine", Ability: AbilityWisdom},
			{Name: "Nature", Ability: AbilityIntelligence, Proficient: true},
			{Name: "Perception", Ability: AbilityWisdom},
			{Name: "Insight", Ability: AbilityWisdom, Proficient: true},
			{Name: "Persuasion", Ability: AbilityCharisma},
			{Name: "Religion", Ability: AbilityIntelligence, Proficient: true},
			{Name: "Performance", Ability: AbilityCharisma},
			{Name: "Survival", Ability: AbilityWisdom},
			{Name: "Deception", Ability: AbilityCharisma},
		},
		PreparedSpells: []string{
			"fire-bolt", "mage-hand", "minor-illusion", "shield",
			"mage-armor", "magic-missile", "chronal-shift",
		},
		KnownSpells: []string{
			"fire-bolt", "mage-hand", "minor-illusion", "message", "true-strike",
			"thunderwave", "chromatic-orb", "comprehend-languages", "detect-magic",
			"feather-fall", "identify", "grease", "shield", "mage-armor", "magic-missile",
			"mirror-image", "scorching-ray",
			"chronal-shift", "lucky",
		},
		DailyFreeCast: FreeCast{Available: true},
		HitDice:       HitDice{DieSize: defaultHitDie},
		Charges: []Charge{
			{Name: ChargeLuck, Current: 2, Max: 2},
			{Name: ChargeChrono, Current: 2, Max: 2},
		},
	}
	s.rederive()
	return s
}

// normalize clamps a caller supplied state into its invariants.
func (s *State) normalize() {
	s.Level = rules.ClampLevel(s.Level)
	if s.Abilities == nil {
		s.Abilities = make(map[Ability]int, len(Abilities))
	}
	for _, a := range Abilities {
		if _, ok := s.Abilities[a]; !ok {
			s.Abilities[a] = 10
		}
		s.Abilities[a] = rules.ClampAbilityScore(s.Abilities[a])
	}
	if s.HP.Max < 0 {
		s.HP.Max = 0
	}
	s.HP.Current = max(0, min(s.HP.Current, s.HP.Max))
	s.HP.Temp = max(0, s.HP.Temp)
	if s.HitDice.DieSize < 1 {
		s.HitDice.DieSize = defaultHitDie
	}
	s.HitDice.Used = max(0, s.HitDice.Used)
	for i := range s.Charges {
		s.Charges[i].Max = max(0, s.Charges[i].Max)
		s.Charges[i].Current = max(0, min(s.Charges[i].Current, s.Charges[i].Max))
	}
	s.DeathSaves.Successes = max(0, min(s.DeathSaves.Successes, maxDeathSaves))
	s.DeathSaves.Failures = max(0, min(s.DeathSaves.Failures, maxDeathSaves))
	s.rederive()
}
