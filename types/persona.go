package types

// PersonaCategory groups personas in the library.
type PersonaCategory string

const (
	CategoryFamous PersonaCategory = "FAMOUS"
	CategoryExpert PersonaCategory = "EXPERT"
	CategoryAnime  PersonaCategory = "ANIME"
	CategoryCustom PersonaCategory = "CUSTOM"
)

// Persona describes one simulated participant. The expertise and
// communication style fields are generation input only; a persona is
// immutable once attached to a conversation roster.
type Persona struct {
	ID                 string          `json:"id" yaml:"id"`
	Name               string          `json:"name" yaml:"name"`
	Category           PersonaCategory `json:"category" yaml:"category"`
	Expertise          string          `json:"expertise" yaml:"expertise"`
	Traits             []string        `json:"traits,omitempty" yaml:"traits,omitempty"`
	CommunicationStyle string          `json:"communication_style" yaml:"communication_style"`
	Color              string          `json:"color,omitempty" yaml:"color,omitempty"`
	AvatarSeed         string          `json:"avatar_seed,omitempty" yaml:"avatar_seed,omitempty"`
}

// Valid reports whether the persona carries the fields generation needs.
func (p Persona) Valid() bool {
	return p.ID != "" && p.Name != "" && p.Expertise != "" && p.CommunicationStyle != ""
}
