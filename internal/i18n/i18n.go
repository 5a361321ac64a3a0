package i18n

// StarterPrompt is a tappable suggestion shown before the first message.
type StarterPrompt struct {
	Label  string `json:"label"`
	Prompt string `json:"prompt"`
}

// Catalog holds the widget strings for one language.
type Catalog struct {
	Greeting       string          `json:"greeting"`
	Placeholder    string          `json:"placeholder"`
	StarterPrompts []StarterPrompt `json:"starterPrompts"`
}

// DefaultLanguage is used when a requested language has no catalog.
const DefaultLanguage = "en"

var catalogs = map[string]Catalog{
	"en": {
		Greeting:    "Welcome to FarmerChat! Ask me about weather, planting advice, or irrigation.",
		Placeholder: "Ask about weather, planting, irrigation...",
		StarterPrompts: []StarterPrompt{
			{Label: "☀️ Weather Forecast", Prompt: "What is the weather forecast?"},
			{Label: "🌱 Planting Advice", Prompt: "Should I plant maize?"},
			{Label: "💧 Irrigation Schedule", Prompt: "Do I need to irrigate this week?"},
			{Label: "🌾 Farming Advisory", Prompt: "Give me farming recommendations for the next 2 weeks."},
		},
	},
	"sw": {
		Greeting:    "Karibu FarmerChat! Uliza kuhusu hali ya hewa, kupanda, au umwagiliaji.",
		Placeholder: "Uliza kuhusu hali ya hewa, kupanda, umwagiliaji...",
		StarterPrompts: []StarterPrompt{
			{Label: "🌤️ Hali ya Hewa", Prompt: "Hali ya hewa wiki hii ni vipi?"},
			{Label: "🌱 Kupanda", Prompt: "Je, nipande mahindi sasa?"},
			{Label: "💧 Umwagiliaji", Prompt: "Je, nimwagilie wiki hii?"},
			{Label: "🌾 Ushauri wa Kilimo", Prompt: "Nipe ushauri wa kilimo kwa wiki 2 zijazo."},
		},
	},
}

// Lookup returns the catalog for the language, falling back to English for
// unknown codes.
func Lookup(language string) Catalog {
	if c, ok := catalogs[language]; ok {
		return c
	}
	return catalogs[DefaultLanguage]
}

// Supported reports whether the language has its own catalog.
func Supported(language string) bool {
	_, ok := catalogs[language]
	return ok
}

// Languages lists the supported language codes.
func Languages() []string {
	return []string{"en", "sw"}
}
