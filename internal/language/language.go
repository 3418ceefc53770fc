// Package language defines the closed set of languages the relay serves.
package language

// Code is a supported language code. Only the codes returned by All are
// valid; anything else is rejected at the configuration or webhook boundary.
type Code string

const (
	Hebrew  Code = "he"
	English Code = "en"
	Spanish Code = "es"
)

// All returns every supported language in fixed iteration order. Delivery
// order per article follows this order.
func All() []Code {
	return []Code{Hebrew, English, Spanish}
}

// Valid reports whether c is one of the supported codes.
func Valid(c Code) bool {
	switch c {
	case Hebrew, English, Spanish:
		return true
	}
	return false
}

// Targets returns every supported language except src.
func Targets(src Code) []Code {
	targets := make([]Code, 0, 2)
	for _, c := range All() {
		if c != src {
			targets = append(targets, c)
		}
	}
	return targets
}

func (c Code) Name() string {
	switch c {
	case Hebrew:
		return "Hebrew"
	case English:
		return "English"
	case Spanish:
		return "Spanish"
	}
	return "Unknown"
}

func (c Code) Emoji() string {
	switch c {
	case Hebrew:
		return "🇮🇱"
	case English:
		return "🇺🇸"
	case Spanish:
		return "🇪🇸"
	}
	return "🏳️"
}
