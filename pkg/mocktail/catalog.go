package mocktail

// DefaultCatalog returns the stock mocktail station ingredients. Each call
// returns a fresh slice that the caller may modify.
func DefaultCatalog() []string {
	return []string{
		"Pineapple seltzer",
		"Lime seltzer",
		"Iced coffee",
		"Limes",
		"Lemons",
		"Cranberry juice",
		"Watermelon lemonade seltzer",
		"Black cherry vanilla seltzer",
		"Plain seltzer",
		"Oranges",
		"Jalapeno limeade",
		"Margarita mix",
	}
}
