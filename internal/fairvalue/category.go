package fairvalue

import "strings"

// Category groups markets for fair value routing.
type Category string

const (
	CategoryPolitics  Category = "Politics"
	CategoryEconomics Category = "Economics"
	CategorySports    Category = "Sports"
	CategoryClimate   Category = "Climate"
	CategoryOther     Category = "Other"
)

var categoryKeywords = map[Category][]string{
	CategoryPolitics:  {"politics", "election", "president", "senate", "congress"},
	CategoryEconomics: {"cpi", "inflation", "gdp", "jobs", "unemployment", "fed"},
	CategorySports:    {"nfl", "nba", "mlb", "f1", "racing", "soccer"},
	CategoryClimate:   {"temperature", "weather", "climate"},
}

// Categorize infers a market's category from its title.
func Categorize(title string) Category {
	titleLower := strings.ToLower(title)
	for _, category := range []Category{CategoryPolitics, CategoryEconomics, CategorySports, CategoryClimate} {
		for _, keyword := range categoryKeywords[category] {
			if strings.Contains(titleLower, keyword) {
				return category
			}
		}
	}
	return CategoryOther
}
