// Package mixology provides the mocktail station tools:
//
//   - "get_available_ingredients": the ingredient catalog as a JSON array.
//   - "drink_generator": a whimsical recipe for a named drink, composed from
//     the given ingredients or, when none are given, from the catalog.
//
// The model is free to interpret the drink name literally, by vibe, or
// through flavor logic; the tools only supply ingredients and structure.
package mixology

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ltejedor/building-ai-agents/internal/mcp/tools"
	"github.com/ltejedor/building-ai-agents/pkg/mocktail"
	"github.com/ltejedor/building-ai-agents/pkg/provider/llm"
)

// Composer draws recipes. *mocktail.Composer satisfies it.
type Composer interface {
	Compose(theme string, ingredients []string) (*mocktail.Recipe, error)
}

type config struct {
	catalog  []string
	composer Composer
}

// Option configures the toolset.
type Option func(*config)

// WithCatalog replaces the default ingredient catalog.
func WithCatalog(ingredients []string) Option {
	return func(c *config) { c.catalog = append([]string(nil), ingredients...) }
}

// WithComposer replaces the recipe composer, typically with a seeded one in
// tests.
func WithComposer(comp Composer) Option {
	return func(c *config) { c.composer = comp }
}

type drinkArgs struct {
	Name        string   `json:"name"`
	Ingredients []string `json:"ingredients"`
}

// NewTools returns the mixology toolset.
func NewTools(opts ...Option) []tools.Tool {
	cfg := &config{catalog: mocktail.DefaultCatalog(), composer: mocktail.New()}
	for _, o := range opts {
		o(cfg)
	}

	return []tools.Tool{
		{
			Definition: llm.ToolDefinition{
				Name:        "get_available_ingredients",
				Description: "Returns a list of available mocktail ingredients.",
				Parameters:  tools.Object(map[string]any{}),
			},
			Handler:     listIngredients(cfg.catalog),
			DeclaredP50: 1,
			DeclaredMax: 5,
		},
		{
			Definition: llm.ToolDefinition{
				Name: "drink_generator",
				Description: "Given a mocktail name and list of ingredients, returns a fun recipe script. " +
					"The name can be interpreted literally, by vibe, or through flavor logic.",
				Parameters: tools.Object(map[string]any{
					"name": tools.String("A name or theme for the drink (e.g. 'Sunset Glow', 'Boss Energy')."),
					"ingredients": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "List of available ingredients. Defaults to the station's catalog.",
					},
				}, "name"),
			},
			Handler:     generateDrink(cfg),
			DeclaredP50: 1,
			DeclaredMax: 5,
		},
	}
}

func listIngredients(catalog []string) func(context.Context, string) (string, error) {
	return func(context.Context, string) (string, error) {
		out, err := json.Marshal(catalog)
		if err != nil {
			return "", fmt.Errorf("get_available_ingredients: %w", err)
		}
		return string(out), nil
	}
}

func generateDrink(cfg *config) func(context.Context, string) (string, error) {
	return func(_ context.Context, args string) (string, error) {
		var a drinkArgs
		if err := tools.DecodeArgs("drink_generator", args, &a); err != nil {
			return "", err
		}
		name := strings.TrimSpace(a.Name)
		if name == "" {
			return "", fmt.Errorf("drink_generator: name must not be empty")
		}
		ingredients := a.Ingredients
		if len(ingredients) == 0 {
			ingredients = cfg.catalog
		}
		recipe, err := cfg.composer.Compose(name, ingredients)
		if err != nil {
			return "", fmt.Errorf("drink_generator: %w", err)
		}
		return recipe.String(), nil
	}
}
