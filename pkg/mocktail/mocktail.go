// Package mocktail composes whimsical mocktail recipes from an ingredient
// catalog.
//
// A recipe picks three distinct ingredients at random: a fizzy base (anything
// whose name contains "seltzer" or "juice"), a citrus (anything containing
// "lime", "lemon" or "orange") and a twist drawn from whatever is left. The
// picks are rendered into a fixed six-line script.
//
// Repeated calls with identical inputs may produce different recipes. Use
// [WithRand] to make the choice reproducible in tests.
package mocktail

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
)

var (
	// ErrNoEligibleBase is returned when no ingredient can serve as the base.
	ErrNoEligibleBase = errors.New("mocktail: no eligible base ingredient (needs seltzer or juice)")

	// ErrNoEligibleCitrus is returned when no ingredient can serve as the citrus.
	ErrNoEligibleCitrus = errors.New("mocktail: no eligible citrus ingredient (needs lime, lemon or orange)")

	// ErrInsufficientIngredients is returned when the catalog cannot supply
	// three distinct ingredients for base, citrus and twist.
	ErrInsufficientIngredients = errors.New("mocktail: insufficient ingredients for base, citrus and twist")
)

var (
	baseKeywords   = []string{"seltzer", "juice"}
	citrusKeywords = []string{"lime", "lemon", "orange"}
)

// Recipe is a composed mocktail. It is created per call and never mutated.
type Recipe struct {
	Theme  string
	Base   string
	Citrus string
	Twist  string

	// Steps holds the six instruction lines in order.
	Steps []string
}

// String joins the steps into a multi-line text block.
func (r *Recipe) String() string {
	return strings.Join(r.Steps, "\n")
}

// Composer draws recipes. The zero value is not usable; call [New].
type Composer struct {
	intN func(n int) int
}

// Option configures a [Composer].
type Option func(*Composer)

// WithRand makes the composer draw from r instead of the process-wide
// source. A *rand.Rand is not safe for concurrent use, so a composer built
// this way must not be shared between goroutines.
func WithRand(r *rand.Rand) Option {
	return func(c *Composer) {
		c.intN = r.IntN
	}
}

// New returns a Composer. Without options it uses the process-wide
// math/rand/v2 source and is safe for concurrent use.
func New(opts ...Option) *Composer {
	c := &Composer{intN: rand.IntN}
	for _, o := range opts {
		o(c)
	}
	return c
}

var defaultComposer = New()

// Compose draws a recipe for theme from ingredients using the process-wide
// random source. See [Composer.Compose].
func Compose(theme string, ingredients []string) (*Recipe, error) {
	return defaultComposer.Compose(theme, ingredients)
}

// Compose picks a base, a citrus and a twist from ingredients and renders
// them with theme into a six-line recipe. The three picks are pairwise
// distinct. Blank and duplicate catalog entries are ignored.
func (c *Composer) Compose(theme string, ingredients []string) (*Recipe, error) {
	catalog := usable(ingredients)

	bases := filter(catalog, func(s string) bool { return containsAny(s, baseKeywords) })
	if len(bases) == 0 {
		return nil, ErrNoEligibleBase
	}
	citrus := filter(catalog, func(s string) bool { return containsAny(s, citrusKeywords) })
	if len(citrus) == 0 {
		return nil, ErrNoEligibleCitrus
	}

	// An ingredient like "Lime seltzer" qualifies for both roles. Only bases
	// that leave some other citrus to pick are drawable.
	viable := filter(bases, func(b string) bool {
		for _, cand := range citrus {
			if cand != b {
				return true
			}
		}
		return false
	})
	if len(viable) == 0 {
		return nil, fmt.Errorf("%w: base and citrus cannot be distinct", ErrInsufficientIngredients)
	}
	base := c.pick(viable)

	pickedCitrus := c.pick(without(citrus, base))

	twists := without(without(catalog, base), pickedCitrus)
	if len(twists) == 0 {
		return nil, fmt.Errorf("%w: nothing left for the twist", ErrInsufficientIngredients)
	}
	twist := c.pick(twists)

	return &Recipe{
		Theme:  theme,
		Base:   base,
		Citrus: pickedCitrus,
		Twist:  twist,
		Steps:  render(theme, base, pickedCitrus, twist),
	}, nil
}

func (c *Composer) pick(from []string) string {
	return from[c.intN(len(from))]
}

func render(theme, base, citrus, twist string) []string {
	return []string{
		"🔸 Start with a cold glass, chilled like your best ideas.",
		fmt.Sprintf("🔸 Pour 3 oz of %s as your base. Fizzy foundations matter.", base),
		fmt.Sprintf("🔸 Add a squeeze of %s for a zesty punch.", citrus),
		fmt.Sprintf("🔸 Stir in a dash of %s and trust your instincts here.", twist),
		"🔸 Optional: garnish with something that sparks joy.",
		fmt.Sprintf("🔸 Name your creation: *%s*. Serve with flair.", theme),
	}
}

// usable drops blank entries and duplicates, keeping first-seen order.
func usable(ingredients []string) []string {
	seen := make(map[string]struct{}, len(ingredients))
	out := make([]string, 0, len(ingredients))
	for _, in := range ingredients {
		if strings.TrimSpace(in) == "" {
			continue
		}
		if _, dup := seen[in]; dup {
			continue
		}
		seen[in] = struct{}{}
		out = append(out, in)
	}
	return out
}

func containsAny(s string, keywords []string) bool {
	lower := strings.ToLower(s)
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func filter(in []string, keep func(string) bool) []string {
	var out []string
	for _, s := range in {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

func without(in []string, drop string) []string {
	return filter(in, func(s string) bool { return s != drop })
}
