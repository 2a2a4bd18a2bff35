package mocktail

import (
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
)

func seeded(seed uint64) *Composer {
	return New(WithRand(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))))
}

func TestCompose_DefaultCatalogProperties(t *testing.T) {
	t.Parallel()

	catalog := DefaultCatalog()
	for seed := range uint64(200) {
		r, err := seeded(seed).Compose("Sunset Glow", catalog)
		if err != nil {
			t.Fatalf("seed %d: Compose: %v", seed, err)
		}

		if len(r.Steps) != 6 {
			t.Fatalf("seed %d: got %d steps, want 6", seed, len(r.Steps))
		}
		text := r.String()
		if got := strings.Count(text, "\n"); got != 5 {
			t.Errorf("seed %d: text has %d newlines, want 5", seed, got)
		}

		for label, want := range map[string]string{
			"theme":  r.Theme,
			"base":   r.Base,
			"citrus": r.Citrus,
			"twist":  r.Twist,
		} {
			if n := linesMentioning(r.Steps, want); n != 1 {
				t.Errorf("seed %d: %s %q mentioned on %d lines, want 1", seed, label, want, n)
			}
		}

		if r.Base == r.Citrus || r.Base == r.Twist || r.Citrus == r.Twist {
			t.Errorf("seed %d: picks not distinct: base=%q citrus=%q twist=%q", seed, r.Base, r.Citrus, r.Twist)
		}
		if !containsAny(r.Base, baseKeywords) {
			t.Errorf("seed %d: base %q is not a seltzer or juice", seed, r.Base)
		}
		if !containsAny(r.Citrus, citrusKeywords) {
			t.Errorf("seed %d: citrus %q is not a citrus", seed, r.Citrus)
		}
	}
}

func TestCompose_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		ingredients []string
		want        error
	}{
		{name: "single dual-role ingredient", ingredients: []string{"Lime seltzer"}, want: ErrInsufficientIngredients},
		{name: "no base", ingredients: []string{"Lemons", "Oranges"}, want: ErrNoEligibleBase},
		{name: "no citrus", ingredients: []string{"Plain seltzer", "Cranberry juice", "Mint"}, want: ErrNoEligibleCitrus},
		{name: "empty catalog", ingredients: nil, want: ErrNoEligibleBase},
		{name: "no twist left", ingredients: []string{"Plain seltzer", "Limes"}, want: ErrInsufficientIngredients},
		{name: "duplicates do not count twice", ingredients: []string{"Plain seltzer", "Limes", "Limes"}, want: ErrInsufficientIngredients},
		{name: "blank entries ignored", ingredients: []string{"Plain seltzer", "Limes", "  "}, want: ErrInsufficientIngredients},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r, err := Compose("Test", tt.ingredients)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Compose error = %v, want %v", err, tt.want)
			}
			if r != nil {
				t.Errorf("expected nil recipe on error, got %+v", r)
			}
		})
	}
}

func TestCompose_MinimalCatalog(t *testing.T) {
	t.Parallel()

	r, err := seeded(1).Compose("Boss Energy", []string{"Plain seltzer", "Limes", "Mint"})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if r.Base != "Plain seltzer" || r.Citrus != "Limes" || r.Twist != "Mint" {
		t.Errorf("got base=%q citrus=%q twist=%q", r.Base, r.Citrus, r.Twist)
	}
	if !strings.Contains(r.Steps[5], "*Boss Energy*") {
		t.Errorf("last step %q does not name the drink", r.Steps[5])
	}
}

func TestCompose_DualRoleIngredientNeverBlocksAlternative(t *testing.T) {
	t.Parallel()

	// "Lime seltzer" can be base or citrus. Drawing it as the base would leave
	// no citrus, so the only valid base is "Plain seltzer".
	catalog := []string{"Lime seltzer", "Plain seltzer", "Ice"}
	for seed := range uint64(50) {
		r, err := seeded(seed).Compose("Test", catalog)
		if err != nil {
			t.Fatalf("seed %d: Compose: %v", seed, err)
		}
		if r.Base != "Plain seltzer" || r.Citrus != "Lime seltzer" || r.Twist != "Ice" {
			t.Errorf("seed %d: got base=%q citrus=%q twist=%q", seed, r.Base, r.Citrus, r.Twist)
		}
	}
}

func TestCompose_CaseInsensitiveMatching(t *testing.T) {
	t.Parallel()

	r, err := Compose("Loud", []string{"CRANBERRY JUICE", "LEMONS", "Sugar"})
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if r.Base != "CRANBERRY JUICE" || r.Citrus != "LEMONS" {
		t.Errorf("got base=%q citrus=%q", r.Base, r.Citrus)
	}
}

func TestCompose_Reproducible(t *testing.T) {
	t.Parallel()

	a, err := seeded(42).Compose("Same", DefaultCatalog())
	if err != nil {
		t.Fatal(err)
	}
	b, err := seeded(42).Compose("Same", DefaultCatalog())
	if err != nil {
		t.Fatal(err)
	}
	if a.String() != b.String() {
		t.Errorf("same seed produced different recipes:\n%s\n---\n%s", a, b)
	}
}

func TestCompose_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	in := DefaultCatalog()
	want := DefaultCatalog()
	if _, err := Compose("Pure", in); err != nil {
		t.Fatal(err)
	}
	for i := range want {
		if in[i] != want[i] {
			t.Fatalf("input modified at %d: %q != %q", i, in[i], want[i])
		}
	}
}

func TestCompose_ConcurrentDefaultComposer(t *testing.T) {
	t.Parallel()

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := Compose("Race", DefaultCatalog()); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Compose: %v", err)
	}
}

func TestDefaultCatalog_FreshSlice(t *testing.T) {
	t.Parallel()

	a := DefaultCatalog()
	a[0] = "changed"
	if DefaultCatalog()[0] == "changed" {
		t.Error("DefaultCatalog returned a shared slice")
	}
}

func linesMentioning(lines []string, s string) int {
	n := 0
	for _, l := range lines {
		if strings.Contains(l, s) {
			n++
		}
	}
	return n
}
