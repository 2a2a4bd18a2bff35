package main

import (
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ltejedor/building-ai-agents/internal/config"
	"github.com/ltejedor/building-ai-agents/pkg/mocktail"
)

func newMocktailCmd(o *rootOptions) *cobra.Command {
	var (
		ingredients []string
		seed        uint64
	)

	cmd := &cobra.Command{
		Use:   "mocktail THEME...",
		Short: "Compose a mocktail recipe without calling a model",
		Long: "Composes a themed recipe from the ingredient list. Ingredients come from\n" +
			"--ingredient, else mocktail.ingredients in the config file, else the\n" +
			"stock catalog. No config file is required.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			theme := strings.Join(args, " ")

			if len(ingredients) == 0 {
				cfg, err := config.Load(o.configPath)
				switch {
				case errors.Is(err, fs.ErrNotExist):
				case err != nil:
					return err
				default:
					ingredients = cfg.Mocktail.Ingredients
				}
			}
			if len(ingredients) == 0 {
				ingredients = mocktail.DefaultCatalog()
			}

			var opts []mocktail.Option
			if cmd.Flags().Changed("seed") {
				opts = append(opts, mocktail.WithRand(rand.New(rand.NewPCG(seed, seed))))
			}
			recipe, err := mocktail.New(opts...).Compose(theme, ingredients)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), recipe.String())
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&ingredients, "ingredient", "i", nil, "available ingredient (repeatable)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "seed for reproducible recipes")
	return cmd
}
