package main

import (
	"fmt"

	"kinship/internal/seed"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func runSeed(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	opts := seed.Options{}
	opts.NumUsers, _ = flags.GetInt("users")
	opts.NumPosts, _ = flags.GetInt("posts")
	opts.ShouldClean, _ = flags.GetBool("clean")
	opts.DryRun, _ = flags.GetBool("dry-run")
	opts.SkipBcrypt, _ = flags.GetBool("fast")
	if cfg.IsProduction() && !opts.DryRun {
		return fmt.Errorf("refusing to seed a %s database", cfg.Env)
	}

	ctx := cmd.Context()
	db, err := connect(ctx)
	if err != nil {
		return err
	}
	report, err := seed.Seed(ctx, db, opts)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	defer enc.Close()
	if err := enc.Encode(report); err != nil {
		return err
	}
	if !opts.SkipBcrypt {
		fmt.Fprintf(cmd.OutOrStdout(), "password for every seeded user: %s\n", seed.DefaultPassword)
	}
	return nil
}
