package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spboyer/promptaudit/internal/cache"
	"github.com/spboyer/promptaudit/internal/projectconfig"
)

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the parsed document cache",
		Long: `Manage the parsed document cache.

The cache stores parsed framework documents keyed by path and content so
repeated reviews and dashboard scans skip re-parsing unchanged files. It is
enabled with cache.enabled in .promptaudit.yaml.`,
	}

	cmd.AddCommand(newCacheClearCommand())

	return cmd
}

func newCacheClearCommand() *cobra.Command {
	var cacheDir string

	cmd := &cobra.Command{
		Use:   "clear [project-root]",
		Short: "Clear the document cache",
		Long: `Remove every cached document. The next run parses all files again.

The directory defaults to cache.dir from the project configuration.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(args)
			if err != nil {
				return err
			}
			dir := cacheDir
			if dir == "" {
				dir = p.Config.Cache.Dir
			}
			dir = projectconfig.Resolve(p.Root, dir)

			if err := cache.New(dir).Clear(); err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared: %s\n", dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Cache directory to clear (default from config)")

	return cmd
}
