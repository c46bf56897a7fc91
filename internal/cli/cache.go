package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/kinview/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the layout and photo cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached layouts and photos",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCacheClear(cmd.Context())
		},
	}
}

func (c *CLI) runCacheClear(ctx context.Context) error {
	switch c.cfg.Cache.Backend {
	case "none":
		printInfo("Caching is disabled")
		return nil
	case "redis":
		rc, err := cache.NewRedisCache(ctx, c.cfg.Cache.RedisURL)
		if err != nil {
			return err
		}
		defer rc.Close()
		total := 0
		for _, kt := range []string{cache.KeyTypeLayout, cache.KeyTypeImage} {
			pattern := c.cfg.Cache.Prefix + kt + ":*"
			n, err := rc.Clear(ctx, pattern)
			if err != nil {
				return fmt.Errorf("clear redis cache %s: %w", pattern, err)
			}
			total += n
		}
		printSuccess("Cleared %d cached entries", total)
		printDetail("Redis: %s", c.cfg.Cache.RedisURL)
		return nil
	default:
		fc, err := cache.NewFileCache(c.cacheDir())
		if err != nil {
			return err
		}
		defer fc.Close()
		n, err := fc.Clear()
		if err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		if n == 0 {
			printInfo("Cache is empty")
			return nil
		}
		printSuccess("Cleared %d cached entries", n)
		printDetail("Directory: %s", fc.Dir())
		return nil
	}
}

func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where the cache lives",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch c.cfg.Cache.Backend {
			case "redis":
				printKeyValue("redis", c.cfg.Cache.RedisURL)
			case "none":
				printInfo("Caching is disabled")
			default:
				fmt.Println(c.cacheDir())
			}
			return nil
		},
	}
}

// cacheDir returns the configured cache directory or the platform default.
func (c *CLI) cacheDir() string {
	if c.cfg.Cache.Dir != "" {
		return c.cfg.Cache.Dir
	}
	return cache.DefaultDir()
}
