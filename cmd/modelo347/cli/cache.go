package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCacheCommand returns the `cache` command tree.
func NewCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Maintain the country lookup cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "bump",
		Short: "Invalidate cached country ISO codes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openFromEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()
			if rt.Redis == nil {
				return fmt.Errorf("cache bump: redis at %s is unreachable", rt.Config.RedisAddr)
			}
			if err := rt.Countries.Bump(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "country cache invalidated")
			return nil
		},
	})
	return cmd
}
