package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/taskmaster/internal/bootstrap"
	"github.com/randalmurphal/taskmaster/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or change project settings",
		Long: `Settings resolve in layers: built-in defaults, then .taskmaster/config.yaml
(or a legacy .taskmasterconfig), then TM_* environment variables, then the
--log-level flag.

Examples:
  tm config show --source
  tm config get lock.stale_after
  tm config set default_priority high`,
	}
	cmd.AddCommand(newConfigShowCmd(), newConfigGetCmd(), newConfigSetCmd())
	return cmd
}

// configEntry is one resolved key with the layer it came from.
type configEntry struct {
	Value  string `json:"value"`
	Source string `json:"source"`
}

func resolvedConfig(tc *config.TrackedConfig) (map[string]configEntry, error) {
	entries := make(map[string]configEntry)
	for _, key := range config.AllConfigPaths() {
		value, err := tc.Config.GetValue(key)
		if err != nil {
			return nil, err
		}
		entries[key] = configEntry{Value: value, Source: tc.GetSource(key).String()}
	}
	return entries, nil
}

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the resolved settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			withSource, _ := cmd.Flags().GetBool("source")
			p, err := loadProject(false)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if !jsonOut && !withSource {
				data, err := yaml.Marshal(p.Config.Config)
				if err != nil {
					return fmt.Errorf("marshal config: %w", err)
				}
				_, err = out.Write(data)
				return err
			}

			entries, err := resolvedConfig(p.Config)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(out, entries)
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			for _, key := range config.AllConfigPaths() {
				e := entries[key]
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", key, e.Value, e.Source)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Bool("source", false, "list every key with the layer that set it")
	return cmd
}

func newConfigGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting",
		Long: `Print one setting. Nested keys are dotted, as in lock.max_attempts.`,
		Args:  cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			return config.AllConfigPaths(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			withSource, _ := cmd.Flags().GetBool("source")
			p, err := loadProject(false)
			if err != nil {
				return err
			}
			key := args[0]
			value, err := p.Config.Config.GetValue(key)
			if err != nil {
				return err
			}
			source := p.Config.GetSource(key).String()

			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, map[string]string{"key": key, "value": value, "source": source})
			}
			if withSource {
				_, _ = fmt.Fprintf(out, "%s (from %s)\n", value, source)
				return nil
			}
			_, _ = fmt.Fprintln(out, value)
			return nil
		},
	}
	cmd.Flags().Bool("source", false, "also print the layer that set the value")
	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write one setting to the project config file",
		Long: `Write one setting to .taskmaster/config.yaml, or to the file given with
--config. Only values already in that file are carried over; environment
overrides are never persisted.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			p, err := loadProject(true)
			if err != nil {
				return err
			}

			target := configTarget(p)
			cfg, err := config.LoadFrom(target)
			if err != nil {
				return err
			}
			if err := cfg.SetValue(key, value); err != nil {
				return fmt.Errorf("set %s: %w", key, err)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.SaveTo(target); err != nil {
				return fmt.Errorf("save config: %w", err)
			}

			recordSession(p, "config set", map[string]any{"key": key})
			return report(cmd, map[string]string{"key": key, "value": value, "path": target},
				"%s = %s written to %s\n", key, value, target)
		},
	}
}

// configTarget prefers --config over the canonical project file. A legacy
// .taskmasterconfig is never rewritten.
func configTarget(p *bootstrap.Project) string {
	if path := v.GetString("config"); path != "" {
		return path
	}
	return p.Paths.ConfigFile
}
