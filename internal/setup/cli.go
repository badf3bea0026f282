package setup

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// NewCommand returns the "setup" command tree. defaultDataDir is shown
// when the registration does not override it.
func NewCommand(defaultDataDir string) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register the server with a desktop MCP client",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				return nil
			}
			path, err := DesktopConfigPath()
			if err != nil {
				return err
			}
			configPath = path
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "MCP client configuration file (default: Claude Desktop location)")

	cmd.AddCommand(installCmd(&configPath, defaultDataDir))
	cmd.AddCommand(removeCmd(&configPath))
	cmd.AddCommand(statusCmd(&configPath, defaultDataDir))
	cmd.AddCommand(validateCmd(&configPath, defaultDataDir))
	return cmd
}

func installCmd(configPath *string, defaultDataDir string) *cobra.Command {
	var opts Options
	var yes bool

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Add or update the server entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if opts.BinaryPath == "" {
				exe, err := os.Executable()
				if err != nil {
					return fmt.Errorf("failed to locate executable: %w", err)
				}
				opts.BinaryPath = exe
			}
			if opts.DataDir == "" {
				opts.DataDir = defaultDataDir
			}

			fmt.Fprintf(out, "Config file:    %s\n", *configPath)
			fmt.Fprintf(out, "Server binary:  %s\n", opts.BinaryPath)
			fmt.Fprintf(out, "Data directory: %s\n", opts.DataDir)

			if !yes && !confirm(cmd.InOrStdin(), out, "Proceed? [Y/n]: ") {
				fmt.Fprintln(out, "Cancelled.")
				return nil
			}

			if _, err := Install(*configPath, opts); err != nil {
				return err
			}
			fmt.Fprintf(out, "Registered %q. Restart the MCP client to load it.\n", ServerName)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.BinaryPath, "binary", "b", "", "server binary (default: this executable)")
	cmd.Flags().StringVarP(&opts.DataDir, "data-dir", "d", "", "feedback data directory")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func removeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "remove",
		Short: "Remove the server entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := Remove(*configPath)
			if err != nil {
				return err
			}
			if removed {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %q from %s\n", ServerName, *configPath)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%q is not registered in %s\n", ServerName, *configPath)
			}
			return nil
		},
	}
}

func statusCmd(configPath *string, defaultDataDir string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current registration",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := Inspect(*configPath, defaultDataDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config file:    %s\n", status.ConfigPath)
			fmt.Fprintf(out, "Registered:     %s\n", mark(status.Configured))
			if status.Configured {
				fmt.Fprintf(out, "Server binary:  %s (%s)\n", status.Entry.Command, found(status.BinaryFound))
			}
			fmt.Fprintf(out, "Data directory: %s\n", status.DataDir)
			fmt.Fprintf(out, "Feedback DB:    %s\n", found(status.FeedbackDB))
			printIssues(out, status.Issues)
			return nil
		},
	}
}

func validateCmd(configPath *string, defaultDataDir string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Fail unless the registration is usable",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := Inspect(*configPath, defaultDataDir)
			if err != nil {
				return err
			}
			printIssues(cmd.OutOrStdout(), status.Issues)
			if !status.Valid() {
				return fmt.Errorf("setup is not valid")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Setup is valid.")
			return nil
		},
	}
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "" || answer == "y" || answer == "yes"
}

func printIssues(out io.Writer, issues []Issue) {
	for _, issue := range issues {
		prefix := "error"
		if issue.Warning {
			prefix = "warning"
		}
		fmt.Fprintf(out, "%s: %s\n", prefix, issue.Message)
	}
}

func mark(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}

func found(ok bool) string {
	if ok {
		return "found"
	}
	return "missing"
}
