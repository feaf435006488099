// Command docshare is the development helper for the docshare stack. The
// stack subcommands drive the docker-compose.yml at the repo root (postgres,
// minio, redis, server, worker); test and run shell out to the Go toolchain.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// execCommand runs an external command wired to the terminal. Tests swap it
// out to capture invocations.
var execCommand = func(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	return cmd.Run()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "docshare: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	composeFile := "docker-compose.yml"
	root := &cobra.Command{
		Use:          "docshare",
		Short:        "Development helper for the docshare stack",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&composeFile, "compose-file", composeFile, "Compose file describing the stack")
	root.AddCommand(newStackCmd(&composeFile), newTestCmd(), newRunCmd())
	return root
}

// newStackCmd groups the docker-compose lifecycle. Up always rebuilds and
// detaches; anything more exotic goes through docker compose directly.
func newStackCmd(composeFile *string) *cobra.Command {
	stack := &cobra.Command{
		Use:   "stack",
		Short: "Manage the docker-compose stack (postgres, minio, redis, server, worker)",
	}

	stack.AddCommand(&cobra.Command{
		Use:   "up [service...]",
		Short: "Build images and start the stack in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompose(cmd.Context(), *composeFile, append([]string{"up", "--build", "-d"}, args...)...)
		},
	})

	var wipeVolumes bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Stop the stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			downArgs := []string{"down"}
			if wipeVolumes {
				downArgs = append(downArgs, "--volumes")
			}
			return runCompose(cmd.Context(), *composeFile, downArgs...)
		},
	}
	down.Flags().BoolVar(&wipeVolumes, "volumes", false, "Also remove the postgres and minio volumes")
	stack.AddCommand(down)

	stack.AddCommand(&cobra.Command{
		Use:   "logs [service...]",
		Short: "Follow logs from stack services",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompose(cmd.Context(), *composeFile, append([]string{"logs", "--follow"}, args...)...)
		},
	})

	stack.AddCommand(&cobra.Command{
		Use:   "ps",
		Short: "Show stack service status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompose(cmd.Context(), *composeFile, "ps")
		},
	})

	return stack
}

func newTestCmd() *cobra.Command {
	var race, cover bool
	cmd := &cobra.Command{
		Use:   "test [packages]",
		Short: "Run Go tests (defaults to ./...)",
		RunE: func(cmd *cobra.Command, args []string) error {
			goArgs := []string{"test"}
			if race {
				goArgs = append(goArgs, "-race")
			}
			if cover {
				goArgs = append(goArgs, "-cover")
			}
			if len(args) == 0 {
				args = []string{"./..."}
			}
			return execCommand(cmd.Context(), "go", append(goArgs, args...)...)
		},
	}
	cmd.Flags().BoolVar(&race, "race", false, "Enable the race detector")
	cmd.Flags().BoolVar(&cover, "cover", false, "Collect coverage data")
	return cmd
}

// newRunCmd runs a binary against an already-started stack, picking up .env
// and the config defaults that point at localhost.
func newRunCmd() *cobra.Command {
	run := &cobra.Command{
		Use:   "run",
		Short: "Run a binary directly against a running stack",
	}
	for _, svc := range []string{"server", "worker"} {
		path := "./cmd/" + svc
		run.AddCommand(&cobra.Command{
			Use:   svc,
			Short: "go run " + path,
			RunE: func(cmd *cobra.Command, args []string) error {
				return execCommand(cmd.Context(), "go", append([]string{"run", path}, args...)...)
			},
		})
	}
	return run
}

func runCompose(ctx context.Context, composeFile string, args ...string) error {
	return execCommand(ctx, "docker", composeArgs(composeFile, args...)...)
}

func composeArgs(composeFile string, args ...string) []string {
	return append([]string{"compose", "-f", composeFile}, args...)
}
