package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"dagger.io/dagger"
	"github.com/TungPhamDuy/azmlproject3/pkg/common"
	"github.com/TungPhamDuy/azmlproject3/pkg/model"
	"github.com/spf13/cobra"
)

type options struct {
	c         float64
	maxIter   int
	image     string
	source    string
	outputDir string
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:          "pipeline",
		Short:        "Run the trainer in a container and export its outputs",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := model.ValidateHyperparameters(opts.c, opts.maxIter); err != nil {
				return err
			}
			return Build(cmd.Context(), opts)
		},
	}

	cmd.Flags().Float64Var(&opts.c, "C", 1.0, "Inverse of regularization strength")
	cmd.Flags().IntVar(&opts.maxIter, "max_iter", 100, "Maximum number of iterations to converge")
	cmd.Flags().StringVar(&opts.image, "image", "golang:1.24", "build image")
	cmd.Flags().StringVar(&opts.source, "source", ".", "repository root on the host")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "outputs", "host directory the outputs are exported to")
	return cmd
}

func main() {
	if err := common.SetupLogger("info", "console"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, common.FormatError(err))
		os.Exit(1)
	}
}

// Build trains inside a container and exports /src/outputs to the host.
func Build(ctx context.Context, opts *options) error {
	client, err := dagger.Connect(ctx, dagger.WithLogOutput(os.Stderr))
	if err != nil {
		return fmt.Errorf("failed to connect to dagger: %w", err)
	}
	defer client.Close()

	src := client.Host().Directory(opts.source, dagger.HostDirectoryOpts{
		Exclude: []string{".git", "outputs", "_examples"},
	})

	ctr := client.Container().
		From(opts.image).
		WithMountedCache("/go/pkg/mod", client.CacheVolume("go-mod")).
		WithMountedCache("/root/.cache/go-build", client.CacheVolume("go-build")).
		WithEnvVariable("CGO_ENABLED", "1").
		WithDirectory("/src", src).
		WithWorkdir("/src").
		WithEnvVariable("BANKMKT_TRACKING_DB_PATH", "/src/outputs/runs.db")

	// Forward the MLflow settings of the host, if any.
	for _, key := range []string{"MLFLOW_TRACKING_URI", "MLFLOW_EXPERIMENT_ID", "MLFLOW_RUN_ID", "MLFLOW_TRACKING_USERNAME"} {
		if v := os.Getenv(key); v != "" {
			ctr = ctr.WithEnvVariable(key, v)
		}
	}
	for _, key := range []string{"MLFLOW_TRACKING_TOKEN", "MLFLOW_TRACKING_PASSWORD"} {
		if v := os.Getenv(key); v != "" {
			ctr = ctr.WithSecretVariable(key, client.SetSecret(key, v))
		}
	}

	common.LogInfo("Downloading modules", nil)
	ctr = ctr.WithExec([]string{"go", "mod", "download"})
	if _, err := ctr.Sync(ctx); err != nil {
		return fmt.Errorf("go mod download: %w", err)
	}

	common.LogInfo("Training", common.Fields{"C": opts.c, "max_iter": opts.maxIter})
	train := ctr.WithExec([]string{
		"go", "run", "./cmd/train",
		"--C", model.FormatFloat(opts.c),
		"--max_iter", fmt.Sprint(opts.maxIter),
	})
	out, err := train.Stdout(ctx)
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}
	fmt.Print(out)

	if _, err := train.Directory("/src/outputs").Export(ctx, opts.outputDir); err != nil {
		return fmt.Errorf("failed to export outputs: %w", err)
	}
	slog.Info("Pipeline complete", "outputs", opts.outputDir)
	return nil
}
