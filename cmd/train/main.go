package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/TungPhamDuy/azmlproject3/pkg/common"
	"github.com/TungPhamDuy/azmlproject3/pkg/config"
	"github.com/TungPhamDuy/azmlproject3/pkg/model"
	"github.com/TungPhamDuy/azmlproject3/pkg/pipeline"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a logistic-regression classifier on the bank-marketing dataset",
		Long: `train downloads the bank-marketing table, encodes its categorical fields,
fits an L2-regularized logistic regression on an 80/20 split and writes the
model to outputs/model_accuracy_<score>_C_<C>_maxIter_<max_iter>.gob.`,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initConfig,
		RunE:              runTrain,
	}

	flags := cmd.Flags()
	flags.Float64("C", 1.0, "Inverse of regularization strength. Smaller values cause stronger regularization")
	flags.Int("max_iter", 100, "Maximum number of iterations to converge")
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml or $HOME/.config/bankmkt/config.yaml)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console, json)")
	flags.String("output-dir", "outputs", "directory the model and plot are written to")
	flags.String("dataset-url", "", "dataset location: http(s) URL, file:// URL or local path")
	flags.String("tracking", "", "tracking backend (auto, mlflow, sqlite, none)")

	_ = viper.BindPFlag("training.c", flags.Lookup("C"))
	_ = viper.BindPFlag("training.max_iter", flags.Lookup("max_iter"))
	_ = viper.BindPFlag("logging.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", flags.Lookup("log-format"))
	_ = viper.BindPFlag("output.dir", flags.Lookup("output-dir"))

	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, common.FormatError(err))
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, _ []string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(fmt.Sprintf("%s/.config/bankmkt", home))
		}
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	config.SetDefaults(viper.GetViper())
	config.BindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Empty string flags only override when given.
	flags := cmd.Flags()
	if flags.Changed("dataset-url") {
		viper.Set("dataset.url", flags.Lookup("dataset-url").Value.String())
	}
	if flags.Changed("tracking") {
		viper.Set("tracking.backend", flags.Lookup("tracking").Value.String())
	}

	if err := common.SetupLogger(viper.GetString("logging.level"), viper.GetString("logging.format")); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	if used := viper.ConfigFileUsed(); used != "" {
		slog.Debug("Loaded config file", "path", used)
	}
	return nil
}

func runTrain(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	res, err := pipeline.Run(cmd.Context(), cfg, pipeline.Deps{})
	if err != nil {
		return err
	}

	if !res.Fit.Converged {
		fmt.Fprintln(cmd.ErrOrStderr(), common.FormatWarning(
			fmt.Sprintf("solver stopped after %d iterations without converging (%s)", res.Fit.Iterations, res.Fit.Status)))
	}
	fmt.Fprintln(cmd.OutOrStdout(), summary(cfg, res))
	return nil
}

func summary(cfg *config.Config, res *pipeline.Result) string {
	lines := []common.SummaryLine{
		{Label: "Regularization (C)", Value: model.FormatFloat(cfg.Training.C)},
		{Label: "Max iterations", Value: strconv.Itoa(cfg.Training.MaxIter)},
		{Label: "Solver", Value: fmt.Sprintf("%s after %d iterations", res.Fit.Status, res.Fit.Iterations)},
		{Label: "Rows (train/test)", Value: fmt.Sprintf("%d / %d", res.TrainRows, res.TestRows)},
		{Label: "Accuracy", Value: strconv.FormatFloat(res.Accuracy, 'f', 4, 64)},
		{Label: "Precision / Recall", Value: fmt.Sprintf("%.4f / %.4f", res.Precision, res.Recall)},
		{Label: "F1", Value: strconv.FormatFloat(res.F1Score, 'f', 4, 64)},
		{Label: "Model", Value: res.ModelPath},
	}
	if res.PlotPath != "" {
		lines = append(lines, common.SummaryLine{Label: "Loss plot", Value: res.PlotPath})
	}
	if res.RunID != "" {
		lines = append(lines, common.SummaryLine{Label: "Run", Value: res.RunID})
	}
	return common.FormatSummary("Training complete", lines)
}
