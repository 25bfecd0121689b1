package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBankCSV(t *testing.T, n int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("age,job,marital,education,default,housing,loan,contact,month,day_of_week,duration,poutcome,y\n")
	jobs := []string{"admin.", "technician", "services"}
	for i := 0; i < n; i++ {
		duration := 1 + i%20
		y := "no"
		if duration > 10 {
			y = "yes"
		}
		b.WriteString(strings.Join([]string{
			strconv.Itoa(25 + i%30), jobs[i%3], "married", "high.school", "no",
			[]string{"no", "yes"}[i%2], "no", "cellular", "may", "mon",
			strconv.Itoa(duration), "nonexistent", y,
		}, ","))
		b.WriteString("\n")
	}
	path := filepath.Join(t.TempDir(), "bank.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	cfgFile = ""

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTrainCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	csv := writeBankCSV(t, 100)
	outDir := filepath.Join(t.TempDir(), "out")

	out, err := execute(t, "--C", "0.5", "--max_iter", "200",
		"--dataset-url", csv, "--output-dir", outDir, "--tracking", "none", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Training complete")

	models, err := filepath.Glob(filepath.Join(outDir, "model_accuracy_*_C_0.5_maxIter_200.gob"))
	require.NoError(t, err)
	assert.Len(t, models, 1)
}

func TestTrainCommand_RunStoreFollowsOutputDir(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MLFLOW_TRACKING_URI", "")
	csv := writeBankCSV(t, 60)
	outDir := filepath.Join(t.TempDir(), "models")

	_, err := execute(t, "--dataset-url", csv, "--output-dir", outDir, "--tracking", "sqlite", "--log-level", "error")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(outDir, "runs.db"))
	require.NoError(t, err)
	_, err = os.Stat("outputs")
	assert.True(t, os.IsNotExist(err))
}

func TestTrainCommand_RejectsBadHyperparameters(t *testing.T) {
	t.Chdir(t.TempDir())
	csv := writeBankCSV(t, 20)

	_, err := execute(t, "--max_iter", "0", "--dataset-url", csv, "--tracking", "none", "--log-level", "error")
	assert.ErrorContains(t, err, "max_iter")

	_, err = execute(t, "--C", "-1", "--dataset-url", csv, "--tracking", "none", "--log-level", "error")
	assert.ErrorContains(t, err, "C must be")
}

func TestTrainCommand_RejectsArguments(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := execute(t, "extra")
	assert.Error(t, err)
}
