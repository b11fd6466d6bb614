// Copyright (c) 2023 BVK Chaitanya

package subcmds

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bvk/goldalert/envfile"
)

// DataFlags locate the data directory and the env file with secrets.
type DataFlags struct {
	dataDir string
	envFile string

	thresholdFile string
}

func (f *DataFlags) SetFlags(fset *flag.FlagSet) {
	fset.StringVar(&f.dataDir, "data-dir", "", "path to the data directory (default $HOME/.goldalert)")
	fset.StringVar(&f.envFile, "env-file", "", "path to the env file (default .env in current or data directory)")
	fset.StringVar(&f.thresholdFile, "threshold-file", "", "path to the threshold file (default threshold.json in data directory)")
}

// DataDir returns the absolute path to the data directory. Directory is
// created if it doesn't exist.
func (f *DataFlags) DataDir() (string, error) {
	if len(f.dataDir) == 0 {
		f.dataDir = filepath.Join(os.Getenv("HOME"), ".goldalert")
	}
	if _, err := os.Stat(f.dataDir); err != nil {
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("could not stat data directory %q: %w", f.dataDir, err)
		}
		if err := os.MkdirAll(f.dataDir, 0700); err != nil {
			return "", fmt.Errorf("could not create data directory %q: %w", f.dataDir, err)
		}
	}
	dataDir, err := filepath.Abs(f.dataDir)
	if err != nil {
		return "", fmt.Errorf("could not determine data-dir %q absolute path: %w", f.dataDir, err)
	}
	return dataDir, nil
}

// EnvFile returns the env file path given on the command-line or the default
// env file in the data directory.
func (f *DataFlags) EnvFile(dataDir string) string {
	if len(f.envFile) != 0 {
		return f.envFile
	}
	return filepath.Join(dataDir, ".env")
}

// ThresholdFile returns the threshold file path.
func (f *DataFlags) ThresholdFile(dataDir string) string {
	if len(f.thresholdFile) != 0 {
		return f.thresholdFile
	}
	return filepath.Join(dataDir, "threshold.json")
}

// LoadEnv updates the process environment from the env files. An explicit
// env file must exist. Otherwise, .env file from the current directory is
// loaded first and the one from the data directory fills in the rest.
// Variables already set in the environment are never overwritten.
func (f *DataFlags) LoadEnv(dataDir string) error {
	if len(f.envFile) != 0 {
		if err := envfile.Load(f.envFile); err != nil {
			return fmt.Errorf("could not load env file %q: %w", f.envFile, err)
		}
		return nil
	}
	if err := envfile.UpdateEnv(".env", envfile.SearchCurrentDir(false)); err != nil {
		return fmt.Errorf("could not load .env file from current directory: %w", err)
	}
	if err := envfile.Load(f.EnvFile(dataDir)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("could not load env file from data directory: %w", err)
	}
	return nil
}
