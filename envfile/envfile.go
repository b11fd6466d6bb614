// Copyright (c) 2025 BVK Chaitanya

// Package envfile loads KEY=VALUE assignments from dotenv style files into
// the process environment.
package envfile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

type options struct {
	variableNamePrefix string

	searchCurrentDirectory bool

	scanParentDirectories bool

	overwriteIfExists bool
}

// UpdateEnv updates current process's environment with the values read from
// the env filename found in the user's home directory. The location of the env
// file search path and other behaviors can be changed by the input options.
//
// Lines starting with # are ignored. Values wrapped in a pair of single or
// double quotes are unquoted, but NO shell escaping or expansion is performed.
func UpdateEnv(filename string, opts ...Option) error {
	if strings.ContainsRune(filename, os.PathSeparator) {
		return fmt.Errorf("file name contains path separator: %w", os.ErrInvalid)
	}
	var fopts options
	for _, v := range opts {
		if err := v.apply(&fopts); err != nil {
			return err
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	var fpaths []string
	if fopts.searchCurrentDirectory {
		fpaths = []string{filepath.Join(cwd, filename)}
	}
	if fopts.scanParentDirectories {
		last, dir := "", filepath.Dir(cwd)
		for dir != last {
			fpaths = append(fpaths, filepath.Join(dir, filename))
			last, dir = dir, filepath.Dir(dir)
		}
	}
	if len(fpaths) == 0 {
		user, err := user.Current()
		if err != nil {
			return err
		}
		if len(user.HomeDir) == 0 {
			return fmt.Errorf("could not determine current user's home directory")
		}
		fpaths = []string{filepath.Join(user.HomeDir, filename)}
	}
	for _, fpath := range fpaths {
		if err := loadFile(fpath, &fopts); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		break
	}
	return nil
}

// Load is like UpdateEnv, but reads the env file at the exact input path.
// Returns os.ErrNotExist error if the file doesn't exist.
func Load(fpath string, opts ...Option) error {
	var fopts options
	for _, v := range opts {
		if err := v.apply(&fopts); err != nil {
			return err
		}
	}
	return loadFile(fpath, &fopts)
}

func loadFile(fpath string, fopts *options) error {
	fp, err := os.Open(fpath)
	if err != nil {
		return err
	}
	defer fp.Close()

	vars, err := Parse(fp)
	if err != nil {
		return fmt.Errorf("could not parse env file %q: %w", fpath, err)
	}
	for _, kv := range vars {
		key, value := fopts.variableNamePrefix+kv[0], kv[1]
		if len(os.Getenv(key)) != 0 && !fopts.overwriteIfExists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return nil
}

// Parse reads the variable assignments from the input in their file order.
func Parse(r io.Reader) ([][2]string, error) {
	var vars [][2]string
	scanner := bufio.NewScanner(r)
	for i := 1; scanner.Scan(); i++ {
		line := string(bytes.TrimSpace(scanner.Bytes()))
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		p := strings.IndexRune(line, '=')
		if p == -1 {
			return nil, fmt.Errorf("invalid/unrecognized variable assignment on line %d: %w", i, os.ErrInvalid)
		}
		key, value := strings.TrimSpace(line[:p]), strings.TrimSpace(line[p+1:])
		if !nameRe.MatchString(key) {
			return nil, fmt.Errorf("invalid environment variable name %q on line %d: %w", key, i, os.ErrInvalid)
		}
		if n := len(value); n >= 2 && (value[0] == '"' || value[0] == '\'') && value[n-1] == value[0] {
			value = value[1 : n-1]
		}
		vars = append(vars, [2]string{key, value})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return vars, nil
}

// Write writes the input variables to the file in the same format as Parse
// expects. File is created with owner-only permissions because env files
// typically hold secrets.
func Write(fpath string, vars [][2]string) error {
	var buf bytes.Buffer
	for _, kv := range vars {
		if !nameRe.MatchString(kv[0]) {
			return fmt.Errorf("invalid environment variable name %q: %w", kv[0], os.ErrInvalid)
		}
		if strings.ContainsAny(kv[1], "\r\n") {
			return fmt.Errorf("value for %q has a newline: %w", kv[0], os.ErrInvalid)
		}
		fmt.Fprintf(&buf, "%s=%s\n", kv[0], kv[1])
	}
	return os.WriteFile(fpath, buf.Bytes(), 0600)
}
