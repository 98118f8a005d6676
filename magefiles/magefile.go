// Package main holds the repe build targets.
//
//	mage build    Compile repe and repe-client to bin/
//	mage test     Run all tests
//	mage lint     Run golangci-lint
//	mage dev      Seed bin/dev.db and serve it in dev mode
//	mage clean    Remove build artifacts
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binaryDir = "bin"

var binaries = map[string]string{
	"repe":        "./cmd/repe",
	"repe-client": "./cmd/repe-client",
}

// Build compiles both binaries. CGO is required by the SQLite driver.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	env := map[string]string{"CGO_ENABLED": "1"}
	for name, pkg := range binaries {
		if err := sh.RunWithV(env, "go", "build", "-o", filepath.Join(binaryDir, name), pkg); err != nil {
			return err
		}
	}
	return nil
}

func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Dev seeds a local SQLite database and serves it with the web UI.
func Dev() error {
	mg.Deps(Build)
	db := "sqlite://" + filepath.Join(binaryDir, "dev.db")
	repe := filepath.Join(binaryDir, "repe")
	if err := sh.RunV(repe, "--dev", "--database-url", db, "db", "seed"); err != nil {
		return err
	}
	return sh.RunV(repe, "--dev", "--database-url", db, "serve", "--web")
}

// Clean removes build artifacts.
func Clean() error {
	return os.RemoveAll(binaryDir)
}
