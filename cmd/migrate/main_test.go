package main

import (
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4"

	"github.com/mobby57/memoLib-sub019/internal/config"
	"github.com/mobby57/memoLib-sub019/pkg/database"
)

func TestResolveDSN(t *testing.T) {
	pgConfig := func() (*config.Config, error) {
		return &config.Config{
			Store: config.StorePostgres,
			Database: database.Config{
				Host: "db", Port: 5432, Name: "memolib", User: "app", Password: "secret", SSLMode: "require",
			},
		}, nil
	}
	memoryConfig := func() (*config.Config, error) {
		return &config.Config{Store: config.StoreMemory}, nil
	}
	noConfig := func() (*config.Config, error) {
		return nil, errors.New("no config")
	}

	tests := []struct {
		name string
		flag string
		env  string
		load func() (*config.Config, error)
		want string
	}{
		{"flag wins", "postgres://flag", "postgres://env", pgConfig, "postgres://flag"},
		{"env before config", "", "postgres://env", pgConfig, "postgres://env"},
		{"config database", "", "", pgConfig, "postgres://app:secret@db:5432/memolib?sslmode=require"},
		{"memory store falls back", "", "", memoryConfig, defaultDSN},
		{"no config", "", "", noConfig, defaultDSN},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveDSN(tt.flag, tt.env, tt.load); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEmbeddedMigrationsPaired(t *testing.T) {
	entries, err := fs.ReadDir(migrations, "migrations")
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}

	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	if ups == 0 || ups != downs {
		t.Errorf("migrations unpaired: %d up, %d down", ups, downs)
	}
}

func TestIgnoreNoChange(t *testing.T) {
	if err := ignoreNoChange(migrate.ErrNoChange); err != nil {
		t.Errorf("ErrNoChange should be ignored, got %v", err)
	}
	boom := errors.New("boom")
	if err := ignoreNoChange(boom); !errors.Is(err, boom) {
		t.Errorf("got %v, want boom", err)
	}
}
