package cmd

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestResolveAppMissingFromContext(t *testing.T) {
	t.Parallel()

	if _, err := resolveApp(context.Background()); err == nil {
		t.Fatal("expected error when app services are absent")
	}
}

func TestRootCommandSurfacesFactoryFailure(t *testing.T) {
	orig := newApp
	t.Cleanup(func() { newApp = orig })

	newApp = func(context.Context) (App, error) {
		return nil, errors.New("bad config")
	}

	cmd := newRootCmd()
	cmd.SetArgs([]string{"watch"})
	cmd.SetOut(&strings.Builder{})
	cmd.SetErr(&strings.Builder{})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected initialization failure to propagate")
	}
	if !strings.Contains(err.Error(), "failed to initialize application services") {
		t.Fatalf("unexpected error: %v", err)
	}
}
