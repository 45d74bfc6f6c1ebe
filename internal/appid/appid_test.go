package appid

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/fulmenhq/gofulmen/appidentity"
)

func TestGet_DefaultIdentity(t *testing.T) {
	t.Setenv(appidentity.EnvIdentityPath, "")

	identity, err := Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if identity.BinaryName != BinaryName {
		t.Fatalf("expected BinaryName %q, got %q", BinaryName, identity.BinaryName)
	}
	if identity.EnvPrefix != EnvPrefix {
		t.Fatalf("expected EnvPrefix %q, got %q", EnvPrefix, identity.EnvPrefix)
	}
}

func TestGet_EnvVarRemainsAuthoritative(t *testing.T) {
	appidentity.Reset()
	t.Cleanup(func() { appidentity.Reset() })

	missing := filepath.Join(t.TempDir(), "missing-app.yaml")
	t.Setenv(appidentity.EnvIdentityPath, missing)

	_, err := Get(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}

	var notFound *appidentity.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %T: %v", err, err)
	}
}
