package creds

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCredentialValidate(t *testing.T) {
	tests := []struct {
		name    string
		cred    Credential
		wantErr bool
	}{
		{"complete", Credential{AccountSID: "AC123", AuthToken: "tok"}, false},
		{"missing sid", Credential{AuthToken: "tok"}, true},
		{"missing token", Credential{AccountSID: "AC123"}, true},
		{"whitespace sid", Credential{AccountSID: "  ", AuthToken: "tok"}, true},
		{"empty", Credential{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cred.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnvStore(t *testing.T) {
	t.Setenv(EnvAccountSID, "AC_test_sid")
	t.Setenv(EnvAuthToken, "test_token")

	store := NewEnvStore()
	cred, err := store.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if cred == nil {
		t.Fatal("expected credential, got nil")
	}
	if cred.AccountSID != "AC_test_sid" || cred.AuthToken != "test_token" {
		t.Errorf("unexpected credential: %+v", cred)
	}

	if err := store.Put(cred); err == nil {
		t.Error("expected Put to fail on env store")
	}
	if err := store.Delete(); err == nil {
		t.Error("expected Delete to fail on env store")
	}
}

func TestEnvStore_Absent(t *testing.T) {
	t.Setenv(EnvAccountSID, "")
	t.Setenv(EnvAuthToken, "")
	os.Unsetenv(EnvAccountSID)
	os.Unsetenv(EnvAuthToken)

	cred, err := NewEnvStore().Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if cred != nil {
		t.Errorf("expected nil credential, got %+v", cred)
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	store := NewFileStoreAt(path)

	// Empty store returns nil, nil.
	cred, err := store.Get()
	if err != nil {
		t.Fatalf("Get on empty store: %v", err)
	}
	if cred != nil {
		t.Fatalf("expected nil credential from empty store, got %+v", cred)
	}

	want := &Credential{AccountSID: "AC_abc", AuthToken: "secret"}
	if err := store.Put(want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.AccountSID != want.AccountSID || got.AuthToken != want.AuthToken {
		t.Errorf("Get = %+v, want %+v", got, want)
	}

	if err := store.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err = store.Get()
	if err != nil {
		t.Fatalf("Get after Delete: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil after Delete, got %+v", got)
	}
}

func TestFileStore_RejectsInvalid(t *testing.T) {
	store := NewFileStoreAt(filepath.Join(t.TempDir(), "creds.json"))
	if err := store.Put(&Credential{AccountSID: "only-sid"}); err == nil {
		t.Error("expected Put to reject incomplete credential")
	}
}

func TestOpen_DefaultsToEnv(t *testing.T) {
	store, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := store.(*EnvStore); !ok {
		t.Errorf("Open(\"\") = %T, want *EnvStore", store)
	}

	if _, err := Open("bogus"); err == nil {
		t.Error("expected error for unknown store mode")
	}
}
