package sshserver

import (
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	gliderssh "github.com/gliderlabs/ssh"
	"golang.org/x/crypto/ssh"
)

func authorizedLine(t *testing.T) (string, ssh.PublicKey) {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatalf("wrap key: %v", err)
	}
	return string(ssh.MarshalAuthorizedKey(sshPub)), sshPub
}

func TestLoadAuthorizedKeysSkipsCommentsAndBlanks(t *testing.T) {
	line, want := authorizedLine(t)
	path := filepath.Join(t.TempDir(), "authorized_keys")
	content := "# players\n\n" + line + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	keys, err := LoadAuthorizedKeys(path)
	if err != nil {
		t.Fatalf("LoadAuthorizedKeys: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("keys = %d", len(keys))
	}
	if !gliderssh.KeysEqual(keys[0], want) {
		t.Fatalf("loaded key does not match")
	}
}

func TestLoadAuthorizedKeysRejectsMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authorized_keys")
	if err := os.WriteFile(path, []byte("ssh-ed25519 notbase64\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadAuthorizedKeys(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadAuthorizedKeysMissingFile(t *testing.T) {
	if _, err := LoadAuthorizedKeys(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatalf("expected read error")
	}
}
