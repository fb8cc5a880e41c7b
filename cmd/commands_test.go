package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/privatwolke/opencce/internal/certstore"
	kerrors "github.com/privatwolke/opencce/internal/errors"
	"github.com/privatwolke/opencce/internal/testkit"
)

// setupIdentity writes alice's certificate and key into dir together with
// a small tree of input files.
func setupIdentity(t *testing.T, dir string) *testkit.Identity {
	t.Helper()
	alice := testkit.NewIdentity(t, "alice")
	testkit.WriteFile(t, dir, "alice.cer", alice.CertificateDER())
	testkit.WriteFile(t, dir, "alice.pem", alice.PKCS1PEM())
	testkit.WriteFile(t, dir, "notes.txt", []byte("some notes"))
	testkit.WriteFile(t, dir, "docs/guide.md", []byte("# guide"))
	return alice
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return captureOutput(func() error {
		return createTestCLI(args...).Execute()
	})
}

func TestEncryptDecryptCommands(t *testing.T) {
	tempDir := t.TempDir()
	setupTestEnvironment(t, tempDir)
	setupIdentity(t, tempDir)

	output, err := run(t, "encrypt", "-c", "alice.cer", "-O", "out.cce", "notes.txt", "docs")
	if err != nil {
		t.Fatalf("encrypt failed: %v\n%s", err, output)
	}
	for _, want := range []string{
		"Adding certificate: alice.cer ... [OK]",
		"Adding file:",
		"Container created successfully",
		"alice (alice)",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("encrypt output should contain %q, got: %s", want, output)
		}
	}

	sealed, err := os.ReadFile(filepath.Join(tempDir, "out.cce"))
	if err != nil {
		t.Fatalf("container was not written: %v", err)
	}
	if !strings.Contains(string(sealed), "application/x-pkcs7-mime") {
		t.Errorf("container is not an S/MIME entity: %.200s", sealed)
	}

	output, err = run(t, "decrypt", "-k", "alice.pem", "-d", "extracted", "out.cce")
	if err != nil {
		t.Fatalf("decrypt failed: %v\n%s", err, output)
	}
	if !strings.Contains(output, "Container decrypted successfully") {
		t.Errorf("unexpected decrypt output: %s", output)
	}

	for rel, want := range map[string]string{
		"notes.txt":     "some notes",
		"docs/guide.md": "# guide",
	} {
		data, err := os.ReadFile(filepath.Join(tempDir, "extracted", filepath.FromSlash(rel)))
		if err != nil {
			t.Errorf("%s was not extracted: %v", rel, err)
			continue
		}
		if string(data) != want {
			t.Errorf("%s: got %q, want %q", rel, data, want)
		}
	}
}

func TestDecryptCommand_RefusesOverwrite(t *testing.T) {
	tempDir := t.TempDir()
	setupTestEnvironment(t, tempDir)
	setupIdentity(t, tempDir)

	if _, err := run(t, "encrypt", "-c", "alice.cer", "-O", "out.cce", "notes.txt"); err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	output, err := run(t, "decrypt", "-k", "alice.pem", "out.cce")
	if err != nil {
		t.Fatalf("decrypt should only skip existing files: %v", err)
	}
	if !strings.Contains(output, "[ERROR]") || !strings.Contains(output, "--force") {
		t.Errorf("expected skipped file and --force hint, got: %s", output)
	}

	output, err = run(t, "decrypt", "-k", "alice.pem", "--force", "out.cce")
	if err != nil {
		t.Fatalf("decrypt --force failed: %v", err)
	}
	if strings.Contains(output, "[ERROR]") {
		t.Errorf("no step should fail with --force, got: %s", output)
	}
}

func TestDecryptCommand_WrongKey(t *testing.T) {
	tempDir := t.TempDir()
	setupTestEnvironment(t, tempDir)
	setupIdentity(t, tempDir)
	mallory := testkit.NewIdentity(t, "mallory")
	testkit.WriteFile(t, tempDir, "mallory.pem", mallory.PKCS1PEM())

	if _, err := run(t, "encrypt", "-c", "alice.cer", "-O", "out.cce", "notes.txt"); err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	output, err := run(t, "decrypt", "-k", "mallory.pem", "-d", "extracted", "out.cce")
	if !errors.Is(err, kerrors.ErrDecryptionFailed) {
		t.Fatalf("expected ErrDecryptionFailed, got: %v", err)
	}
	if !strings.Contains(output, "Failed to decrypt") {
		t.Errorf("unexpected output: %s", output)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "extracted")); !os.IsNotExist(err) {
		t.Error("nothing should be extracted with a wrong key")
	}
}

func TestDecryptCommand_PassphraseFlag(t *testing.T) {
	tempDir := t.TempDir()
	setupTestEnvironment(t, tempDir)
	alice := setupIdentity(t, tempDir)
	testkit.WriteFile(t, tempDir, "protected.pem", alice.EncryptedPKCS8PEM(t, []byte("hunter2")))

	if _, err := run(t, "encrypt", "-c", "alice.cer", "-O", "out.cce", "notes.txt"); err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	if _, err := run(t, "decrypt", "-k", "protected.pem", "-P", "hunter2", "-d", "extracted", "out.cce"); err != nil {
		t.Fatalf("decrypt with passphrase failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "extracted", "notes.txt")); err != nil {
		t.Errorf("notes.txt was not extracted: %v", err)
	}

	_, err := run(t, "decrypt", "-k", "protected.pem", "-P", "wrong", "-d", "other", "out.cce")
	if !errors.Is(err, kerrors.ErrKeyLoadFailed) {
		t.Errorf("expected ErrKeyLoadFailed, got: %v", err)
	}
}

func TestEncryptCommand_Failures(t *testing.T) {
	tempDir := t.TempDir()
	setupTestEnvironment(t, tempDir)
	setupIdentity(t, tempDir)

	output, err := run(t, "encrypt", "-c", "nobody.cer", "-O", "out.cce", "notes.txt")
	if !errors.Is(err, kerrors.ErrNoRecipients) {
		t.Fatalf("expected ErrNoRecipients, got: %v", err)
	}
	if !strings.Contains(output, "Adding certificate: nobody.cer ... [ERROR]") {
		t.Errorf("failed certificate should be reported, got: %s", output)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "out.cce")); !os.IsNotExist(err) {
		t.Error("no container should be written")
	}

	_, err = run(t, "encrypt", "-c", "alice.cer", "--cipher", "rot13", "-O", "out.cce", "notes.txt")
	if !errors.Is(err, kerrors.ErrUnknownCipher) {
		t.Errorf("expected ErrUnknownCipher, got: %v", err)
	}

	if _, err := run(t, "encrypt", "notes.txt"); err == nil {
		t.Error("encrypt without certificates should fail")
	}
}

func TestEncryptCommand_Quiet(t *testing.T) {
	tempDir := t.TempDir()
	setupTestEnvironment(t, tempDir)
	setupIdentity(t, tempDir)

	output, err := run(t, "encrypt", "-q", "-c", "alice.cer", "-O", "out.cce", "notes.txt", "missing.txt")
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if strings.Contains(output, "[OK]") || strings.Contains(output, "successfully") {
		t.Errorf("quiet mode should suppress progress, got: %s", output)
	}
	if !strings.Contains(output, "missing.txt ... [ERROR]") {
		t.Errorf("quiet mode should still report failures, got: %s", output)
	}
}

func TestEncryptCommand_CompressAndDirectory(t *testing.T) {
	tempDir := t.TempDir()
	setupTestEnvironment(t, tempDir)
	setupIdentity(t, tempDir)

	if _, err := run(t, "encrypt", "-C", "--directory", "archive", "-c", "alice.cer", "-O", "out.cce", "notes.txt"); err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	output, err := run(t, "list", "-k", "alice.pem", "out.cce")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if !strings.Contains(output, "/archive/notes.txt") {
		t.Errorf("expected member under /archive, got: %s", output)
	}
}

func TestListCommand(t *testing.T) {
	tempDir := t.TempDir()
	setupTestEnvironment(t, tempDir)
	alice := setupIdentity(t, tempDir)

	if _, err := run(t, "encrypt", "-c", "alice.cer", "-O", "out.cce", "notes.txt", "docs"); err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}

	output, err := run(t, "list", "-k", "alice.pem", "out.cce")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	fingerprint := certstore.NewCertificate(alice.Certificate).Fingerprint()
	for _, want := range []string{"Files (2)", "/notes.txt", "/docs/guide.md", "Recipients (1)", "alice (alice)", fingerprint} {
		if !strings.Contains(output, want) {
			t.Errorf("list output should contain %q, got: %s", want, output)
		}
	}
	if _, err := os.Stat(filepath.Join(tempDir, "docs", "notes.txt")); !os.IsNotExist(err) {
		t.Error("list must not write files")
	}
}

func TestAliasesFromConfig(t *testing.T) {
	tempDir := t.TempDir()
	setupTestEnvironment(t, tempDir)
	setupIdentity(t, tempDir)

	config := `[defaults]
key = "me"

[certificates]
alice = "../alice.cer"

[keys]
me = "../alice.pem"
`
	testkit.WriteFile(t, tempDir, "config/config.toml", []byte(config))

	if _, err := run(t, "encrypt", "-c", "alice", "-O", "out.cce", "notes.txt"); err != nil {
		t.Fatalf("encrypt with alias failed: %v", err)
	}
	if _, err := run(t, "decrypt", "-d", "extracted", "out.cce"); err != nil {
		t.Fatalf("decrypt with default key failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "extracted", "notes.txt")); err != nil {
		t.Errorf("notes.txt was not extracted: %v", err)
	}

	output, err := run(t, "config", "show")
	if err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	for _, want := range []string{"aes_256_cbc", "Container.cce", "alice", "../alice.pem"} {
		if !strings.Contains(output, want) {
			t.Errorf("config show should contain %q, got: %s", want, output)
		}
	}

	output, err = run(t, "config", "show", "--json")
	if err != nil {
		t.Fatalf("config show --json failed: %v", err)
	}
	if !strings.Contains(output, `"exists": true`) {
		t.Errorf("expected config file to be reported as existing, got: %s", output)
	}
}

func TestConfigAlias(t *testing.T) {
	tempDir := t.TempDir()
	setupTestEnvironment(t, tempDir)
	setupIdentity(t, tempDir)

	if _, err := run(t, "config", "alias", "alice", "alice.cer"); err != nil {
		t.Fatalf("config alias for certificate failed: %v", err)
	}
	output, err := run(t, "config", "alias", "--default", "me", "alice.pem")
	if err != nil {
		t.Fatalf("config alias for key failed: %v", err)
	}
	if !strings.Contains(output, "key alias 'me' now points to") {
		t.Errorf("unexpected alias output: %s", output)
	}

	if _, err := run(t, "encrypt", "-c", "alice", "-O", "out.cce", "notes.txt"); err != nil {
		t.Fatalf("encrypt with registered alias failed: %v", err)
	}
	if _, err := run(t, "decrypt", "-d", "extracted", "out.cce"); err != nil {
		t.Fatalf("decrypt with registered default key failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tempDir, "extracted", "notes.txt")); err != nil {
		t.Errorf("notes.txt was not extracted: %v", err)
	}

	if _, err := run(t, "config", "alias", "bob", "missing.cer"); err == nil {
		t.Error("expected an error for a missing alias target")
	}
}
