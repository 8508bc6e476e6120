package cmd

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

type TestDataProvider []struct {
	description string
	args        []string
	expectedOut string
}

// useTestConfig points cfgFile at a fresh config whose data lives in a temp dir.
// privateKeyPem is optional.
func useTestConfig(t *testing.T, privateKeyPem string) {
	t.Helper()

	keyPem := ""
	if privateKeyPem != "" {
		keyPem = "  privateKeyPem: |\n    " + strings.ReplaceAll(strings.TrimSpace(privateKeyPem), "\n", "\n    ") + "\n"
	}

	dataDir := t.TempDir()
	config := fmt.Sprintf(`rightguard:
  dataDir: %s
%suser:
  deviceId: test-device
cache:
  driver: file
`, dataDir, keyPem)

	path := filepath.Join(dataDir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(config), 0600))

	// Save cfgFile before stubbing it out
	// And revert to prev cfgFile after test is done
	savedCfgFile := cfgFile
	t.Cleanup(func() {
		cfgFile = savedCfgFile
	})
	cfgFile = path
}

func testPrivateKeyPem(t *testing.T) string {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	return string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	}))
}

func execute(cmd *cobra.Command, buff *bytes.Buffer, args ...string) string {
	// Clear output buffer before the next run
	buff.Reset()

	cmd.SetOut(buff)
	cmd.SetErr(buff)
	cmd.SetArgs(args)

	cmd.Execute()

	return buff.String()
}

func runCases(t *testing.T, newCmd func() *cobra.Command, cases TestDataProvider) {
	buff := new(bytes.Buffer)

	for _, c := range cases {
		t.Run(c.description, func(t *testing.T) {
			actualOut := execute(newCmd(), buff, c.args...)
			if !strings.Contains(actualOut, c.expectedOut) {
				t.Errorf("Expected: \n\"%s\" \nTo contain: \n\"%s\"", actualOut, c.expectedOut)
			}
		})
	}
}
