package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/yeisme/filetally/pkg/configs"
)

func run(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer

	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%v: %v", args, err)
	}

	return out.String()
}

func TestVersion(t *testing.T) {
	if out := run(t, "version"); !strings.Contains(out, configs.AppVersion) {
		t.Fatalf("unexpected version output: %q", out)
	}
}

func TestListRegisteredBackends(t *testing.T) {
	cases := map[string]string{
		"kv": "memory",
		"mq": "memory",
		"db": "sqlite",
	}

	for sub, want := range cases {
		if out := run(t, sub, "ls"); !strings.Contains(out, want) {
			t.Fatalf("%s ls: %q does not mention %s", sub, out, want)
		}
	}
}

func TestConfigShowRedactsSecrets(t *testing.T) {
	out := run(t, "config", "show", "--config", t.TempDir())
	if strings.Contains(out, configs.DefaultS3SecretAccessKey) {
		t.Fatalf("secret printed: %s", out)
	}

	if !strings.Contains(out, "******") {
		t.Fatalf("no redaction marker: %s", out)
	}
}

func TestConfigValidate(t *testing.T) {
	if out := run(t, "config", "validate", "--config", t.TempDir()); !strings.Contains(out, "config ok") {
		t.Fatalf("unexpected output: %q", out)
	}
}
