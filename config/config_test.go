package config_test

import (
	"path/filepath"
	"testing"

	"github.com/pilosa/musiclake/config"
	"github.com/pilosa/musiclake/test"
)

func TestLoadCredentials(t *testing.T) {
	d := t.TempDir()
	p := test.WriteFile(t, d, "dl.cfg", `[AWS]
AWS_ACCESS_KEY_ID=AKIAEXAMPLE
AWS_SECRET_ACCESS_KEY=wJalrXUtnFEMI/K7MDENG
`)
	creds, err := config.LoadCredentials(p)
	test.ErrNil(t, err, "LoadCredentials")
	test.MustBe(t, config.Credentials{AccessKeyID: "AKIAEXAMPLE", SecretAccessKey: "wJalrXUtnFEMI/K7MDENG"}, creds)

	p = test.WriteFile(t, d, "partial.cfg", "[AWS]\nAWS_ACCESS_KEY_ID=AKIAEXAMPLE\n")
	if _, err := config.LoadCredentials(p); err == nil {
		t.Fatal("expected error for missing secret")
	}

	if _, err := config.LoadCredentials(filepath.Join(d, "missing.cfg")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
