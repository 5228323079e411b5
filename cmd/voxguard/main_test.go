package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxguard/internal/pii"
	"voxguard/internal/platform/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	t.Run("version", func(t *testing.T) {
		out, err := execute(t, "version")
		require.NoError(t, err)
		assert.Equal(t, Version+"\n", out)
	})

	t.Run("emergency sweep needs a reason", func(t *testing.T) {
		_, err := execute(t, "sweep", "--emergency")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--reason")
	})

	t.Run("category cleanup validates the category before loading config", func(t *testing.T) {
		_, err := execute(t, "retention", "enforce", "--category", "photos", "--reason", "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown data category")
	})

	t.Run("missing keys fail config validation", func(t *testing.T) {
		t.Setenv("VOXGUARD_SECURITY__SUBJECT_HASH_KEY", "")
		_, err := execute(t, "check", "--config", t.TempDir()+"/absent.yaml")
		require.Error(t, err)
	})
}

func TestPIIEngineKeepsBuiltinDictionaries(t *testing.T) {
	const text = "Hej, jag var i Stockholm med Anna igår"

	t.Run("default config", func(t *testing.T) {
		engine := newPIIEngine(config.Default().Sanitizer)
		found := engine.Detect(text)
		assert.True(t, found.Has(pii.TypeName))
		assert.True(t, found.Has(pii.TypePlace))
		redacted := engine.Redact(text).Text
		assert.NotContains(t, redacted, "Anna")
		assert.NotContains(t, redacted, "Stockholm")
	})

	t.Run("configured entries extend the dictionaries", func(t *testing.T) {
		cfg := config.Default().Sanitizer
		cfg.ExtraFirstNames = []string{"Zlatan"}
		cfg.ExtraPlaces = []string{"Rinkeby"}
		found := newPIIEngine(cfg).Detect("Zlatan från Rinkeby träffade Anna")
		assert.ElementsMatch(t, []pii.Type{pii.TypeName, pii.TypePlace}, found.Sorted())
	})
}
