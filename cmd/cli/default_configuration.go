package cli

import (
	"bytes"
	_ "embed"
)

//go:embed default_config.yaml
var defaultAutoCommitConfiguration []byte

// ConfigurationDocument is a configuration payload together with the Viper
// type used to parse it.
type ConfigurationDocument struct {
	Content []byte
	Format  string
}

// DefaultConfigurationDocument returns the built-in git-autocommit settings
// (log sink, repositories file location, commit message prefix). Values from
// config.yaml and AUTOCOMMIT_* variables are layered over it. Callers receive
// their own copy of the content.
func DefaultConfigurationDocument() ConfigurationDocument {
	return ConfigurationDocument{
		Content: bytes.Clone(defaultAutoCommitConfiguration),
		Format:  configurationTypeConstant,
	}
}
