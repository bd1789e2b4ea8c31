package utils

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	configurationReadErrorTemplateConstant          = "failed to read configuration: %w"
	configurationUnmarshalErrorTemplateConstant     = "failed to parse configuration: %w"
	embeddedConfigurationMergeErrorTemplateConstant = "failed to merge embedded configuration: %w"
)

// environmentKeyReplacer maps nested keys such as common.log_level onto
// variable suffixes such as COMMON_LOG_LEVEL.
var environmentKeyReplacer = strings.NewReplacer(".", "_")

// ConfigurationLoader resolves git-autocommit settings. Sources are applied
// from lowest to highest precedence: built-in document, caller defaults,
// config file, prefixed environment variables.
type ConfigurationLoader struct {
	configurationName string
	configurationType string
	environmentPrefix string
	searchPaths       []string
	builtInContent    []byte
	builtInType       string
}

// LoadedConfiguration reports which config file, if any, contributed values.
type LoadedConfiguration struct {
	ConfigFileUsed string
}

// NewConfigurationLoader looks for configurationName.configurationType in
// searchPaths, first match wins.
func NewConfigurationLoader(configurationName string, configurationType string, environmentPrefix string, searchPaths []string) *ConfigurationLoader {
	return &ConfigurationLoader{
		configurationName: configurationName,
		configurationType: configurationType,
		environmentPrefix: environmentPrefix,
		searchPaths:       append([]string{}, searchPaths...),
	}
}

// SetEmbeddedConfiguration installs the built-in document. An empty
// configurationType falls back to the loader's file type.
func (loader *ConfigurationLoader) SetEmbeddedConfiguration(configurationData []byte, configurationType string) {
	loader.builtInContent = bytes.Clone(configurationData)
	loader.builtInType = strings.TrimSpace(configurationType)
}

// LoadConfiguration decodes the resolved settings into targetConfiguration.
// A non-empty configurationFilePath must name a readable file; without one the
// search paths are consulted and a missing file is not an error.
func (loader *ConfigurationLoader) LoadConfiguration(configurationFilePath string, defaultValues map[string]any, targetConfiguration any) (LoadedConfiguration, error) {
	viperInstance := viper.New()

	if mergeError := loader.mergeBuiltIn(viperInstance); mergeError != nil {
		return LoadedConfiguration{}, fmt.Errorf(embeddedConfigurationMergeErrorTemplateConstant, mergeError)
	}
	for defaultKey, defaultValue := range defaultValues {
		viperInstance.SetDefault(defaultKey, defaultValue)
	}
	if readError := loader.mergeConfigurationFile(viperInstance, configurationFilePath); readError != nil {
		return LoadedConfiguration{}, fmt.Errorf(configurationReadErrorTemplateConstant, readError)
	}
	loader.bindEnvironment(viperInstance)

	if unmarshalError := viperInstance.Unmarshal(targetConfiguration, viper.DecodeHook(mapstructure.TextUnmarshallerHookFunc())); unmarshalError != nil {
		return LoadedConfiguration{}, fmt.Errorf(configurationUnmarshalErrorTemplateConstant, unmarshalError)
	}

	return LoadedConfiguration{ConfigFileUsed: viperInstance.ConfigFileUsed()}, nil
}

func (loader *ConfigurationLoader) mergeBuiltIn(viperInstance *viper.Viper) error {
	if len(loader.builtInContent) == 0 {
		return nil
	}
	builtInType := loader.builtInType
	if len(builtInType) == 0 {
		builtInType = loader.configurationType
	}
	viperInstance.SetConfigType(builtInType)
	return viperInstance.MergeConfig(bytes.NewReader(loader.builtInContent))
}

func (loader *ConfigurationLoader) mergeConfigurationFile(viperInstance *viper.Viper, configurationFilePath string) error {
	viperInstance.SetConfigType(loader.configurationType)
	if len(configurationFilePath) > 0 {
		viperInstance.SetConfigFile(configurationFilePath)
		return viperInstance.MergeInConfig()
	}

	viperInstance.SetConfigName(loader.configurationName)
	for _, searchPath := range loader.searchPaths {
		viperInstance.AddConfigPath(searchPath)
	}
	mergeError := viperInstance.MergeInConfig()
	var notFoundError viper.ConfigFileNotFoundError
	if errors.As(mergeError, &notFoundError) {
		return nil
	}
	return mergeError
}

func (loader *ConfigurationLoader) bindEnvironment(viperInstance *viper.Viper) {
	viperInstance.SetEnvPrefix(loader.environmentPrefix)
	viperInstance.SetEnvKeyReplacer(environmentKeyReplacer)
	viperInstance.AutomaticEnv()
}
