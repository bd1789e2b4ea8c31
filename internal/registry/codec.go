package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type documentFormat int

const (
	documentFormatJSON documentFormat = iota
	documentFormatYAML
)

const (
	yamlExtensionConstant                = ".yaml"
	ymlExtensionConstant                 = ".yml"
	jsonIndentConstant                   = "    "
	emptyMappingDocumentConstant         = "{}\n"
	yamlStringTagConstant                = "!!str"
	emptyDocumentMessageConstant         = "document is empty"
	notAnObjectMessageConstant           = "document root must be an object of repository names to paths"
	trailingContentMessageConstant       = "unexpected content after the repositories object"
	duplicateNameTemplateConstant        = "repository %q is declared more than once"
	nonStringKeyTemplateConstant         = "repository name at line %d must be a string"
	nonStringValueTemplateConstant       = "path for repository %q must be a string"
	jsonValueDecodeErrorTemplateConstant = "path for repository %q: %w"
)

func detectDocumentFormat(filePath string) documentFormat {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case yamlExtensionConstant, ymlExtensionConstant:
		return documentFormatYAML
	default:
		return documentFormatJSON
	}
}

func decodeDocument(format documentFormat, content []byte) (Repositories, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, errors.New(emptyDocumentMessageConstant)
	}
	if format == documentFormatYAML {
		return decodeYAMLDocument(content)
	}
	return decodeJSONDocument(content)
}

func encodeDocument(format documentFormat, repositories Repositories) ([]byte, error) {
	if len(repositories) == 0 {
		return []byte(emptyMappingDocumentConstant), nil
	}
	if format == documentFormatYAML {
		return encodeYAMLDocument(repositories)
	}
	return encodeJSONDocument(repositories)
}

// decodeJSONDocument walks the object token by token because decoding into a
// Go map would discard declaration order.
func decodeJSONDocument(content []byte) (Repositories, error) {
	decoder := json.NewDecoder(bytes.NewReader(content))

	openingToken, tokenError := decoder.Token()
	if tokenError != nil {
		return nil, tokenError
	}
	if delimiter, isDelimiter := openingToken.(json.Delim); !isDelimiter || delimiter != '{' {
		return nil, errors.New(notAnObjectMessageConstant)
	}

	repositories := Repositories{}
	declaredNames := map[string]struct{}{}
	for decoder.More() {
		keyToken, keyError := decoder.Token()
		if keyError != nil {
			return nil, keyError
		}
		repositoryName, _ := keyToken.(string)

		var rawValue json.RawMessage
		if valueError := decoder.Decode(&rawValue); valueError != nil {
			return nil, fmt.Errorf(jsonValueDecodeErrorTemplateConstant, repositoryName, valueError)
		}
		rawValue = bytes.TrimSpace(rawValue)
		if len(rawValue) == 0 || rawValue[0] != '"' {
			return nil, fmt.Errorf(nonStringValueTemplateConstant, repositoryName)
		}
		var repositoryPath string
		if valueError := json.Unmarshal(rawValue, &repositoryPath); valueError != nil {
			return nil, fmt.Errorf(jsonValueDecodeErrorTemplateConstant, repositoryName, valueError)
		}

		if _, duplicate := declaredNames[repositoryName]; duplicate {
			return nil, fmt.Errorf(duplicateNameTemplateConstant, repositoryName)
		}
		declaredNames[repositoryName] = struct{}{}
		repositories = append(repositories, Repository{Name: repositoryName, Path: repositoryPath})
	}

	if _, closingError := decoder.Token(); closingError != nil {
		return nil, closingError
	}
	if _, trailingError := decoder.Token(); !errors.Is(trailingError, io.EOF) {
		return nil, errors.New(trailingContentMessageConstant)
	}

	return repositories, nil
}

func decodeYAMLDocument(content []byte) (Repositories, error) {
	var documentNode yaml.Node
	if unmarshalError := yaml.Unmarshal(content, &documentNode); unmarshalError != nil {
		return nil, unmarshalError
	}
	if len(documentNode.Content) == 0 {
		return nil, errors.New(emptyDocumentMessageConstant)
	}

	mappingNode := documentNode.Content[0]
	if mappingNode.Kind != yaml.MappingNode {
		return nil, errors.New(notAnObjectMessageConstant)
	}

	repositories := Repositories{}
	declaredNames := map[string]struct{}{}
	for pairIndex := 0; pairIndex+1 < len(mappingNode.Content); pairIndex += 2 {
		keyNode := mappingNode.Content[pairIndex]
		valueNode := mappingNode.Content[pairIndex+1]

		if keyNode.Kind != yaml.ScalarNode || keyNode.ShortTag() != yamlStringTagConstant {
			return nil, fmt.Errorf(nonStringKeyTemplateConstant, keyNode.Line)
		}
		if valueNode.Kind != yaml.ScalarNode || valueNode.ShortTag() != yamlStringTagConstant {
			return nil, fmt.Errorf(nonStringValueTemplateConstant, keyNode.Value)
		}
		if _, duplicate := declaredNames[keyNode.Value]; duplicate {
			return nil, fmt.Errorf(duplicateNameTemplateConstant, keyNode.Value)
		}
		declaredNames[keyNode.Value] = struct{}{}
		repositories = append(repositories, Repository{Name: keyNode.Value, Path: valueNode.Value})
	}

	return repositories, nil
}

func encodeJSONDocument(repositories Repositories) ([]byte, error) {
	var documentBuffer bytes.Buffer
	documentBuffer.WriteString("{\n")
	for repositoryIndex, repository := range repositories {
		encodedName, nameError := encodeJSONString(repository.Name)
		if nameError != nil {
			return nil, nameError
		}
		encodedPath, pathError := encodeJSONString(repository.documentPath())
		if pathError != nil {
			return nil, pathError
		}

		documentBuffer.WriteString(jsonIndentConstant)
		documentBuffer.Write(encodedName)
		documentBuffer.WriteString(": ")
		documentBuffer.Write(encodedPath)
		if repositoryIndex < len(repositories)-1 {
			documentBuffer.WriteByte(',')
		}
		documentBuffer.WriteByte('\n')
	}
	documentBuffer.WriteString("}\n")
	return documentBuffer.Bytes(), nil
}

func encodeJSONString(value string) ([]byte, error) {
	var valueBuffer bytes.Buffer
	encoder := json.NewEncoder(&valueBuffer)
	encoder.SetEscapeHTML(false)
	if encodeError := encoder.Encode(value); encodeError != nil {
		return nil, encodeError
	}
	return bytes.TrimRight(valueBuffer.Bytes(), "\n"), nil
}

func encodeYAMLDocument(repositories Repositories) ([]byte, error) {
	mappingNode := &yaml.Node{Kind: yaml.MappingNode}
	for _, repository := range repositories {
		mappingNode.Content = append(mappingNode.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: yamlStringTagConstant, Value: repository.Name},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: yamlStringTagConstant, Value: repository.documentPath()},
		)
	}
	return yaml.Marshal(mappingNode)
}
