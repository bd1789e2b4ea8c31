package registry

import (
	"fmt"
	"path/filepath"
)

const (
	disambiguatedNameTemplateConstant = "%s-%d"
	firstDisambiguationSuffixConstant = 2
)

// Register appends the repository paths not already listed, naming each after
// its directory. A name already in use gains a numeric suffix. Existing entries
// keep their order; the added entries are returned separately.
func (repositories Repositories) Register(repositoryPaths []string) (Repositories, Repositories) {
	updatedRepositories := append(Repositories{}, repositories...)
	usedNames := make(map[string]struct{}, len(repositories))
	listedPaths := make(map[string]struct{}, len(repositories))
	for _, repository := range repositories {
		usedNames[repository.Name] = struct{}{}
		listedPaths[filepath.Clean(repository.Path)] = struct{}{}
	}

	addedRepositories := Repositories{}
	for _, repositoryPath := range repositoryPaths {
		cleanedPath := filepath.Clean(repositoryPath)
		if _, alreadyListed := listedPaths[cleanedPath]; alreadyListed {
			continue
		}
		listedPaths[cleanedPath] = struct{}{}

		baseName := filepath.Base(cleanedPath)
		candidateName := baseName
		for suffix := firstDisambiguationSuffixConstant; ; suffix++ {
			if _, taken := usedNames[candidateName]; !taken {
				break
			}
			candidateName = fmt.Sprintf(disambiguatedNameTemplateConstant, baseName, suffix)
		}
		usedNames[candidateName] = struct{}{}

		addedRepository := Repository{Name: candidateName, Path: cleanedPath}
		updatedRepositories = append(updatedRepositories, addedRepository)
		addedRepositories = append(addedRepositories, addedRepository)
	}

	return updatedRepositories, addedRepositories
}
