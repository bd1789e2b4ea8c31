package main

import (
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

const (
	testScriptsDirectoryConstant = "testdata/scripts"
	testAuthorNameConstant       = "Auto Commit Tester"
	testAuthorEmailConstant      = "autocommit@example.com"
)

func TestMain(m *testing.M) {
	testscript.Main(m, map[string]func(){
		"git-autocommit": main,
	})
}

func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: testScriptsDirectoryConstant,
		Setup: func(environment *testscript.Env) error {
			environment.Setenv("HOME", environment.WorkDir)
			environment.Setenv("AUTOCOMMIT_CONFIG_SEARCH_PATH", environment.WorkDir)
			environment.Setenv("GIT_CONFIG_NOSYSTEM", "1")
			environment.Setenv("GIT_AUTHOR_NAME", testAuthorNameConstant)
			environment.Setenv("GIT_AUTHOR_EMAIL", testAuthorEmailConstant)
			environment.Setenv("GIT_COMMITTER_NAME", testAuthorNameConstant)
			environment.Setenv("GIT_COMMITTER_EMAIL", testAuthorEmailConstant)
			return nil
		},
	})
}
