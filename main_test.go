package main

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"
)

func TestRootCommand(t *testing.T) {
	RegisterTestingT(t)

	cmd := newRootCmd()
	names := []string{}
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	Expect(names).To(ConsistOf("serve", "migrate", "seed-definitions", "sync-hierarchy"))

	cmd.SetArgs([]string{"seed-definitions"})
	Expect(cmd.Execute()).To(MatchError("accepts 1 arg(s), received 0"))
}

func TestSeedDefinitionsCommand(t *testing.T) {
	RegisterTestingT(t)

	dir := t.TempDir()
	file := filepath.Join(dir, "definitions.yaml")
	Expect(ioutil.WriteFile(file, []byte(`
definitions:
  - entityType: MAJOR
    name: major review
    steps:
      - {stepOrder: 1, stepName: Senate review, approverRole: SENATE, timeoutDays: 14}
`), 0644)).To(BeNil())
	t.Setenv("DB_DRIVER", "sqlite3")
	t.Setenv("DB_DRIVER_ARGS", filepath.Join(dir, "openpka.db"))

	out := &bytes.Buffer{}
	cmd := newRootCmd()
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--config", dir, "seed-definitions", file})
	Expect(cmd.Execute()).To(BeNil())
	Expect(out.String()).To(Equal("1 workflow definitions seeded\n"))

	cmd = newRootCmd()
	cmd.SetArgs([]string{"--config", dir, "migrate"})
	Expect(cmd.Execute()).To(BeNil())

	out.Reset()
	cmd = newRootCmd()
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--config", dir, "sync-hierarchy"})
	Expect(cmd.Execute()).To(BeNil())
	Expect(out.String()).To(Equal("0 org units synchronized\n"))
}
