package main

import (
	"testing"
)

func Test_Inspect_Lists_Every_Occurrence(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	c.Setenv("TMPDIR", "/original")
	c.Setenv("LANG", "C")
	c.Setenv("TMPDIR", "/tmp/other-tmp-dir")

	stdout := c.MustRun("inspect")

	// HOME, XDG_CONFIG_HOME and PATH come first.
	AssertContains(t, stdout, "TMPDIR entry #3: 'TMPDIR=/original'")
	AssertContains(t, stdout, "TMPDIR entry #5: 'TMPDIR=/tmp/other-tmp-dir'")
	AssertContains(t, stdout, "TMPDIR first-wins (getenv, Go, Python): '/original'")
	AssertContains(t, stdout, "TMPDIR last-wins (sh, bash): '/tmp/other-tmp-dir'")
	AssertContains(t, stdout, "TMPDIR entries: 2")
	AssertNotContains(t, stdout, "LANG")
}

func Test_Inspect_Reports_Not_Set(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	stdout := c.MustRun("inspect")

	AssertContains(t, stdout, "TMPDIR: not set")
	AssertNotContains(t, stdout, "entries:")
}

func Test_Inspect_All_Prints_Whole_Block(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	c.Setenv("TMPDIR", "/x")

	stdout := c.MustRun("inspect", "--all")

	AssertContains(t, stdout, "entry #0: 'HOME="+c.Dir+"'")
	AssertContains(t, stdout, "entry #3: 'TMPDIR=/x'")
	AssertContains(t, stdout, "TMPDIR entries: 1")
}

func Test_Inspect_Key_Flag(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	c.Setenv("TMPDIR", "/x")
	c.Setenv("FOO", "a")
	c.Setenv("FOO", "b")
	c.Setenv("FOO", "c")

	stdout := c.MustRun("inspect", "--key", "FOO")

	AssertContains(t, stdout, "FOO entries: 3")
	AssertContains(t, stdout, "FOO first-wins (getenv, Go, Python): 'a'")
	AssertContains(t, stdout, "FOO last-wins (sh, bash): 'c'")
	AssertNotContains(t, stdout, "TMPDIR")
}

func Test_Inspect_Rejects_Invalid_Key(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)

	stderr := c.MustFail("inspect", "--key", "A=B")
	AssertContains(t, stderr, "invalid override key")
}
