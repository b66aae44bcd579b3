package main

import (
	"path/filepath"
	"strings"
	"testing"
)

func Test_Run_Continues_After_Missing_Program(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	c.WriteExecutable("ok.sh", "#!/bin/sh\necho ran ok\n")

	stdout, stderr, code := c.Run("run", "./ok.sh", "./missing", "./ok.sh")
	if code != 0 {
		t.Fatalf("exit code = %d, want 0\nstderr: %s", code, stderr)
	}

	if got := strings.Count(stdout, "ran ok"); got != 2 {
		t.Errorf("ok.sh ran %d times, want 2\nstdout: %s", got, stdout)
	}

	AssertContains(t, stderr, "PARENT PROCESS: ./ok.sh")
	AssertContains(t, stderr, "PARENT PROCESS: ./missing")
	AssertContains(t, stderr, "envprop: spawn ./missing:")
}

func Test_Run_Reports_NonZero_Exit(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	c.WriteExecutable("fail.sh", "#!/bin/sh\nexit 4\n")

	_, stderr, code := c.Run("run", "./fail.sh")
	if code != 0 {
		t.Errorf("exit code = %d, want 0 without --strict", code)
	}

	AssertContains(t, stderr, "envprop: ./fail.sh: exit status 4")
}

func Test_Run_Strict_Fails_When_Any_Child_Fails(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	c.WriteExecutable("ok.sh", "#!/bin/sh\nexit 0\n")
	c.WriteExecutable("fail.sh", "#!/bin/sh\nexit 1\n")

	stderr := c.MustFail("run", "--strict", "./ok.sh", "./fail.sh", "./missing")

	AssertContains(t, stderr, "child failed: 2 of 3 children did not exit 0")
}

func Test_Run_Strict_From_Config(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	c.WriteFile(".envprop.json", `{"strict": true}`)

	stderr := c.MustFail("run", "./missing")
	AssertContains(t, stderr, "child failed")

	// The flag wins over config.
	_, _, code := c.Run("run", "--strict=false", "./missing")
	if code != 0 {
		t.Errorf("exit code = %d, want 0 with --strict=false", code)
	}
}

func Test_Run_Summary_Lists_Outcomes_In_Order(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	c.WriteExecutable("ok.sh", "#!/bin/sh\nexit 0\n")
	c.WriteExecutable("fail.sh", "#!/bin/sh\nexit 2\n")

	_, stderr, code := c.Run("run", "--summary", "./ok.sh", "./fail.sh", "./missing")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}

	AssertContains(t, stderr, "PROGRAM")
	AssertContains(t, stderr, "RESULT")
	AssertContains(t, stderr, "exit status 2")

	summary := stderr[strings.Index(stderr, "PROGRAM"):]

	okAt := strings.Index(summary, "./ok.sh")
	failAt := strings.Index(summary, "./fail.sh")
	missingAt := strings.Index(summary, "./missing")

	if okAt < 0 || failAt < okAt || missingAt < failAt {
		t.Errorf("summary rows out of order:\n%s", summary)
	}
}

func Test_Run_Dry_Run_Prints_Banners_Only(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	c.WriteExecutable("touch.sh", "#!/bin/sh\ntouch ran\n")

	_, stderr, code := c.Run("run", "--dry-run", "./touch.sh")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}

	AssertContains(t, stderr, "PARENT PROCESS: ./touch.sh")

	if exists, _ := fileExists(filepath.Join(c.Dir, "ran")); exists {
		t.Error("dry run launched the child")
	}
}

func Test_Run_Uses_Default_List_When_Nothing_Configured(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)

	_, stderr, code := c.Run("run")
	if code != 0 {
		t.Fatalf("exit code = %d, want 0 even when every child is missing", code)
	}

	for _, d := range defaultChildren {
		AssertContains(t, stderr, "PARENT PROCESS: "+d.Program)
	}

	AssertContains(t, stderr, "subprocess.run('/usr/bin/env')")

	if got := strings.Count(stderr, "envprop: spawn "); got != len(defaultChildren) {
		t.Errorf("spawn failures = %d, want %d", got, len(defaultChildren))
	}
}

func Test_Run_Uses_Children_From_Config(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	c.WriteExecutable("a.sh", "#!/bin/sh\necho from a\n")
	c.WriteFile(".envprop.jsonc", `{
		"children": [{"program": "./a.sh", "label": "labelled a"}],
	}`)

	stdout, stderr, code := c.Run("run")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}

	AssertContains(t, stdout, "from a")
	AssertContains(t, stderr, "labelled a")
	AssertNotContains(t, stderr, "print_all_tmpdir")
}

func Test_Run_Child_Sees_Override_As_Last_Entry(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	c.Setenv("TMPDIR", "/original")
	c.WriteExecutable("last.sh", "#!/bin/sh\necho \"sh sees $TMPDIR\"\n")

	stdout := c.MustRun("run", "--value", "/from-flag", "./last.sh")

	// dash and bash keep the last occurrence when importing the environment.
	AssertContains(t, stdout, "sh sees /from-flag")
}

func Test_Run_Rejects_Invalid_Key(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)

	for _, key := range []string{"", "A=B"} {
		_, stderr, code := c.Run("run", "--key", key, "./missing")
		if code != 1 {
			t.Errorf("--key %q: exit code = %d, want 1", key, code)
		}

		AssertContains(t, stderr, "invalid override key")
		AssertNotContains(t, stderr, "PARENT PROCESS")
	}
}

func Test_Run_Fails_On_Missing_Env_File(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)

	stderr := c.MustFail("run", "--env-file", "nope.env", "./missing")
	AssertContains(t, stderr, "nope.env")
}

func Test_Run_Debug_Logs_Block_And_Children(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	c.Setenv("TMPDIR", "/original")

	_, stderr, code := c.Run("run", "--debug", "./missing")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}

	AssertContains(t, stderr, "environment block")
	AssertContains(t, stderr, "duplicates=TMPDIR")
	AssertContains(t, stderr, "override key")
	AssertContains(t, stderr, "program=./missing")
	AssertContains(t, stderr, "files=(none)")
}

func Test_BuildChildEnv_Places_Dotenv_Before_Override(t *testing.T) {
	t.Parallel()

	c := NewCLITester(t)
	c.WriteFile("extra.env", "TMPDIR=/from-dotenv\nFOO=bar\n")

	cfg := DefaultConfig()
	cfg.EffectiveCwd = c.Dir
	cfg.EnvFiles = []string{"extra.env"}

	got, err := buildChildEnv(&cfg, []string{"TMPDIR=/original"})
	if err != nil {
		t.Fatalf("buildChildEnv() error: %v", err)
	}

	want := []string{"TMPDIR=/original", "FOO=bar", "TMPDIR=/from-dotenv", "TMPDIR=/tmp/other-tmp-dir"}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("buildChildEnv() = %q, want %q", got, want)
	}
}

func Test_ApplyOverrideFlags_Leaves_Config_When_Unset(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Key = "FROM_CONFIG"

	cmd := RunCmd(&cfg, nil)

	err := cmd.Flags.Parse([]string{"--value", ""})
	if err != nil {
		t.Fatal(err)
	}

	err = applyOverrideFlags(&cfg, cmd.Flags)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Key != "FROM_CONFIG" {
		t.Errorf("Key = %q, want FROM_CONFIG", cfg.Key)
	}

	if cfg.Value == nil || *cfg.Value != "" {
		t.Errorf("Value = %v, want explicit empty", cfg.Value)
	}

	err = cfg.Validate()
	if err != nil {
		t.Errorf("Validate() = %v", err)
	}
}
