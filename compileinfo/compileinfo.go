// Package compileinfo reports how an echelle binary was built, so that plots
// and re-saved spectra can be traced back to the code that produced them.
package compileinfo

import (
	"fmt"
	"os"
	"path"
	"runtime/debug"
)

type CompileInfo struct {
	Package    string
	Version    string
	GoVersion  string
	Commit     string
	CommitTime string
	Modified   bool
}

func (c CompileInfo) String() string {
	mod := ""
	if c.Modified {
		mod = " Files in the repo were modified after that commit."
	}

	return fmt.Sprintf("This %s binary (module version %s) was built with %s at commit %v at time %v.%s", c.Package, c.Version, c.GoVersion, c.Commit, c.CommitTime, mod)
}

// Short names the binary and its commit, e.g. echplot@0123456789ab. The
// binaries use it as their log prefix.
func (c CompileInfo) Short() string {
	name := "unknown"
	if c.Package != "" {
		name = path.Base(c.Package)
	}

	commit := c.Commit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	if commit == "" {
		commit = "unknown"
	}
	if c.Modified {
		commit += "+dirty"
	}

	return fmt.Sprintf("%s@%s", name, commit)
}

func Get() CompileInfo {
	out := CompileInfo{}

	z, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}

	out.GoVersion = z.GoVersion
	out.Package = z.Path
	out.Version = z.Main.Version
	for _, s := range z.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value
		case "vcs.time":
			out.CommitTime = s.Value
		case "vcs.modified":
			out.Modified = s.Value == "true"
		}
	}

	return out
}

func PrintToStdErr() {
	z := Get()
	fmt.Fprintf(os.Stderr, "%s\n", z)
}
