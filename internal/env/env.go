// Package env locates the declaration file ybld should load when the CLI's
// --build flag is not given, mirroring distri's DISTRIROOT lookup but
// scoped to a single file instead of a whole repository checkout.
package env

import "os"

// DefaultDeclFileNames are tried, in order, in the current directory when
// neither --build nor YBLD_BUILD name a declaration file.
var DefaultDeclFileNames = []string{"ybld.yaml", "ybld-build.yaml"}

// BuildFile returns the declaration file ybld should load: the YBLD_BUILD
// environment variable if set, otherwise the first of DefaultDeclFileNames
// that exists in the current directory. ok is false if none apply.
func BuildFile() (path string, ok bool) {
	if v := os.Getenv("YBLD_BUILD"); v != "" {
		return v, true
	}
	for _, name := range DefaultDeclFileNames {
		if fi, err := os.Stat(name); err == nil && !fi.IsDir() {
			return name, true
		}
	}
	return "", false
}

// ConfigFile returns the YBLD_CONFIG environment variable, or "" if unset;
// internal/config.Load treats "" as "no explicit path given".
func ConfigFile() string {
	return os.Getenv("YBLD_CONFIG")
}
