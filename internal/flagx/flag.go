// Package flagx lets several flag sets share one command line. Each layer
// of configuration picks out the flags it owns and parses only those.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// flagName returns the bare name of a flag token ("-a", "--a" or "-a=x"),
// or "" when tok is not a flag.
func flagName(tok string) (name string, hasValue bool) {
	if len(tok) < 2 || tok[0] != '-' {
		return "", false
	}
	name = strings.TrimLeft(tok, "-")
	if i := strings.IndexByte(name, '='); i >= 0 {
		return name[:i], true
	}
	return name, false
}

// Select returns the tokens of args that belong to the named flags, in
// their original order. A flag given as a separate token keeps the next
// token as its value unless that token is itself a flag. Names are given
// without dashes; both "-x" and "--x" spellings match.
func Select(args []string, names ...string) []string {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.TrimLeft(n, "-")] = true
	}

	out := []string{}
	for i := 0; i < len(args); i++ {
		name, inline := flagName(args[i])
		if name == "" || !want[name] {
			continue
		}
		out = append(out, args[i])
		if inline {
			continue
		}
		if next := i + 1; next < len(args) {
			if n, _ := flagName(args[next]); n == "" {
				out = append(out, args[next])
				i = next
			}
		}
	}
	return out
}

// ConfigPath returns the JSON config file named by -c or -config. When both
// are present the last one wins.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(Select(args, "c", "config"))

	return path
}

// SetString overwrites dst with v unless v is empty.
func SetString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
