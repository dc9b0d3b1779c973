// Package flagx lets several configuration layers share os.Args without
// tripping over each other's flags.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs keeps only the allowed flags (and their values) from args.
//
// Both "-c conf.json" and "--config=conf.json" forms are recognised. A token
// starting with "-" is never consumed as a value.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// stringFlag parses a single string flag known under several names.
func stringFlag(names ...string) string {
	var value string

	args := FilterArgs(os.Args[1:], prefixed(names))

	fs := flag.NewFlagSet(names[0], flag.ContinueOnError)
	for _, n := range names {
		fs.StringVar(&value, n, "", "")
	}
	_ = fs.Parse(args)

	return value
}

func prefixed(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, "-"+n)
	}
	return out
}

// ConfigFileFlag returns the JSON config path given with -c or -config,
// or "" when absent.
func ConfigFileFlag() string {
	return stringFlag("config", "c")
}

// EnvFileFlag returns the dotenv path given with -env, or "" when absent.
func EnvFileFlag() string {
	return stringFlag("env")
}
