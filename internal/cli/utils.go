package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Read collects arguments from an input stream, one or two per line
func Read(r io.Reader) []string {
	args := []string{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		args = append(args, strings.SplitN(line, " ", 2)...)
	}
	return args
}

// AssertKeyValue checks that an argument has key=value form
func AssertKeyValue(arg string) {
	if key, _, ok := strings.Cut(arg, "="); !ok || key == "" {
		log.WithField("arg", arg).Fatal("expected key=value")
	}
}

// Confirm prompts on stdout and reads a yes/no answer from stdin. Only an
// explicit affirmative proceeds.
func Confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}
