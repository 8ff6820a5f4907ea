package tui

import "strings"

// Command is a parsed prompt command.
type Command struct {
	Name string
	Args string
}

// aliases maps short forms to command names.
var aliases = map[string]string{
	"q":    "quit",
	"o":    "open",
	"j":    "join",
	"s":    "search",
	"h":    "help",
	"info": "details",
}

// ParseCommand parses a prompt line, with or without the leading ':'.
func ParseCommand(input string) Command {
	input = strings.TrimPrefix(strings.TrimSpace(input), ":")
	name, args, _ := strings.Cut(strings.TrimSpace(input), " ")
	name = strings.ToLower(name)
	if full, ok := aliases[name]; ok {
		name = full
	}
	return Command{Name: name, Args: strings.TrimSpace(args)}
}
