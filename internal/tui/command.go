package tui

import (
	"fmt"
	"strings"
)

// Command is a validated composer slash command.
type Command struct {
	Name string
	Arg  string
}

type commandDef struct {
	aliases []string
	arg     int // 0 none, 1 optional, 2 required
}

var commands = map[string]commandDef{
	"read":     {aliases: []string{"r"}},
	"workflow": {aliases: []string{"w"}, arg: 1},
	"retry":    {arg: 2},
}

func lookupCommand(name string) (string, commandDef, bool) {
	if def, ok := commands[name]; ok {
		return name, def, true
	}
	for canonical, def := range commands {
		for _, a := range def.aliases {
			if a == name {
				return canonical, def, true
			}
		}
	}
	return "", commandDef{}, false
}

// ParseCommand parses a composer line without its leading '/', resolving
// aliases and checking the argument count.
func ParseCommand(input string) (Command, error) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("empty command")
	}
	name, def, ok := lookupCommand(strings.ToLower(fields[0]))
	if !ok {
		return Command{}, fmt.Errorf("unknown command /%s", fields[0])
	}
	cmd := Command{Name: name, Arg: strings.Join(fields[1:], " ")}
	switch {
	case def.arg == 0 && cmd.Arg != "":
		return Command{}, fmt.Errorf("/%s takes no argument", name)
	case def.arg == 2 && cmd.Arg == "":
		return Command{}, fmt.Errorf("/%s needs an argument", name)
	}
	return cmd, nil
}
