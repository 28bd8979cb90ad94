package commands

// HackHandler names the builtin hacking-simulation executor.
const HackHandler = "hack"

// Builtins returns fresh copies of the commands that ship with the bot.
func Builtins() []*Command {
	return []*Command{
		{
			Name:        "hack",
			Description: "Pretend to hack a user.",
			Usage:       "<user|id|mention|nickname>",
			Aliases:     []string{"haxx", "hackme"},
			Handler:     HackHandler,
			Responses: []string{
				"Hack complete — {user} compromised. (simulation)",
				"Completed: remote shells (simulated) for {user}.",
				"Done. {user} now has elevated privileges (fictional).",
				"Success: access granted to {user}. Files exfiltrated: 12 items (simulated).",
				"Complete — {user} has been pwned. (just pretend)",
			},
		},
	}
}

// NewDefaultRegistry returns a registry holding the builtins.
func NewDefaultRegistry() *Registry {
	reg := NewRegistry()
	for _, c := range Builtins() {
		// Builtin names are distinct.
		_ = reg.Register(c)
	}
	return reg
}
