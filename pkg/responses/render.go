package responses

import "strings"

// FallbackUser is used when the caller has no display name.
const FallbackUser = "there"

// Vars are the values substituted into a response template.
type Vars struct {
	User    string
	Command string
}

// Render substitutes {user} and {command} in tmpl.
func Render(tmpl string, v Vars) string {
	user := v.User
	if user == "" {
		user = FallbackUser
	}
	return strings.NewReplacer(
		"{user}", user,
		"{command}", v.Command,
	).Replace(tmpl)
}
