package kv

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/sKV/rpc/client"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// verb describes a command of the server vocabulary
type verb struct {
	name  string
	args  []string
	short string
}

var verbs = []verb{
	{"get", []string{"key"}, "Reads the string value of a key"},
	{"set", []string{"key", "value"}, "Sets the string value of a key"},
	{"del", []string{"key"}, "Deletes a key of any type"},
	{"keys", nil, "Lists all keys"},
	{"pexpire", []string{"key", "ms"}, "Sets the time to live of a key in milliseconds (negative removes it)"},
	{"pttl", []string{"key"}, "Prints the remaining time to live of a key in milliseconds (-1 none, -2 missing)"},
	{"zadd", []string{"key", "score", "name"}, "Adds a member to a sorted set or updates its score"},
	{"zrem", []string{"key", "name"}, "Removes a member from a sorted set"},
	{"zscore", []string{"key", "name"}, "Prints the score of a member"},
	{"zrank", []string{"key", "name"}, "Prints the position of a member"},
	{"zcard", []string{"key"}, "Prints the number of members of a sorted set"},
	{"zquery", []string{"key", "score", "name", "offset", "limit"}, "Lists members starting at the first one >= (score, name), moved by offset, limit counts printed values"},
}

// verbCommands creates one cobra command per verb. Arguments are sent
// unchanged, the server validates them.
func verbCommands() []*cobra.Command {
	return lo.Map(verbs, func(v verb, _ int) *cobra.Command {
		use := strings.Join(append([]string{v.name}, lo.Map(v.args, func(a string, _ int) string {
			return "[" + a + "]"
		})...), " ")

		return &cobra.Command{
			Use:   use,
			Short: v.short,
			Args:  cobra.ExactArgs(len(v.args)),
			RunE: func(cmd *cobra.Command, args []string) error {
				return sendAndPrint(cmd, append([]string{v.name}, args...))
			},
		}
	})
}

var rawCmd = &cobra.Command{
	Use:   "raw [command] [args...]",
	Short: "Sends an arbitrary request and prints the response",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendAndPrint(cmd, args)
	},
}

func sendAndPrint(cmd *cobra.Command, args []string) error {
	t, err := connect()
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	v, err := t.Send(client.Args(args...))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), client.Format(v))
	return nil
}
