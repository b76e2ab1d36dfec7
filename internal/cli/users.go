package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	userName  string
	userTrust int
)

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersAddCmd)
	usersCmd.AddCommand(usersTrustCmd)
	usersAddCmd.Flags().StringVar(&userName, "name", "", "Display name (default: the id)")
	usersAddCmd.Flags().IntVar(&userTrust, "trust", 30, "Initial trust score (0-100)")
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "User and trust score management",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users with trust scores",
	RunE:  runUsersList,
}

var usersAddCmd = &cobra.Command{
	Use:   "add <user-id>",
	Short: "Create a user",
	Long:  "Creates the user with the given initial trust score.\nExisting users are left untouched.",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersAdd,
}

var usersTrustCmd = &cobra.Command{
	Use:   "trust <user-id> [score|+delta|-delta]",
	Short: "Show or change a user's trust score",
	Long:  "With no score, prints the current value. A bare number sets the score;\na +N or -N adjusts it. Scores clamp to 0-100.",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runUsersTrust,
}

func runUsersList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	users, err := a.store.ListUsers(ctx)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Println("No users. Add one with: hoorii users add <id>")
		return nil
	}
	for _, u := range users {
		fmt.Printf("%-16s %-20s trust=%d\n", u.ID, u.Name, u.TrustScore)
	}
	return nil
}

func runUsersAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	id := args[0]
	name := userName
	if name == "" {
		name = id
	}
	u, err := a.store.EnsureUser(ctx, id, name, userTrust)
	if err != nil {
		return err
	}
	fmt.Printf("OK: %s trust=%d\n", u.ID, u.TrustScore)
	return nil
}

func runUsersTrust(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	id := args[0]
	if len(args) == 1 {
		score, err := a.store.TrustScore(ctx, id)
		if err != nil {
			return err
		}
		fmt.Println(score)
		return nil
	}

	arg := args[1]
	if arg != "" && (arg[0] == '+' || arg[0] == '-') {
		delta, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("invalid adjustment %q: %w", arg, err)
		}
		next, err := a.store.AdjustTrustScore(ctx, id, delta)
		if err != nil {
			return err
		}
		fmt.Printf("OK: %s trust=%d\n", id, next)
		return nil
	}

	score, err := strconv.Atoi(arg)
	if err != nil {
		return fmt.Errorf("invalid score %q: %w", arg, err)
	}
	if err := a.store.SetTrustScore(ctx, id, score); err != nil {
		return err
	}
	updated, err := a.store.TrustScore(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("OK: %s trust=%d\n", id, updated)
	return nil
}
