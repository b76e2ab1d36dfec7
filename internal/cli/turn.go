package cli

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JianJiangKCL/HooRii/internal/turn"
)

var (
	turnUser    string
	turnSession string
	turnTrust   int
	turnFormat  string
)

func init() {
	rootCmd.AddCommand(turnCmd)
	turnCmd.Flags().StringVarP(&turnUser, "user", "u", "default", "User id")
	turnCmd.Flags().StringVarP(&turnSession, "session", "s", "", "Session id (default: new random session)")
	turnCmd.Flags().IntVar(&turnTrust, "trust", 30, "Initial trust score for a new user")
	turnCmd.Flags().StringVarP(&turnFormat, "format", "f", "json", "Output format (json|text)")
}

var turnCmd = &cobra.Command{
	Use:   "turn <message>",
	Short: "Run a single turn and print the result",
	Long:  "Processes one message through the full turn pipeline and prints the\nfinalized result. Use --session to continue an existing conversation.",
	Args:  cobra.ExactArgs(1),
	RunE:  runTurn,
}

func runTurn(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.orch == nil {
		return fmt.Errorf("no model backend configured; set HOORII_API_KEY or edit the config")
	}

	if _, err := a.store.EnsureUser(ctx, turnUser, turnUser, turnTrust); err != nil {
		return err
	}

	session := turnSession
	if session == "" {
		session = uuid.NewString()
	}

	result, err := a.orch.Process(ctx, turn.Request{
		SessionID: session,
		UserID:    turnUser,
		UserInput: args[0],
	})
	if err != nil {
		return err
	}

	switch turnFormat {
	case "text":
		fmt.Println(result.Reply)
		if result.Error != "" {
			fmt.Printf("failure: %s (%s)\n", result.Error, result.ErrorDetail)
		}
		if result.Control != nil {
			fmt.Printf("control: %s %s %v\n",
				result.Control.DeviceID, result.Control.Command, result.Control.Parameters)
		}
	default:
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	}

	return nil
}
