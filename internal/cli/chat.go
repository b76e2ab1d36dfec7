package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JianJiangKCL/HooRii/internal/turn"
)

var (
	chatUser    string
	chatSession string
	chatTrust   int
)

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVarP(&chatUser, "user", "u", "default", "User id for the session")
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "", "Session id (default: new random session)")
	chatCmd.Flags().IntVar(&chatTrust, "trust", 30, "Initial trust score for a new user")
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat session with the assistant",
	Long:  "Reads messages from stdin and runs each through a full turn:\nintent analysis, authorization, validation, execution, reply.\nExit with Ctrl-D or /quit.",
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.orch == nil {
		return fmt.Errorf("no model backend configured; set HOORII_API_KEY or edit the config")
	}

	if _, err := a.store.EnsureUser(ctx, chatUser, chatUser, chatTrust); err != nil {
		return err
	}

	session := chatSession
	if session == "" {
		session = uuid.NewString()
	}

	fmt.Fprintf(os.Stderr, "session %s, user %s (Ctrl-D to exit)\n\n", session, chatUser)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/quit" || input == "/exit" {
			break
		}

		result, err := a.orch.Process(ctx, turn.Request{
			SessionID: session,
			UserID:    chatUser,
			UserInput: input,
		})
		if err != nil {
			return err
		}

		fmt.Println(result.Reply)
		if result.Error != "" {
			fmt.Fprintf(os.Stderr, "  [%s: %s]\n", result.Error, result.ErrorDetail)
		}
		if result.Control != nil {
			fmt.Fprintf(os.Stderr, "  [%s %s %v]\n",
				result.Control.DeviceName, result.Control.Command, result.Control.Parameters)
		}
		fmt.Println()
	}

	return scanner.Err()
}
