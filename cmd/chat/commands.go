package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"ai-chat-be/internal/pkg/logger"
	"ai-chat-be/pkg/chat/client"
	"ai-chat-be/pkg/events"
	pktNats "ai-chat-be/pkg/nats"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	baseURL   string
	sessionId string
	chatId    string
	model     string
	natsURL   string
	logFile   string

	rootCmd = &cobra.Command{
		Use:          "chat",
		Short:        "Terminal client for the AI chat backend",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "events" {
				return nil
			}
			if sessionId == "" {
				return fmt.Errorf("a session id is required (--session or CHAT_SESSION_ID)")
			}
			return nil
		},
	}

	bootstrapCmd = &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the user for this session if it does not exist",
		RunE:  runBootstrap,
	}

	chatsCmd = &cobra.Command{
		Use:   "chats",
		Short: "List this session's chats, most recent first",
		RunE:  runChats,
	}

	sendCmd = &cobra.Command{
		Use:   "send [message]",
		Short: "Send a message and stream the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSend,
	}

	regenerateCmd = &cobra.Command{
		Use:   "regenerate",
		Short: "Drop the last exchange of --chat and ask again",
		RunE:  runRegenerate,
	}

	replCmd = &cobra.Command{
		Use:   "repl",
		Short: "Interactive chat; /regenerate repeats the last question, /quit exits",
		RunE:  runRepl,
	}

	eventsCmd = &cobra.Command{
		Use:   "events",
		Short: "Print chat domain events from NATS as they happen",
		RunE:  runEvents,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&baseURL, "url", envOr("CHAT_API_URL", "http://localhost:3000"), "API base URL")
	rootCmd.PersistentFlags().StringVar(&sessionId, "session", os.Getenv("CHAT_SESSION_ID"), "session id sent as X-Session-Id")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "model override for this turn")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write client diagnostics (skipped frames) to this file")

	for _, c := range []*cobra.Command{sendCmd, regenerateCmd, replCmd} {
		c.Flags().StringVar(&chatId, "chat", "", "existing chat id; empty starts a new chat")
	}
	_ = regenerateCmd.MarkFlagRequired("chat")

	eventsCmd.Flags().StringVar(&natsURL, "nats", envOr("NATS_URL", "nats://localhost:4222"), "NATS server URL")

	rootCmd.AddCommand(bootstrapCmd, chatsCmd, sendCmd, regenerateCmd, replCmd, eventsCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func newConversation(ctx context.Context, c *client.Client) (*client.Conversation, error) {
	var log logger.ILogger = logger.NewNopLogger()
	if logFile != "" {
		log = logger.NewIsolatedLogger(logFile)
	}
	conv := client.NewConversation(log)
	if chatId == "" {
		return conv, nil
	}
	if err := c.LoadInto(ctx, conv, chatId); err != nil {
		return nil, err
	}
	return conv, nil
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	user, err := client.NewClient(baseURL, sessionId).Bootstrap(ctx)
	if err != nil {
		return err
	}
	color.Green("User ready: %s", user.Id)
	fmt.Printf("  model:   %s\n", user.PreferredModel)
	fmt.Printf("  history: %d messages\n", user.MessageHistoryLimit)
	return nil
}

func runChats(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	chats, err := client.NewClient(baseURL, sessionId).ListChats(ctx)
	if err != nil {
		return err
	}
	if len(chats) == 0 {
		color.Yellow("No chats yet.")
		return nil
	}
	for _, ch := range chats {
		title := "(untitled)"
		if ch.Title != nil {
			title = *ch.Title
		}
		fmt.Printf("%s  %s  %s\n", color.CyanString(ch.Id.String()), ch.UpdatedAt.Format("2006-01-02 15:04"), title)
	}
	return nil
}

// streamTurn prints fragments as they arrive and reports how the turn ended.
func streamTurn(turn func(onFragment func(string)) (client.TurnResult, error)) error {
	res, err := turn(func(s string) { fmt.Print(s) })
	fmt.Println()
	if err != nil {
		return err
	}

	switch {
	case res.Completed():
		color.HiBlack("chat %s", res.ChatId)
	case res.Content != "":
		color.Yellow("The answer was interrupted and not saved.")
	default:
		color.Red("No answer was produced.")
	}
	return nil
}

func runSend(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	c := client.NewClient(baseURL, sessionId)
	conv, err := newConversation(ctx, c)
	if err != nil {
		return err
	}

	message := strings.Join(args, " ")
	return streamTurn(func(onFragment func(string)) (client.TurnResult, error) {
		return c.Send(ctx, conv, message, model, onFragment)
	})
}

func runRegenerate(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	c := client.NewClient(baseURL, sessionId)
	conv, err := newConversation(ctx, c)
	if err != nil {
		return err
	}

	return streamTurn(func(onFragment func(string)) (client.TurnResult, error) {
		return c.Regenerate(ctx, conv, model, onFragment)
	})
}

func runRepl(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	c := client.NewClient(baseURL, sessionId)
	conv, err := newConversation(ctx, c)
	if err != nil {
		return err
	}

	for _, m := range conv.Snapshot().Messages {
		printMessage(m)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(color.GreenString("> "))
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		var turnErr error
		switch line {
		case "":
			continue
		case "/quit":
			return nil
		case "/regenerate":
			turnErr = streamTurn(func(onFragment func(string)) (client.TurnResult, error) {
				return c.Regenerate(ctx, conv, model, onFragment)
			})
		default:
			turnErr = streamTurn(func(onFragment func(string)) (client.TurnResult, error) {
				return c.Send(ctx, conv, line, model, onFragment)
			})
		}
		if turnErr != nil {
			color.Red("Error: %v", turnErr)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func printMessage(m client.Message) {
	if m.Role == "user" {
		fmt.Println(color.GreenString("> ") + m.Content)
		return
	}
	fmt.Println(m.Content)
}

func runEvents(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	sub, err := pktNats.NewSubscriber(natsURL)
	if err != nil {
		return err
	}
	defer sub.Close()

	color.Cyan("Watching %s* (Ctrl+C to stop)", pktNats.SubjectPrefix)
	return sub.Subscribe(ctx, pktNats.SubjectPrefix+">", "", func(ctx context.Context, event events.Event) error {
		fmt.Printf("%s %s %v\n",
			color.HiBlackString(event.Timestamp().Format("15:04:05")),
			color.YellowString(event.EventType()),
			event.Payload(),
		)
		return nil
	})
}
