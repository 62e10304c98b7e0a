package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/chzyer/readline"
	"github.com/m-mizutani/cygnet/pkg/model"
	"github.com/m-mizutani/cygnet/pkg/service/history"
	chatuc "github.com/m-mizutani/cygnet/pkg/usecase/chat"
	"github.com/m-mizutani/cygnet/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func chatCommand() *cli.Command {
	var (
		cfg        config
		configPath string

		userID       string
		conceptTitle string
		llmTimeout   time.Duration
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "user",
			Aliases:     []string{"u"},
			Usage:       "User name for the session greeting",
			Value:       "there",
			Sources:     cli.EnvVars("CYGNET_USER"),
			Destination: &userID,
		},
		&cli.StringFlag{
			Name:        "title",
			Aliases:     []string{"t"},
			Usage:       "Working title of the event concept",
			Required:    true,
			Sources:     cli.EnvVars("CYGNET_CONCEPT_TITLE"),
			Destination: &conceptTitle,
		},
		&cli.DurationFlag{
			Name:        "llm-timeout",
			Usage:       "Timeout for a single LLM call",
			Value:       60 * time.Second,
			Sources:     cli.EnvVars("CYGNET_LLM_TIMEOUT"),
			Destination: &llmTimeout,
		},
		configFlag(&configPath),
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, llmFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Interactive concept planning session in the terminal",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := cfg.loadFile(c, configPath); err != nil {
				return err
			}

			logger := logging.New(cfg.logLevel, os.Stderr)
			slog.SetDefault(logger)
			ctx = logging.With(ctx, logger)

			gemini, err := cfg.newGemini(ctx)
			if err != nil {
				return err
			}

			repo, err := cfg.newRepository(ctx)
			if err != nil {
				return err
			}

			chat := chatuc.New(gemini, repo, history.New(),
				chatuc.WithTimeout(llmTimeout),
			)

			welcome, err := chat.Init(ctx, userID, conceptTitle)
			if err != nil {
				return goerr.Wrap(err, "failed to start chat session")
			}

			w := c.Root().Writer
			fmt.Fprintf(w, "%s\n", welcome.Message)
			printSuggestions(w, welcome.Suggestions)
			fmt.Fprintf(w, "\nType 'exit' to quit.\n")

			rl, err := readline.New("> ")
			if err != nil {
				return goerr.Wrap(err, "failed to initialize readline")
			}
			defer rl.Close()

			conversationID := welcome.ConversationID

			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					continue
				}
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				message := strings.TrimSpace(line)
				if message == "exit" {
					break
				}
				if message == "" {
					continue
				}

				sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond,
					spinner.WithWriter(os.Stderr))
				sp.Suffix = " thinking..."
				sp.Start()

				resp, err := chat.Chat(ctx, &model.ChatRequest{
					Message:        message,
					ConversationID: conversationID,
					Context: &model.ChatContext{
						ConceptTitle: conceptTitle,
					},
				})
				sp.Stop()
				if err != nil {
					return goerr.Wrap(err, "failed to send message")
				}

				conversationID = resp.ConversationID
				fmt.Fprintf(w, "\n%s\n", resp.Response)
				printSuggestions(w, resp.Suggestions)
			}

			fmt.Fprintf(w, "\nSession ended\n")
			return nil
		},
	}
}

func printSuggestions(w io.Writer, suggestions []string) {
	if len(suggestions) == 0 {
		return
	}
	fmt.Fprintf(w, "\nSuggestions:\n")
	for _, s := range suggestions {
		fmt.Fprintf(w, "  - %s\n", s)
	}
}
