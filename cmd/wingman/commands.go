package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cloud-shuttle/wingman/internal/chat"
	"github.com/cloud-shuttle/wingman/internal/config"
	"github.com/cloud-shuttle/wingman/internal/decision"
	"github.com/cloud-shuttle/wingman/internal/history"
	"github.com/cloud-shuttle/wingman/internal/llm"
	"github.com/cloud-shuttle/wingman/internal/llm/provider"
	"github.com/cloud-shuttle/wingman/internal/logging"
	"github.com/cloud-shuttle/wingman/internal/pipeline"
	"github.com/cloud-shuttle/wingman/internal/transcript"
)

func runCmd() *cobra.Command {
	var auto bool
	var providerFlag, chatFlag string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Monitor one chat and draft replies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("auto") {
				cfg.Automatic = auto
			}
			if providerFlag != "" {
				cfg.Provider = llm.ProviderType(providerFlag)
			}
			if chatFlag != "" {
				cfg.Telegram.Chat = chatFlag
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if cfg.Telegram.Chat == "" {
				return fmt.Errorf("no target chat configured (use --chat or WINGMAN_CHAT)")
			}

			logging.Setup(cfg.LogLevel)
			if cfg.Automatic {
				log.Warn().Msg("automatic mode enabled: replies will be sent without confirmation")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			session := chat.NewTelegramSession(chat.BotAPIBase(cfg.Telegram.BotToken), cfg.HTTPTimeout)
			if err := session.Connect(ctx); err != nil {
				return err
			}

			conv, err := session.ResolveTarget(ctx, cfg.Telegram.Chat)
			if err != nil {
				return err
			}
			log.Info().Str("chat", conv.DisplayName).Int64("id", conv.ID).Msg("chat selected")

			// The partner's display name is frozen here for the whole
			// session, templates and stop sequences included.
			prov, err := provider.Create(cfg.ProviderConfig(conv.DisplayName))
			if err != nil {
				return err
			}

			var archive transcript.Store = transcript.NopStore{}
			if cfg.TranscriptPath != "" {
				sqlStore, err := transcript.Open(cfg.TranscriptPath)
				if err != nil {
					return err
				}
				defer sqlStore.Close()
				archive = sqlStore
			}

			p := pipeline.New(pipeline.Deps{
				Session:      session,
				Conversation: conv,
				History:      history.NewStore(cfg.HistorySize),
				Provider:     prov,
				Decisions:    decision.NewLoop(newStdinConsole(), cfg.Automatic),
				Transcript:   archive,
			})

			if err := p.Preload(ctx); err != nil {
				log.Warn().Err(err).Msg("history preload failed; starting with empty context")
			}

			if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&auto, "auto", false, "send suggestions without confirmation")
	cmd.Flags().StringVar(&providerFlag, "provider", "", "generation backend: kobold or gemini")
	cmd.Flags().StringVar(&chatFlag, "chat", "", "target chat id or @username")
	return cmd
}

func chatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chats",
		Short: "List recent one-to-one chats visible to the bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.Telegram.BotToken == "" {
				return fmt.Errorf("telegram bot token is required (TELEGRAM_BOT_TOKEN)")
			}
			logging.Setup(cfg.LogLevel)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			session := chat.NewTelegramSession(chat.BotAPIBase(cfg.Telegram.BotToken), cfg.HTTPTimeout)
			if err := session.Connect(ctx); err != nil {
				return err
			}

			chats, err := session.RecentChats(ctx, 15)
			if err != nil {
				return err
			}
			if len(chats) == 0 {
				fmt.Println("No recent private chats found. The bot only sees chats with pending updates.")
				return nil
			}
			for _, c := range chats {
				username := ""
				if c.Username != "" {
					username = " (@" + c.Username + ")"
				}
				fmt.Printf("%s%s [ID: %d]\n", c.DisplayName, username, c.ID)
			}
			return nil
		},
	}
}

func transcriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcript",
		Short: "Inspect the session transcript archive",
	}
	cmd.AddCommand(transcriptExportCmd())
	return cmd
}

func transcriptExportCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export archived turns as JSONL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.TranscriptPath == "" {
				return fmt.Errorf("no transcript database configured (WINGMAN_TRANSCRIPT_DB)")
			}

			store, err := transcript.Open(cfg.TranscriptPath)
			if err != nil {
				return err
			}
			defer store.Close()

			out := os.Stdout
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("creating output file: %w", err)
				}
				defer f.Close()
				out = f
			}
			return store.Export(cmd.Context(), out)
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write to file instead of stdout")
	return cmd
}
