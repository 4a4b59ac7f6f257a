package commands

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/diogo/sydney/internal/config"
	"github.com/diogo/sydney/internal/history"
	"github.com/diogo/sydney/internal/logging"
	"github.com/diogo/sydney/internal/transcript"
	"github.com/diogo/sydney/internal/tui"
)

// resumePick is the --resume value that opens the chat picker
const resumePick = "pick"

var (
	chatPersonaFlag string
	chatResumeFlag  string
	chatFileFlag    string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat session with Sydney.

The whole transcript is sent as context with every message. Chats are saved
to the history directory after every exchange unless autosave is off, and
--file binds a transcript file instead. Type /help in the chat for commands.

--resume takes a saved chat reference; without a value it opens a picker.

` + history.ListAliases(),
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd)
	},
}

func init() {
	chatCmd.Flags().StringVarP(&chatPersonaFlag, "persona", "p", "", "Persona to start the chat with")
	chatCmd.Flags().StringVarP(&chatResumeFlag, "resume", "r", "", "Resume a saved chat (@last, index, ID or title)")
	chatCmd.Flags().Lookup("resume").NoOptDefVal = resumePick
	chatCmd.Flags().StringVarP(&chatFileFlag, "file", "f", "", "Transcript file to load and autosave to")
}

// chatLogger logs to the log file, since the TUI owns the terminal
func chatLogger() (*log.Logger, io.Closer, error) {
	path, err := config.GetLogPath()
	if err != nil {
		return nil, nil, err
	}
	return logging.NewFile(path, logging.Options{Level: logFlag})
}

func runChat(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, closer, err := chatLogger()
	if err != nil {
		return err
	}
	defer closer.Close()

	store, err := openHistory(cfg)
	if err != nil {
		logger.Warn("history disabled", "err", err)
		store = nil
	}

	persona, err := resolvePersona(chatPersonaFlag, cfg)
	if err != nil {
		return err
	}

	opts := tui.Options{
		Config:    cfg,
		Store:     store,
		Persona:   persona,
		Personas:  tui.NewPersonaStore(),
		Logger:    logger,
		Path:      chatFileFlag,
		Clipboard: deps.Clipboard,
	}

	switch {
	case chatFileFlag != "":
		opts.Transcript, err = openTranscript(chatFileFlag, persona)
		if err != nil {
			return err
		}

	case chatResumeFlag != "":
		if store == nil {
			return fmt.Errorf("cannot resume: history is not available")
		}
		id, ok, err := resolveResume(store, chatResumeFlag)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if id != "" {
			text, err := store.Load(id)
			if err != nil {
				return err
			}
			opts.Transcript = transcript.New(text)
			opts.ChatID = id
		}
	}

	dialer, release, err := deps.NewDialer(commandContext(cmd), cfg, logger)
	if err != nil {
		return err
	}
	defer release()
	opts.Dialer = dialer

	tui.ApplyMarkdownStyle(cfg.MarkdownStyle)
	logger.Info("chat started", "persona", persona.Name, "style", cfg.Style, "resume", opts.ChatID, "file", opts.Path)
	return deps.RunChat(opts)
}

// resolveResume turns a --resume value into a history ID. The picker may
// choose a new chat (empty ID) or be dismissed (ok false).
func resolveResume(store *history.Store, ref string) (id string, ok bool, err error) {
	if ref != resumePick {
		id, err := history.NewResolver(store).Resolve(ref)
		if err != nil {
			return "", false, err
		}
		return id, true, nil
	}

	result, err := deps.RunHistorySelector(store)
	if err != nil {
		return "", false, err
	}
	if !result.Confirmed {
		return "", false, nil
	}
	if result.IsNew || result.Entry == nil {
		return "", true, nil
	}
	return result.Entry.ID, true, nil
}
