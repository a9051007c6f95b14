package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/tagmystickies-bot/internal/i18n"
	"github.com/Proton-105/tagmystickies-bot/pkg/config"
)

// Limits the Bot API puts on the profile texts.
const (
	maxNameLength             = 64
	maxShortDescriptionLength = 120
	maxDescriptionLength      = 512
)

// MetadataAPI is the part of the Bot API that edits the bot's profile.
type MetadataAPI interface {
	SetMyName(name, language string) error
	SetMyDescription(desc, language string) error
	SetMyShortDescription(desc, language string) error
	SetCommands(opts ...interface{}) error
}

// Metadata is the profile pushed to the platform on startup.
type Metadata struct {
	Name             string
	ShortDescription string
	Description      string
	Commands         []telebot.Command
}

// BuildMetadata fills the bot username into the description and checks
// every text against the platform limits.
func BuildMetadata(cfg config.BotMetadata, username string, tr i18n.Translator) (Metadata, error) {
	desc := cfg.Description
	if strings.Contains(desc, "%s") {
		desc = fmt.Sprintf(desc, username)
	}

	md := Metadata{
		Name:             cfg.Name,
		ShortDescription: cfg.ShortDescription,
		Description:      desc,
		Commands:         MenuCommands(tr),
	}

	var errs []error
	for _, f := range []struct {
		field string
		value string
		max   int
	}{
		{"name", md.Name, maxNameLength},
		{"short description", md.ShortDescription, maxShortDescriptionLength},
		{"description", md.Description, maxDescriptionLength},
	} {
		if n := utf8.RuneCountInString(f.value); n > f.max {
			errs = append(errs, fmt.Errorf("bot %s is %d characters, the limit is %d", f.field, n, f.max))
		}
	}

	return md, errors.Join(errs...)
}

// SyncMetadata pushes md for all languages. Every part is attempted even
// when an earlier one fails.
func SyncMetadata(api MetadataAPI, md Metadata, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}

	var errs []error
	if err := api.SetMyName(md.Name, ""); err != nil {
		errs = append(errs, fmt.Errorf("set name: %w", err))
	}
	if err := api.SetMyShortDescription(md.ShortDescription, ""); err != nil {
		errs = append(errs, fmt.Errorf("set short description: %w", err))
	}
	if err := api.SetMyDescription(md.Description, ""); err != nil {
		errs = append(errs, fmt.Errorf("set description: %w", err))
	}
	if err := api.SetCommands(md.Commands); err != nil {
		errs = append(errs, fmt.Errorf("set commands: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}

	log.Info("bot metadata synced", slog.String("name", md.Name), slog.Int("commands", len(md.Commands)))
	return nil
}
