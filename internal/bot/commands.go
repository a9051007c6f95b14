package bot

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/tagmystickies-bot/internal/i18n"
)

// Commands the bot serves, without the slash.
const (
	CommandStart       = "start"
	CommandHelp        = "help"
	CommandCancel      = "cancel"
	CommandNext        = "next"
	CommandDone        = "done"
	CommandMultiTag    = "multitag"
	CommandMassReplace = "massreplace"
	CommandNotify      = "notify"
)

// menuCommands appear in the chat's command menu in this order. /notify is
// for operators and stays out of it.
var menuCommands = []string{
	CommandStart,
	CommandHelp,
	CommandMultiTag,
	CommandMassReplace,
	CommandCancel,
	CommandNext,
	CommandDone,
}

// MenuCommands describes the command menu from the catalog.
func MenuCommands(tr i18n.Translator) []telebot.Command {
	cmds := make([]telebot.Command, 0, len(menuCommands))
	for _, name := range menuCommands {
		cmds = append(cmds, telebot.Command{Text: name, Description: tr.T("commands." + name)})
	}
	return cmds
}
