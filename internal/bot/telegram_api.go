package bot

import (
	tgbot "github.com/go-telegram/bot"

	"gitlab.com/dafibh/fortuna/internal/bot/mocks"
)

// TelegramAPI is the Telegram operations surface handlers depend on.
// The interface itself lives in the mocks package to avoid an import
// cycle; this alias keeps handler signatures readable.
type TelegramAPI = mocks.TelegramAPI

// Compile-time check that the real client satisfies the interface.
var _ TelegramAPI = (*tgbot.Bot)(nil)
