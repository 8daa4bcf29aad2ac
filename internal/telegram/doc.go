// Package telegram sends appointment notifications through the Telegram Bot API.
//
// Messages are sent with plain HTTP requests to sendMessage using HTML parse
// mode. Authentication requires a bot token (from @BotFather) and a chat ID.
package telegram
