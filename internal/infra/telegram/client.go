package telegram

import (
	"fmt"

	"gopkg.in/telebot.v3"
)

// Client delivers plain-text messages to a private chat.
type Client interface {
	SendMessage(chatID int64, text string, options *telebot.SendOptions) error
}

// BotClient sends through a live telebot.Bot.
type BotClient struct {
	bot *telebot.Bot
}

func NewBotClient(b *telebot.Bot) *BotClient {
	return &BotClient{bot: b}
}

func (c *BotClient) SendMessage(chatID int64, text string, options *telebot.SendOptions) error {
	if options == nil {
		options = &telebot.SendOptions{DisableWebPagePreview: true}
	}
	if _, err := c.bot.Send(telebot.ChatID(chatID), text, options); err != nil {
		return fmt.Errorf("telegram send to chat %d: %w", chatID, err)
	}
	return nil
}
