// Package telegram is a minimal Telegram Bot API client: it sends notifications
// with inline keyboards, answers callback queries and registers the webhook.
package telegram
