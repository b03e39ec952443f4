package telegram

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const welcomeText = "⚜️ <b>WealthEscrowBot</b> ⚜️\n" +
	"Your Automated Telegram Escrow Service\n\n" +
	"Welcome to WealthEscrowBot! This bot provides a secure escrow service for your transactions on Telegram. " +
	"🔒 No more worries about getting scammed—your funds stay safe during all your deals.\n\n" +
	"🛒 To declare yourself as a seller or buyer:\n" +
	"• Type <code>/seller ADDRESS</code> to register as a seller.\n" +
	"• Type <code>/buyer ADDRESS</code> to register as a buyer.\n\n" +
	"💡 Replace ADDRESS with your BTC, LTC, USDT (TRC20), USDT (BEP20), or TON wallet address.\n\n" +
	"📜 Type /menu to view all the bot's features."

const menuText = "📜 <b>Bot Menu</b>\n\n" +
	"/create - Open a fresh escrow group\n" +
	"/seller - Register as seller with wallet\n" +
	"/buyer - Register as buyer with wallet\n" +
	"/invoice - Create a payment invoice\n" +
	"/pay - Show payment QR for an invoice\n" +
	"/status - Check invoice settlement\n" +
	"/menu - View all bot features\n"

func welcomeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("💬 INSTRUCTIONS", "https://t.me/WealthEscrow/11"),
			tgbotapi.NewInlineKeyboardButtonURL("📜 TERMS", "https://t.me/WealthEscrow/12"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⚡️ CREATE ESCROW GROUP", "create_group"),
		),
	)
}
