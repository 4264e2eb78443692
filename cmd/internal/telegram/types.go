package telegram

// Update is the subset of a Bot API update the relay consumes.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// CallbackQuery is sent when an operator presses an inline button.
type CallbackQuery struct {
	ID   string `json:"id"`
	Data string `json:"data"`
	From *User  `json:"from,omitempty"`
}

// User identifies who pressed the button.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
}

// InlineKeyboardButton is one callback button.
type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// InlineKeyboardMarkup is the reply_markup payload for inline buttons.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// apiResponse is the envelope every Bot API method returns.
type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
	ErrorCode   int    `json:"error_code,omitempty"`
}
