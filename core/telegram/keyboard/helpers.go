package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn describes a convenience wrapper for inline button properties.
// When Unique is empty, Data is sent verbatim as callback data.
type InlineBtn struct {
	Text   string
	Unique string
	Data   string
}

// Rows is a transport-neutral inline keyboard layout.
type Rows [][]InlineBtn

const defaultBackButtonText = "⬅ Back"

// Column places each button on its own row.
func Column(buttons ...InlineBtn) Rows {
	rows := make(Rows, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []InlineBtn{b})
	}
	return rows
}

// InlineButtonsRows builds an inline keyboard from rows of InlineBtn.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	inline := make([][]tele.InlineButton, len(rows))
	for i, row := range rows {
		r := make([]tele.InlineButton, len(row))
		for j, btn := range row {
			if btn.Unique != "" {
				r[j] = *markup.Data(btn.Text, btn.Unique, btn.Data).Inline()
				continue
			}
			r[j] = tele.InlineButton{Text: btn.Text, Data: btn.Data}
		}
		inline[i] = r
	}
	markup.InlineKeyboard = inline
	return markup
}

// Markup converts rows into Telegram reply markup; empty rows yield nil.
func (r Rows) Markup() *tele.ReplyMarkup {
	if len(r) == 0 {
		return nil
	}
	return InlineButtonsRows(r...)
}

// BackButton returns a button carrying the given raw callback data.
// An optional label overrides the default "⬅ Back".
func BackButton(data string, label ...string) InlineBtn {
	text := defaultBackButtonText
	if len(label) > 0 && label[0] != "" {
		text = label[0]
	}
	return InlineBtn{Text: text, Data: data}
}
