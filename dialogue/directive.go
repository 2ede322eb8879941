package dialogue

// Option is one button offered to the user. Options with a Payload are
// inline selections; options without one are reply-keyboard labels.
type Option struct {
	Label   string
	Payload string
}

// Inline reports whether the option is an inline selection.
func (o Option) Inline() bool { return o.Payload != "" }

// Directive is the reply the transport must render for one event.
type Directive struct {
	UserID      int64
	Text        string
	Options     []Option
	Placeholder string
}

// Labels returns the option labels in order.
func (d Directive) Labels() []string {
	out := make([]string, 0, len(d.Options))
	for _, o := range d.Options {
		out = append(out, o.Label)
	}
	return out
}

type keyboard struct {
	options     []Option
	placeholder string
}

func labels(placeholder string, names ...string) keyboard {
	opts := make([]Option, 0, len(names))
	for _, n := range names {
		opts = append(opts, Option{Label: n})
	}
	return keyboard{options: opts, placeholder: placeholder}
}

func mainMenu() keyboard {
	return labels(placeholderMenu, LabelNewDeposit, LabelNewWithdrawal, LabelStats, LabelEditList)
}

func cancelMenu() keyboard { return labels(placeholderCancel, LabelCancel) }

func dateMenu() keyboard {
	return labels(placeholderDate, LabelUseCurrentDate, LabelCancel)
}

func editFieldMenu() keyboard {
	return labels(placeholderMenu, LabelEditAmount, LabelEditDate, LabelEditType, LabelCancel)
}

func typeMenu() keyboard {
	return labels(placeholderMenu, LabelTypeDeposit, LabelTypeWithdrawal, LabelCancel)
}

func reply(text string, kb keyboard) Directive {
	return Directive{Text: text, Options: kb.options, Placeholder: kb.placeholder}
}

func welcome() Directive { return reply(msgWelcome, mainMenu()) }

// MainMenu is text shown together with the main menu keyboard.
func MainMenu(userID int64, text string) Directive {
	d := reply(text, mainMenu())
	d.UserID = userID
	return d
}

// Failure is the reply sent after any store or internal failure.
func Failure(userID int64) Directive {
	return MainMenu(userID, msgFailure)
}
