package dialogue

import "github.com/m3rciful/p2pbot/records"

// Reply keyboard labels. Their exact text is what the user sends back.
const (
	LabelNewDeposit     = "💰 Добавить пополнение"
	LabelNewWithdrawal  = "💸 Добавить продажу"
	LabelStats          = "📊 Статистика"
	LabelEditList       = "📝 Редактировать транзакции"
	LabelCancel         = "❌ Отмена"
	LabelUseCurrentDate = "📅 Использовать текущую дату"
	LabelEditAmount     = "💵 Изменить сумму"
	LabelEditDate       = "📅 Изменить дату"
	LabelEditType       = "🔄 Изменить тип"
	LabelTypeDeposit    = "💰 Пополнение"
	LabelTypeWithdrawal = "💸 Продажа"
	LabelCancelEdit     = "❌ Отменить редактирование"
)

// Commands handled like their button counterparts.
const (
	CmdStart  = "/start"
	CmdCancel = "/cancel"
)

// Inline selection keys.
const (
	SelectEditRecord = "edit_tx"
	SelectCancelEdit = "cancel_edit"
)

const (
	msgWelcome = "👋 Привет! Я помогу тебе отслеживать твои P2P транзакции.\n\n" +
		"Используй кнопки ниже для управления:"
	msgChooseAction   = "Выберите действие на клавиатуре ниже."
	msgCancelled      = "Операция отменена."
	msgEditCancelled  = "Редактирование отменено."
	msgAskDeposit     = "Введите сумму пополнения:"
	msgAskWithdrawal  = "Введите сумму продажи:"
	msgAskDate        = "Введите дату операции в формате ДД.ММ.ГГГГ (например, 25.02.2024)\nИли нажмите кнопку для использования текущей даты:"
	msgBadAmount      = "❌ Пожалуйста, введите корректное положительное число."
	msgBadDate        = "❌ Неверный формат даты. Используйте формат ДД.ММ.ГГГГ (например, 25.02.2024)\nИли нажмите кнопку для использования текущей даты"
	msgNoRecords      = "У вас пока нет транзакций для редактирования."
	msgPickRecord     = "Выберите транзакцию для редактирования:"
	msgPickFromList   = "Выберите транзакцию из списка выше или нажмите «" + LabelCancel + "»."
	msgNotFound       = "❌ Транзакция не найдена."
	msgPickField      = "Выберите, что хотите изменить:"
	msgAskNewAmount   = "Введите новую сумму:"
	msgAskNewDate     = "Введите новую дату в формате ДД.ММ.ГГГГ (например, 25.02.2024)\nИли нажмите кнопку для использования текущей даты:"
	msgAskNewType     = "Выберите новый тип транзакции:"
	msgBadType        = "❌ Пожалуйста, выберите тип транзакции, используя кнопки."
	msgStaleSelection = "Эта кнопка больше не активна."
	msgFailure        = "❌ Произошла ошибка. Попробуйте снова."
	placeholderMenu   = "Выберите действие"
	placeholderCancel = "Нажмите для отмены"
	placeholderDate   = "ДД.ММ.ГГГГ"
)

// kindTitle is the nominative name of a kind, kindAccusative the form used
// after "изменен на".
func kindTitle(k records.Kind) string {
	if k == records.KindWithdrawal {
		return "продажа"
	}
	return "пополнение"
}

func kindAccusative(k records.Kind) string {
	if k == records.KindWithdrawal {
		return "продажу"
	}
	return "пополнение"
}

func kindIcon(k records.Kind) string {
	if k == records.KindWithdrawal {
		return "💸"
	}
	return "💰"
}
