package bot

// Button labels. The state machine matches incoming text against these, the
// transport renders them; their content is otherwise opaque to both sides.
const (
	btnOpenApp    = "🚀 Открыть приложение"
	btnBalance    = "📊 Баланс"
	btnStats      = "📈 Статистика"
	btnAddIncome  = "💰 Добавить доход"
	btnAddExpense = "💸 Добавить расход"
	btnHelp       = "❓ Помощь"
	btnBack       = "🔙 Назад"

	btnPeriodDay   = "День"
	btnPeriodWeek  = "Неделя"
	btnPeriodMonth = "Месяц"
)

const welcomeText = `🏦 *Финансовый трекер*

Привет! Я помогу тебе отслеживать доходы и расходы.

*Доступные функции:*
• Добавление доходов и расходов
• Просмотр текущего баланса
• Статистика за день, неделю и месяц
• Категоризация транзакций

Используй кнопки меню для навигации!`

const helpText = `📖 *Как пользоваться ботом:*

*Добавление транзакций:*
1. Нажми "💰 Добавить доход" или "💸 Добавить расход"
2. Выбери категорию
3. Введи сумму (например: 1500 или 1500 за обед)

*Просмотр данных:*
• "📊 Баланс" - текущий баланс
• "📈 Статистика" - данные за день, неделю или месяц

*Примеры ввода суммы:*
• 1500
• 1500 зарплата
• 500 обед в кафе`

// Button is one labeled choice. A non-empty WebAppURL marks it as a rich
// client launch button; the transport decides how to render that.
type Button struct {
	Label     string
	WebAppURL string
}

// Reply is the abstract output of the state machine: text plus an optional
// keyboard descriptor. A zero Reply means nothing should be sent.
type Reply struct {
	Text     string
	Keyboard [][]Button
	Markdown bool
}

func (r Reply) IsZero() bool { return r.Text == "" }

func (d *Dialog) mainKeyboard(webAppURL string) [][]Button {
	var rows [][]Button
	if webAppURL != "" {
		rows = append(rows, []Button{{Label: btnOpenApp, WebAppURL: webAppURL}})
	}
	rows = append(rows,
		[]Button{{Label: btnBalance}, {Label: btnStats}},
		[]Button{{Label: btnAddIncome}, {Label: btnAddExpense}},
		[]Button{{Label: btnHelp}},
	)
	return rows
}

func (d *Dialog) categoryKeyboard() [][]Button {
	rows := make([][]Button, 0, len(d.categories)+1)
	for _, cat := range d.categories {
		rows = append(rows, []Button{{Label: cat}})
	}
	rows = append(rows, []Button{{Label: btnBack}})
	return rows
}

func backKeyboard() [][]Button {
	return [][]Button{{{Label: btnBack}}}
}

func periodKeyboard() [][]Button {
	return [][]Button{
		{{Label: btnPeriodDay}, {Label: btnPeriodWeek}, {Label: btnPeriodMonth}},
		{{Label: btnBack}},
	}
}
