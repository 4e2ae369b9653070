// Package bot implements the per-user conversation state machine. It maps
// incoming text and button tokens to ledger writes, aggregation reads and a
// next state, emitting abstract replies the messaging transport renders.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/fromsofaraway/financial-tracker/internal/core"
	"github.com/fromsofaraway/financial-tracker/internal/stats"
)

const (
	Idle Mode = iota
	AwaitingIncomeAmount
	AwaitingExpenseCategory
	AwaitingExpenseAmount
	AwaitingStatsPeriod
)

// Mode is the conversation state of one user. Absence of a state entry is
// equivalent to Idle.
type Mode int

// Ledger is the write surface the state machine needs.
type Ledger interface {
	Insert(ctx context.Context, userID int64, kind core.Kind, amount decimal.Decimal, category, description string) (core.Transaction, error)
}

// Stats is the aggregation surface the state machine needs.
type Stats interface {
	Balance(ctx context.Context, userID int64) (decimal.Decimal, error)
	WindowStats(ctx context.Context, userID int64, w stats.Window) (stats.WindowStats, error)
}

// Options configures a Dialog. Zero values fall back to sensible defaults
// except Ledger and Stats, which are required.
type Options struct {
	ExpenseCategories []string
	IncomeCategory    string
	// WebAppLink builds the rich client launch URL for a user. Empty result
	// (or nil func) omits the launch button.
	WebAppLink func(ctx context.Context, userID int64) string
}

// Dialog owns the keyed per-user conversation state. State lives only for
// the process lifetime: a restart resets every user to Idle.
type Dialog struct {
	ledger     Ledger
	stats      Stats
	categories []string
	incomeCat  string
	webAppLink func(ctx context.Context, userID int64) string

	mu     sync.Mutex
	states map[int64]*userState
}

type userState struct {
	mode            Mode
	pendingCategory string
}

func NewDialog(ledger Ledger, st Stats, opts Options) *Dialog {
	if opts.IncomeCategory == "" {
		opts.IncomeCategory = "Доход"
	}
	return &Dialog{
		ledger:     ledger,
		stats:      st,
		categories: opts.ExpenseCategories,
		incomeCat:  opts.IncomeCategory,
		webAppLink: opts.WebAppLink,
		states:     make(map[int64]*userState),
	}
}

// Mode returns the current conversation state for a user.
func (d *Dialog) Mode(userID int64) Mode {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.states[userID]; ok {
		return st.mode
	}
	return Idle
}

func (d *Dialog) state(userID int64) userState {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.states[userID]; ok {
		return *st
	}
	return userState{mode: Idle}
}

func (d *Dialog) setState(userID int64, st userState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st.mode == Idle {
		delete(d.states, userID)
		return
	}
	d.states[userID] = &st
}

// Handle processes one inbound text event for one user. Events for the same
// user must be serialized by the caller; events for different users may run
// concurrently. Errors never escape: each one becomes a user-facing reply,
// and the conversation state is left unchanged so the user can retry.
func (d *Dialog) Handle(ctx context.Context, userID int64, text string) Reply {
	text = strings.TrimSpace(text)

	// Commands and the back button work from any state.
	switch text {
	case "/start":
		d.setState(userID, userState{mode: Idle})
		return Reply{Text: welcomeText, Keyboard: d.mainKeyboard(d.launchURL(ctx, userID)), Markdown: true}
	case "/help", btnHelp:
		return Reply{Text: helpText, Markdown: true}
	case btnBack:
		d.setState(userID, userState{mode: Idle})
		return Reply{Text: "Главное меню:", Keyboard: d.mainKeyboard(d.launchURL(ctx, userID))}
	}

	st := d.state(userID)
	switch st.mode {
	case AwaitingExpenseCategory:
		return d.handleCategoryChoice(userID, text)
	case AwaitingIncomeAmount:
		return d.handleAmount(ctx, userID, text, core.Income, d.incomeCat)
	case AwaitingExpenseAmount:
		return d.handleAmount(ctx, userID, text, core.Expense, st.pendingCategory)
	case AwaitingStatsPeriod:
		return d.handlePeriodChoice(ctx, userID, text)
	default:
		return d.handleIdle(ctx, userID, text)
	}
}

func (d *Dialog) handleIdle(ctx context.Context, userID int64, text string) Reply {
	switch text {
	case btnAddIncome:
		d.setState(userID, userState{mode: AwaitingIncomeAmount})
		return Reply{Text: "💰 Введи сумму дохода:", Keyboard: backKeyboard()}
	case btnAddExpense:
		d.setState(userID, userState{mode: AwaitingExpenseCategory})
		return Reply{Text: "Выбери категорию расхода:", Keyboard: d.categoryKeyboard()}
	case btnBalance:
		return d.replyBalance(ctx, userID)
	case btnStats:
		d.setState(userID, userState{mode: AwaitingStatsPeriod})
		return Reply{Text: "Выбери период статистики:", Keyboard: periodKeyboard()}
	default:
		// Unrecognized input in the rest state is ignored.
		return Reply{}
	}
}

func (d *Dialog) handleCategoryChoice(userID int64, text string) Reply {
	for _, cat := range d.categories {
		if text == cat {
			d.setState(userID, userState{mode: AwaitingExpenseAmount, pendingCategory: cat})
			return Reply{
				Text:     fmt.Sprintf("💸 Категория: *%s*\n\nВведи сумму расхода:", cat),
				Keyboard: backKeyboard(),
				Markdown: true,
			}
		}
	}
	// Anything outside the fixed category set is ignored, no transition.
	return Reply{}
}

func (d *Dialog) handleAmount(ctx context.Context, userID int64, text string, kind core.Kind, category string) Reply {
	amount, description, err := core.ParseAmountInput(text)
	if err != nil {
		// State is untouched: re-sending a corrected amount retries.
		return Reply{Text: "❌ Неверный формат суммы!\n\nПример: 1500 или 1500 описание"}
	}

	t, err := d.ledger.Insert(ctx, userID, kind, amount, category, description)
	if err != nil {
		if core.IsValidation(err) {
			return Reply{Text: "❌ " + err.Error()}
		}
		slog.ErrorContext(ctx, "Ledger insert failed",
			"user_id", userID, "kind", kind, "error", err)
		return Reply{Text: "⚠️ Не получилось сохранить. Попробуй ещё раз."}
	}

	d.setState(userID, userState{mode: Idle})

	var msg string
	if kind == core.Income {
		msg = fmt.Sprintf("✅ Доход добавлен!\n\n💰 *%s ₽*", t.Amount.StringFixed(2))
	} else {
		msg = fmt.Sprintf("✅ Расход добавлен!\n\n💸 *%s ₽*\n📂 %s", t.Amount.StringFixed(2), t.Category)
	}
	if t.Description != "" {
		msg += "\n📝 " + t.Description
	}
	return Reply{Text: msg, Keyboard: d.mainKeyboard(d.launchURL(ctx, userID)), Markdown: true}
}

func (d *Dialog) handlePeriodChoice(ctx context.Context, userID int64, text string) Reply {
	var w stats.Window
	switch text {
	case btnPeriodDay:
		w = stats.Day
	case btnPeriodWeek:
		w = stats.Week
	case btnPeriodMonth:
		w = stats.Month
	default:
		// Not a period token: ignored, stay in AwaitingStatsPeriod.
		return Reply{}
	}

	ws, err := d.stats.WindowStats(ctx, userID, w)
	if err != nil {
		slog.ErrorContext(ctx, "Window stats failed",
			"user_id", userID, "window", w, "error", err)
		return Reply{Text: "⚠️ Не получилось загрузить статистику. Попробуй ещё раз."}
	}

	d.setState(userID, userState{mode: Idle})
	return Reply{
		Text:     formatStats(w, ws),
		Keyboard: d.mainKeyboard(d.launchURL(ctx, userID)),
		Markdown: true,
	}
}

func (d *Dialog) replyBalance(ctx context.Context, userID int64) Reply {
	balance, err := d.stats.Balance(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "Balance query failed", "user_id", userID, "error", err)
		return Reply{Text: "⚠️ Не получилось загрузить баланс. Попробуй ещё раз."}
	}

	text := fmt.Sprintf("💰 *Текущий баланс:* %s ₽", balance.StringFixed(2))
	switch balance.Sign() {
	case 1:
		text += " ✅"
	case -1:
		text += " ❌"
	default:
		text += " ⚖️"
	}
	return Reply{Text: text, Markdown: true}
}

func (d *Dialog) launchURL(ctx context.Context, userID int64) string {
	if d.webAppLink == nil {
		return ""
	}
	return d.webAppLink(ctx, userID)
}

var periodTitles = map[stats.Window]string{
	stats.Day:   "день",
	stats.Week:  "неделю",
	stats.Month: "месяц",
}

func formatStats(w stats.Window, ws stats.WindowStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📈 *Статистика за %s:*\n\n", periodTitles[w])

	if ws.TotalIncome.IsPositive() {
		fmt.Fprintf(&b, "💰 *Доходы:* %s ₽\n", ws.TotalIncome.StringFixed(2))
		for _, cat := range sortedKeys(ws.IncomeByCategory) {
			fmt.Fprintf(&b, "  • %s: %s ₽\n", cat, ws.IncomeByCategory[cat].StringFixed(2))
		}
		b.WriteString("\n")
	}
	if ws.TotalExpense.IsPositive() {
		fmt.Fprintf(&b, "💸 *Расходы:* %s ₽\n", ws.TotalExpense.StringFixed(2))
		for _, cat := range sortedKeys(ws.ExpenseByCategory) {
			fmt.Fprintf(&b, "  • %s: %s ₽\n", cat, ws.ExpenseByCategory[cat].StringFixed(2))
		}
		b.WriteString("\n")
	}

	diff := ws.TotalIncome.Sub(ws.TotalExpense)
	fmt.Fprintf(&b, "📊 *Разница:* %s ₽", diff.StringFixed(2))
	switch diff.Sign() {
	case 1:
		b.WriteString(" ✅")
	case -1:
		b.WriteString(" ❌")
	}
	return b.String()
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
