package presenter

import (
	"fmt"
	"strings"

	"github.com/yogakitties/yogakitties-bot/internal/application/command"
	"github.com/yogakitties/yogakitties-bot/internal/application/query"
	"github.com/yogakitties/yogakitties-bot/internal/domain/conversation"
	"github.com/yogakitties/yogakitties-bot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ТЕКСТЫ СООБЩЕНИЙ
// ══════════════════════════════════════════════════════════════════════════════

const (
	// TextError - общий ответ при сбое.
	TextError = "Произошла ошибка 😢. Попробуйте позднее."

	// TextFallback - ответ на сообщение, которое бот не понял.
	TextFallback = "Когда-нибудь я научусь поддерживать осмысленные разговоры " +
		"о йоге, жизни, вселенной и всё такое.. 😌\n" +
		"а пока воспользуйтесь функционалом записи на занятия 🙂"

	TextSessionNotFound = "Такой группы больше нет. Откройте расписание ещё раз."

	TextNotAdmin     = "Команда доступна только администраторам."
	TextResetUsage   = "Использование: /reset_workouts <id пользователя>"
	TextAdminUnknown = "Пользователь не найден."
)

// Greeting приветствует пользователя после /start.
func Greeting(firstName string) string {
	return fmt.Sprintf("Привет, йога-котик %s 😻\n"+
		"Я буду управлять твоей записью на занятия йоги 🙏", firstName)
}

// Schedule - экран выбора группы.
func Schedule(s *query.ScheduleDTO) string {
	return fmt.Sprintf("Предстоящее занятие состоится: %s\n"+
		"Выберите группу, в которую хотите записаться:", timeutil.FormatClassDay(s.ClassDate))
}

// Subscribed - итог записи.
func Subscribed(r *command.SubscribeResult) string {
	if r.Status == command.StatusAlreadySubscribed {
		return "Вы уже записаны в группу: " + r.SessionName
	}
	return "Записал вас в группу: " + r.SessionName
}

// Unsubscribed - итог отписки. Отписка не-участника подтверждается так же.
func Unsubscribed(r *command.UnsubscribeResult) string {
	return "Вы отписаны от занятия: " + r.SessionName
}

// Participants - список записавшихся.
func Participants(p *query.ParticipantsDTO) string {
	if p.Empty() {
		return fmt.Sprintf("В группу \"%s\" ещё никто не записался 😢", p.SessionName)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Количество участников: %d\n", p.Count())
	for _, name := range p.Names {
		b.WriteString("\n- ")
		b.WriteString(name)
	}
	return b.String()
}

// Profile - карточка пользователя.
func Profile(p *query.ProfileDTO) string {
	return fmt.Sprintf("Информация о пользователе:\n"+
		"Имя: %s\n"+
		"Количество тренировок: %d", p.FullName(), p.WorkoutCount)
}

// ConversationReply переводит ответ диалога в текст.
func ConversationReply(r conversation.Reply) string {
	switch r {
	case conversation.ReplyAskFirstName:
		return "- Для перехода к изменению фамилии, отправьте /skip\n" +
			"- Для завершения разговора отправьте /cancel\n\n" +
			"Напишите пожалуйста имя:"
	case conversation.ReplyFirstNameSaved:
		return "Имя успешно изменено. Напишите пожалуйста фамилию или /skip"
	case conversation.ReplyAskLastName:
		return "Напишите пожалуйста фамилию или /skip"
	case conversation.ReplyEmptyName:
		return "Пустое значение не подойдёт. Напишите ещё раз, /skip или /cancel"
	case conversation.ReplySaved:
		return "Спасибо! Изменения сохранены."
	case conversation.ReplyCancelled:
		return "Может быть продолжим в следующий раз 🙂"
	default:
		return TextError
	}
}

// WorkoutsReset подтверждает сброс счётчика.
func WorkoutsReset(userID string) string {
	return fmt.Sprintf("Счётчик тренировок пользователя %s обнулён.", userID)
}

// RateLimited просит подождать.
func RateLimited(seconds int) string {
	return fmt.Sprintf("⏳ Слишком много запросов! Подождите %d сек.", max(seconds, 1))
}
