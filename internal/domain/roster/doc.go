// Package roster содержит доменную модель записи на занятия йогой.
//
// Пакет определяет:
//
//   - Сущности: User (профиль участника), Session (группа занятия), Participant
//   - Value Objects: UserID, SessionID, NameField
//   - Интерфейс хранилища Store, реализации которого находятся в
//     infrastructure/persistence (memory, postgres, sqlite)
//
// # Инварианты
//
// Пользователь присутствует в списке группы не более одного раза. Повторная
// запись и отписка неучастника не являются ошибками: Store сообщает об этом
// булевым результатом.
//
// Имя участника в списке группы фиксируется в момент записи и не обновляется
// при последующем редактировании профиля.
//
// Счётчик тренировок (WorkoutCount) не убывает; единственное исключение это
// административный сброс через Store.ResetWorkouts.
//
// # Пример
//
//	sid, _ := store.EnsureSession(ctx, "Йога 17:30")
//	added, err := store.AddParticipant(ctx, sid, roster.UserID("42"), "АннаПетрова")
//	if err != nil {
//	    return err
//	}
//	if !added {
//	    // уже записан
//	}
package roster
