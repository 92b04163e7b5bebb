// Package progression содержит доменную модель движка прогрессии SkillPath.
//
// Это ядро бизнес-логики геймификации. Пакет определяет:
//
//   - Сущности (Entities): State (агрегат прогрессии), XPTransaction, EarnedBadge
//   - Value Objects: Milestone, Difficulty, Criteria, BadgeStats
//   - Чистые вычисления: MilestoneTable.ComputeLevel, CalculateLessonXP
//   - Движок (Engine): применение событий завершения уроков к состоянию
//   - Интерфейсы репозиториев: Repository, LedgerRepository
//
// # Архитектурные принципы
//
// Пакет следует принципам Clean Architecture и DDD:
//
//  1. Нулевые внешние зависимости - только стандартная библиотека Go
//  2. Dependency Inversion - определяет интерфейсы, которые реализуются в infrastructure
//  3. Rich Domain Model - бизнес-логика инкапсулирована в сущностях
//
// # Поток применения события
//
// Событие завершения урока проходит через фиксированную последовательность:
//
//	engine, _ := NewEngine(DefaultMilestoneTable(), DefaultBadgeRegistry(), timeutil.UTCCalendar())
//	result, err := engine.ApplyCompletion(state, event)
//
// Внутри ApplyCompletion, строго по порядку:
//
//  1. Журнал XP добавляет транзакцию и обновляет TotalXP
//  2. Пересчитываются поля уровня по таблице вех
//  3. Обновляется серия активных дней и дневной счётчик
//  4. Проверяются все ещё не полученные значки; каждая награда
//     добавляет свою XP-транзакцию и снова пересчитывает уровень
//
// События применяются в неубывающем порядке времени. Применение
// задним числом - неопределённое поведение, а не тихий ремонт.
//
// # Инварианты агрегата
//
//   - CurrentStreak <= LongestStreak
//   - TotalXP равен сумме всех транзакций журнала
//   - BadgeID встречается в Badges не более одного раза
//   - Level однозначно вычисляется из TotalXP по таблице вех
//
// Расхождение TotalXP с суммой журнала - это предупреждение о целостности
// для фоновой сверки, а не фатальная ошибка пользовательского запроса.
package progression
