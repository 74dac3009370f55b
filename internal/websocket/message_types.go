package websocket

// Исходящие события комнаты викторины
const (
	// EventParticipantJoined сообщает о новом участнике
	EventParticipantJoined = "quiz:participant_joined"

	// EventAttemptCompleted сообщает о завершении попытки участника
	EventAttemptCompleted = "quiz:attempt_completed"

	// EventLeaderboardUpdated содержит обновленный рейтинг
	EventLeaderboardUpdated = "quiz:leaderboard_updated"

	// EventQuizEnded сообщает о завершении викторины
	EventQuizEnded = "quiz:ended"

	// EventStats содержит статистику участия по запросу клиента
	EventStats = "quiz:stats"

	// EventError сообщает клиенту об ошибке обработки сообщения
	EventError = "server:error"

	// EventPong отвечает на прикладной ping
	EventPong = "server:pong"
)

// Входящие сообщения клиента
const (
	MessagePing         = "client:ping"
	MessageStatsRequest = "client:stats"
)
