package workflow

// Button labels double as the menu options sent to the adapter and as the
// match keys the adapter uses to map pressed buttons back to events.
const (
	ButtonPassport = "📘 Паспорт"
	ButtonLicense  = "🚗 Водительское удостоверение"
	ButtonPatent   = "📄 Патент"
	ButtonBack     = "⬅️ В меню"
)

const (
	msgChooseType = "🔄 Начинаем новую сессию распознавания.\n" +
		"Выберите тип документа.\n" +
		"Для отмены используйте /cancel, для статуса — /status."

	msgSendPassport = "1️⃣ Отправьте чёткое фото страницы паспорта (JPEG/PNG).\n" +
		"2️⃣ После успешного распознавания пришлите голосовое сообщение " +
		"с номером телефона и названием банка."
	msgSendLicenseFront = "1️⃣ Отправьте фото лицевой стороны водительского удостоверения."
	msgSendLicenseBack  = "2️⃣ Теперь отправьте фото оборотной стороны удостоверения."
	msgSendPatent       = "1️⃣ Отправьте чёткое фото патента."
	msgSendVoice        = "Теперь отправьте голосовое сообщение с номером телефона и банком."

	msgRecognizingDocument = "⌛ Распознаю документ, пожалуйста подождите..."
	msgProcessingVoice     = "⌛ Обрабатываю голосовое сообщение..."

	msgDocumentRecognized = "✅ Документ распознан:\n```json\n%s\n```\n" + msgSendVoice
	msgFinalResult        = "🎉 Готово! Итоговый JSON:\n```json\n%s\n```"

	msgDocumentRejected = "❌ Ошибка распознавания: %s"
	msgAudioRejected    = "❌ Ошибка обработки аудио: %s"
	msgDocumentFailed   = "❌ Не удалось обработать изображение. Попробуйте снова позже."
	msgAudioFailed      = "❌ Не удалось обработать голос. Попробуйте позже."
	msgLicenseRecapture = "Обе стороны нужно сфотографировать заново."

	msgCancelled = "❌ Сессия очищена. Используйте /start для новой попытки."
	msgNoSession = "ℹ️ Нет активной сессии. Используйте /start."

	msgAwaitPhotoGuidance = "⚠️ Сейчас ожидается фото документа.\n" +
		"Используйте /start, чтобы начать заново."
	msgAwaitVoiceGuidance = "⚠️ Сейчас ожидается голосовое сообщение.\n" +
		"Используйте /start, чтобы начать заново."
	msgSelectTypeGuidance = "⚠️ Сначала выберите тип документа."
	msgTextGuidance       = "ℹ️ Используйте последовательность: /start → документ → голосовое сообщение.\n" +
		"Команды: /status для проверки этапа, /cancel для сброса."

	// MsgBusy is sent by the transport adapter when a user's event queue
	// overflows.
	MsgBusy = "⚠️ Слишком много сообщений подряд. Подождите, пока обработаются предыдущие."

	msgStatusSelecting    = "🗂 Ожидаю выбор типа документа."
	msgStatusPhoto        = "🖼 Ожидаю фото документа."
	msgStatusLicenseFront = "🖼 Ожидаю фото лицевой стороны удостоверения."
	msgStatusLicenseBack  = "🖼 Ожидаю фото оборотной стороны удостоверения."
	msgStatusVoice        = "✅ Документ распознан. ФИО: %s. Теперь пришлите голосовое сообщение."

	msgBankUnknown = "не указано"
)
