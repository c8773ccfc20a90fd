package intake

// Fixed user-facing texts.
const (
	StartButtonLabel = "🚀 Старт"

	TextGreeting      = "Вітаю! Натисніть «Старт», щоб почати 👇"
	TextPickFlow      = "Оберіть тип заявки:"
	TextSubmitted     = "✅ Заявку успішно надіслано\n\nХочете створити нову?"
	TextSubmitFailed  = "⚠️ Не вдалося надіслати заявку. Спробуйте ще раз пізніше."
	TextGenericFail   = "⚠️ Сталася помилка. Спробуйте ще раз."
	TextNoActiveFlow  = "Натисніть «🚀 Старт», щоб створити заявку"
	TextFirstStep     = "Це перший крок"
	TextUseButtons    = "Оберіть варіант за допомогою кнопок 👇"
	TextAttachOrSkip  = "Надішліть фото / відео / файл або натисніть «➡️ Пропустити»"
	TextExpectText    = "❌ Очікується текстова відповідь"
	TextUnknownOption = "Цей варіант більше недоступний"
	TextSlowDown      = "⏳ Занадто часто, зачекайте секунду"

	TextUnsupportedFormat   = "❌ Непідтримуваний формат"
	TextUnsupportedDocument = "❌ Дозволені файли: Excel, Word або PDF"

	LabelParking  = "🅿️ Паркінг"
	LabelBuilding = "🏢 Приміщення"
	LabelBack     = "⬅️ Назад"
	LabelSkip     = "➡️ Пропустити"
)

// Callback tokens that are not step options.
const (
	TokenStartBuilding = "start_building"
	TokenStartParking  = "start_parking"
	TokenBack          = "back"
	TokenSkip          = "skip"
)
